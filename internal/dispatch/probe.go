package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeResult is the outcome of asking one server for its tools.
type ProbeResult struct {
	Server   string        `json:"server"`
	Tools    int           `json:"tools"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the server answered.
func (p ProbeResult) OK() bool { return p.Error == "" }

// Probe lists the tools of every enabled server, a few servers at a time.
// Individual server failures are reported in the results; only a
// configuration failure is returned as an error.
func (d *Dispatcher) Probe(ctx context.Context) ([]ProbeResult, error) {
	names, err := d.listServers()
	if err != nil {
		return nil, err
	}

	results := make([]ProbeResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if d.probeLimit > 0 {
		g.SetLimit(d.probeLimit)
	}

	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			tools, err := d.ToolDetails(gctx, name)
			res := ProbeResult{Server: name, Tools: len(tools), Duration: time.Since(start)}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.OK() {
			d.logger.Debug("probe", "server", r.Server, "tools", r.Tools)
		} else {
			d.logger.Warn("probe failed", "server", r.Server, "err", r.Error)
		}
	}
	return results, nil
}
