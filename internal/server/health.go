package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

// Prober lists the tools of every enabled server.
type Prober interface {
	Probe(ctx context.Context) ([]dispatch.ProbeResult, error)
}

// HealthReport is the most recent probe of all servers.
type HealthReport struct {
	CheckedAt time.Time              `json:"checked_at"`
	Servers   []dispatch.ProbeResult `json:"servers"`
	Error     string                 `json:"error,omitempty"`
}

// Healthy reports whether the configuration loaded and every server answered.
func (h HealthReport) Healthy() bool {
	if h.Error != "" {
		return false
	}
	for _, s := range h.Servers {
		if !s.OK() {
			return false
		}
	}
	return true
}

// HealthMonitor caches probe results and optionally refreshes them on a
// cron schedule.
type HealthMonitor struct {
	prober Prober

	mu   sync.RWMutex
	last *HealthReport

	cron *cron.Cron
}

// NewHealthMonitor creates a monitor over prober.
func NewHealthMonitor(prober Prober) *HealthMonitor {
	return &HealthMonitor{prober: prober}
}

// Refresh probes all servers and stores the result.
func (h *HealthMonitor) Refresh(ctx context.Context) HealthReport {
	report := HealthReport{CheckedAt: time.Now().UTC(), Servers: []dispatch.ProbeResult{}}
	results, err := h.prober.Probe(ctx)
	if err != nil {
		report.Error = err.Error()
	} else if results != nil {
		report.Servers = results
	}

	h.mu.Lock()
	h.last = &report
	h.mu.Unlock()
	return report
}

// Report returns the last probe, running one if none has happened yet.
func (h *HealthMonitor) Report(ctx context.Context) HealthReport {
	h.mu.RLock()
	last := h.last
	h.mu.RUnlock()
	if last != nil {
		return *last
	}
	return h.Refresh(ctx)
}

// Schedule starts refreshing on the given standard five-field cron
// expression (descriptors such as "@every 5m" are accepted too).
// An empty schedule is a no-op.
func (h *HealthMonitor) Schedule(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}
	h.cron = cron.New()
	_, err := h.cron.AddFunc(schedule, func() {
		report := h.Refresh(ctx)
		if !report.Healthy() {
			log.Printf("health probe: %d server(s), error=%q", len(report.Servers), report.Error)
		}
	})
	if err != nil {
		h.cron = nil
		return fmt.Errorf("invalid probe schedule %q: %w", schedule, err)
	}
	h.cron.Start()
	log.Printf("Health probe scheduled: %s", schedule)
	return nil
}

// Stop halts the scheduled probe and waits for a running one to finish.
func (h *HealthMonitor) Stop() {
	if h.cron != nil {
		<-h.cron.Stop().Done()
	}
}
