// Package dispatch forwards named tool calls to MCP tool servers described
// in the server configuration file.
//
// Every call re-reads the configuration, launches a fresh server
// subprocess, performs one request and tears the subprocess down again.
// Dispatch never returns an error value: failures come back as strings of
// the form "Error: <message>".
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/michaelbrown/mcpskill/internal/mcpconfig"
)

// Reserved tool names handled by the dispatcher itself.
const (
	ToolListServers = "list_available_servers"
	ToolDetails     = "tool_details"
)

// Call names a tool on a server and carries its arguments.
type Call struct {
	Server string `json:"server,omitempty"`
	Tool   string `json:"tool,omitempty"`
	Args
}

// ToolInfo describes one tool offered by a server.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

// ToolServer is a connected, initialized tool server.
type ToolServer interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// LaunchSpec is everything needed to start a server subprocess.
type LaunchSpec struct {
	Command string
	Args    []string
	Env     []string
}

// Launcher starts a tool server and completes the protocol handshake.
type Launcher interface {
	Launch(ctx context.Context, name string, spec LaunchSpec) (ToolServer, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, name string, spec LaunchSpec) (ToolServer, error)

func (f LauncherFunc) Launch(ctx context.Context, name string, spec LaunchSpec) (ToolServer, error) {
	return f(ctx, name, spec)
}

// Record is what a Hook observes after each dispatched call.
type Record struct {
	Call     Call
	Result   string
	Kind     Kind
	Started  time.Time
	Duration time.Duration
}

// IsError reports whether the call failed.
func (r Record) IsError() bool { return r.Kind != "" }

// Hook observes completed calls. It receives the caller's context, not the
// call's bounded one.
type Hook func(ctx context.Context, rec Record)

// Dispatcher resolves servers and forwards calls to them.
type Dispatcher struct {
	locator    mcpconfig.Locator
	launcher   Launcher
	resolver   commandResolver
	environ    func() []string
	timeout    time.Duration
	probeLimit int
	hook       Hook
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRunners replaces the package-runner aliases.
func WithRunners(runners []Runner) Option {
	return func(d *Dispatcher) { d.resolver.runners = runners }
}

// WithTimeout bounds each call. Zero means no bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithHook registers an observer for completed Dispatch calls.
func WithHook(h Hook) Option {
	return func(d *Dispatcher) { d.hook = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithProbeLimit bounds the number of servers probed at once.
func WithProbeLimit(n int) Option {
	return func(d *Dispatcher) { d.probeLimit = n }
}

// WithEnviron sets the base environment placed in LaunchSpec.Env ahead of
// the server's overrides (os.Environ by default). The mcp-go stdio
// transport prepends the real process environment to whatever it is given,
// so this adds to the launched process's environment rather than replacing it.
func WithEnviron(environ func() []string) Option {
	return func(d *Dispatcher) { d.environ = environ }
}

// New creates a Dispatcher that finds its configuration with locator and
// starts servers with launcher.
func New(locator mcpconfig.Locator, launcher Launcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		locator:    locator,
		launcher:   launcher,
		resolver:   newCommandResolver(DefaultRunners()),
		environ:    os.Environ,
		probeLimit: 4,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch performs call and returns its textual result, or an error
// string starting with "Error: ".
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (out string) {
	start := time.Now()
	var kind Kind

	defer func() {
		if r := recover(); r != nil {
			err := NewError(KindProtocol, fmt.Sprintf("server %s panicked", call.Server), fmt.Errorf("%v", r))
			out, kind = Format(err), KindProtocol
		}
		d.logger.Debug("dispatch",
			"server", call.Server, "tool", call.Tool,
			"error_kind", string(kind), "duration", time.Since(start))
		if d.hook != nil {
			d.hook(ctx, Record{
				Call:     call,
				Result:   out,
				Kind:     kind,
				Started:  start,
				Duration: time.Since(start),
			})
		}
	}()

	callCtx, cancel := d.bound(ctx)
	defer cancel()

	out, err := d.dispatch(callCtx, call)
	if err != nil {
		kind = KindOf(err)
		if kind == "" {
			kind = KindProtocol
		}
		return Format(err)
	}
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, call Call) (string, error) {
	switch call.Tool {
	case ToolListServers:
		names, err := d.listServers()
		if err != nil {
			return "", err
		}
		return indentJSON(names)
	case ToolDetails:
		tools, err := d.toolDetails(ctx, call.Server)
		if err != nil {
			return "", err
		}
		return indentJSON(tools)
	default:
		return d.callTool(ctx, call)
	}
}

// ListServers returns the enabled server names in configuration order.
func (d *Dispatcher) ListServers(ctx context.Context) ([]string, error) {
	return d.listServers()
}

// ToolDetails connects to server and describes its tools.
func (d *Dispatcher) ToolDetails(ctx context.Context, server string) ([]ToolInfo, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.toolDetails(ctx, server)
}

// CallTool is Dispatch for callers that want a Go error instead of an
// error string. Reserved tool names are not intercepted.
func (d *Dispatcher) CallTool(ctx context.Context, call Call) (string, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.callTool(ctx, call)
}

func (d *Dispatcher) listServers() ([]string, error) {
	file, err := d.loadConfig()
	if err != nil {
		return nil, err
	}
	return file.Enabled(), nil
}

func (d *Dispatcher) toolDetails(ctx context.Context, server string) ([]ToolInfo, error) {
	ts, err := d.open(ctx, server)
	if err != nil {
		return nil, err
	}
	defer d.closeServer(server, ts)

	tools, err := ts.ListTools(ctx)
	if err != nil {
		return nil, classify(KindProtocol, err, "listing tools on %s", server)
	}
	if tools == nil {
		tools = []ToolInfo{}
	}
	return tools, nil
}

func (d *Dispatcher) callTool(ctx context.Context, call Call) (string, error) {
	file, err := d.loadConfig()
	if err != nil {
		return "", err
	}
	entry, err := lookup(file, call.Server)
	if err != nil {
		return "", err
	}
	if call.Tool == "" {
		return "", NewError(KindMissingTool, "Tool name required", nil)
	}

	ts, err := d.launch(ctx, entry)
	if err != nil {
		return "", err
	}
	defer d.closeServer(entry.Name, ts)

	result, err := ts.CallTool(ctx, call.Tool, call.Args.Map())
	if err != nil {
		return "", classify(KindToolInvocation, err, "calling %s on %s", call.Tool, entry.Name)
	}
	return result, nil
}

// open resolves and launches the named server.
func (d *Dispatcher) open(ctx context.Context, server string) (ToolServer, error) {
	file, err := d.loadConfig()
	if err != nil {
		return nil, err
	}
	entry, err := lookup(file, server)
	if err != nil {
		return nil, err
	}
	return d.launch(ctx, entry)
}

func (d *Dispatcher) launch(ctx context.Context, entry mcpconfig.Server) (ToolServer, error) {
	if entry.Command == "" {
		return nil, NewError(KindConfigInvalid, fmt.Sprintf("Server %s has no command", entry.Name), nil)
	}

	spec := LaunchSpec{
		Command: d.resolver.Resolve(entry.Command),
		Args:    entry.Args,
		Env:     entry.Environ(d.environ()),
	}
	d.logger.Debug("launching server", "server", entry.Name, "command", spec.Command, "args", spec.Args)

	ts, err := d.launcher.Launch(ctx, entry.Name, spec)
	if err != nil {
		return nil, classify(KindSubprocessStart, err, "starting server %s", entry.Name)
	}
	return ts, nil
}

func (d *Dispatcher) closeServer(name string, ts ToolServer) {
	if err := ts.Close(); err != nil {
		d.logger.Debug("closing server", "server", name, "err", err)
	}
}

func (d *Dispatcher) loadConfig() (*mcpconfig.File, error) {
	file, err := d.locator.Load()
	if err != nil {
		if mcpconfig.IsNotFound(err) {
			return nil, NewError(KindConfigNotFound, "", err)
		}
		return nil, NewError(KindConfigInvalid, "", err)
	}
	return file, nil
}

func lookup(file *mcpconfig.File, server string) (mcpconfig.Server, error) {
	if server == "" {
		return mcpconfig.Server{}, NewError(KindMissingServer, "Server parameter required for tool operations", nil)
	}
	entry, ok := file.Lookup(server)
	if !ok {
		return mcpconfig.Server{}, NewError(KindServerNotFound, fmt.Sprintf("Server %s not found", server), nil)
	}
	if !entry.IsEnabled() {
		return mcpconfig.Server{}, NewError(KindServerDisabled, fmt.Sprintf("Server %s is disabled in configuration", server), nil)
	}
	return entry, nil
}

func (d *Dispatcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(ctx, d.timeout)
	}
	return context.WithCancel(ctx)
}

func indentJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", NewError(KindProtocol, "encoding result", err)
	}
	return string(data), nil
}
