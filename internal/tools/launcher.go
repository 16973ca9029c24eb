package tools

import (
	"context"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

// Launcher starts stdio MCP servers for the dispatcher.
type Launcher struct{}

// Launch implements dispatch.Launcher.
func (Launcher) Launch(ctx context.Context, name string, spec dispatch.LaunchSpec) (dispatch.ToolServer, error) {
	conn, err := Launch(ctx, name, spec)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
