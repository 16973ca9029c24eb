// Package tools connects to MCP tool servers with mcp-go and adapts them to
// the dispatcher's ToolServer interface.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

// ClientName and ClientVersion identify this client in the MCP handshake.
const (
	ClientName    = "mcpskill"
	ClientVersion = "0.1.0"
)

// MCPConnection wraps an initialized mcp-go client for a single tool server.
type MCPConnection struct {
	name   string
	client *client.Client
}

// Launch starts an MCP server subprocess and initializes the connection.
func Launch(ctx context.Context, name string, spec dispatch.LaunchSpec) (*MCPConnection, error) {
	c, err := client.NewStdioMCPClient(spec.Command, spec.Env, spec.Args...)
	if err != nil {
		return nil, dispatch.NewError(dispatch.KindSubprocessStart,
			fmt.Sprintf("starting server %s (%s)", name, spec.Command), err)
	}
	return Connect(ctx, name, c)
}

// Connect performs the initialize handshake on an already started client.
// The client is closed if the handshake fails.
func Connect(ctx context.Context, name string, c *client.Client) (*MCPConnection, error) {
	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    ClientName,
				Version: ClientVersion,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		c.Close()
		return nil, dispatch.NewError(dispatch.KindProtocol, fmt.Sprintf("initializing server %s", name), err)
	}

	return &MCPConnection{name: name, client: c}, nil
}

// ListTools describes the server's tools.
func (mc *MCPConnection) ListTools(ctx context.Context) ([]dispatch.ToolInfo, error) {
	result, err := mc.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, dispatch.NewError(dispatch.KindProtocol, fmt.Sprintf("listing tools from %s", mc.name), err)
	}

	infos := make([]dispatch.ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		infos = append(infos, dispatch.ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: inputSchema(t),
		})
	}
	return infos, nil
}

// inputSchema returns the tool's schema as the server sent it.
func inputSchema(t mcp.Tool) any {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema
	}
	schema := map[string]any{
		"type": t.InputSchema.Type,
	}
	if t.InputSchema.Properties != nil {
		schema["properties"] = t.InputSchema.Properties
	}
	if len(t.InputSchema.Required) > 0 {
		schema["required"] = t.InputSchema.Required
	}
	return schema
}

// CallTool invokes a tool on this MCP server and returns the text result.
// A result the server flags as an error is returned as a ToolInvocationError.
func (mc *MCPConnection) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := mc.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", dispatch.NewError(dispatch.KindProtocol, fmt.Sprintf("calling tool %s on %s", name, mc.name), err)
	}

	text := Stringify(result)
	if result.IsError {
		return "", dispatch.NewError(dispatch.KindToolInvocation,
			fmt.Sprintf("tool %s on %s failed", name, mc.name), errors.New(text))
	}
	return text, nil
}

// Stringify renders a tool result as text. Text blocks are joined with
// newlines; other content kinds get a short placeholder.
func Stringify(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s, %d bytes base64]", v.MIMEType, len(v.Data)))
		case mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[audio %s, %d bytes base64]", v.MIMEType, len(v.Data)))
		case mcp.EmbeddedResource:
			parts = append(parts, resourceText(v.Resource))
		default:
			data, err := json.Marshal(c)
			if err != nil {
				parts = append(parts, fmt.Sprintf("%v", c))
				continue
			}
			parts = append(parts, string(data))
		}
	}
	if len(parts) == 0 && result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			return string(data)
		}
	}
	return strings.Join(parts, "\n")
}

func resourceText(r mcp.ResourceContents) string {
	switch v := r.(type) {
	case mcp.TextResourceContents:
		return v.Text
	case mcp.BlobResourceContents:
		return fmt.Sprintf("[resource %s, %s]", v.URI, v.MIMEType)
	}
	return "[resource]"
}

// Close shuts down the MCP server subprocess.
func (mc *MCPConnection) Close() error {
	return mc.client.Close()
}
