// Package manifest describes the dispatch tool as an agent-framework tool
// component, so the framework can offer it to a model.
package manifest

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Description is the discovery-first usage text given to the model.
const Description = `Dynamic MCP (Model Context Protocol) client that provides access to various server capabilities.

This tool follows a discovery-first approach. To use it effectively:

1. List available servers:
   mcp(tool='list_available_servers')

2. Discover tools for a specific server:
   mcp(server='server_name', tool='tool_details')

3. Execute a specific tool:
   mcp(server='server_name', tool='tool_name', path='/path/to/file')

Named parameters are forwarded only when supplied. Tool-specific parameters
that have no named slot go in 'arguments'.

Common examples:
- Web search: mcp(server='web-search', tool='web_search', query='search terms', count=5)
- Read a file: mcp(server='filesystem', tool='read_file', path='/path/to/file')

Errors are returned as text starting with "Error: ". Always check tool
availability and details before use as capabilities may change.`

// Parameter is one input the tool accepts.
type Parameter struct {
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	Description string         `json:"description" yaml:"description"`
	Required    bool           `json:"required" yaml:"required"`
	Items       map[string]any `json:"items,omitempty" yaml:"items,omitempty"`
}

// Component is the tool component descriptor.
type Component struct {
	ComponentType string      `json:"component_type" yaml:"component_type"`
	Name          string      `json:"name" yaml:"name"`
	Description   string      `json:"description" yaml:"description"`
	ToolType      string      `json:"tool_type" yaml:"tool_type"`
	Command       []string    `json:"command,omitempty" yaml:"command,omitempty"`
	Parameters    []Parameter `json:"parameters" yaml:"parameters"`
}

// Parameters lists the dispatch tool's inputs in presentation order.
func Parameters() []Parameter {
	str := func(name, desc string) Parameter {
		return Parameter{Name: name, Type: "string", Description: desc}
	}
	strList := func(name, desc string) Parameter {
		return Parameter{Name: name, Type: "array", Description: desc, Items: map[string]any{"type": "string"}}
	}

	return []Parameter{
		{Name: "tool", Type: "string", Required: true,
			Description: "Tool to run, or 'list_available_servers' / 'tool_details'"},
		str("server", "Server that provides the tool; required except for list_available_servers"),
		str("query", "Search query"),
		str("path", "File or directory path"),
		{Name: "count", Type: "integer", Description: "Number of results"},
		str("content", "Content to write"),
		{Name: "edits", Type: "array", Description: "Edits to apply, each {oldText, newText}",
			Items: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"oldText": map[string]any{"type": "string"},
					"newText": map[string]any{"type": "string"},
				},
				"required": []string{"oldText", "newText"},
			}},
		strList("paths", "Several file paths"),
		str("source", "Source path for a move"),
		str("destination", "Destination path for a move"),
		str("pattern", "Search pattern"),
		strList("excludePatterns", "Patterns to exclude from a search"),
		{Name: "dryRun", Type: "boolean", Description: "Preview changes without writing"},
		{Name: "arguments", Type: "object", Description: "Additional tool-specific arguments; named parameters take precedence"},
	}
}

// Build returns the component descriptor. command, when non-empty, is the
// argv a framework runs to invoke the tool.
func Build(command ...string) Component {
	return Component{
		ComponentType: "tool",
		Name:          "mcp",
		Description:   Description,
		ToolType:      "Command",
		Command:       command,
		Parameters:    Parameters(),
	}
}

// Format is an output encoding for a component.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode renders c in the given format. JSON uses a two-space indent.
func (c Component) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("unknown manifest format %q (want json or yaml)", format)
	}
}
