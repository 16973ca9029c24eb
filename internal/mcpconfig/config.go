// Package mcpconfig loads the MCP server launch configuration file.
//
// The file is JSON of the form
//
//	{"mcpServers": {"<name>": {"enabled": true, "command": "npx", "args": [...], "env": {...}}}}
//
// Server order in the file is preserved so listings are stable.
package mcpconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrInvalid is wrapped by every parse or validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Server is one named launch recipe for a tool-serving subprocess.
type Server struct {
	Name    string            `json:"-"`
	Enabled *bool             `json:"enabled,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// IsEnabled reports whether the server may be used. A missing flag means enabled.
func (s Server) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Environ returns base followed by the server's overrides, so overrides win
// when the list is handed to exec. Values of the form ${VAR} are replaced
// with the current value of VAR.
func (s Server) Environ(base []string) []string {
	env := make([]string, 0, len(base)+len(s.Env))
	env = append(env, base...)

	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, k+"="+expand(s.Env[k]))
	}
	return env
}

func expand(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}

// File is a parsed configuration file.
type File struct {
	Path    string
	servers *orderedmap.OrderedMap[string, Server]
}

// Lookup returns the named server entry.
func (f *File) Lookup(name string) (Server, bool) {
	return f.servers.Get(name)
}

// Names returns every configured server name in file order.
func (f *File) Names() []string {
	names := make([]string, 0, f.servers.Len())
	for pair := f.servers.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Enabled returns the names of enabled servers in file order.
func (f *File) Enabled() []string {
	names := []string{}
	for pair := f.servers.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.IsEnabled() {
			names = append(names, pair.Key)
		}
	}
	return names
}

// Load reads and parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

type document struct {
	MCPServers *orderedmap.OrderedMap[string, json.RawMessage] `json:"mcpServers"`
}

// Parse decodes configuration JSON. A document without "mcpServers" is
// valid and has no servers. Every server entry must be a JSON object.
func Parse(data []byte) (*File, error) {
	doc := document{MCPServers: orderedmap.New[string, json.RawMessage]()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	servers := orderedmap.New[string, Server]()
	if doc.MCPServers == nil {
		return &File{servers: servers}, nil
	}
	for pair := doc.MCPServers.Oldest(); pair != nil; pair = pair.Next() {
		raw := bytes.TrimSpace(pair.Value)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, fmt.Errorf("%w: server %s must be an object", ErrInvalid, pair.Key)
		}
		var srv Server
		if err := json.Unmarshal(raw, &srv); err != nil {
			return nil, fmt.Errorf("%w: server %s: %v", ErrInvalid, pair.Key, err)
		}
		srv.Name = pair.Key
		servers.Set(pair.Key, srv)
	}
	return &File{servers: servers}, nil
}
