package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsMapOmitsUnset(t *testing.T) {
	assert.Empty(t, Args{}.Map())

	a := Args{
		Query:  Some(""),
		Count:  Some(0),
		DryRun: Some(false),
	}
	assert.Equal(t, map[string]any{"query": "", "count": 0, "dryRun": false}, a.Map())
}

func TestArgsMapAllNamed(t *testing.T) {
	a := Args{
		Query:           Some("go"),
		Path:            Some("/p"),
		Count:           Some(3),
		Content:         Some("c"),
		Edits:           Some([]Edit{{OldText: "a", NewText: "b"}}),
		Paths:           Some([]string{"/a", "/b"}),
		Source:          Some("/s"),
		Destination:     Some("/d"),
		Pattern:         Some("*.go"),
		ExcludePatterns: Some([]string{"vendor"}),
		DryRun:          Some(true),
	}
	m := a.Map()
	assert.Len(t, m, len(ParamNames))
	for _, name := range ParamNames {
		assert.Contains(t, m, name)
	}
}

func TestArgsNamedOverrideCatchAll(t *testing.T) {
	a := Args{
		Path:      Some("/named"),
		Arguments: map[string]any{"path": "/loose", "recursive": true},
	}
	assert.Equal(t, map[string]any{"path": "/named", "recursive": true}, a.Map())
	assert.Equal(t, "/loose", a.Arguments["path"], "Map must not modify Arguments")
}

func TestArgsJSONPresence(t *testing.T) {
	var c Call
	err := json.Unmarshal([]byte(`{
		"server": "filesystem",
		"tool": "edit_file",
		"path": "/a.txt",
		"edits": [{"oldText": "x", "newText": "y"}],
		"dryRun": false,
		"count": null,
		"arguments": {"extra": 1}
	}`), &c)
	require.NoError(t, err)

	assert.Equal(t, "filesystem", c.Server)
	assert.Equal(t, "edit_file", c.Tool)
	assert.False(t, c.Count.IsSet(), "null should leave a parameter unset")
	assert.False(t, c.Query.IsSet())

	assert.Equal(t, map[string]any{
		"path":   "/a.txt",
		"edits":  []Edit{{OldText: "x", NewText: "y"}},
		"dryRun": false,
		"extra":  float64(1),
	}, c.Args.Map())
}

func TestOptionalMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Optional[int]    `json:"a"`
		B Optional[string] `json:"b"`
	}{A: Some(4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 4, "b": null}`, string(data))
}

func TestCommandResolver(t *testing.T) {
	runners := []Runner{{Alias: "npx", Paths: map[string]string{
		"darwin": "/opt/homebrew/bin/npx",
		"":       "/usr/local/bin/npx",
	}}}
	present := map[string]bool{"/opt/homebrew/bin/npx": true}

	r := commandResolver{runners: runners, goos: "darwin", exists: func(p string) bool { return present[p] }}
	assert.Equal(t, "/opt/homebrew/bin/npx", r.Resolve("npx"))
	assert.Equal(t, "node", r.Resolve("node"))

	r.goos = "linux"
	assert.Equal(t, "npx", r.Resolve("npx"), "missing default path falls back to the alias")

	present["/usr/local/bin/npx"] = true
	assert.Equal(t, "/usr/local/bin/npx", r.Resolve("npx"))
}

func TestCommandResolverExpandsEnv(t *testing.T) {
	t.Setenv("APPDATA", `C:\Users\u\AppData\Roaming`)
	var checked string
	r := commandResolver{
		runners: DefaultRunners(),
		goos:    "windows",
		exists:  func(p string) bool { checked = p; return true },
	}
	assert.Equal(t, `C:\Users\u\AppData\Roaming/npm/npx.cmd`, r.Resolve("npx"))
	assert.Equal(t, checked, r.Resolve("npx"))
}

func TestParseArgs(t *testing.T) {
	a, err := ParseArgs([]byte(`{"path":"/tmp","count":0,"recursive":true,"arguments":{"depth":2,"recursive":false}}`))
	require.NoError(t, err)

	path, ok := a.Path.Get()
	assert.True(t, ok)
	assert.Equal(t, "/tmp", path)
	assert.True(t, a.Count.IsSet())
	assert.False(t, a.Query.IsSet())

	assert.Equal(t, map[string]any{
		"path":      "/tmp",
		"count":     0,
		"recursive": true,
		"depth":     float64(2),
	}, a.Map())
}

func TestParseArgsErrors(t *testing.T) {
	_, err := ParseArgs([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = ParseArgs([]byte(`{"count":"many"}`))
	assert.Error(t, err)
}

func TestArgsMerge(t *testing.T) {
	a := Args{Path: Some("/a"), Query: Some("q"), Arguments: map[string]any{"x": 1}}
	a.Merge(Args{Path: Some("/b"), DryRun: Some(false), Arguments: map[string]any{"y": 2}})

	assert.Equal(t, map[string]any{
		"path":   "/b",
		"query":  "q",
		"dryRun": false,
		"x":      1,
		"y":      2,
	}, a.Map())
}
