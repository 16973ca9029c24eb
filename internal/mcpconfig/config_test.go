package mcpconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "mcpServers": {
    "brave-search": {
      "enabled": true,
      "command": "npx",
      "args": ["-y", "@modelcontextprotocol/server-brave-search"],
      "env": {"BRAVE_API_KEY": "test-key"}
    },
    "disabled-server": {
      "enabled": false,
      "command": "npx",
      "args": ["test"]
    },
    "filesystem": {
      "command": "mcpskill-tool-filesystem",
      "args": ["/tmp"]
    }
  }
}`

func TestParsePreservesOrder(t *testing.T) {
	f, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"brave-search", "disabled-server", "filesystem"}, f.Names())
	assert.Equal(t, []string{"brave-search", "filesystem"}, f.Enabled())
}

func TestParseEntryFields(t *testing.T) {
	f, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	s, ok := f.Lookup("brave-search")
	require.True(t, ok)
	assert.Equal(t, "brave-search", s.Name)
	assert.Equal(t, "npx", s.Command)
	assert.Equal(t, []string{"-y", "@modelcontextprotocol/server-brave-search"}, s.Args)
	assert.Equal(t, "test-key", s.Env["BRAVE_API_KEY"])

	fs, ok := f.Lookup("filesystem")
	require.True(t, ok)
	assert.True(t, fs.IsEnabled(), "missing enabled flag should default to true")

	_, ok = f.Lookup("nope")
	assert.False(t, ok)
}

func TestParseInvalid(t *testing.T) {
	for name, input := range map[string]string{
		"syntax":       "invalid json{",
		"entry type":   `{"mcpServers": {"x": 5}}`,
		"null entry":   `{"mcpServers": {"a": null}}`,
		"array entry":  `{"mcpServers": {"a": {"command": "x"}, "b": []}}`,
		"servers type": `{"mcpServers": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "error should wrap ErrInvalid: %v", err)
		})
	}
}

func TestParseNoServers(t *testing.T) {
	f, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, f.Enabled())
	assert.NotNil(t, f.Enabled(), "Enabled should marshal as [] not null")
}

func TestEnviron(t *testing.T) {
	t.Setenv("MCPSKILL_TEST_SECRET", "s3cret")

	s := Server{Env: map[string]string{
		"B":     "plain",
		"A":     "${MCPSKILL_TEST_SECRET}",
		"PARTS": "x${Y}",
	}}
	env := s.Environ([]string{"HOME=/home/u", "A=base"})

	assert.Equal(t, []string{"HOME=/home/u", "A=base", "A=s3cret", "B=plain", "PARTS=x${Y}"}, env)
}

func TestLocatorCandidates(t *testing.T) {
	l := Locator{
		Home:   "/home/u",
		Getenv: func(string) string { return "" },
	}
	assert.Equal(t, []string{
		"mcp_config.json",
		filepath.Join("/home/u", ".config", "autogen", "mcp_config.json"),
	}, l.Candidates())

	l.Explicit = "/etc/mcp.json"
	l.Getenv = func(k string) string {
		if k == EnvPath {
			return "/opt/mcp.json"
		}
		return ""
	}
	assert.Equal(t, []string{
		"/etc/mcp.json",
		"mcp_config.json",
		filepath.Join("/home/u", ".config", "autogen", "mcp_config.json"),
		"/opt/mcp.json",
	}, l.Candidates())
}

func TestLocatorFind(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	envPath := filepath.Join(dir, "from-env.json")
	require.NoError(t, os.WriteFile(envPath, []byte(sampleConfig), 0o644))

	l := Locator{
		Home:   filepath.Join(dir, "home"),
		Getenv: func(string) string { return envPath },
	}

	f, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, envPath, f.Path)

	// A file in the working directory wins over the environment.
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(`{"mcpServers": {}}`), 0o644))
	path, err := l.Find()
	require.NoError(t, err)
	assert.Equal(t, DefaultFileName, path)
}

func TestLocatorNotFound(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	l := Locator{Home: filepath.Join(dir, "home"), Getenv: func(string) string { return "" }}
	_, err := l.Load()
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "No configuration file found")
	assert.Contains(t, err.Error(), DefaultFileName)
}

func TestLocatorExplicitMissing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(sampleConfig), 0o644))

	missing := filepath.Join(dir, "typo.json")
	l := Locator{Explicit: missing, Home: filepath.Join(dir, "home"), Getenv: func(string) string { return "" }}
	_, err := l.Find()
	require.Error(t, err, "a missing explicit path must not fall back to the working directory")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), missing)
}
