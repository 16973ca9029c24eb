package mcpconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the configuration file name looked up in every candidate location.
const DefaultFileName = "mcp_config.json"

// EnvPath names the environment variable that may point at the configuration file.
const EnvPath = "MCP_CONFIG_PATH"

// NotFoundError reports that no candidate path held a configuration file.
type NotFoundError struct {
	Checked []string
}

func (e *NotFoundError) Error() string {
	return "No configuration file found. Checked:\n" + strings.Join(e.Checked, "\n")
}

// Locator produces the ordered list of candidate configuration paths.
type Locator struct {
	// Explicit, when set, is the only path Find accepts.
	Explicit string
	// Extra paths checked after Explicit and before the defaults.
	Extra []string
	// Home overrides the user home directory; empty means os.UserHomeDir.
	Home string
	// Getenv overrides os.Getenv.
	Getenv func(string) string
}

// Candidates returns the search order: the explicit path, extra paths, the
// working directory, the per-user directory, then $MCP_CONFIG_PATH.
// Duplicates are dropped. Find stops at the explicit path when one is set.
func (l Locator) Candidates() []string {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	home := l.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	var paths []string
	if l.Explicit != "" {
		paths = append(paths, l.Explicit)
	}
	paths = append(paths, l.Extra...)
	paths = append(paths, DefaultFileName)
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "autogen", DefaultFileName))
	}
	if p := getenv(EnvPath); p != "" {
		paths = append(paths, p)
	} else {
		paths = append(paths, DefaultFileName)
	}

	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Find returns the first candidate that exists as a regular file. An
// explicit path must exist; the other candidates are not consulted for it.
func (l Locator) Find() (string, error) {
	if l.Explicit != "" {
		if info, err := os.Stat(l.Explicit); err != nil || info.IsDir() {
			return "", &NotFoundError{Checked: []string{l.Explicit}}
		}
		return l.Explicit, nil
	}
	candidates := l.Candidates()
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", &NotFoundError{Checked: candidates}
}

// Load finds and parses the configuration file.
func (l Locator) Load() (*File, error) {
	path, err := l.Find()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
