package dispatch

import (
	"os"
	"runtime"
)

// Runner maps a package-runner alias (such as npx) to its usual install
// location per GOOS. Paths may reference environment variables.
type Runner struct {
	Alias string
	Paths map[string]string
}

// DefaultRunners returns the built-in runner aliases.
func DefaultRunners() []Runner {
	return []Runner{{
		Alias: "npx",
		Paths: map[string]string{
			"darwin":  "/opt/homebrew/bin/npx",
			"windows": "${APPDATA}/npm/npx.cmd",
			"":        "/usr/local/bin/npx",
		},
	}}
}

// commandResolver rewrites runner aliases to installed paths.
type commandResolver struct {
	runners []Runner
	goos    string
	exists  func(string) bool
}

func newCommandResolver(runners []Runner) commandResolver {
	return commandResolver{
		runners: runners,
		goos:    runtime.GOOS,
		exists:  fileExists,
	}
}

// Resolve returns the platform path for a runner alias when it exists on
// disk, and command unchanged otherwise so the search path decides.
func (r commandResolver) Resolve(command string) string {
	for _, rn := range r.runners {
		if rn.Alias != command {
			continue
		}
		p, ok := rn.Paths[r.goos]
		if !ok {
			p = rn.Paths[""]
		}
		if p == "" {
			return command
		}
		p = os.ExpandEnv(p)
		if r.exists(p) {
			return p
		}
		return command
	}
	return command
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
