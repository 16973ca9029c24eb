package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRunnerAlias(t *testing.T) {
	installed := map[string]bool{"/opt/homebrew/bin/npx": true, "/usr/local/bin/npx": true}
	exists := func(p string) bool { return installed[p] }

	tests := []struct {
		goos    string
		command string
		want    string
	}{
		{"darwin", "npx", "/opt/homebrew/bin/npx"},
		{"linux", "npx", "/usr/local/bin/npx"},
		{"windows", "npx", "npx"},
		{"linux", "uvx", "uvx"},
		{"linux", "/bin/custom", "/bin/custom"},
	}
	for _, tt := range tests {
		r := commandResolver{runners: DefaultRunners(), goos: tt.goos, exists: exists}
		assert.Equal(t, tt.want, r.Resolve(tt.command), "%s on %s", tt.command, tt.goos)
	}
}

func TestResolveFirstRunnerWins(t *testing.T) {
	runners := append([]Runner{{Alias: "npx", Paths: map[string]string{"": "/custom/npx"}}}, DefaultRunners()...)
	r := commandResolver{runners: runners, goos: "linux", exists: func(string) bool { return true }}
	assert.Equal(t, "/custom/npx", r.Resolve("npx"))
}

func TestResolveExpandsEnv(t *testing.T) {
	t.Setenv("APPDATA", `C:\Users\me\AppData\Roaming`)
	var got string
	r := commandResolver{runners: DefaultRunners(), goos: "windows", exists: func(p string) bool { got = p; return true }}
	assert.Equal(t, `C:\Users\me\AppData\Roaming/npm/npx.cmd`, r.Resolve("npx"))
	assert.Equal(t, `C:\Users\me\AppData\Roaming/npm/npx.cmd`, got)
}
