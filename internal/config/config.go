package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
	"github.com/michaelbrown/mcpskill/internal/mcpconfig"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type DispatchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	ProbeLimit int           `mapstructure:"probe_limit"`
}

type ProbeConfig struct {
	// Schedule is a cron expression; empty disables the periodic probe.
	Schedule string `mapstructure:"schedule"`
}

// RunnerConfig maps a package-runner alias to install paths keyed by GOOS.
// The "default" key applies to any GOOS not listed.
type RunnerConfig struct {
	Alias string            `mapstructure:"alias"`
	Paths map[string]string `mapstructure:"paths"`
}

type MCPConfig struct {
	// Path is checked before the standard locations.
	Path string `mapstructure:"path"`
	// Extra paths are checked after Path, in order.
	Extra []string `mapstructure:"extra"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Runners  []RunnerConfig `mapstructure:"runners"`
	MCP      MCPConfig      `mapstructure:"mcp_config"`

	// File is the app config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Load reads mcpskill.yaml from explicit, or from . and $HOME/.mcpskill when
// explicit is empty. A missing file is not an error; defaults apply.
func Load(explicit string) (*Config, error) {
	v := viper.New()
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("mcpskill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mcpskill")
	}

	v.SetEnvPrefix("MCPSKILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(home, ".mcpskill", "history.db"))
	v.SetDefault("dispatch.timeout", "0s")
	v.SetDefault("dispatch.probe_limit", 4)
	v.SetDefault("probe.schedule", "")
	v.SetDefault("mcp_config.path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Storage.DBPath = os.ExpandEnv(cfg.Storage.DBPath)

	return &cfg, nil
}

// Locator returns the server-configuration locator for this config.
// override, when set, wins over the configured path.
func (c *Config) Locator(override string) mcpconfig.Locator {
	explicit := c.MCP.Path
	if override != "" {
		explicit = override
	}
	return mcpconfig.Locator{Explicit: explicit, Extra: c.MCP.Extra}
}

// DispatchOptions translates the config into dispatcher options.
func (c *Config) DispatchOptions() []dispatch.Option {
	opts := []dispatch.Option{
		dispatch.WithTimeout(c.Dispatch.Timeout),
		dispatch.WithProbeLimit(c.Dispatch.ProbeLimit),
	}
	if len(c.Runners) > 0 {
		// Configured runners come first so they shadow the built-in ones.
		var runners []dispatch.Runner
		for _, rc := range c.Runners {
			paths := make(map[string]string, len(rc.Paths))
			for goos, p := range rc.Paths {
				if goos == "default" {
					goos = ""
				}
				paths[goos] = p
			}
			runners = append(runners, dispatch.Runner{Alias: rc.Alias, Paths: paths})
		}
		runners = append(runners, dispatch.DefaultRunners()...)
		opts = append(opts, dispatch.WithRunners(runners))
	}
	return opts
}
