package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/mcpskill/internal/config"
	"github.com/michaelbrown/mcpskill/internal/dependency"
	"github.com/michaelbrown/mcpskill/internal/dispatch"
	"github.com/michaelbrown/mcpskill/internal/tools"
)

var (
	configFlag    string
	mcpConfigFlag string
	verboseFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "mcpskill",
	Short: "mcpskill - dispatch tool calls to MCP servers",
	Long: `mcpskill forwards named tool calls to MCP (Model Context Protocol) tool
servers listed in mcp_config.json, one short-lived server process per call.

The configuration file is looked up in ./mcp_config.json,
~/.config/autogen/mcp_config.json, then $MCP_CONFIG_PATH.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verboseFlag {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "App config file (default ./mcpskill.yaml or ~/.mcpskill/mcpskill.yaml)")
	rootCmd.PersistentFlags().StringVar(&mcpConfigFlag, "mcp-config", "", "Server configuration file, checked before the standard locations")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log dispatch details to stderr")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openServices wires the recording dispatcher, store and server.
func openServices() (*dependency.ServiceContainer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c, err := dependency.New(dependency.Params{
		Config:        cfg,
		MCPConfigPath: dependency.MCPConfigPath(mcpConfigFlag),
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("wiring services: %w", err)
	}
	return c, nil
}

// newDispatcher builds a dispatcher that does not record history.
func newDispatcher() (*dispatch.Dispatcher, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts := append(cfg.DispatchOptions(), dispatch.WithLogger(slog.Default()))
	return dispatch.New(cfg.Locator(mcpConfigFlag), tools.Launcher{}, opts...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
