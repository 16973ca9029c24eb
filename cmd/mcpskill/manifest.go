package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/mcpskill/internal/manifest"
)

var (
	manifestFormat string
	manifestOutput string
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the tool component descriptor for an agent framework",
	Long: `Print the descriptor that registers the dispatch tool with an agent
framework: its name, usage description and parameters.

Examples:
  mcpskill manifest
  mcpskill manifest --format yaml -o mcp.yaml`,
	Args: cobra.NoArgs,
	RunE: runManifest,
}

func init() {
	manifestCmd.Flags().StringVar(&manifestFormat, "format", "json", "Output format: json or yaml")
	manifestCmd.Flags().StringVarP(&manifestOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	command := []string{"mcpskill", "call", "--stdin"}
	if exe, err := os.Executable(); err == nil {
		command[0] = exe
	}

	data, err := manifest.Build(command...).Encode(manifest.Format(manifestFormat))
	if err != nil {
		return err
	}

	if manifestOutput != "" {
		if err := os.WriteFile(manifestOutput, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote manifest to %s\n", manifestOutput)
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}
