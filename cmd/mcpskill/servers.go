package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	probeFlag bool
	jsonFlag  bool
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List enabled servers",
	Long: `List the enabled servers in configuration order.

With --probe every server is started and asked for its tools.`,
	Args: cobra.NoArgs,
	RunE: runServers,
}

var toolsCmd = &cobra.Command{
	Use:   "tools <server>",
	Short: "Describe the tools a server offers",
	Args:  cobra.ExactArgs(1),
	RunE:  runTools,
}

func init() {
	serversCmd.Flags().BoolVar(&probeFlag, "probe", false, "Start each server and count its tools")
	serversCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON")
	toolsCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print JSON including input schemas")
	rootCmd.AddCommand(serversCmd, toolsCmd)
}

func runServers(cmd *cobra.Command, args []string) error {
	d, err := newDispatcher()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if !probeFlag {
		names, err := d.ListServers(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(names)
		}
		if len(names) == 0 {
			fmt.Println("No enabled servers.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	results, err := d.Probe(ctx)
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(results)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVER\tSTATUS\tTOOLS\tTIME")
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = "error: " + truncate(r.Error, 60)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Server, status, r.Tools, r.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}

func runTools(cmd *cobra.Command, args []string) error {
	d, err := newDispatcher()
	if err != nil {
		return err
	}

	tools, err := d.ToolDetails(context.Background(), args[0])
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(tools)
	}
	if len(tools) == 0 {
		fmt.Printf("Server %s offers no tools.\n", args[0])
		return nil
	}

	for _, t := range tools {
		fmt.Printf("\033[33m%s\033[0m\n", t.Name)
		if t.Description != "" {
			fmt.Printf("  %s\n", truncate(t.Description, 200))
		}
		if params := schemaParams(t.InputSchema); params != "" {
			fmt.Printf("  \033[90mparams: %s\033[0m\n", params)
		}
	}
	return nil
}

// schemaParams summarizes a JSON schema's properties, marking required
// ones with '*'.
func schemaParams(schema any) string {
	m, ok := schema.(map[string]any)
	if !ok {
		return ""
	}
	props, _ := m["properties"].(map[string]any)
	required := make(map[string]bool)
	switch req := m["required"].(type) {
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	case []string:
		for _, s := range req {
			required[s] = true
		}
	}

	var parts []string
	for name := range props {
		if required[name] {
			name += "*"
		}
		parts = append(parts, name)
	}
	slices.Sort(parts)
	return strings.Join(parts, ", ")
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
