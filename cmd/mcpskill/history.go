package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/mcpskill/internal/config"
	"github.com/michaelbrown/mcpskill/internal/storage"
	"github.com/michaelbrown/mcpskill/internal/storage/sqlite"
)

var (
	serverFilter string
	toolFilter   string
	errorsOnly   bool
	limitFlag    int
	exportFormat string
	exportOutput string
	forceFlag    bool
	olderThan    time.Duration
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"hist", "h"},
	Short:   "Inspect recorded tool calls",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calls",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <call-id>",
	Short: "Show a call's arguments and result",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <call-id>",
	Short: "Delete a recorded call",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <call-id>",
	Short: "Export a call as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete calls older than a duration",
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyExportCmd, historyPruneCmd)

	historyListCmd.Flags().StringVar(&serverFilter, "server", "", "Only calls to this server")
	historyListCmd.Flags().StringVar(&toolFilter, "tool", "", "Only calls of this tool")
	historyListCmd.Flags().BoolVar(&errorsOnly, "errors", false, "Only failed calls")
	historyListCmd.Flags().IntVar(&limitFlag, "limit", 20, "Max calls to show")

	historyExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	historyDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
	historyPruneCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete calls older than this")
}

func openStore() (storage.Store, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return sqlite.Open(cfg.Storage.DBPath)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	calls, err := store.ListCalls(context.Background(), storage.CallListOptions{
		Server:     serverFilter,
		Tool:       toolFilter,
		ErrorsOnly: errorsOnly,
		Limit:      limitFlag,
	})
	if err != nil {
		return err
	}

	if len(calls) == 0 {
		fmt.Println("No calls found.")
		return nil
	}

	// Header
	fmt.Printf("%-10s %-16s %-24s %-7s %-8s %s\n", "ID", "SERVER", "TOOL", "STATUS", "TIME", "WHEN")
	fmt.Println(strings.Repeat("─", 85))

	for _, c := range calls {
		server := c.Server
		if server == "" {
			server = "-"
		}
		status := "ok"
		if c.IsError {
			status = "error"
		}
		fmt.Printf("%-10s %-16s %-24s %-7s %-8s %s\n",
			shortID(c.ID), clip(server, 16), clip(c.Tool, 24), status,
			fmt.Sprintf("%dms", c.DurationMS), timeAgo(c.CreatedAt))
	}

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := store.GetCall(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Call:      %s\n", c.ID)
	if c.Server != "" {
		fmt.Printf("Server:    %s\n", c.Server)
	}
	fmt.Printf("Tool:      %s\n", c.Tool)
	fmt.Printf("Arguments: %s\n", c.Arguments)
	fmt.Printf("Duration:  %dms\n", c.DurationMS)
	fmt.Printf("Created:   %s\n", c.CreatedAt.Local().Format(time.RFC3339))
	if c.IsError {
		fmt.Printf("Status:    \033[31merror\033[0m %s\n", c.ErrorKind)
	} else {
		fmt.Printf("Status:    ok\n")
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(c.Result)

	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	c, err := store.GetCall(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete call %s - %s %s? [y/N] ", shortID(c.ID), c.Server, c.Tool)
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteCall(ctx, c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted call %s\n", shortID(c.ID))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := store.GetCall(context.Background(), args[0])
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(c)
		if err != nil {
			return err
		}
		output = string(data) + "\n"
	default:
		output = storage.ExportMarkdown(c)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.PruneCalls(context.Background(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d call(s) older than %s\n", n, olderThan)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n-2] + ".."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
