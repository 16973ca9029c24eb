package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

var (
	callNoHistory bool
	callExitCode  bool
)

// errToolFailed makes the process exit non-zero without printing twice.
var errToolFailed = errors.New("tool call failed")

var callCmd = &cobra.Command{
	Use:   "call [server] <tool>",
	Short: "Dispatch one tool call",
	Long: `Dispatch a single tool call and print its result.

Only the parameters given on the command line are forwarded to the tool.
Failures are printed as "Error: <message>".

Examples:
  mcpskill call list_available_servers
  mcpskill call filesystem tool_details
  mcpskill call filesystem read_file --path /tmp/notes.txt
  mcpskill call web-search web_search --query "golang generics" --count 3
  mcpskill call filesystem edit_file --path a.txt --edits '[{"oldText":"a","newText":"b"}]' --dry-run
  echo '{"server":"filesystem","tool":"list_directory","path":"."}' | mcpskill call --stdin`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCall,
}

func init() {
	addArgFlags(callCmd.Flags())
	callCmd.Flags().BoolVar(&callNoHistory, "no-history", false, "Do not record the call")
	callCmd.Flags().BoolVar(&callExitCode, "exit-code", false, "Exit with status 1 when the result is an error")
	rootCmd.AddCommand(callCmd)
}

// addArgFlags registers one flag per canonical parameter plus --args and
// --stdin.
func addArgFlags(f *pflag.FlagSet) {
	f.String("query", "", "Search query")
	f.String("path", "", "File or directory path")
	f.Int("count", 0, "Number of results")
	f.String("content", "", "Content to write")
	f.String("edits", "", `Edits as JSON: [{"oldText":..,"newText":..}]`)
	f.StringSlice("paths", nil, "File paths (repeat or comma-separate)")
	f.String("source", "", "Source path")
	f.String("destination", "", "Destination path")
	f.String("pattern", "", "Search pattern")
	f.StringSlice("exclude", nil, "Exclude patterns for a search")
	f.Bool("dry-run", false, "Preview changes without writing")
	f.String("args", "", "Extra tool arguments as a JSON object")
	f.Bool("stdin", false, "Read the whole call as JSON from stdin")
}

func runCall(cmd *cobra.Command, args []string) error {
	call, err := buildCall(cmd.Flags(), args, os.Stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result string
	if callNoHistory {
		d, err := newDispatcher()
		if err != nil {
			return err
		}
		result = d.Dispatch(ctx, call)
	} else {
		c, err := openServices()
		if err != nil {
			return err
		}
		defer c.Close()
		result = c.Dispatcher().Dispatch(ctx, call)
	}

	fmt.Println(result)
	if callExitCode && strings.HasPrefix(result, dispatch.ErrorPrefix) {
		cmd.SilenceErrors = true
		return errToolFailed
	}
	return nil
}

// buildCall assembles a call from positional args and the flags that were
// actually set.
func buildCall(flags *pflag.FlagSet, args []string, stdin io.Reader) (dispatch.Call, error) {
	var call dispatch.Call

	if stdinFlag, _ := flags.GetBool("stdin"); stdinFlag {
		if err := json.NewDecoder(stdin).Decode(&call); err != nil {
			return call, fmt.Errorf("reading call from stdin: %w", err)
		}
	}

	switch len(args) {
	case 1:
		call.Tool = args[0]
	case 2:
		call.Server, call.Tool = args[0], args[1]
	}

	if raw, _ := flags.GetString("args"); raw != "" {
		extra, err := dispatch.ParseArgs([]byte(raw))
		if err != nil {
			return call, fmt.Errorf("--args: %w", err)
		}
		call.Args.Merge(extra)
	}

	a := &call.Args
	if flags.Changed("query") {
		v, _ := flags.GetString("query")
		a.Query = dispatch.Some(v)
	}
	if flags.Changed("path") {
		v, _ := flags.GetString("path")
		a.Path = dispatch.Some(v)
	}
	if flags.Changed("count") {
		v, _ := flags.GetInt("count")
		a.Count = dispatch.Some(v)
	}
	if flags.Changed("content") {
		v, _ := flags.GetString("content")
		a.Content = dispatch.Some(v)
	}
	if flags.Changed("edits") {
		raw, _ := flags.GetString("edits")
		var edits []dispatch.Edit
		if err := json.Unmarshal([]byte(raw), &edits); err != nil {
			return call, fmt.Errorf("--edits: %w", err)
		}
		a.Edits = dispatch.Some(edits)
	}
	if flags.Changed("paths") {
		v, _ := flags.GetStringSlice("paths")
		a.Paths = dispatch.Some(v)
	}
	if flags.Changed("source") {
		v, _ := flags.GetString("source")
		a.Source = dispatch.Some(v)
	}
	if flags.Changed("destination") {
		v, _ := flags.GetString("destination")
		a.Destination = dispatch.Some(v)
	}
	if flags.Changed("pattern") {
		v, _ := flags.GetString("pattern")
		a.Pattern = dispatch.Some(v)
	}
	if flags.Changed("exclude") {
		v, _ := flags.GetStringSlice("exclude")
		a.ExcludePatterns = dispatch.Some(v)
	}
	if flags.Changed("dry-run") {
		v, _ := flags.GetBool("dry-run")
		a.DryRun = dispatch.Some(v)
	}
	return call, nil
}
