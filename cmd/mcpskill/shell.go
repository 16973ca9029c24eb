package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive dispatch shell",
	Long: `Start an interactive shell for exploring servers and calling tools.

Each line is "<server> <tool> [json-arguments]", or a single reserved tool
name such as list_available_servers. Calls are recorded in history.

Examples:
  mcp> list_available_servers
  mcp> filesystem tool_details
  mcp> filesystem read_file {"path": "/tmp/notes.txt"}`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	c, err := openServices()
	if err != nil {
		return err
	}
	defer c.Close()
	d := c.Dispatcher()

	fmt.Printf("mcpskill - Interactive Dispatch Shell\n")
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	historyFile := filepath.Join(os.TempDir(), "mcpskill_history")
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".mcpskill", "shell_history")
		os.MkdirAll(filepath.Dir(historyFile), 0o755)
	}

	// Set up readline for input with history
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mmcp>\033[0m ",
		HistoryFile:     historyFile,
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Per-request cancellation: Ctrl+C cancels the running call,
	// not the whole shell.
	var reqCancel context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if reqCancel != nil {
				reqCancel()
			}
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		// Handle slash commands
		if strings.HasPrefix(input, "/") {
			if quit := handleShellCommand(input); quit {
				return nil
			}
			continue
		}

		call, err := parseShellLine(input)
		if err != nil {
			fmt.Printf("\033[31m%s\033[0m\n\n", err)
			continue
		}

		reqCtx, cancel := context.WithCancel(context.Background())
		reqCancel = cancel
		result := d.Dispatch(reqCtx, call)
		cancel()
		reqCancel = nil

		printResult(result)
	}
}

// parseShellLine reads "<tool>" or "<server> <tool> [json-object]".
func parseShellLine(line string) (dispatch.Call, error) {
	var call dispatch.Call

	head, rest := line, ""
	if i := strings.IndexByte(line, '{'); i >= 0 {
		head, rest = strings.TrimSpace(line[:i]), line[i:]
	}

	fields := strings.Fields(head)
	switch len(fields) {
	case 1:
		call.Tool = fields[0]
	case 2:
		call.Server, call.Tool = fields[0], fields[1]
	default:
		return call, fmt.Errorf("usage: <server> <tool> [json-arguments]")
	}

	if rest != "" {
		args, err := dispatch.ParseArgs([]byte(rest))
		if err != nil {
			return call, err
		}
		call.Args = args
	}
	return call, nil
}

func printResult(result string) {
	if strings.HasPrefix(result, dispatch.ErrorPrefix) {
		fmt.Printf("\033[31m%s\033[0m\n\n", result)
		return
	}

	lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
	for _, line := range lines {
		fmt.Printf("  \033[90m│\033[0m %s\n", line)
	}
	fmt.Println()
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(dispatch.ToolListServers),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
}

// handleShellCommand runs a slash command and reports whether to exit.
func handleShellCommand(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye!")
		return true
	case "/help":
		fmt.Println("Usage:")
		fmt.Println("  list_available_servers              - List enabled servers")
		fmt.Println("  <server> tool_details               - Describe a server's tools")
		fmt.Println("  <server> <tool> {\"path\": \"...\"}     - Call a tool")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  /help     - Show this help")
		fmt.Println("  /quit     - Exit")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return false
}
