package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type fsTools struct {
	roots roots
}

func register(s *server.MCPServer, r roots) {
	t := &fsTools{roots: r}

	pathProp := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	stringList := func(desc string) map[string]any {
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
	}

	s.AddTool(mcp.Tool{
		Name:        "read_file",
		Description: "Read the complete contents of a file.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"path": pathProp("Path to the file to read")},
			Required:   []string{"path"},
		},
	}, t.handleReadFile)

	s.AddTool(mcp.Tool{
		Name:        "read_multiple_files",
		Description: "Read several files at once. Failures for individual files are reported inline.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"paths": stringList("Paths of the files to read")},
			Required:   []string{"paths"},
		},
	}, t.handleReadMultiple)

	s.AddTool(mcp.Tool{
		Name:        "write_file",
		Description: "Create a file or overwrite an existing one with new content.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path":    pathProp("Path to the file to write"),
				"content": map[string]any{"type": "string", "description": "Content to write to the file"},
			},
			Required: []string{"path", "content"},
		},
	}, t.handleWriteFile)

	s.AddTool(mcp.Tool{
		Name:        "edit_file",
		Description: "Apply exact text replacements to a file. With dryRun the changes are previewed but not written.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": pathProp("Path to the file to edit"),
				"edits": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"oldText": map[string]any{"type": "string", "description": "Text to search for; must match exactly"},
							"newText": map[string]any{"type": "string", "description": "Text to replace it with"},
						},
						"required": []string{"oldText", "newText"},
					},
				},
				"dryRun": map[string]any{"type": "boolean", "default": false, "description": "Preview changes without writing"},
			},
			Required: []string{"path", "edits"},
		},
	}, t.handleEditFile)

	s.AddTool(mcp.Tool{
		Name:        "create_directory",
		Description: "Create a directory, including missing parents. Succeeds if it already exists.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"path": pathProp("Directory to create")},
			Required:   []string{"path"},
		},
	}, t.handleCreateDirectory)

	s.AddTool(mcp.Tool{
		Name:        "list_directory",
		Description: "List directory entries, each prefixed with [FILE] or [DIR].",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"path": pathProp("Directory to list")},
			Required:   []string{"path"},
		},
	}, t.handleListDirectory)

	s.AddTool(mcp.Tool{
		Name:        "directory_tree",
		Description: "Recursive JSON tree of a directory. Each node has name, type and, for directories, children.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"path": pathProp("Root of the tree")},
			Required:   []string{"path"},
		},
	}, t.handleDirectoryTree)

	s.AddTool(mcp.Tool{
		Name:        "move_file",
		Description: "Move or rename a file or directory. Fails if the destination exists.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"source":      pathProp("Existing path"),
				"destination": pathProp("New path"),
			},
			Required: []string{"source", "destination"},
		},
	}, t.handleMoveFile)

	s.AddTool(mcp.Tool{
		Name:        "search_files",
		Description: "Recursively find files and directories whose name contains pattern (case-insensitive).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path":            pathProp("Directory to search from"),
				"pattern":         map[string]any{"type": "string", "description": "Substring to match against names"},
				"excludePatterns": stringList("Glob patterns to skip"),
			},
			Required: []string{"path", "pattern"},
		},
	}, t.handleSearchFiles)

	s.AddTool(mcp.Tool{
		Name:        "get_file_info",
		Description: "Size, modification time, type and permissions of a file or directory.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"path": pathProp("Path to inspect")},
			Required:   []string{"path"},
		},
	}, t.handleGetFileInfo)

	s.AddTool(mcp.Tool{
		Name:        "list_allowed_directories",
		Description: "List the directories this server may access.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, t.handleListAllowed)
}

func getArgs(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}

func (t *fsTools) pathArg(args map[string]any, key string) (string, error) {
	p, _ := args[key].(string)
	if p == "" {
		return "", fmt.Errorf("'%s' is required", key)
	}
	return t.roots.resolve(p)
}

func (t *fsTools) handleReadFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.pathArg(getArgs(request), "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errResult(fmt.Sprintf("error reading file: %v", err)), nil
	}
	return textResult(string(data)), nil
}

func (t *fsTools) handleReadMultiple(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := toStrings(getArgs(request)["paths"])
	if len(paths) == 0 {
		return errResult("error: 'paths' is required"), nil
	}

	var sections []string
	for _, p := range paths {
		resolved, err := t.roots.resolve(p)
		if err != nil {
			sections = append(sections, fmt.Sprintf("%s: error: %v", p, err))
			continue
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			sections = append(sections, fmt.Sprintf("%s: error: %v", p, err))
			continue
		}
		sections = append(sections, fmt.Sprintf("%s:\n%s", p, data))
	}
	return textResult(strings.Join(sections, "\n---\n")), nil
}

func (t *fsTools) handleWriteFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path, err := t.pathArg(args, "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	content, ok := args["content"].(string)
	if !ok {
		return errResult("error: 'content' is required"), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errResult(fmt.Sprintf("error creating directories: %v", err)), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errResult(fmt.Sprintf("error writing file: %v", err)), nil
	}

	return textResult(fmt.Sprintf("Successfully wrote to %s", path)), nil
}

type edit struct {
	OldText string `json:"oldText"`
	NewText string `json:"newText"`
}

func (t *fsTools) handleEditFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path, err := t.pathArg(args, "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	edits, err := toEdits(args["edits"])
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	if len(edits) == 0 {
		return errResult("error: 'edits' is required"), nil
	}
	dryRun, _ := args["dryRun"].(bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return errResult(fmt.Sprintf("error reading file: %v", err)), nil
	}

	content := string(data)
	var diff strings.Builder
	for i, e := range edits {
		if e.OldText == "" {
			return errResult(fmt.Sprintf("error: edit %d has empty oldText", i+1)), nil
		}
		if !strings.Contains(content, e.OldText) {
			return errResult(fmt.Sprintf("error: edit %d: oldText not found in file", i+1)), nil
		}
		content = strings.Replace(content, e.OldText, e.NewText, 1)
		writeDiff(&diff, e)
	}

	if dryRun {
		return textResult(fmt.Sprintf("Dry run for %s, no changes written:\n%s", path, diff.String())), nil
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errResult(fmt.Sprintf("error writing file: %v", err)), nil
	}
	return textResult(fmt.Sprintf("Edited %s:\n%s", path, diff.String())), nil
}

func writeDiff(b *strings.Builder, e edit) {
	b.WriteString("@@\n")
	for _, line := range strings.Split(e.OldText, "\n") {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range strings.Split(e.NewText, "\n") {
		b.WriteString("+" + line + "\n")
	}
}

func (t *fsTools) handleCreateDirectory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.pathArg(getArgs(request), "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errResult(fmt.Sprintf("error creating directory: %v", err)), nil
	}
	return textResult(fmt.Sprintf("Successfully created directory %s", path)), nil
}

func (t *fsTools) handleListDirectory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.pathArg(getArgs(request), "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return errResult(fmt.Sprintf("error listing directory: %v", err)), nil
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		prefix := "[FILE]"
		if e.IsDir() {
			prefix = "[DIR]"
		}
		lines = append(lines, prefix+" "+e.Name())
	}
	return textResult(strings.Join(lines, "\n")), nil
}

type treeNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Children []*treeNode `json:"children,omitempty"`
}

func buildTree(path string) ([]*treeNode, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	nodes := make([]*treeNode, 0, len(entries))
	for _, e := range entries {
		n := &treeNode{Name: e.Name(), Type: "file"}
		if e.IsDir() {
			n.Type = "directory"
			children, err := buildTree(filepath.Join(path, e.Name()))
			if err != nil {
				return nil, err
			}
			n.Children = children
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (t *fsTools) handleDirectoryTree(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.pathArg(getArgs(request), "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	tree, err := buildTree(path)
	if err != nil {
		return errResult(fmt.Sprintf("error reading tree: %v", err)), nil
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	return textResult(string(data)), nil
}

func (t *fsTools) handleMoveFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	src, err := t.pathArg(args, "source")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	dst, err := t.pathArg(args, "destination")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	if _, err := os.Lstat(dst); err == nil {
		return errResult(fmt.Sprintf("error: destination %s already exists", dst)), nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errResult(fmt.Sprintf("error creating directories: %v", err)), nil
	}
	if err := os.Rename(src, dst); err != nil {
		return errResult(fmt.Sprintf("error moving file: %v", err)), nil
	}
	return textResult(fmt.Sprintf("Successfully moved %s to %s", src, dst)), nil
}

func (t *fsTools) handleSearchFiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	root, err := t.pathArg(args, "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return errResult("error: 'pattern' is required"), nil
	}
	excludes := toStrings(args["excludePatterns"])
	needle := strings.ToLower(pattern)

	var matches []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == root {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if excluded(rel, d.Name(), excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return errResult(fmt.Sprintf("error searching: %v", err)), nil
	}

	if len(matches) == 0 {
		return textResult("No matches found"), nil
	}
	return textResult(strings.Join(matches, "\n")), nil
}

func excluded(rel, name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (t *fsTools) handleGetFileInfo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.pathArg(getArgs(request), "path")
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	lines := []string{
		fmt.Sprintf("size: %d", info.Size()),
		fmt.Sprintf("modified: %s", info.ModTime().UTC().Format("2006-01-02T15:04:05Z")),
		fmt.Sprintf("isDirectory: %t", info.IsDir()),
		fmt.Sprintf("isFile: %t", info.Mode().IsRegular()),
		fmt.Sprintf("permissions: %o", info.Mode().Perm()),
	}
	return textResult(strings.Join(lines, "\n")), nil
}

func (t *fsTools) handleListAllowed(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult("Allowed directories:\n" + strings.Join(t.roots, "\n")), nil
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toEdits accepts the decoded JSON form ([]any of objects) or anything
// that round-trips through JSON into []edit.
func toEdits(v any) ([]edit, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid edits: %w", err)
	}
	var edits []edit
	if err := json.Unmarshal(data, &edits); err != nil {
		return nil, fmt.Errorf("invalid edits: %w", err)
	}
	return edits, nil
}
