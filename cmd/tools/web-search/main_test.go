package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

const ddgPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=abc">The Go Programming Language</a>
  <a class="result__snippet">Go is an open source programming language.</a>
</div>
<div class="result">
  <a class="result__a" href="https://pkg.go.dev/">Go Packages</a>
  <a class="result__snippet">Find Go packages.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/">Third</a>
</div>
</body></html>`

const articlePage = `<html><head><title>Readable Title</title></head><body>
<nav>menu menu menu</nav>
<article><h1>Readable Title</h1>
<p>This is the main body of the article. It has several sentences so that the
readability extractor treats it as content worth keeping, rather than boilerplate.</p>
<p>A second paragraph adds more text to make the article long enough to be scored
as the primary content block of the page by the extraction heuristics.</p>
</article></body></html>`

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	res, err := h(context.Background(), mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	tc, _ := res.Content[0].(mcp.TextContent)
	return tc.Text, res.IsError
}

func TestWebSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotQuery = r.PostForm.Get("q")
		w.Write([]byte(ddgPage))
	}))
	defer ts.Close()

	old := searchURL
	searchURL = ts.URL
	defer func() { searchURL = old }()

	out, isErr := callTool(t, handleWebSearch, map[string]any{"query": "golang", "count": float64(2)})
	if isErr {
		t.Fatalf("web_search error: %s", out)
	}
	if gotQuery != "golang" {
		t.Errorf("query sent = %q, want golang", gotQuery)
	}
	if !strings.Contains(out, "1. The Go Programming Language\n   https://go.dev/") {
		t.Errorf("first result not unwrapped: %q", out)
	}
	if !strings.Contains(out, "2. Go Packages") {
		t.Errorf("second result missing: %q", out)
	}
	if strings.Contains(out, "Third") {
		t.Errorf("count not honored: %q", out)
	}
}

func TestWebSearchValidation(t *testing.T) {
	out, isErr := callTool(t, handleWebSearch, map[string]any{})
	if !isErr || !strings.Contains(out, "'query' is required") {
		t.Errorf("missing query = %q", out)
	}

	out, isErr = callTool(t, handleWebSearch, map[string]any{"query": "x", "count": float64(-1)})
	if !isErr || !strings.Contains(out, "count must be between") {
		t.Errorf("negative count = %q", out)
	}
}

func TestFetchPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage))
	}))
	defer ts.Close()

	out, isErr := callTool(t, handleFetchPage, map[string]any{"url": ts.URL})
	if isErr {
		t.Fatalf("fetch_page error: %s", out)
	}
	if !strings.Contains(out, "main body of the article") {
		t.Errorf("fetch_page = %q", out)
	}
}

func TestFetchPageRejectsBadURL(t *testing.T) {
	out, isErr := callTool(t, handleFetchPage, map[string]any{"url": "file:///etc/passwd"})
	if !isErr || !strings.Contains(out, "invalid url") {
		t.Errorf("file url = %q", out)
	}
}

func TestResultURL(t *testing.T) {
	tests := map[string]string{
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.com%2Fx": "https://a.com/x",
		"/l/?uddg=https%3A%2F%2Fb.com":                     "https://b.com",
		"https://c.com/":                                   "https://c.com/",
		"/relative":                                        "https://duckduckgo.com/relative",
	}
	for in, want := range tests {
		if got := resultURL(in); got != want {
			t.Errorf("resultURL(%q) = %q, want %q", in, got, want)
		}
	}
}
