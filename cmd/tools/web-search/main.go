// Command mcpskill-tool-web-search is an MCP stdio server offering web
// search through DuckDuckGo's HTML endpoint and readable page fetching.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultCount = 5
	maxCount     = 20
	maxPageChars = 8000
	userAgent    = "Mozilla/5.0 (compatible; mcpskill/0.1)"
)

var (
	httpClient = &http.Client{Timeout: 30 * time.Second}
	searchURL  = "https://html.duckduckgo.com/html/"
)

func main() {
	s := server.NewMCPServer("mcpskill-web-search", "0.1.0")

	s.AddTool(mcp.Tool{
		Name:        "web_search",
		Description: "Search the web with DuckDuckGo. Returns titles, URLs and snippets.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"count": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Number of results (1-%d, default %d)", maxCount, defaultCount),
				},
			},
			Required: []string{"query"},
		},
	}, handleWebSearch)

	s.AddTool(mcp.Tool{
		Name:        "fetch_page",
		Description: "Fetch a URL and return its main readable text.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch",
				},
			},
			Required: []string{"url"},
		},
	}, handleFetchPage)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
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

type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

func handleWebSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	query, _ := args["query"].(string)
	if query == "" {
		return errResult("error: 'query' is required"), nil
	}

	count := defaultCount
	if v, ok := toInt(args["count"]); ok {
		if v < 1 || v > maxCount {
			return errResult(fmt.Sprintf("error: count must be between 1 and %d", maxCount)), nil
		}
		count = v
	}

	results, err := searchDuckDuckGo(ctx, query, count)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	if len(results) == 0 {
		return textResult(fmt.Sprintf("No results found for %q", query)), nil
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s\n   %s\n   %s\n\n", i+1, r.Title, r.URL, r.Snippet))
	}
	return textResult(strings.TrimRight(sb.String(), "\n")), nil
}

func searchDuckDuckGo(ctx context.Context, query string, count int) ([]searchResult, error) {
	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", "wt-wt")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}

	results := make([]searchResult, 0, count)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find(".result__a")
		title := strings.TrimSpace(link.Text())
		href, ok := link.Attr("href")
		if !ok || title == "" || href == "" {
			return true
		}
		results = append(results, searchResult{
			Title:   title,
			URL:     resultURL(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return len(results) < count
	})
	return results, nil
}

// resultURL unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Host == "" && strings.HasPrefix(href, "/") {
		return "https://duckduckgo.com" + href
	}
	return href
}

func handleFetchPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	raw, _ := args["url"].(string)
	if raw == "" {
		return errResult("error: 'url' is required"), nil
	}
	pageURL, err := url.Parse(raw)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return errResult(fmt.Sprintf("error: invalid url %q", raw)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errResult(fmt.Sprintf("error: %s returned status %d", raw, resp.StatusCode)), nil
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return errResult(fmt.Sprintf("error extracting content: %v", err)), nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > maxPageChars {
		text = text[:maxPageChars] + "\n... (truncated)"
	}
	if article.Title != "" {
		text = article.Title + "\n\n" + text
	}
	return textResult(text), nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
