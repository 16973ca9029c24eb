package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders a call as a markdown document.
func ExportMarkdown(c *CallRecord) string {
	var b strings.Builder

	title := c.Tool
	if c.Server != "" {
		title = c.Server + " / " + c.Tool
	}
	b.WriteString(fmt.Sprintf("# %s\n\n", title))
	b.WriteString(fmt.Sprintf("- **Call:** %s\n", c.ID))
	if c.Server != "" {
		b.WriteString(fmt.Sprintf("- **Server:** %s\n", c.Server))
	}
	b.WriteString(fmt.Sprintf("- **Tool:** %s\n", c.Tool))
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", c.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("- **Duration:** %dms\n", c.DurationMS))
	if c.IsError {
		status := "error"
		if c.ErrorKind != "" {
			status += " (" + c.ErrorKind + ")"
		}
		b.WriteString(fmt.Sprintf("- **Status:** %s\n", status))
	} else {
		b.WriteString("- **Status:** ok\n")
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Arguments\n\n```json\n")
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, c.Arguments, "", "  "); err == nil {
		b.Write(pretty.Bytes())
	} else {
		b.Write(c.Arguments)
	}
	b.WriteString("\n```\n\n")

	b.WriteString(fmt.Sprintf("## Result\n\n```\n%s\n```\n", c.Result))
	return b.String()
}

// ExportJSON renders a call as formatted JSON.
func ExportJSON(c *CallRecord) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
