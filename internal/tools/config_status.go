package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/confcache/confcache/internal/confcache"
)

// ConfigStatusHandler returns the MCP tool handler for the "config-status"
// tool.
func ConfigStatusHandler(svc ConfigService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		st, err := svc.Status(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatStatus(st)), nil
	}
}

func formatStatus(st confcache.Status) string {
	if !st.Exists {
		return "No cached configuration."
	}
	var sb strings.Builder
	sb.WriteString("Cached configuration:\n")
	fmt.Fprintf(&sb, "- stored: %s (%s)\n", st.StoredAt.Format(time.RFC3339), humanize.Time(st.StoredAt))
	fmt.Fprintf(&sb, "- size: %s\n", humanize.Bytes(uint64(st.Size)))
	if st.Fresh {
		sb.WriteString("- freshness: fresh\n")
	} else {
		sb.WriteString("- freshness: stale (next read refetches)\n")
	}
	return sb.String()
}
