package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/confcache/confcache/internal/confcache"
)

// ConfigService is the cache surface the tool handlers call. The daemon
// client satisfies it.
type ConfigService interface {
	Get(ctx context.Context) (confcache.Result, error)
	Status(ctx context.Context) (confcache.Status, error)
}

// ConfigGetHandler returns the MCP tool handler for the "config-get" tool.
func ConfigGetHandler(svc ConfigService) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		field := req.GetString("field", "")

		res, err := svc.Get(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.Origin == confcache.OriginNone {
			return mcp.NewToolResultError("no configuration available: fetch failed and the cache is empty"), nil
		}
		if field != "" {
			v := gjson.GetBytes(res.Payload, field)
			if !v.Exists() {
				return mcp.NewToolResultError("field not found: " + field), nil
			}
			return mcp.NewToolResultText(v.String()), nil
		}
		return mcp.NewToolResultText(string(res.Payload)), nil
	}
}
