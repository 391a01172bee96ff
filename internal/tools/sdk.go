package tools

import (
	"context"

	"github.com/desertthunder/spx/internal/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GlobalSession is the fixed session id used in single-tenant stdio mode,
// where one process serves one user and no per-session isolation exists.
const GlobalSession = "global"

// Register adds the tool catalog to an SDK server. Every handler threads the
// given session id into the dispatcher; stdio mode passes [GlobalSession].
func Register(server *mcp.Server, d *Dispatcher, sessionID string) {
	catalog := d.Tools()

	mcp.AddTool(server, &mcp.Tool{Name: catalog[0].Name, Description: catalog[0].Description},
		func(ctx context.Context, req *mcp.CallToolRequest, args SearchTracksArgs) (*mcp.CallToolResult, any, error) {
			return callResult(d.SearchTracks(ctx, sessionID, args)), nil, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: catalog[1].Name, Description: catalog[1].Description},
		func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
			return callResult(d.CurrentUser(ctx, sessionID)), nil, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: catalog[2].Name, Description: catalog[2].Description},
		func(ctx context.Context, req *mcp.CallToolRequest, args CreatePlaylistArgs) (*mcp.CallToolResult, any, error) {
			return callResult(d.CreatePlaylist(ctx, sessionID, args)), nil, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: catalog[3].Name, Description: catalog[3].Description},
		func(ctx context.Context, req *mcp.CallToolRequest, args AddTracksArgs) (*mcp.CallToolResult, any, error) {
			return callResult(d.AddTracks(ctx, sessionID, args)), nil, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: catalog[4].Name, Description: catalog[4].Description},
		func(ctx context.Context, req *mcp.CallToolRequest, args RecommendationsArgs) (*mcp.CallToolResult, any, error) {
			return callResult(d.Recommendations(ctx, sessionID, args)), nil, nil
		})
}

func callResult(result auth.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Text}},
		IsError: result.IsError,
	}
}
