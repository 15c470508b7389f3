package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/usecase/rag"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolGeneratePlan   = "generate_fitness_plan"
	ToolSyncEmbeddings = "sync_embeddings"
)

// Planner is the pipeline exposed as MCP tools
type Planner interface {
	GeneratePlan(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error)
	SyncEmbeddings(ctx context.Context, userID model.UserID) (*rag.SyncResult, error)
}

// Server exposes the plan generator to MCP clients
type Server struct {
	server  *mcp.Server
	planner Planner
}

type generatePlanParams struct {
	UserID string `json:"user_id" jsonschema:"ID of the user the plan is generated for"`
	Input  string `json:"input" jsonschema:"What the user asks for, e.g. a plan for the coming week"`
}

type syncParams struct {
	UserID string `json:"user_id" jsonschema:"ID of the user whose journal is embedded"`
}

// NewServer creates an MCP server with the plan generation tools registered
func NewServer(planner Planner, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "fitplan",
			Version: version,
		}, nil),
		planner: planner,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGeneratePlan,
		Description: "Generate a personalized fitness plan grounded on the user's workout journal, earlier plans and goal",
	}, s.generatePlan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSyncEmbeddings,
		Description: "Embed the user's plans and journal entries that are not searchable yet",
	}, s.syncEmbeddings)

	return s
}

// RunStdio serves MCP over stdin and stdout until ctx is canceled or the
// client disconnects
func (s *Server) RunStdio(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP stdio server failed")
	}
	return nil
}

// Handler returns a streamable HTTP handler serving the same tools
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) generatePlan(ctx context.Context, req *mcp.CallToolRequest, params *generatePlanParams) (*mcp.CallToolResult, any, error) {
	if params.UserID == "" {
		return toolError("user_id is required"), nil, nil
	}

	plan, err := s.planner.GeneratePlan(ctx, model.UserID(params.UserID), params.Input)
	if err != nil {
		logging.From(ctx).Error("failed to generate plan via MCP", "error", err, "user_id", params.UserID)
		return toolError(err.Error()), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: plan.Text},
		},
	}, nil, nil
}

func (s *Server) syncEmbeddings(ctx context.Context, req *mcp.CallToolRequest, params *syncParams) (*mcp.CallToolResult, any, error) {
	if params.UserID == "" {
		return toolError("user_id is required"), nil, nil
	}

	result, err := s.planner.SyncEmbeddings(ctx, model.UserID(params.UserID))
	if err != nil {
		logging.From(ctx).Error("failed to sync embeddings via MCP", "error", err, "user_id", params.UserID)
		return toolError(err.Error()), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("embedded %d plans and %d entries", result.Plans, result.Entries)},
		},
	}, nil, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
