// Package mcp exposes the automation engine as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/scoring"
	"realestate-crm/backend/internal/workflows"
	"realestate-crm/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	engine    *automation.Engine
}

func NewServer(engine *automation.Engine) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Real Estate CRM Automation",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		engine: engine,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"automation_status",
			mcp.WithDescription("Report whether the scheduler runs and per-workflow run counts"),
		),
		s.handleStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List the registered workflows with descriptions"),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"execute_workflow",
			mcp.WithDescription("Run one workflow with an event"),
			mcp.WithString("workflow", mcp.Required(), mcp.Description("Workflow name, e.g. new_lead")),
			mcp.WithObject("event", mcp.Description("Event fields such as lead_id, milestone_id, campaign_id or date")),
		),
		s.handleExecute,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"trigger_event",
			mcp.WithDescription("Raise a trigger; every bound workflow whose condition holds runs"),
			mcp.WithString("trigger", mcp.Required(), mcp.Description("Trigger name, e.g. hot_lead_identified")),
			mcp.WithObject("event", mcp.Description("Event fields for the trigger")),
		),
		s.handleTrigger,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_scan",
			mcp.WithDescription("Run one scheduled scan immediately"),
			mcp.WithString("scan", mcp.Required(), mcp.Description("Scan name, e.g. lead_follow_ups")),
		),
		s.handleRunScan,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"score_lead",
			mcp.WithDescription("Compute a lead score from its attributes without storing anything"),
			mcp.WithString("lead_source", mcp.Description("Referral, Website Form, Zillow, ...")),
			mcp.WithString("timeline", mcp.Description("ASAP, 1-3 months, ...")),
			mcp.WithNumber("budget_max", mcp.Description("Maximum budget in dollars")),
			mcp.WithString("property_interest", mcp.Description("Buying, Selling, Both, Investing, Renting")),
			mcp.WithBoolean("has_email", mcp.Description("Lead has an email address")),
			mcp.WithBoolean("has_phone", mcp.Description("Lead has a phone number")),
			mcp.WithNumber("recent_communications", mcp.Description("Communications in the last 7 days")),
		),
		s.handleScoreLead,
	)
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.Status())
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type info struct {
		Name        automation.WorkflowID `json:"name"`
		Description string                `json:"description"`
	}
	var out []info
	for _, id := range s.engine.Workflows() {
		out = append(out, info{Name: id, Description: workflows.Describe(id)})
	}
	return jsonResult(out)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["workflow"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow"), nil
	}
	id, err := automation.ParseWorkflowID(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := eventBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := automation.DecodeWorkflowEvent(id, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid event: %v", err)), nil
	}

	run, err := s.engine.Run(ctx, id, ev, automation.SourceManual)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(run)
}

func (s *Server) handleTrigger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["trigger"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: trigger"), nil
	}
	n, err := automation.ParseTriggerName(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := eventBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := automation.DecodeTriggerEvent(n, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid event: %v", err)), nil
	}

	return jsonResult(s.engine.Trigger(ctx, n, ev))
}

func (s *Server) handleRunScan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["scan"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: scan"), nil
	}
	n, err := s.engine.RunScan(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scan %s processed %d item(s)", name, n)), nil
}

func (s *Server) handleScoreLead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	in := scoring.Input{}
	in.Source, _ = args["lead_source"].(string)
	in.Timeline, _ = args["timeline"].(string)
	in.PropertyInterest, _ = args["property_interest"].(string)
	in.HasEmail, _ = args["has_email"].(bool)
	in.HasPhone, _ = args["has_phone"].(bool)
	if b, ok := args["budget_max"].(float64); ok {
		in.BudgetMax = &b
	}
	if raw, present := args["recent_communications"]; present {
		n, ok := raw.(float64)
		if !ok || n < 0 || n != math.Trunc(n) {
			return mcp.NewToolResultError("recent_communications must be a non-negative integer"), nil
		}
		if n > maxCommunications {
			n = maxCommunications
		}
		in.RecentCommunications = int(n)
	}

	score := scoring.Score(in)
	return jsonResult(map[string]any{"score": score, "hot": score >= models.HotLeadThreshold})
}

// maxCommunications bounds the float-to-int conversion; scoring caps engagement long before it.
const maxCommunications = 1 << 20

// eventBody re-encodes the event argument so it decodes like an HTTP body.
func eventBody(args map[string]any) ([]byte, error) {
	raw, ok := args["event"]
	if !ok || raw == nil {
		return nil, nil
	}
	if _, isObject := raw.(map[string]any); !isObject {
		return nil, fmt.Errorf("event must be an object")
	}
	return json.Marshal(raw)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers serves the SSE transport under /mcp.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
