package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/logging"
	"realestate-crm/backend/internal/notify"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/workflows"
	"realestate-crm/backend/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *repository.MemoryStore) {
	t.Helper()
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := logging.Discard()
	store := repository.NewMemoryStore(clock)
	svc, err := notify.NewService(&notify.RecordingSender{}, store, "crm@example.com", notify.DefaultTemplates, logger)
	require.NoError(t, err)
	engine := automation.New(store, logger, automation.WithClock(clock))
	require.NoError(t, workflows.RegisterDefaults(engine, workflows.New(store, svc, logger, workflows.Config{}, clock)))
	return NewServer(engine), store
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestStatusTool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleStatus(context.Background(), call(nil))
	require.NoError(t, err)
	var status automation.Status
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &status))
	assert.Equal(t, 6, status.WorkflowsRegistered)
	assert.False(t, status.Running)
}

func TestListWorkflowsTool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleListWorkflows(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"name":"daily_report_generation"`)
}

func TestExecuteWorkflowTool(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	lead := &models.Lead{FirstName: "Jo", Status: models.LeadStatusContacted}
	require.NoError(t, store.CreateLead(ctx, lead))

	res, err := s.handleExecute(ctx, call(map[string]any{
		"workflow": "hot_lead_identified",
		"event":    map[string]any{"lead_id": float64(lead.ID), "score": float64(90)},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var run models.WorkflowRun
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &run))
	assert.True(t, run.Success)
	assert.Equal(t, "manual", run.TriggerType)

	got, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusQualified, got.Status)
}

func TestExecuteWorkflowToolErrors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()
	tests := []struct {
		name string
		args any
	}{
		{"not a map", "oops"},
		{"missing workflow", map[string]any{}},
		{"unknown workflow", map[string]any{"workflow": "send_flowers"}},
		{"event not object", map[string]any{"workflow": "new_lead", "event": "lead 1"}},
		{"unknown event field", map[string]any{"workflow": "new_lead", "event": map[string]any{"lead": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req mcp.CallToolRequest
			req.Params.Arguments = tt.args
			res, err := s.handleExecute(ctx, req)
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestTriggerEventTool(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	lead := &models.Lead{FirstName: "Jo"}
	require.NoError(t, store.CreateLead(ctx, lead))

	res, err := s.handleTrigger(ctx, call(map[string]any{
		"trigger": "lead_follow_up_due",
		"event":   map[string]any{"lead_id": float64(lead.ID), "days_overdue": float64(2)},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var runs []models.WorkflowRun
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "lead_follow_up", runs[0].Workflow)
	assert.Equal(t, "event", runs[0].TriggerType)

	res, err = s.handleTrigger(ctx, call(map[string]any{"trigger": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunScanTool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleRunScan(context.Background(), call(map[string]any{"scan": automation.TaskRescoring}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Scan lead_rescoring processed 0 item(s)", text(t, res))

	res, err = s.handleRunScan(context.Background(), call(map[string]any{"scan": "vacuum"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestScoreLeadTool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleScoreLead(context.Background(), call(map[string]any{
		"lead_source":       "Referral",
		"timeline":          "ASAP",
		"budget_max":        float64(1200000),
		"property_interest": "Buying",
		"has_email":         true,
		"has_phone":         true,
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":100,"hot":true}`, text(t, res))

	res, err = s.handleScoreLead(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":13,"hot":false}`, text(t, res))
}

func TestScoreLeadTool_RecentCommunications(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleScoreLead(context.Background(), call(map[string]any{
		"recent_communications": float64(1 << 62),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"score":23,"hot":false}`, text(t, res))

	for _, bad := range []any{float64(-1), 2.5, "three"} {
		res, err := s.handleScoreLead(context.Background(), call(map[string]any{
			"recent_communications": bad,
		}))
		require.NoError(t, err)
		assert.True(t, res.IsError, "recent_communications=%v", bad)
	}
}
