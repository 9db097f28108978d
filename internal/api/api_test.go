package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-crm/backend/internal/auth"
	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/logging"
	"realestate-crm/backend/internal/notify"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/runlog"
	"realestate-crm/backend/internal/workflows"
	"realestate-crm/backend/pkg/models"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type testAPI struct {
	echo   *echo.Echo
	engine *automation.Engine
	store  *repository.MemoryStore
	sender *notify.RecordingSender
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	clock := func() time.Time { return testNow }
	logger := logging.Discard()
	store := repository.NewMemoryStore(clock)
	sender := &notify.RecordingSender{}
	svc, err := notify.NewService(sender, store, "crm@example.com", notify.DefaultTemplates, logger)
	require.NoError(t, err)

	runs, err := runlog.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runs.Close() })

	engine := automation.New(store, logger, automation.WithClock(clock), automation.WithRunRecorder(runs))
	require.NoError(t, workflows.RegisterDefaults(engine, workflows.New(store, svc, logger, workflows.Config{}, clock)))
	t.Cleanup(func() { engine.Stop() })

	srv := NewServer(context.Background(), engine, runs)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/api/v1/health", srv.GetHealth)
	RegisterHandlersWithBaseURL(e, srv, "/api/v1")
	return &testAPI{echo: e, engine: engine, store: store, sender: sender}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func (a *testAPI) agent(t *testing.T) *models.User {
	t.Helper()
	u := &models.User{FirstName: "Ada", LastName: "Agent", Email: "ada@realty.example", Role: models.UserRoleAgent}
	require.NoError(t, a.store.CreateUser(context.Background(), u))
	return u
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, false, body["engine_running"])
}

func TestStatusAndWorkflows(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, http.MethodGet, "/api/v1/automation/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	status := body["status"].(map[string]any)
	assert.Equal(t, float64(6), status["workflows_registered"])
	assert.Equal(t, float64(6), status["triggers_registered"])

	rec, body = a.do(t, http.MethodGet, "/api/v1/automation/workflows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(6), body["count"])
	first := body["workflows"].([]any)[0].(map[string]any)
	assert.Equal(t, string(automation.WorkflowNewLead), first["name"])
	assert.NotEmpty(t, first["description"])

	rec, body = a.do(t, http.MethodGet, "/api/v1/automation/triggers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["triggers"], 6)
}

func TestStartStop(t *testing.T) {
	a := newTestAPI(t)
	_, body := a.do(t, http.MethodPost, "/api/v1/automation/start", "")
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, true, body["running"])

	_, body = a.do(t, http.MethodPost, "/api/v1/automation/start", "")
	assert.Equal(t, false, body["changed"])

	_, body = a.do(t, http.MethodPost, "/api/v1/automation/stop", "")
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, false, body["running"])

	_, body = a.do(t, http.MethodPost, "/api/v1/automation/stop", "")
	assert.Equal(t, false, body["changed"])
}

func TestExecuteWorkflow(t *testing.T) {
	a := newTestAPI(t)
	agent := a.agent(t)
	lead := &models.Lead{FirstName: "Jane", Email: "jane@example.com"}
	require.NoError(t, a.store.CreateLead(context.Background(), lead))

	rec, body := a.do(t, http.MethodPost, "/api/v1/automation/workflows/new_lead/execute", `{"lead_id":`+itoa(lead.ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["result"])

	got, err := a.store.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, *got.AssignedAgentID)
	assert.Len(t, a.sender.Messages(), 1)

	_, body = a.do(t, http.MethodPost, "/api/v1/automation/workflows/new_lead/execute", "")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["result"], "missing lead id fails the run")

	rec, body = a.do(t, http.MethodPost, "/api/v1/automation/workflows/nope/execute", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "nope")

	rec, _ = a.do(t, http.MethodPost, "/api/v1/automation/workflows/new_lead/execute", `{"lead":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = a.do(t, http.MethodGet, "/api/v1/automation/runs?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := body["runs"].([]any)
	require.Len(t, runs, 2)
	newest := runs[0].(map[string]any)
	assert.Equal(t, "manual", newest["trigger_type"])
}

func TestExecuteWorkflowRejectsOversizedBody(t *testing.T) {
	a := newTestAPI(t)
	huge := `{"lead_id":1,"pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`

	rec, body := a.do(t, http.MethodPost, "/api/v1/automation/workflows/new_lead/execute", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = a.do(t, http.MethodPost, "/api/v1/automation/triggers/new_lead", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFireTrigger(t *testing.T) {
	a := newTestAPI(t)
	lead := &models.Lead{FirstName: "Hot", Status: models.LeadStatusNew}
	require.NoError(t, a.store.CreateLead(context.Background(), lead))

	rec, body := a.do(t, http.MethodPost, "/api/v1/automation/triggers/hot_lead_identified", `{"lead_id":`+itoa(lead.ID)+`,"score":85}`)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Len(t, body["runs"], 1)
	got, err := a.store.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusQualified, got.Status)

	_, body = a.do(t, http.MethodPost, "/api/v1/automation/triggers/hot_lead_identified", `{"lead_id":`+itoa(lead.ID)+`,"score":50}`)
	assert.Equal(t, true, body["success"])
	assert.Empty(t, body["runs"])

	rec, body = a.do(t, http.MethodPost, "/api/v1/automation/triggers/lead_exploded", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = a.do(t, http.MethodPost, "/api/v1/automation/triggers/hot_lead_identified", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunScan(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, http.MethodPost, "/api/v1/automation/scans/"+automation.TaskMaintenance, "")
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, float64(0), body["processed"])

	rec, _ = a.do(t, http.MethodPost, "/api/v1/automation/scans/vacuum", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, a.store.CreateCommunication(ctx, &models.Communication{Type: models.CommunicationEmail, IsAutomated: true}))
	require.NoError(t, a.store.CreateCommunication(ctx, &models.Communication{Type: models.CommunicationCall}))

	rec, body := a.do(t, http.MethodGet, "/api/v1/automation/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := body["metrics"].(map[string]any)
	assert.Equal(t, float64(1), m["automated_emails_sent"])
	assert.Equal(t, float64(2), m["total_communications"])
	assert.Equal(t, 50.0, m["automation_rate"])
	assert.NotNil(t, body["engine_status"])
}

func TestListRunsLimit(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, http.MethodGet, "/api/v1/automation/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["runs"])

	for _, q := range []string{"0", "501", "ten"} {
		rec, body = a.do(t, http.MethodGet, "/api/v1/automation/runs?limit="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, false, body["success"])
	}
}

func TestCreateLead(t *testing.T) {
	a := newTestAPI(t)
	agent := a.agent(t)
	rec, body := a.do(t, http.MethodPost, "/api/v1/leads",
		`{"first_name":"Hot","email":"hot@example.com","phone":"555-0199","lead_source":"Referral","timeline":"ASAP","budget_max":1200000,"property_interest":"Buying"}`)
	require.Equal(t, http.StatusCreated, rec.Code, body)
	lead := body["lead"].(map[string]any)
	assert.Equal(t, float64(100), lead["lead_score"])
	assert.Equal(t, float64(agent.ID), lead["assigned_agent_id"])
	assert.Len(t, body["runs"], 1)

	rec, body = a.do(t, http.MethodPost, "/api/v1/leads", `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "first_name")
}

func TestUpdateMilestoneStatus(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	tx := &models.Transaction{Type: "Sale", PropertyAddress: "1 Main St"}
	require.NoError(t, a.store.CreateTransaction(ctx, tx))
	m1 := &models.TransactionMilestone{TransactionID: tx.ID, Name: "Listing"}
	m2 := &models.TransactionMilestone{TransactionID: tx.ID, Name: "Offer"}
	require.NoError(t, a.store.CreateMilestone(ctx, m1))
	require.NoError(t, a.store.CreateMilestone(ctx, m2))

	rec, body := a.do(t, http.MethodPut, "/api/v1/milestones/"+itoa(m1.ID)+"/status", `{"status":"Complete"}`)
	require.Equal(t, http.StatusOK, rec.Code, body)
	txBody := body["transaction"].(map[string]any)
	assert.Equal(t, float64(50), txBody["progress_percentage"])
	assert.Equal(t, "Offer", txBody["current_milestone"])

	rec, _ = a.do(t, http.MethodPut, "/api/v1/milestones/"+itoa(m1.ID)+"/status", `{"status":"Done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = a.do(t, http.MethodPut, "/api/v1/milestones/9999/status", `{"status":"Complete"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(t, http.MethodPut, "/api/v1/milestones/abc/status", `{"status":"Complete"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCurrentUser(t *testing.T) {
	a := newTestAPI(t)
	rec, _ := a.do(t, http.MethodGet, "/api/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	u := &models.User{ID: 5, Email: "boss@realty.example", Role: models.UserRoleManager}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(auth.WithUser(req.Context(), u))
	rec = httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "boss@realty.example")
}

func TestSpecHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	SpecHandler("https://issuer.example/oauth2/default")(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://issuer.example/oauth2/default/v1/authorize")
	assert.NotContains(t, rec.Body.String(), "{oktaIssuer}")

	rec = httptest.NewRecorder()
	SwaggerHandler("https://issuer.example", "swagger-client")(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Contains(t, rec.Body.String(), `clientId: "swagger-client"`)
	assert.Contains(t, rec.Body.String(), auth.ScopeCRMWrite)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
