package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/workflows"
	"realestate-crm/backend/pkg/models"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500

	// MaxBodyBytes bounds every JSON request body.
	MaxBodyBytes = 1 << 20
)

// GetAutomationStatus returns the engine status snapshot.
// (GET /api/v1/automation/status)
func (s *Server) GetAutomationStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, struct {
		Response
		Status automation.Status `json:"status"`
	}{Response{Success: true}, s.engine.Status()})
}

type lifecycleResponse struct {
	Response
	Changed bool `json:"changed"`
	Running bool `json:"running"`
}

// StartAutomation starts the scan scheduler.
// (POST /api/v1/automation/start)
func (s *Server) StartAutomation(c echo.Context) error {
	changed := s.engine.Start(s.baseCtx)
	msg := "Automation engine started"
	if !changed {
		msg = "Automation engine already running"
	}
	return c.JSON(http.StatusOK, lifecycleResponse{ok(msg), changed, s.engine.Status().Running})
}

// StopAutomation stops the scan scheduler.
// (POST /api/v1/automation/stop)
func (s *Server) StopAutomation(c echo.Context) error {
	changed := s.engine.Stop()
	msg := "Automation engine stopped"
	if !changed {
		msg = "Automation engine not running"
	}
	return c.JSON(http.StatusOK, lifecycleResponse{ok(msg), changed, s.engine.Status().Running})
}

// WorkflowInfo describes one registered workflow.
type WorkflowInfo struct {
	Name        automation.WorkflowID `json:"name"`
	Description string                `json:"description"`
	LastRun     *time.Time            `json:"last_run"`
	RunCount    int                   `json:"run_count"`
}

// ListWorkflows returns the registered workflows.
// (GET /api/v1/automation/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	status := s.engine.Status()
	ids := s.engine.Workflows()
	out := make([]WorkflowInfo, 0, len(ids))
	for _, id := range ids {
		ws := status.Workflows[id]
		out = append(out, WorkflowInfo{Name: id, Description: workflows.Describe(id), LastRun: ws.LastRun, RunCount: ws.RunCount})
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Workflows []WorkflowInfo `json:"workflows"`
		Count     int            `json:"count"`
	}{Response{Success: true}, out, len(out)})
}

// ExecuteWorkflow runs a workflow with the event in the request body.
// (POST /api/v1/automation/workflows/{name}/execute)
func (s *Server) ExecuteWorkflow(c echo.Context, name string) error {
	id, err := automation.ParseWorkflowID(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Workflow not found: "+name)
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	ev, err := automation.DecodeWorkflowEvent(id, body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event: "+err.Error())
	}
	run, err := s.engine.Run(c.Request().Context(), id, ev, automation.SourceManual)
	if err != nil {
		if automation.IsUnknown(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Workflow not registered: "+name)
		}
		return err
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Workflow automation.WorkflowID `json:"workflow"`
		Result   bool                  `json:"result"`
		Run      models.WorkflowRun    `json:"run"`
	}{ok(fmt.Sprintf("Workflow %s executed", id)), id, run.Success, run})
}

// ListTriggers returns the trigger bindings.
// (GET /api/v1/automation/triggers)
func (s *Server) ListTriggers(c echo.Context) error {
	return c.JSON(http.StatusOK, struct {
		Response
		Triggers []automation.TriggerInfo `json:"triggers"`
	}{Response{Success: true}, s.engine.Triggers()})
}

// FireTrigger raises a trigger with the event in the request body.
// (POST /api/v1/automation/triggers/{name})
func (s *Server) FireTrigger(c echo.Context, name string) error {
	n, err := automation.ParseTriggerName(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Trigger not found: "+name)
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	ev, err := automation.DecodeTriggerEvent(n, body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event: "+err.Error())
	}
	runs := s.engine.Trigger(c.Request().Context(), n, ev)
	if runs == nil {
		runs = []models.WorkflowRun{}
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Trigger automation.TriggerName `json:"trigger"`
		Runs    []models.WorkflowRun   `json:"runs"`
	}{ok(fmt.Sprintf("Trigger %s processed", n)), n, runs})
}

// RunScan runs one scan task immediately.
// (POST /api/v1/automation/scans/{name})
func (s *Server) RunScan(c echo.Context, name string) error {
	n, err := s.engine.RunScan(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, automation.ErrUnknownScan) {
			return echo.NewHTTPError(http.StatusNotFound, "Scan not found: "+name)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Scan      string `json:"scan"`
		Processed int    `json:"processed"`
	}{ok(fmt.Sprintf("Scan %s completed", name)), name, n})
}

// GetAutomationMetrics returns the trailing automation rate with the
// engine status.
// (GET /api/v1/automation/metrics)
func (s *Server) GetAutomationMetrics(c echo.Context) error {
	m, err := workflows.ComputeAutomationMetrics(c.Request().Context(), s.store, s.engine.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Metrics workflows.AutomationMetrics `json:"metrics"`
		Engine  automation.Status           `json:"engine_status"`
	}{Response{Success: true}, m, s.engine.Status()})
}

// ListRuns returns recorded runs, newest first.
// (GET /api/v1/automation/runs)
func (s *Server) ListRuns(c echo.Context, params ListRunsParams) error {
	limit := defaultRunLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 || limit > maxRunLimit {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRunLimit))
	}
	runs := []models.WorkflowRun{}
	if s.runs != nil {
		got, err := s.runs.ListRuns(c.Request().Context(), limit)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		runs = append(runs, got...)
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Runs []models.WorkflowRun `json:"runs"`
	}{Response{Success: true}, runs})
}

func readBody(c echo.Context) ([]byte, error) {
	r := http.MaxBytesReader(c.Response(), c.Request().Body, MaxBodyBytes)
	body, err := io.ReadAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", MaxBodyBytes))
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return body, nil
}
