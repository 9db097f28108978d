// Package api contains the HTTP control surface for the automation engine.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

const (
	serviceName = "realestate-crm"
	version     = "1.0.0"
)

// RunLister reads the recorded workflow runs.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]models.WorkflowRun, error)
}

// Server holds the dependencies for the API server.
type Server struct {
	engine *automation.Engine
	store  repository.Store
	runs   RunLister
	// scheduler outlives the request that starts it
	baseCtx context.Context
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates a new Server. runs may be nil when no run ledger is
// configured.
func NewServer(baseCtx context.Context, engine *automation.Engine, runs RunLister) *Server {
	return &Server{engine: engine, store: engine.Store(), runs: runs, baseCtx: baseCtx}
}

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
	Engine    bool      `json:"engine_running"`
}

// GetHealth reports service health. It answers 200 while the process is up;
// the database field shows whether the entity store answers.
// (GET /health)
func (s *Server) GetHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: s.engine.Now(),
		Service:   serviceName,
		Version:   version,
		Database:  "ok",
		Engine:    s.engine.Status().Running,
	}
	if err := s.store.Ping(c.Request().Context()); err != nil {
		status.Database = "unavailable"
	}
	return c.JSON(http.StatusOK, status)
}

// ErrorHandler renders errors as the {success:false,error} envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, Response{Success: false, Error: msg})
}

func ok(message string) Response {
	return Response{Success: true, Message: message}
}
