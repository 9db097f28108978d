package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ListRunsParams defines parameters for ListRuns.
type ListRunsParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /me)
	GetCurrentUser(ctx echo.Context) error
	// (GET /automation/status)
	GetAutomationStatus(ctx echo.Context) error
	// (POST /automation/start)
	StartAutomation(ctx echo.Context) error
	// (POST /automation/stop)
	StopAutomation(ctx echo.Context) error
	// (GET /automation/workflows)
	ListWorkflows(ctx echo.Context) error
	// (POST /automation/workflows/{name}/execute)
	ExecuteWorkflow(ctx echo.Context, name string) error
	// (GET /automation/triggers)
	ListTriggers(ctx echo.Context) error
	// (POST /automation/triggers/{name})
	FireTrigger(ctx echo.Context, name string) error
	// (POST /automation/scans/{name})
	RunScan(ctx echo.Context, name string) error
	// (GET /automation/metrics)
	GetAutomationMetrics(ctx echo.Context) error
	// (GET /automation/runs)
	ListRuns(ctx echo.Context, params ListRunsParams) error
	// (POST /leads)
	CreateLead(ctx echo.Context) error
	// (PUT /milestones/{id}/status)
	UpdateMilestoneStatus(ctx echo.Context, id int64) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetCurrentUser(ctx echo.Context) error {
	return w.Handler.GetCurrentUser(ctx)
}

func (w *ServerInterfaceWrapper) GetAutomationStatus(ctx echo.Context) error {
	return w.Handler.GetAutomationStatus(ctx)
}

func (w *ServerInterfaceWrapper) StartAutomation(ctx echo.Context) error {
	return w.Handler.StartAutomation(ctx)
}

func (w *ServerInterfaceWrapper) StopAutomation(ctx echo.Context) error {
	return w.Handler.StopAutomation(ctx)
}

func (w *ServerInterfaceWrapper) ListWorkflows(ctx echo.Context) error {
	return w.Handler.ListWorkflows(ctx)
}

func (w *ServerInterfaceWrapper) ExecuteWorkflow(ctx echo.Context) error {
	name, err := bindName(ctx)
	if err != nil {
		return err
	}
	return w.Handler.ExecuteWorkflow(ctx, name)
}

func (w *ServerInterfaceWrapper) ListTriggers(ctx echo.Context) error {
	return w.Handler.ListTriggers(ctx)
}

func (w *ServerInterfaceWrapper) FireTrigger(ctx echo.Context) error {
	name, err := bindName(ctx)
	if err != nil {
		return err
	}
	return w.Handler.FireTrigger(ctx, name)
}

func (w *ServerInterfaceWrapper) RunScan(ctx echo.Context) error {
	name, err := bindName(ctx)
	if err != nil {
		return err
	}
	return w.Handler.RunScan(ctx, name)
}

func (w *ServerInterfaceWrapper) GetAutomationMetrics(ctx echo.Context) error {
	return w.Handler.GetAutomationMetrics(ctx)
}

func (w *ServerInterfaceWrapper) ListRuns(ctx echo.Context) error {
	var params ListRunsParams
	err := runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err))
	}
	return w.Handler.ListRuns(ctx, params)
}

func (w *ServerInterfaceWrapper) CreateLead(ctx echo.Context) error {
	return w.Handler.CreateLead(ctx)
}

func (w *ServerInterfaceWrapper) UpdateMilestoneStatus(ctx echo.Context) error {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
	}
	return w.Handler.UpdateMilestoneStatus(ctx, id)
}

func bindName(ctx echo.Context) (string, error) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", ctx.Param("name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter name: %s", err))
	}
	return name, nil
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers the routes under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET(baseURL+"/me", wrapper.GetCurrentUser)
	router.GET(baseURL+"/automation/status", wrapper.GetAutomationStatus)
	router.POST(baseURL+"/automation/start", wrapper.StartAutomation)
	router.POST(baseURL+"/automation/stop", wrapper.StopAutomation)
	router.GET(baseURL+"/automation/workflows", wrapper.ListWorkflows)
	router.POST(baseURL+"/automation/workflows/:name/execute", wrapper.ExecuteWorkflow)
	router.GET(baseURL+"/automation/triggers", wrapper.ListTriggers)
	router.POST(baseURL+"/automation/triggers/:name", wrapper.FireTrigger)
	router.POST(baseURL+"/automation/scans/:name", wrapper.RunScan)
	router.GET(baseURL+"/automation/metrics", wrapper.GetAutomationMetrics)
	router.GET(baseURL+"/automation/runs", wrapper.ListRuns)
	router.POST(baseURL+"/leads", wrapper.CreateLead)
	router.PUT(baseURL+"/milestones/:id/status", wrapper.UpdateMilestoneStatus)
}
