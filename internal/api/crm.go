package api

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"realestate-crm/backend/internal/auth"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/workflows"
	"realestate-crm/backend/pkg/models"
)

// GetCurrentUser returns the CRM user resolved by authentication.
// (GET /api/v1/me)
func (s *Server) GetCurrentUser(c echo.Context) error {
	u, found := auth.UserFromContext(c.Request().Context())
	if !found {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, struct {
		Response
		User *models.User `json:"user"`
	}{Response{Success: true}, u})
}

// CreateLeadRequest is the body of POST /leads.
type CreateLeadRequest struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Source           string   `json:"lead_source"`
	Timeline         string   `json:"timeline"`
	PropertyInterest string   `json:"property_interest"`
	BudgetMin        *float64 `json:"budget_min"`
	BudgetMax        *float64 `json:"budget_max"`
	PreferredAreas   string   `json:"preferred_areas"`
	Notes            string   `json:"notes"`
	AssignedAgentID  *int64   `json:"assigned_agent_id"`
	SourceCampaignID *int64   `json:"source_campaign_id"`
}

func (r CreateLeadRequest) validate() error {
	var problems []string
	if strings.TrimSpace(r.FirstName) == "" {
		problems = append(problems, "first_name is required")
	}
	if r.Email == "" && r.Phone == "" {
		problems = append(problems, "email or phone is required")
	}
	if r.BudgetMin != nil && r.BudgetMax != nil && *r.BudgetMin > *r.BudgetMax {
		problems = append(problems, "budget_min exceeds budget_max")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// CreateLead scores and stores a lead, then runs the new lead automation.
// (POST /api/v1/leads)
func (s *Server) CreateLead(c echo.Context) error {
	var req CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lead := &models.Lead{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		Source:           req.Source,
		Timeline:         req.Timeline,
		PropertyInterest: req.PropertyInterest,
		BudgetMin:        req.BudgetMin,
		BudgetMax:        req.BudgetMax,
		PreferredAreas:   req.PreferredAreas,
		Notes:            req.Notes,
		AssignedAgentID:  req.AssignedAgentID,
		SourceCampaignID: req.SourceCampaignID,
	}
	ctx := c.Request().Context()
	runs, err := workflows.CreateLead(ctx, s.engine, lead)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// reread to include the agent and follow-up set by the workflow
	stored, err := s.store.GetLead(ctx, lead.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if runs == nil {
		runs = []models.WorkflowRun{}
	}
	return c.JSON(http.StatusCreated, struct {
		Response
		Lead *models.Lead         `json:"lead"`
		Runs []models.WorkflowRun `json:"runs"`
	}{Response{Success: true}, stored, runs})
}

// MilestoneStatusRequest is the body of PUT /milestones/{id}/status.
type MilestoneStatusRequest struct {
	Status models.MilestoneStatus `json:"status"`
}

var milestoneStatuses = []models.MilestoneStatus{
	models.MilestoneStatusPending,
	models.MilestoneStatusInProgress,
	models.MilestoneStatusComplete,
	models.MilestoneStatusOverdue,
}

// UpdateMilestoneStatus sets a milestone status and recomputes the progress
// of its transaction.
// (PUT /api/v1/milestones/{id}/status)
func (s *Server) UpdateMilestoneStatus(c echo.Context, id int64) error {
	var req MilestoneStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if !slices.Contains(milestoneStatuses, req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid milestone status: "+string(req.Status))
	}
	ctx := c.Request().Context()
	m, err := workflows.UpdateMilestoneStatus(ctx, s.store, id, req.Status, s.engine.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Milestone not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tx, err := s.store.GetTransaction(ctx, m.TransactionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, struct {
		Response
		Milestone   *models.TransactionMilestone `json:"milestone"`
		Transaction *models.Transaction          `json:"transaction"`
	}{Response{Success: true}, m, tx})
}
