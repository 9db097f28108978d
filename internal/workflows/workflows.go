// Package workflows implements the CRM automation workflows and binds them
// to their triggers.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/notify"
	"realestate-crm/backend/internal/repository"
)

// ErrMissingField is returned when an event lacks the identifier a workflow needs.
var ErrMissingField = errors.New("missing required field")

const (
	// DefaultRevenuePerLead is the assumed commission per generated lead used
	// in campaign ROI.
	DefaultRevenuePerLead = 5000.0
	// DefaultCompanyName is used when an agent has no brokerage name.
	DefaultCompanyName = "Premier Realty Group"
)

// Notifier sends templated and raw email and logs sent mail.
type Notifier interface {
	Send(ctx context.Context, template, to, from string, vars map[string]any) (notify.Message, error)
	SendRaw(ctx context.Context, to, subject, body string) error
	Log(ctx context.Context, e notify.Entry) error
}

// Config tunes workflow business rules.
type Config struct {
	RevenuePerLead float64
	CompanyName    string
}

// Handlers holds the dependencies shared by all workflows.
type Handlers struct {
	store    repository.Store
	notifier Notifier
	logger   automation.Logger
	now      func() time.Time
	cfg      Config
}

// New creates Handlers. A nil clock uses time.Now.
func New(store repository.Store, notifier Notifier, logger automation.Logger, cfg Config, now func() time.Time) *Handlers {
	if now == nil {
		now = time.Now
	}
	if cfg.RevenuePerLead == 0 {
		cfg.RevenuePerLead = DefaultRevenuePerLead
	}
	if cfg.CompanyName == "" {
		cfg.CompanyName = DefaultCompanyName
	}
	return &Handlers{store: store, notifier: notifier, logger: logger, now: now, cfg: cfg}
}

var descriptions = map[automation.WorkflowID]string{
	automation.WorkflowNewLead:           "Welcome a new lead, schedule the first follow-up and assign an agent",
	automation.WorkflowLeadFollowUp:      "Send a follow-up and reschedule the next one by score tier",
	automation.WorkflowHotLead:           "Alert the assigned agent, qualify the lead and follow up today",
	automation.WorkflowMilestoneOverdue:  "Remind the listing agent, flag the milestone and raise transaction risk",
	automation.WorkflowDailyReport:       "Send the daily activity report to every active agent",
	automation.WorkflowCampaignCompleted: "Compute final campaign ROI and cost per lead and notify the creator",
}

// Describe returns a one-line description of a workflow.
func Describe(id automation.WorkflowID) string {
	return descriptions[id]
}

// Workflows returns the six CRM workflows.
func (h *Handlers) Workflows() []automation.Workflow {
	return []automation.Workflow{
		automation.NewWorkflow(automation.WorkflowNewLead, h.NewLead),
		automation.NewWorkflow(automation.WorkflowLeadFollowUp, h.LeadFollowUp),
		automation.NewWorkflow(automation.WorkflowHotLead, h.HotLead),
		automation.NewWorkflow(automation.WorkflowMilestoneOverdue, h.MilestoneOverdue),
		automation.NewWorkflow(automation.WorkflowDailyReport, h.DailyReport),
		automation.NewWorkflow(automation.WorkflowCampaignCompleted, h.CampaignCompleted),
	}
}

// RegisterDefaults registers every workflow and its trigger binding.
func RegisterDefaults(e *automation.Engine, h *Handlers) error {
	for _, wf := range h.Workflows() {
		if err := e.RegisterWorkflow(wf); err != nil {
			return err
		}
	}
	for _, b := range Bindings {
		if err := e.RegisterTrigger(b.Trigger, b.Condition, b.Workflow); err != nil {
			return err
		}
	}
	return nil
}

func wrongEvent(id automation.WorkflowID, ev automation.Event) error {
	return fmt.Errorf("%s: unexpected event %T", id, ev)
}

func missing(id automation.WorkflowID, field string) error {
	return fmt.Errorf("%s: %w: %s", id, ErrMissingField, field)
}
