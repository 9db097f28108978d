package workflows

import (
	"context"
	"fmt"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/notify"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/scoring"
	"realestate-crm/backend/pkg/models"
)

// Follow-up cadences in days.
const (
	newHotLeadFollowUpDays = 1
	newLeadFollowUpDays    = 3
	hotFollowUpDays        = 2
	warmFollowUpDays       = 5
	coldFollowUpDays       = 7
	warmLeadThreshold      = 60
)

// CreateLead scores and stores a new lead, then raises new_lead. It returns
// the workflow runs the trigger started.
func CreateLead(ctx context.Context, e *automation.Engine, lead *models.Lead) ([]models.WorkflowRun, error) {
	lead.Score = scoring.Score(scoring.FromLead(lead, 0))
	if err := e.Store().CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return e.Trigger(ctx, automation.TriggerNewLead, automation.LeadCreated{LeadID: lead.ID}), nil
}

// NewLead assigns an agent, schedules the first follow-up and sends the
// welcome email.
func (h *Handlers) NewLead(ctx context.Context, ev automation.Event) error {
	e, ok := ev.(automation.LeadCreated)
	if !ok {
		return wrongEvent(automation.WorkflowNewLead, ev)
	}
	if e.LeadID == 0 {
		return missing(automation.WorkflowNewLead, "lead_id")
	}
	lead, err := h.store.GetLead(ctx, e.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %d: %w", e.LeadID, err)
	}

	if lead.NextFollowUp == nil {
		days := newLeadFollowUpDays
		if lead.Score >= models.HotLeadThreshold {
			days = newHotLeadFollowUpDays
		}
		next := models.DateOf(h.now()).AddDate(0, 0, days)
		lead.NextFollowUp = &next
	}
	if lead.AssignedAgentID == nil {
		agentID, err := h.leastLoadedAgent(ctx)
		if err != nil {
			return err
		}
		if agentID != nil {
			lead.AssignedAgentID = agentID
			h.logger.Info("assigned lead", "lead_id", lead.ID, "agent_id", *agentID)
		} else {
			h.logger.Warn("no active agent available for lead", "lead_id", lead.ID)
		}
	}
	if err := h.store.UpdateLead(ctx, lead); err != nil {
		return fmt.Errorf("update lead %d: %w", lead.ID, err)
	}

	h.sendToLead(ctx, lead, notify.TemplateWelcomeLead, string(automation.TriggerNewLead), func(agent *models.User) map[string]any {
		return map[string]any{
			"first_name":        lead.FirstName,
			"company_name":      h.companyName(agent),
			"agent_name":        agent.FullName(),
			"agent_title":       string(agent.Role),
			"agent_phone":       agent.Phone,
			"agent_email":       agent.Email,
			"property_interest": orDefault(lead.PropertyInterest, "buy or sell property"),
			"preferred_areas":   orDefault(lead.PreferredAreas, "your preferred areas"),
			"budget_min":        deref(lead.BudgetMin),
			"budget_max":        deref(lead.BudgetMax),
		}
	})
	return nil
}

// leastLoadedAgent picks the active agent with the fewest assigned leads.
// Ties go to the agent listed first.
func (h *Handlers) leastLoadedAgent(ctx context.Context) (*int64, error) {
	agents, err := h.store.ListUsers(ctx, repository.UserFilter{
		Roles:    []models.UserRole{models.UserRoleAgent},
		Statuses: []models.UserStatus{models.UserStatusActive},
	})
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	var best *int64
	bestCount := 0
	for _, a := range agents {
		id := a.ID
		n, err := h.store.CountLeads(ctx, repository.LeadFilter{AssignedAgentID: &id})
		if err != nil {
			return nil, fmt.Errorf("count leads for agent %d: %w", a.ID, err)
		}
		if best == nil || n < bestCount {
			best, bestCount = &id, n
		}
	}
	return best, nil
}

// LeadFollowUp sends a follow-up email and reschedules by score tier.
func (h *Handlers) LeadFollowUp(ctx context.Context, ev automation.Event) error {
	e, ok := ev.(automation.LeadFollowUpDue)
	if !ok {
		return wrongEvent(automation.WorkflowLeadFollowUp, ev)
	}
	if e.LeadID == 0 {
		return missing(automation.WorkflowLeadFollowUp, "lead_id")
	}
	lead, err := h.store.GetLead(ctx, e.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %d: %w", e.LeadID, err)
	}

	h.sendToLead(ctx, lead, notify.TemplateLeadFollowUp, string(automation.TriggerLeadFollowUpDue), func(agent *models.User) map[string]any {
		return map[string]any{
			"first_name":        lead.FirstName,
			"property_interest": orDefault(lead.PropertyInterest, "real estate"),
			"preferred_areas":   orDefault(lead.PreferredAreas, "your area of interest"),
			"agent_name":        agent.FullName(),
			"company_name":      h.companyName(agent),
			"agent_phone":       agent.Phone,
		}
	})

	next := models.DateOf(h.now()).AddDate(0, 0, followUpDays(lead.Score))
	lead.NextFollowUp = &next
	if err := h.store.UpdateLead(ctx, lead); err != nil {
		return fmt.Errorf("update lead %d: %w", lead.ID, err)
	}
	return nil
}

func followUpDays(score int) int {
	switch {
	case score >= models.HotLeadThreshold:
		return hotFollowUpDays
	case score >= warmLeadThreshold:
		return warmFollowUpDays
	default:
		return coldFollowUpDays
	}
}

// HotLead alerts the assigned agent, qualifies the lead and makes the next
// follow-up due today.
func (h *Handlers) HotLead(ctx context.Context, ev automation.Event) error {
	e, ok := ev.(automation.HotLeadIdentified)
	if !ok {
		return wrongEvent(automation.WorkflowHotLead, ev)
	}
	if e.LeadID == 0 {
		return missing(automation.WorkflowHotLead, "lead_id")
	}
	lead, err := h.store.GetLead(ctx, e.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %d: %w", e.LeadID, err)
	}

	if agent := h.assignedAgent(ctx, lead); agent != nil {
		vars := map[string]any{
			"first_name":        lead.FirstName,
			"last_name":         lead.LastName,
			"email":             lead.Email,
			"phone":             lead.Phone,
			"lead_score":        lead.Score,
			"lead_source":       lead.Source,
			"property_interest": lead.PropertyInterest,
			"budget_min":        deref(lead.BudgetMin),
			"budget_max":        deref(lead.BudgetMax),
			"timeline":          lead.Timeline,
			"notes":             orDefault(lead.Notes, "No additional notes"),
		}
		msg, err := h.notifier.Send(ctx, notify.TemplateHotLeadAlert, agent.Email, "", vars)
		if err != nil {
			h.logger.Warn("hot lead alert not sent", "lead_id", lead.ID, "error", err)
		} else {
			h.logSent(ctx, agent.ID, msg, &lead.ID, string(automation.TriggerHotLead))
		}
	}

	if lead.Status == models.LeadStatusNew || lead.Status == models.LeadStatusContacted {
		lead.Status = models.LeadStatusQualified
	}
	today := models.DateOf(h.now())
	lead.NextFollowUp = &today
	if err := h.store.UpdateLead(ctx, lead); err != nil {
		return fmt.Errorf("update lead %d: %w", lead.ID, err)
	}
	return nil
}

// sendToLead emails the lead from its assigned agent and logs the
// communication. Failures are logged; they do not fail the workflow.
func (h *Handlers) sendToLead(ctx context.Context, lead *models.Lead, template, trigger string, vars func(agent *models.User) map[string]any) {
	agent := h.assignedAgent(ctx, lead)
	if agent == nil {
		h.logger.Warn("lead has no assigned agent, email not sent", "lead_id", lead.ID, "template", template)
		return
	}
	msg, err := h.notifier.Send(ctx, template, lead.Email, agent.Email, vars(agent))
	if err != nil {
		h.logger.Warn("email not sent", "lead_id", lead.ID, "template", template, "error", err)
		return
	}
	h.logSent(ctx, agent.ID, msg, &lead.ID, trigger)
}

func (h *Handlers) assignedAgent(ctx context.Context, lead *models.Lead) *models.User {
	if lead.AssignedAgentID == nil {
		return nil
	}
	agent, err := h.store.GetUser(ctx, *lead.AssignedAgentID)
	if err != nil {
		h.logger.Warn("assigned agent not found", "lead_id", lead.ID, "agent_id", *lead.AssignedAgentID, "error", err)
		return nil
	}
	return agent
}

func (h *Handlers) logSent(ctx context.Context, senderID int64, msg notify.Message, leadID *int64, trigger string) {
	err := h.notifier.Log(ctx, notify.Entry{
		SenderID: senderID,
		To:       msg.To,
		Subject:  msg.Subject,
		Body:     msg.Body,
		LeadID:   leadID,
		Trigger:  trigger,
	})
	if err != nil {
		h.logger.Warn("failed to log communication", "to", msg.To, "error", err)
	}
}

func (h *Handlers) companyName(agent *models.User) string {
	return orDefault(agent.BrokerageName, h.cfg.CompanyName)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
