package workflows

import (
	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/pkg/models"
)

// Binding connects a trigger to a workflow through a condition.
type Binding struct {
	Trigger   automation.TriggerName
	Condition automation.Condition
	Workflow  automation.WorkflowID
}

// Bindings are the default trigger bindings, one per trigger.
var Bindings = []Binding{
	{automation.TriggerNewLead, IsLeadCreated, automation.WorkflowNewLead},
	{automation.TriggerLeadFollowUpDue, HasFollowUpLead, automation.WorkflowLeadFollowUp},
	{automation.TriggerHotLead, IsHotScore, automation.WorkflowHotLead},
	{automation.TriggerMilestoneOverdue, HasMilestone, automation.WorkflowMilestoneOverdue},
	{automation.TriggerDailyReport, HasReportDate, automation.WorkflowDailyReport},
	{automation.TriggerCampaignCompleted, HasCampaign, automation.WorkflowCampaignCompleted},
}

// IsLeadCreated holds for lead creation events.
func IsLeadCreated(ev automation.Event) bool {
	_, ok := ev.(automation.LeadCreated)
	return ok
}

// HasFollowUpLead holds when a follow-up event names a lead.
func HasFollowUpLead(ev automation.Event) bool {
	e, ok := ev.(automation.LeadFollowUpDue)
	return ok && e.LeadID != 0
}

// IsHotScore holds when the reported score is at or above the hot threshold.
func IsHotScore(ev automation.Event) bool {
	e, ok := ev.(automation.HotLeadIdentified)
	return ok && e.Score >= models.HotLeadThreshold
}

// HasMilestone holds when an overdue event names a milestone.
func HasMilestone(ev automation.Event) bool {
	e, ok := ev.(automation.MilestoneOverdue)
	return ok && e.MilestoneID != 0
}

// HasReportDate holds when a report event carries a date.
func HasReportDate(ev automation.Event) bool {
	e, ok := ev.(automation.DailyReport)
	return ok && !e.Date.IsZero()
}

// HasCampaign holds when a completion event names a campaign.
func HasCampaign(ev automation.Event) bool {
	e, ok := ev.(automation.CampaignCompleted)
	return ok && e.CampaignID != 0
}
