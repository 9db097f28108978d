package automation

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownWorkflow is returned for a workflow identifier outside the
	// catalogue or one that has not been registered.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrUnknownTrigger is returned for a trigger name outside the catalogue.
	ErrUnknownTrigger = errors.New("unknown trigger")
	// ErrUnknownScan is returned by RunScan for a task name it does not know.
	ErrUnknownScan = errors.New("unknown scan task")
)

// WorkflowID names a unit of automation business logic.
type WorkflowID string

const (
	WorkflowNewLead           WorkflowID = "new_lead"
	WorkflowLeadFollowUp      WorkflowID = "lead_follow_up"
	WorkflowHotLead           WorkflowID = "hot_lead_identified"
	WorkflowMilestoneOverdue  WorkflowID = "milestone_overdue"
	WorkflowDailyReport       WorkflowID = "daily_report_generation"
	WorkflowCampaignCompleted WorkflowID = "campaign_completed"
)

// WorkflowIDs lists every known workflow.
var WorkflowIDs = []WorkflowID{
	WorkflowNewLead,
	WorkflowLeadFollowUp,
	WorkflowHotLead,
	WorkflowMilestoneOverdue,
	WorkflowDailyReport,
	WorkflowCampaignCompleted,
}

// Valid reports whether id is in the catalogue.
func (id WorkflowID) Valid() bool {
	return slices.Contains(WorkflowIDs, id)
}

// ParseWorkflowID converts s to a WorkflowID.
func ParseWorkflowID(s string) (WorkflowID, error) {
	id := WorkflowID(s)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, s)
	}
	return id, nil
}

// TriggerName names an event slot that fans out to workflows.
type TriggerName string

const (
	TriggerNewLead           TriggerName = "new_lead"
	TriggerLeadFollowUpDue   TriggerName = "lead_follow_up_due"
	TriggerHotLead           TriggerName = "hot_lead_identified"
	TriggerMilestoneOverdue  TriggerName = "milestone_overdue"
	TriggerDailyReport       TriggerName = "daily_report"
	TriggerCampaignCompleted TriggerName = "campaign_completed"
)

// TriggerNames lists every known trigger.
var TriggerNames = []TriggerName{
	TriggerNewLead,
	TriggerLeadFollowUpDue,
	TriggerHotLead,
	TriggerMilestoneOverdue,
	TriggerDailyReport,
	TriggerCampaignCompleted,
}

// Valid reports whether n is in the catalogue.
func (n TriggerName) Valid() bool {
	return slices.Contains(TriggerNames, n)
}

// ParseTriggerName converts s to a TriggerName.
func ParseTriggerName(s string) (TriggerName, error) {
	n := TriggerName(s)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTrigger, s)
	}
	return n, nil
}

// RunSource records what started a workflow run.
type RunSource string

const (
	SourceManual    RunSource = "manual"
	SourceEvent     RunSource = "event"
	SourceScheduled RunSource = "scheduled"
)
