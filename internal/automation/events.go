package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event is the payload passed from a trigger to a workflow. The set of
// implementations is closed.
type Event interface {
	isEvent()
}

// LeadCreated is raised once a lead has been persisted.
type LeadCreated struct {
	LeadID int64 `json:"lead_id"`
}

// LeadFollowUpDue is raised for a lead whose follow-up date has arrived.
type LeadFollowUpDue struct {
	LeadID      int64 `json:"lead_id"`
	DaysOverdue int   `json:"days_overdue"`
}

// HotLeadIdentified is raised when a lead score crosses the hot threshold.
type HotLeadIdentified struct {
	LeadID int64 `json:"lead_id"`
	Score  int   `json:"score"`
}

// MilestoneOverdue is raised for an open milestone past its due date.
type MilestoneOverdue struct {
	MilestoneID   int64 `json:"milestone_id"`
	TransactionID int64 `json:"transaction_id"`
}

// DailyReport is raised once per maintenance run. A zero Date means today.
type DailyReport struct {
	Date time.Time `json:"-"`
}

// CampaignCompleted is raised when a campaign is moved to Completed.
type CampaignCompleted struct {
	CampaignID int64 `json:"campaign_id"`
}

func (LeadCreated) isEvent()       {}
func (LeadFollowUpDue) isEvent()   {}
func (HotLeadIdentified) isEvent() {}
func (MilestoneOverdue) isEvent()  {}
func (DailyReport) isEvent()       {}
func (CampaignCompleted) isEvent() {}

const dateLayout = "2006-01-02"

// MarshalJSON writes Date as YYYY-MM-DD.
func (e DailyReport) MarshalJSON() ([]byte, error) {
	var date string
	if !e.Date.IsZero() {
		date = e.Date.Format(dateLayout)
	}
	return json.Marshal(struct {
		Date string `json:"date,omitempty"`
	}{date})
}

// UnmarshalJSON reads Date as YYYY-MM-DD.
func (e *DailyReport) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date string `json:"date"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw.Date == "" {
		e.Date = time.Time{}
		return nil
	}
	d, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	e.Date = d
	return nil
}

// EventForWorkflow returns an empty event of the type workflow id consumes.
func EventForWorkflow(id WorkflowID) (Event, error) {
	switch id {
	case WorkflowNewLead:
		return &LeadCreated{}, nil
	case WorkflowLeadFollowUp:
		return &LeadFollowUpDue{}, nil
	case WorkflowHotLead:
		return &HotLeadIdentified{}, nil
	case WorkflowMilestoneOverdue:
		return &MilestoneOverdue{}, nil
	case WorkflowDailyReport:
		return &DailyReport{}, nil
	case WorkflowCampaignCompleted:
		return &CampaignCompleted{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, id)
}

// EventForTrigger returns an empty event of the type trigger n carries.
func EventForTrigger(n TriggerName) (Event, error) {
	switch n {
	case TriggerNewLead:
		return &LeadCreated{}, nil
	case TriggerLeadFollowUpDue:
		return &LeadFollowUpDue{}, nil
	case TriggerHotLead:
		return &HotLeadIdentified{}, nil
	case TriggerMilestoneOverdue:
		return &MilestoneOverdue{}, nil
	case TriggerDailyReport:
		return &DailyReport{}, nil
	case TriggerCampaignCompleted:
		return &CampaignCompleted{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTrigger, n)
}

// DecodeWorkflowEvent decodes a JSON body into the event workflow id consumes.
// An empty body yields the zero event.
func DecodeWorkflowEvent(id WorkflowID, data []byte) (Event, error) {
	ev, err := EventForWorkflow(id)
	if err != nil {
		return nil, err
	}
	return decodeInto(ev, data)
}

// DecodeTriggerEvent decodes a JSON body into the event trigger n carries.
func DecodeTriggerEvent(n TriggerName, data []byte) (Event, error) {
	ev, err := EventForTrigger(n)
	if err != nil {
		return nil, err
	}
	return decodeInto(ev, data)
}

func decodeInto(ev Event, data []byte) (Event, error) {
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *LeadCreated:
		return *e
	case *LeadFollowUpDue:
		return *e
	case *HotLeadIdentified:
		return *e
	case *MilestoneOverdue:
		return *e
	case *DailyReport:
		return *e
	case *CampaignCompleted:
		return *e
	}
	return ev
}
