package models

import (
	"time"
)

// WorkflowRun is one recorded execution of an automation workflow.
type WorkflowRun struct {
	ID          string        `json:"id"`
	Workflow    string        `json:"workflow"`
	TriggerType string        `json:"trigger_type"` // manual, scheduled, event
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}
