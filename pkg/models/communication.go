package models

import (
	"time"
)

// CommunicationType is the channel of a communication
type CommunicationType string

const (
	CommunicationEmail   CommunicationType = "Email"
	CommunicationSMS     CommunicationType = "SMS"
	CommunicationCall    CommunicationType = "Call"
	CommunicationMeeting CommunicationType = "Meeting"
	CommunicationNote    CommunicationType = "Note"
)

// Communication records one inbound or outbound contact
type Communication struct {
	ID        int64             `json:"id" db:"id"`
	Type      CommunicationType `json:"communication_type" db:"communication_type"`
	Direction string            `json:"direction" db:"direction"` // Inbound, Outbound
	Subject   string            `json:"subject,omitempty" db:"subject"`
	Content   string            `json:"content,omitempty" db:"content"`
	Status    string            `json:"status" db:"status"` // Sent, Delivered, Read, Responded, Failed
	SentAt    time.Time         `json:"sent_date" db:"sent_date"`

	// Automation fields
	IsAutomated       bool   `json:"is_automated" db:"is_automated"`
	AutomationTrigger string `json:"automation_trigger,omitempty" db:"automation_trigger"`

	Opened     bool   `json:"opened" db:"opened"`
	ExternalID string `json:"external_id,omitempty" db:"external_id"`

	UserID        int64  `json:"user_id" db:"user_id"`
	LeadID        *int64 `json:"lead_id,omitempty" db:"lead_id"`
	ClientID      *int64 `json:"client_id,omitempty" db:"client_id"`
	TransactionID *int64 `json:"transaction_id,omitempty" db:"transaction_id"`
	CampaignID    *int64 `json:"campaign_id,omitempty" db:"campaign_id"`
}
