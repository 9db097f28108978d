package models

import (
	"time"
)

// CampaignStatus is the lifecycle state of a marketing campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "Draft"
	CampaignStatusActive    CampaignStatus = "Active"
	CampaignStatusPaused    CampaignStatus = "Paused"
	CampaignStatusCompleted CampaignStatus = "Completed"
)

// MarketingCampaign represents an email, SMS, social or paid campaign
type MarketingCampaign struct {
	ID     int64          `json:"id" db:"id"`
	Name   string         `json:"campaign_name" db:"campaign_name"`
	Type   string         `json:"campaign_type" db:"campaign_type"` // Email, SMS, Social, PPC, Direct Mail
	Status CampaignStatus `json:"campaign_status" db:"campaign_status"`
	Budget float64        `json:"budget" db:"budget"`

	StartDate *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`

	// Performance metrics
	LeadsGenerated int      `json:"leads_generated" db:"leads_generated"`
	EmailsOpened   int      `json:"emails_opened" db:"emails_opened"`
	CostPerLead    *float64 `json:"cost_per_lead,omitempty" db:"cost_per_lead"`
	ROI            *float64 `json:"roi,omitempty" db:"roi"`

	CreatedByID int64     `json:"created_by_id" db:"created_by_id"`
	CreatedAt   time.Time `json:"created_date" db:"created_date"`
}
