// Package models defines the domain models for the real-estate CRM
package models

import (
	"time"
)

// LeadStatus represents where a lead sits in the sales pipeline
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "New"
	LeadStatusContacted    LeadStatus = "Contacted"
	LeadStatusQualified    LeadStatus = "Qualified"
	LeadStatusNurturing    LeadStatus = "Nurturing"
	LeadStatusConverted    LeadStatus = "Converted"
	LeadStatusUnresponsive LeadStatus = "Unresponsive"
)

// ActiveLeadStatuses are the statuses the automation engine keeps working on.
var ActiveLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusNurturing,
}

// StaleLeadStatuses are the statuses eligible for the inactivity sweep.
var StaleLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusNurturing,
}

// HotLeadThreshold is the score at which a lead is treated as hot.
const HotLeadThreshold = 80

// Lead represents a prospective client
type Lead struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`

	Source   string     `json:"lead_source" db:"lead_source"`
	Status   LeadStatus `json:"lead_status" db:"lead_status"`
	Score    int        `json:"lead_score" db:"lead_score"`
	Timeline string     `json:"timeline,omitempty" db:"timeline"`

	// Search criteria
	PropertyInterest string   `json:"property_interest,omitempty" db:"property_interest"`
	BudgetMin        *float64 `json:"budget_min,omitempty" db:"budget_min"`
	BudgetMax        *float64 `json:"budget_max,omitempty" db:"budget_max"`
	PreferredAreas   string   `json:"preferred_areas,omitempty" db:"preferred_areas"`
	Notes            string   `json:"notes,omitempty" db:"notes"`

	NextFollowUp *time.Time `json:"next_follow_up,omitempty" db:"next_follow_up"`

	AssignedAgentID   *int64 `json:"assigned_agent_id,omitempty" db:"assigned_agent_id"`
	ConvertedClientID *int64 `json:"converted_client_id,omitempty" db:"converted_client_id"`
	SourceCampaignID  *int64 `json:"source_campaign_id,omitempty" db:"source_campaign_id"`

	// Audit fields
	CreatedAt    time.Time `json:"created_date" db:"created_date"`
	LastModified time.Time `json:"last_modified" db:"last_modified"`
}

// IsActive reports whether the lead is still being worked.
func (l *Lead) IsActive() bool {
	for _, s := range ActiveLeadStatuses {
		if l.Status == s {
			return true
		}
	}
	return false
}

// ClientStatus represents the relationship state with a client
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "Active"
	ClientStatusInactive ClientStatus = "Inactive"
	ClientStatusPast     ClientStatus = "Past Client"
)

// Client represents a converted lead or a direct client of the brokerage
type Client struct {
	ID              int64        `json:"id" db:"id"`
	FirstName       string       `json:"first_name" db:"first_name"`
	LastName        string       `json:"last_name" db:"last_name"`
	Email           string       `json:"email" db:"email"`
	Phone           string       `json:"phone" db:"phone"`
	ClientType      string       `json:"client_type" db:"client_type"` // Buyer, Seller, Both, Investor
	Status          ClientStatus `json:"client_status" db:"client_status"`
	AssignedAgentID *int64       `json:"assigned_agent_id,omitempty" db:"assigned_agent_id"`
	CreatedAt       time.Time    `json:"created_date" db:"created_date"`
}

// FullName returns "First Last".
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}
