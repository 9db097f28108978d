package models

import (
	"time"
)

// TransactionStatus represents the lifecycle of a deal
type TransactionStatus string

const (
	TransactionStatusActive        TransactionStatus = "Active"
	TransactionStatusUnderContract TransactionStatus = "Under Contract"
	TransactionStatusPending       TransactionStatus = "Pending"
	TransactionStatusClosed        TransactionStatus = "Closed"
	TransactionStatusCancelled     TransactionStatus = "Cancelled"
)

// OpenTransactionStatuses count towards the pipeline.
var OpenTransactionStatuses = []TransactionStatus{
	TransactionStatusActive,
	TransactionStatusUnderContract,
	TransactionStatusPending,
}

// RiskLevel is the coarse tier derived from a transaction risk score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// Risk score bounds and tier boundaries.
const (
	MinRiskScore        = 0
	MaxRiskScore        = 100
	MediumRiskThreshold = 40
	HighRiskThreshold   = 70
)

// RiskLevelFor maps a risk score to its tier.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskLevelHigh
	case score >= MediumRiskThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Transaction represents a purchase, sale or lease in progress
type Transaction struct {
	ID     int64             `json:"id" db:"id"`
	Type   string            `json:"transaction_type" db:"transaction_type"` // Purchase, Sale, Lease
	Status TransactionStatus `json:"transaction_status" db:"transaction_status"`

	PropertyAddress string `json:"property_address" db:"property_address"`

	// Key dates
	ContractDate *time.Time `json:"contract_date,omitempty" db:"contract_date"`
	ClosingDate  *time.Time `json:"closing_date,omitempty" db:"closing_date"`

	// Financial details
	SalePrice       float64 `json:"sale_price" db:"sale_price"`
	CommissionRate  float64 `json:"commission_rate" db:"commission_rate"`
	TotalCommission float64 `json:"total_commission" db:"total_commission"`

	// Progress tracking
	ProgressPercentage int    `json:"progress_percentage" db:"progress_percentage"`
	CurrentMilestone   string `json:"current_milestone,omitempty" db:"current_milestone"`

	// Risk assessment; RiskLevel is always derived from RiskScore
	RiskScore int       `json:"risk_score" db:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level" db:"risk_level"`

	Notes string `json:"notes,omitempty" db:"notes"`

	ClientID       int64  `json:"client_id" db:"client_id"`
	ListingAgentID *int64 `json:"listing_agent_id,omitempty" db:"listing_agent_id"`
	BuyerAgentID   *int64 `json:"buyer_agent_id,omitempty" db:"buyer_agent_id"`

	CreatedAt    time.Time `json:"created_date" db:"created_date"`
	LastModified time.Time `json:"last_modified" db:"last_modified"`
}

// AdjustRisk adds delta to the risk score, clamps it to [0,100] and
// recomputes the risk level.
func (t *Transaction) AdjustRisk(delta int) {
	t.RiskScore += delta
	t.NormalizeRisk()
}

// NormalizeRisk clamps the risk score to [0,100] and derives the risk level
// from it. Stores call it on every write.
func (t *Transaction) NormalizeRisk() {
	t.RiskScore = min(max(t.RiskScore, MinRiskScore), MaxRiskScore)
	t.RiskLevel = RiskLevelFor(t.RiskScore)
}

// IsOpen reports whether the transaction counts towards the pipeline.
func (t *Transaction) IsOpen() bool {
	for _, s := range OpenTransactionStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// ProgressPercentage returns the share of completed milestones, rounded down.
func ProgressPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

// MilestoneStatus is the state of a transaction milestone
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "Pending"
	MilestoneStatusInProgress MilestoneStatus = "In Progress"
	MilestoneStatusComplete   MilestoneStatus = "Complete"
	MilestoneStatusOverdue    MilestoneStatus = "Overdue"
)

// OpenMilestoneStatuses are milestones that can still become overdue.
var OpenMilestoneStatuses = []MilestoneStatus{
	MilestoneStatusPending,
	MilestoneStatusInProgress,
}

// TransactionMilestone is a dated checkpoint of a transaction
type TransactionMilestone struct {
	ID               int64           `json:"id" db:"id"`
	TransactionID    int64           `json:"transaction_id" db:"transaction_id"`
	Name             string          `json:"milestone_name" db:"milestone_name"`
	Status           MilestoneStatus `json:"milestone_status" db:"milestone_status"`
	DueDate          *time.Time      `json:"due_date,omitempty" db:"due_date"`
	CompletedDate    *time.Time      `json:"completed_date,omitempty" db:"completed_date"`
	Notes            string          `json:"notes,omitempty" db:"notes"`
	AutoReminderSent bool            `json:"auto_reminder_sent" db:"auto_reminder_sent"`
}

// TransactionDocument is a file attached to a transaction
type TransactionDocument struct {
	ID            int64      `json:"id" db:"id"`
	TransactionID int64      `json:"transaction_id" db:"transaction_id"`
	Name          string     `json:"document_name" db:"document_name"`
	Type          string     `json:"document_type" db:"document_type"`     // Contract, Report, Financial
	Status        string     `json:"document_status" db:"document_status"` // Pending, In Review, Complete, Signed
	FileURL       string     `json:"file_url,omitempty" db:"file_url"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	SignedDate    *time.Time `json:"signed_date,omitempty" db:"signed_date"`
	Version       int        `json:"version" db:"version"`
	UploadedByID  *int64     `json:"uploaded_by_id,omitempty" db:"uploaded_by_id"`
	UploadedAt    time.Time  `json:"uploaded_date" db:"uploaded_date"`
}
