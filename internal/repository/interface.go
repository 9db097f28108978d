package repository

import (
	"context"
	"errors"
	"time"

	"realestate-crm/backend/pkg/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// LeadFilter selects leads. Zero-valued fields do not constrain the query.
// Time ranges are half-open: From is inclusive, To is exclusive.
type LeadFilter struct {
	IDs                []int64
	Statuses           []models.LeadStatus
	FollowUpOnOrBefore *time.Time
	ModifiedBefore     *time.Time
	ModifiedFrom       *time.Time
	ModifiedTo         *time.Time
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	MinScore           *int
	AssignedAgentID    *int64
	Limit              int
}

// MilestoneFilter selects transaction milestones.
type MilestoneFilter struct {
	TransactionID *int64
	Statuses      []models.MilestoneStatus
	DueOnOrBefore *time.Time
	DueBefore     *time.Time
	Limit         int
}

// TransactionFilter selects transactions. Closing dates are inclusive.
type TransactionFilter struct {
	Statuses        []models.TransactionStatus
	ExcludeStatuses []models.TransactionStatus
	ClosingFrom     *time.Time
	ClosingTo       *time.Time
	Limit           int
}

// CampaignFilter selects marketing campaigns.
type CampaignFilter struct {
	Statuses      []models.CampaignStatus
	EndOnOrBefore *time.Time
	Limit         int
}

// UserFilter selects CRM users.
type UserFilter struct {
	Roles    []models.UserRole
	Statuses []models.UserStatus
	Limit    int
}

// CommunicationFilter selects communications. Sent range is half-open.
type CommunicationFilter struct {
	LeadID    *int64
	Type      models.CommunicationType
	Automated *bool
	Opened    *bool
	SentFrom  *time.Time
	SentTo    *time.Time
}

// LeadStore persists leads.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *models.Lead) error
	GetLead(ctx context.Context, id int64) (*models.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]*models.Lead, error)
	CountLeads(ctx context.Context, filter LeadFilter) (int, error)
	UpdateLead(ctx context.Context, lead *models.Lead) error
	// UpdateLeadScore stores newScore only if the stored score still equals
	// oldScore. It reports whether the write was applied.
	UpdateLeadScore(ctx context.Context, id int64, oldScore, newScore int) (bool, error)
	// SetLeadStatus moves every lead matching filter to status and returns
	// the number of leads changed.
	SetLeadStatus(ctx context.Context, filter LeadFilter, status models.LeadStatus) (int, error)
}

// ClientStore persists clients.
type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, id int64) (*models.Client, error)
}

// TransactionStore persists transactions with their milestones and documents.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)
	CountTransactions(ctx context.Context, filter TransactionFilter) (int, error)
	// SumTransactions returns the summed sale price and total commission.
	SumTransactions(ctx context.Context, filter TransactionFilter) (salePrice, commission float64, err error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error

	CreateMilestone(ctx context.Context, milestone *models.TransactionMilestone) error
	GetMilestone(ctx context.Context, id int64) (*models.TransactionMilestone, error)
	ListMilestones(ctx context.Context, filter MilestoneFilter) ([]*models.TransactionMilestone, error)
	CountMilestones(ctx context.Context, filter MilestoneFilter) (int, error)
	UpdateMilestone(ctx context.Context, milestone *models.TransactionMilestone) error

	CreateDocument(ctx context.Context, doc *models.TransactionDocument) error
	ListDocuments(ctx context.Context, transactionID int64) ([]*models.TransactionDocument, error)
}

// CampaignStore persists marketing campaigns.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *models.MarketingCampaign) error
	GetCampaign(ctx context.Context, id int64) (*models.MarketingCampaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]*models.MarketingCampaign, error)
	CountCampaigns(ctx context.Context, filter CampaignFilter) (int, error)
	UpdateCampaign(ctx context.Context, campaign *models.MarketingCampaign) error
}

// UserStore persists agents and staff.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error)
}

// CommunicationStore persists the communication history.
type CommunicationStore interface {
	CreateCommunication(ctx context.Context, comm *models.Communication) error
	CountCommunications(ctx context.Context, filter CommunicationFilter) (int, error)
}

// Store is the entity store the automation engine reads and mutates.
type Store interface {
	LeadStore
	ClientStore
	TransactionStore
	CampaignStore
	UserStore
	CommunicationStore

	// InTx runs fn against a store whose writes commit together. If fn
	// returns an error nothing is committed.
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	Ping(ctx context.Context) error
}
