package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"realestate-crm/backend/pkg/models"
)

// MemoryStore is an in-process Store. Reads return copies, so callers must
// write changes back through the Update methods. InTx offers no isolation.
type MemoryStore struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64

	leads        map[int64]models.Lead
	clients      map[int64]models.Client
	transactions map[int64]models.Transaction
	milestones   map[int64]models.TransactionMilestone
	documents    map[int64]models.TransactionDocument
	campaigns    map[int64]models.MarketingCampaign
	users        map[int64]models.User
	comms        map[int64]models.Communication
}

// NewMemoryStore creates an empty MemoryStore. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		now:          clock,
		leads:        map[int64]models.Lead{},
		clients:      map[int64]models.Client{},
		transactions: map[int64]models.Transaction{},
		milestones:   map[int64]models.TransactionMilestone{},
		documents:    map[int64]models.TransactionDocument{},
		campaigns:    map[int64]models.MarketingCampaign{},
		users:        map[int64]models.User{},
		comms:        map[int64]models.Communication{},
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// InTx runs fn directly against the store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return fn(ctx, s)
}

// ---- leads ----

// CreateLead stores a new lead and assigns its ID.
func (s *MemoryStore) CreateLead(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead.ID = s.id()
	now := s.now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.LastModified.IsZero() {
		lead.LastModified = lead.CreatedAt
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	s.leads[lead.ID] = *lead
	return nil
}

// GetLead retrieves a lead by its ID.
func (s *MemoryStore) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// ListLeads returns leads matching filter ordered by ID.
func (s *MemoryStore) ListLeads(ctx context.Context, filter LeadFilter) ([]*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Lead
	for _, id := range slices.Sorted(maps.Keys(s.leads)) {
		l := s.leads[id]
		if !matchLead(&l, filter) {
			continue
		}
		out = append(out, &l)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// CountLeads counts leads matching filter.
func (s *MemoryStore) CountLeads(ctx context.Context, filter LeadFilter) (int, error) {
	filter.Limit = 0
	leads, err := s.ListLeads(ctx, filter)
	return len(leads), err
}

// UpdateLead replaces a stored lead.
func (s *MemoryStore) UpdateLead(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[lead.ID]; !ok {
		return ErrNotFound
	}
	lead.LastModified = s.now().UTC()
	s.leads[lead.ID] = *lead
	return nil
}

// UpdateLeadScore applies newScore only when the stored score equals oldScore.
func (s *MemoryStore) UpdateLeadScore(ctx context.Context, id int64, oldScore, newScore int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return false, ErrNotFound
	}
	if l.Score != oldScore {
		return false, nil
	}
	l.Score = newScore
	s.leads[id] = l
	return true, nil
}

// SetLeadStatus bulk-updates the status of matching leads.
func (s *MemoryStore) SetLeadStatus(ctx context.Context, filter LeadFilter, status models.LeadStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	n := 0
	for id, l := range s.leads {
		if !matchLead(&l, filter) {
			continue
		}
		l.Status = status
		l.LastModified = now
		s.leads[id] = l
		n++
	}
	return n, nil
}

func matchLead(l *models.Lead, f LeadFilter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, l.ID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, l.Status) {
		return false
	}
	if f.FollowUpOnOrBefore != nil && (l.NextFollowUp == nil || l.NextFollowUp.After(*f.FollowUpOnOrBefore)) {
		return false
	}
	if f.ModifiedBefore != nil && !l.LastModified.Before(*f.ModifiedBefore) {
		return false
	}
	if !inRange(l.LastModified, f.ModifiedFrom, f.ModifiedTo) || !inRange(l.CreatedAt, f.CreatedFrom, f.CreatedTo) {
		return false
	}
	if f.MinScore != nil && l.Score < *f.MinScore {
		return false
	}
	if f.AssignedAgentID != nil && (l.AssignedAgentID == nil || *l.AssignedAgentID != *f.AssignedAgentID) {
		return false
	}
	return true
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

// ---- clients ----

// CreateClient stores a new client.
func (s *MemoryStore) CreateClient(ctx context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client.ID = s.id()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = s.now().UTC()
	}
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}
	s.clients[client.ID] = *client
	return nil
}

// GetClient retrieves a client by its ID.
func (s *MemoryStore) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ---- transactions ----

// CreateTransaction stores a new transaction.
func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.id()
	now := s.now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.LastModified = now
	if tx.Status == "" {
		tx.Status = models.TransactionStatusActive
	}
	tx.NormalizeRisk()
	s.transactions[tx.ID] = *tx
	return nil
}

// GetTransaction retrieves a transaction by its ID.
func (s *MemoryStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// ListTransactions returns transactions matching filter ordered by ID.
func (s *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, id := range slices.Sorted(maps.Keys(s.transactions)) {
		t := s.transactions[id]
		if !matchTransaction(&t, filter) {
			continue
		}
		out = append(out, &t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// CountTransactions counts transactions matching filter.
func (s *MemoryStore) CountTransactions(ctx context.Context, filter TransactionFilter) (int, error) {
	filter.Limit = 0
	txs, err := s.ListTransactions(ctx, filter)
	return len(txs), err
}

// SumTransactions sums sale price and commission of matching transactions.
func (s *MemoryStore) SumTransactions(ctx context.Context, filter TransactionFilter) (float64, float64, error) {
	filter.Limit = 0
	txs, err := s.ListTransactions(ctx, filter)
	if err != nil {
		return 0, 0, err
	}
	var price, commission float64
	for _, t := range txs {
		price += t.SalePrice
		commission += t.TotalCommission
	}
	return price, commission, nil
}

// UpdateTransaction replaces a stored transaction.
func (s *MemoryStore) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return ErrNotFound
	}
	tx.LastModified = s.now().UTC()
	tx.NormalizeRisk()
	s.transactions[tx.ID] = *tx
	return nil
}

func matchTransaction(t *models.Transaction, f TransactionFilter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.ExcludeStatuses) > 0 && slices.Contains(f.ExcludeStatuses, t.Status) {
		return false
	}
	if f.ClosingFrom != nil || f.ClosingTo != nil {
		if t.ClosingDate == nil {
			return false
		}
		if f.ClosingFrom != nil && t.ClosingDate.Before(*f.ClosingFrom) {
			return false
		}
		if f.ClosingTo != nil && t.ClosingDate.After(*f.ClosingTo) {
			return false
		}
	}
	return true
}

// CreateMilestone stores a new milestone.
func (s *MemoryStore) CreateMilestone(ctx context.Context, m *models.TransactionMilestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[m.TransactionID]; !ok {
		return ErrNotFound
	}
	m.ID = s.id()
	if m.Status == "" {
		m.Status = models.MilestoneStatusPending
	}
	s.milestones[m.ID] = *m
	return nil
}

// GetMilestone retrieves a milestone by its ID.
func (s *MemoryStore) GetMilestone(ctx context.Context, id int64) (*models.TransactionMilestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.milestones[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// ListMilestones returns milestones matching filter ordered by ID.
func (s *MemoryStore) ListMilestones(ctx context.Context, filter MilestoneFilter) ([]*models.TransactionMilestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TransactionMilestone
	for _, id := range slices.Sorted(maps.Keys(s.milestones)) {
		m := s.milestones[id]
		if !matchMilestone(&m, filter) {
			continue
		}
		out = append(out, &m)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// CountMilestones counts milestones matching filter.
func (s *MemoryStore) CountMilestones(ctx context.Context, filter MilestoneFilter) (int, error) {
	filter.Limit = 0
	ms, err := s.ListMilestones(ctx, filter)
	return len(ms), err
}

// UpdateMilestone replaces a stored milestone.
func (s *MemoryStore) UpdateMilestone(ctx context.Context, m *models.TransactionMilestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.milestones[m.ID]; !ok {
		return ErrNotFound
	}
	s.milestones[m.ID] = *m
	return nil
}

func matchMilestone(m *models.TransactionMilestone, f MilestoneFilter) bool {
	if f.TransactionID != nil && m.TransactionID != *f.TransactionID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, m.Status) {
		return false
	}
	if f.DueOnOrBefore != nil && (m.DueDate == nil || m.DueDate.After(*f.DueOnOrBefore)) {
		return false
	}
	if f.DueBefore != nil && (m.DueDate == nil || !m.DueDate.Before(*f.DueBefore)) {
		return false
	}
	return true
}

// CreateDocument stores a new transaction document.
func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.TransactionDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[doc.TransactionID]; !ok {
		return ErrNotFound
	}
	doc.ID = s.id()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = s.now().UTC()
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	s.documents[doc.ID] = *doc
	return nil
}

// ListDocuments returns the documents of a transaction ordered by ID.
func (s *MemoryStore) ListDocuments(ctx context.Context, transactionID int64) ([]*models.TransactionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TransactionDocument
	for _, id := range slices.Sorted(maps.Keys(s.documents)) {
		d := s.documents[id]
		if d.TransactionID == transactionID {
			out = append(out, &d)
		}
	}
	return out, nil
}

// ---- campaigns ----

// CreateCampaign stores a new campaign.
func (s *MemoryStore) CreateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	s.campaigns[c.ID] = *c
	return nil
}

// GetCampaign retrieves a campaign by its ID.
func (s *MemoryStore) GetCampaign(ctx context.Context, id int64) (*models.MarketingCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListCampaigns returns campaigns matching filter ordered by ID.
func (s *MemoryStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]*models.MarketingCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MarketingCampaign
	for _, id := range slices.Sorted(maps.Keys(s.campaigns)) {
		c := s.campaigns[id]
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, c.Status) {
			continue
		}
		if filter.EndOnOrBefore != nil && (c.EndDate == nil || c.EndDate.After(*filter.EndOnOrBefore)) {
			continue
		}
		out = append(out, &c)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// CountCampaigns counts campaigns matching filter.
func (s *MemoryStore) CountCampaigns(ctx context.Context, filter CampaignFilter) (int, error) {
	filter.Limit = 0
	cs, err := s.ListCampaigns(ctx, filter)
	return len(cs), err
}

// UpdateCampaign replaces a stored campaign.
func (s *MemoryStore) UpdateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; !ok {
		return ErrNotFound
	}
	s.campaigns[c.ID] = *c
	return nil
}

// ---- users ----

// CreateUser stores a new user.
func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if u.Role == "" {
		u.Role = models.UserRoleAgent
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	s.users[u.ID] = *u
	return nil
}

// GetUser retrieves a user by its ID.
func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range slices.Sorted(maps.Keys(s.users)) {
		u := s.users[id]
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns users matching filter ordered by ID.
func (s *MemoryStore) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, id := range slices.Sorted(maps.Keys(s.users)) {
		u := s.users[id]
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, u.Role) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, u.Status) {
			continue
		}
		out = append(out, &u)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ---- communications ----

// CreateCommunication stores a communication record.
func (s *MemoryStore) CreateCommunication(ctx context.Context, c *models.Communication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.SentAt.IsZero() {
		c.SentAt = s.now().UTC()
	}
	s.comms[c.ID] = *c
	return nil
}

// CountCommunications counts communications matching filter.
func (s *MemoryStore) CountCommunications(ctx context.Context, f CommunicationFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.comms {
		if f.LeadID != nil && (c.LeadID == nil || *c.LeadID != *f.LeadID) {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.Automated != nil && c.IsAutomated != *f.Automated {
			continue
		}
		if f.Opened != nil && c.Opened != *f.Opened {
			continue
		}
		if !inRange(c.SentAt, f.SentFrom, f.SentTo) {
			continue
		}
		n++
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
