package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"realestate-crm/backend/pkg/models"
)

const leadColumns = `id, first_name, last_name, email, phone, lead_source, lead_status, lead_score,
	timeline, property_interest, budget_min, budget_max, preferred_areas, notes, next_follow_up,
	assigned_agent_id, converted_client_id, source_campaign_id, created_date, last_modified`

func scanLead(row pgx.Row) (*models.Lead, error) {
	var l models.Lead
	err := row.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.Source, &l.Status, &l.Score,
		&l.Timeline, &l.PropertyInterest, &l.BudgetMin, &l.BudgetMax, &l.PreferredAreas, &l.Notes, &l.NextFollowUp,
		&l.AssignedAgentID, &l.ConvertedClientID, &l.SourceCampaignID, &l.CreatedAt, &l.LastModified)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLead inserts a lead and sets its ID.
func (s *PostgresStore) CreateLead(ctx context.Context, l *models.Lead) error {
	now := s.now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.LastModified.IsZero() {
		l.LastModified = l.CreatedAt
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	return s.db.QueryRow(ctx, `INSERT INTO leads (first_name, last_name, email, phone, lead_source, lead_status, lead_score,
		timeline, property_interest, budget_min, budget_max, preferred_areas, notes, next_follow_up,
		assigned_agent_id, converted_client_id, source_campaign_id, created_date, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19) RETURNING id`,
		l.FirstName, l.LastName, l.Email, l.Phone, l.Source, string(l.Status), l.Score,
		l.Timeline, l.PropertyInterest, l.BudgetMin, l.BudgetMax, l.PreferredAreas, l.Notes, l.NextFollowUp,
		l.AssignedAgentID, l.ConvertedClientID, l.SourceCampaignID, l.CreatedAt, l.LastModified,
	).Scan(&l.ID)
}

// GetLead retrieves a lead by its ID.
func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	l, err := scanLead(s.db.QueryRow(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = $1", id))
	return l, notFound(err)
}

func leadWhere(f LeadFilter) *where {
	w := &where{}
	if len(f.IDs) > 0 {
		w.add("id = ANY(?)", f.IDs)
	}
	if len(f.Statuses) > 0 {
		w.add("lead_status = ANY(?)", strs(f.Statuses))
	}
	if f.FollowUpOnOrBefore != nil {
		w.add("next_follow_up <= ?", *f.FollowUpOnOrBefore)
	}
	if f.ModifiedBefore != nil {
		w.add("last_modified < ?", *f.ModifiedBefore)
	}
	if f.ModifiedFrom != nil {
		w.add("last_modified >= ?", *f.ModifiedFrom)
	}
	if f.ModifiedTo != nil {
		w.add("last_modified < ?", *f.ModifiedTo)
	}
	if f.CreatedFrom != nil {
		w.add("created_date >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		w.add("created_date < ?", *f.CreatedTo)
	}
	if f.MinScore != nil {
		w.add("lead_score >= ?", *f.MinScore)
	}
	if f.AssignedAgentID != nil {
		w.add("assigned_agent_id = ?", *f.AssignedAgentID)
	}
	return w
}

// ListLeads returns leads matching filter ordered by ID.
func (s *PostgresStore) ListLeads(ctx context.Context, f LeadFilter) ([]*models.Lead, error) {
	w := leadWhere(f)
	q := "SELECT " + leadColumns + " FROM leads" + w.String() + " ORDER BY id"
	q += w.limit(f.Limit)
	rows, err := s.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// CountLeads counts leads matching filter.
func (s *PostgresStore) CountLeads(ctx context.Context, f LeadFilter) (int, error) {
	return s.count(ctx, "leads", leadWhere(f))
}

// UpdateLead writes every mutable lead field and bumps last_modified.
func (s *PostgresStore) UpdateLead(ctx context.Context, l *models.Lead) error {
	l.LastModified = s.now().UTC()
	return requireRow(s.db.Exec(ctx, `UPDATE leads SET first_name = $1, last_name = $2, email = $3, phone = $4,
		lead_source = $5, lead_status = $6, lead_score = $7, timeline = $8, property_interest = $9,
		budget_min = $10, budget_max = $11, preferred_areas = $12, notes = $13, next_follow_up = $14,
		assigned_agent_id = $15, converted_client_id = $16, source_campaign_id = $17, last_modified = $18
		WHERE id = $19`,
		l.FirstName, l.LastName, l.Email, l.Phone, l.Source, string(l.Status), l.Score, l.Timeline, l.PropertyInterest,
		l.BudgetMin, l.BudgetMax, l.PreferredAreas, l.Notes, l.NextFollowUp,
		l.AssignedAgentID, l.ConvertedClientID, l.SourceCampaignID, l.LastModified, l.ID))
}

// UpdateLeadScore applies newScore only when the stored score equals oldScore.
func (s *PostgresStore) UpdateLeadScore(ctx context.Context, id int64, oldScore, newScore int) (bool, error) {
	tag, err := s.db.Exec(ctx, "UPDATE leads SET lead_score = $1 WHERE id = $2 AND lead_score = $3", newScore, id, oldScore)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := s.GetLead(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetLeadStatus bulk-updates the status of matching leads.
func (s *PostgresStore) SetLeadStatus(ctx context.Context, f LeadFilter, status models.LeadStatus) (int, error) {
	w := leadWhere(f)
	w.args = append(w.args, string(status), s.now().UTC())
	n := len(w.args)
	q := "UPDATE leads SET lead_status = $" + strconv.Itoa(n-1) + ", last_modified = $" + strconv.Itoa(n) + w.String()
	tag, err := s.db.Exec(ctx, q, w.args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ---- clients ----

// CreateClient inserts a client and sets its ID.
func (s *PostgresStore) CreateClient(ctx context.Context, c *models.Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.Status == "" {
		c.Status = models.ClientStatusActive
	}
	return s.db.QueryRow(ctx, `INSERT INTO clients (first_name, last_name, email, phone, client_type, client_status,
		assigned_agent_id, created_date) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.ClientType, string(c.Status), c.AssignedAgentID, c.CreatedAt,
	).Scan(&c.ID)
}

// GetClient retrieves a client by its ID.
func (s *PostgresStore) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var c models.Client
	err := s.db.QueryRow(ctx, `SELECT id, first_name, last_name, email, phone, client_type, client_status,
		assigned_agent_id, created_date FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.ClientType, &c.Status, &c.AssignedAgentID, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
