package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"realestate-crm/backend/pkg/models"
)

const campaignColumns = `id, campaign_name, campaign_type, campaign_status, budget, start_date, end_date,
	leads_generated, emails_opened, cost_per_lead, roi, created_by_id, created_date`

func scanCampaign(row pgx.Row) (*models.MarketingCampaign, error) {
	var c models.MarketingCampaign
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.Budget, &c.StartDate, &c.EndDate,
		&c.LeadsGenerated, &c.EmailsOpened, &c.CostPerLead, &c.ROI, &c.CreatedByID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCampaign inserts a campaign and sets its ID.
func (s *PostgresStore) CreateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	return s.db.QueryRow(ctx, `INSERT INTO marketing_campaigns (campaign_name, campaign_type, campaign_status, budget,
		start_date, end_date, leads_generated, emails_opened, cost_per_lead, roi, created_by_id, created_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		c.Name, c.Type, string(c.Status), c.Budget, c.StartDate, c.EndDate, c.LeadsGenerated, c.EmailsOpened,
		c.CostPerLead, c.ROI, c.CreatedByID, c.CreatedAt,
	).Scan(&c.ID)
}

// GetCampaign retrieves a campaign by its ID.
func (s *PostgresStore) GetCampaign(ctx context.Context, id int64) (*models.MarketingCampaign, error) {
	c, err := scanCampaign(s.db.QueryRow(ctx, "SELECT "+campaignColumns+" FROM marketing_campaigns WHERE id = $1", id))
	return c, notFound(err)
}

func campaignWhere(f CampaignFilter) *where {
	w := &where{}
	if len(f.Statuses) > 0 {
		w.add("campaign_status = ANY(?)", strs(f.Statuses))
	}
	if f.EndOnOrBefore != nil {
		w.add("end_date <= ?", *f.EndOnOrBefore)
	}
	return w
}

// ListCampaigns returns campaigns matching filter ordered by ID.
func (s *PostgresStore) ListCampaigns(ctx context.Context, f CampaignFilter) ([]*models.MarketingCampaign, error) {
	w := campaignWhere(f)
	q := "SELECT " + campaignColumns + " FROM marketing_campaigns" + w.String() + " ORDER BY id"
	q += w.limit(f.Limit)
	rows, err := s.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.MarketingCampaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCampaigns counts campaigns matching filter.
func (s *PostgresStore) CountCampaigns(ctx context.Context, f CampaignFilter) (int, error) {
	return s.count(ctx, "marketing_campaigns", campaignWhere(f))
}

// UpdateCampaign writes every mutable campaign field.
func (s *PostgresStore) UpdateCampaign(ctx context.Context, c *models.MarketingCampaign) error {
	return requireRow(s.db.Exec(ctx, `UPDATE marketing_campaigns SET campaign_name = $1, campaign_type = $2,
		campaign_status = $3, budget = $4, start_date = $5, end_date = $6, leads_generated = $7,
		emails_opened = $8, cost_per_lead = $9, roi = $10 WHERE id = $11`,
		c.Name, c.Type, string(c.Status), c.Budget, c.StartDate, c.EndDate, c.LeadsGenerated, c.EmailsOpened,
		c.CostPerLead, c.ROI, c.ID))
}

// ---- users ----

const userColumns = `id, first_name, last_name, email, phone, role, status, brokerage_name, created_date`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Role, &u.Status, &u.BrokerageName, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and sets its ID.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if u.Role == "" {
		u.Role = models.UserRoleAgent
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	return s.db.QueryRow(ctx, `INSERT INTO users (first_name, last_name, email, phone, role, status, brokerage_name,
		created_date) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		u.FirstName, u.LastName, u.Email, u.Phone, string(u.Role), string(u.Status), u.BrokerageName, u.CreatedAt,
	).Scan(&u.ID)
}

// GetUser retrieves a user by its ID.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	return u, notFound(err)
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = $1 ORDER BY id LIMIT 1",
		strings.ToLower(strings.TrimSpace(email))))
	return u, notFound(err)
}

// ListUsers returns users matching filter ordered by ID.
func (s *PostgresStore) ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	w := &where{}
	if len(f.Roles) > 0 {
		w.add("role = ANY(?)", strs(f.Roles))
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY(?)", strs(f.Statuses))
	}
	q := "SELECT " + userColumns + " FROM users" + w.String() + " ORDER BY id"
	q += w.limit(f.Limit)
	rows, err := s.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ---- communications ----

// CreateCommunication inserts a communication record and sets its ID.
func (s *PostgresStore) CreateCommunication(ctx context.Context, c *models.Communication) error {
	if c.SentAt.IsZero() {
		c.SentAt = s.now().UTC()
	}
	return s.db.QueryRow(ctx, `INSERT INTO communications (communication_type, direction, subject, content, status,
		sent_date, is_automated, automation_trigger, opened, external_id, user_id, lead_id, client_id,
		transaction_id, campaign_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		string(c.Type), c.Direction, c.Subject, c.Content, c.Status, c.SentAt, c.IsAutomated, c.AutomationTrigger,
		c.Opened, c.ExternalID, c.UserID, c.LeadID, c.ClientID, c.TransactionID, c.CampaignID,
	).Scan(&c.ID)
}

// CountCommunications counts communications matching filter.
func (s *PostgresStore) CountCommunications(ctx context.Context, f CommunicationFilter) (int, error) {
	w := &where{}
	if f.LeadID != nil {
		w.add("lead_id = ?", *f.LeadID)
	}
	if f.Type != "" {
		w.add("communication_type = ?", string(f.Type))
	}
	if f.Automated != nil {
		w.add("is_automated = ?", *f.Automated)
	}
	if f.Opened != nil {
		w.add("opened = ?", *f.Opened)
	}
	if f.SentFrom != nil {
		w.add("sent_date >= ?", *f.SentFrom)
	}
	if f.SentTo != nil {
		w.add("sent_date < ?", *f.SentTo)
	}
	return s.count(ctx, "communications", w)
}
