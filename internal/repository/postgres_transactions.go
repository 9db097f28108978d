package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"realestate-crm/backend/pkg/models"
)

const transactionColumns = `id, transaction_type, transaction_status, property_address, contract_date, closing_date,
	sale_price, commission_rate, total_commission, progress_percentage, current_milestone,
	risk_score, risk_level, notes, client_id, listing_agent_id, buyer_agent_id, created_date, last_modified`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Type, &t.Status, &t.PropertyAddress, &t.ContractDate, &t.ClosingDate,
		&t.SalePrice, &t.CommissionRate, &t.TotalCommission, &t.ProgressPercentage, &t.CurrentMilestone,
		&t.RiskScore, &t.RiskLevel, &t.Notes, &t.ClientID, &t.ListingAgentID, &t.BuyerAgentID, &t.CreatedAt, &t.LastModified)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransaction inserts a transaction and sets its ID.
func (s *PostgresStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	now := s.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.LastModified = now
	if t.Status == "" {
		t.Status = models.TransactionStatusActive
	}
	t.NormalizeRisk()
	return s.db.QueryRow(ctx, `INSERT INTO transactions (transaction_type, transaction_status, property_address,
		contract_date, closing_date, sale_price, commission_rate, total_commission, progress_percentage,
		current_milestone, risk_score, risk_level, notes, client_id, listing_agent_id, buyer_agent_id,
		created_date, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18) RETURNING id`,
		t.Type, string(t.Status), t.PropertyAddress, t.ContractDate, t.ClosingDate, t.SalePrice, t.CommissionRate,
		t.TotalCommission, t.ProgressPercentage, t.CurrentMilestone, t.RiskScore, string(t.RiskLevel), t.Notes,
		t.ClientID, t.ListingAgentID, t.BuyerAgentID, t.CreatedAt, t.LastModified,
	).Scan(&t.ID)
}

// GetTransaction retrieves a transaction by its ID.
func (s *PostgresStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id))
	return t, notFound(err)
}

func transactionWhere(f TransactionFilter) *where {
	w := &where{}
	if len(f.Statuses) > 0 {
		w.add("transaction_status = ANY(?)", strs(f.Statuses))
	}
	if len(f.ExcludeStatuses) > 0 {
		w.add("NOT (transaction_status = ANY(?))", strs(f.ExcludeStatuses))
	}
	if f.ClosingFrom != nil {
		w.add("closing_date >= ?", *f.ClosingFrom)
	}
	if f.ClosingTo != nil {
		w.add("closing_date <= ?", *f.ClosingTo)
	}
	return w
}

// ListTransactions returns transactions matching filter ordered by ID.
func (s *PostgresStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]*models.Transaction, error) {
	w := transactionWhere(f)
	q := "SELECT " + transactionColumns + " FROM transactions" + w.String() + " ORDER BY id"
	q += w.limit(f.Limit)
	rows, err := s.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTransactions counts transactions matching filter.
func (s *PostgresStore) CountTransactions(ctx context.Context, f TransactionFilter) (int, error) {
	return s.count(ctx, "transactions", transactionWhere(f))
}

// SumTransactions sums sale price and commission of matching transactions.
func (s *PostgresStore) SumTransactions(ctx context.Context, f TransactionFilter) (float64, float64, error) {
	w := transactionWhere(f)
	var price, commission float64
	err := s.db.QueryRow(ctx, "SELECT COALESCE(SUM(sale_price), 0), COALESCE(SUM(total_commission), 0) FROM transactions"+w.String(), w.args...).
		Scan(&price, &commission)
	return price, commission, err
}

// UpdateTransaction writes every mutable transaction field.
func (s *PostgresStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	t.LastModified = s.now().UTC()
	t.NormalizeRisk()
	return requireRow(s.db.Exec(ctx, `UPDATE transactions SET transaction_type = $1, transaction_status = $2,
		property_address = $3, contract_date = $4, closing_date = $5, sale_price = $6, commission_rate = $7,
		total_commission = $8, progress_percentage = $9, current_milestone = $10, risk_score = $11,
		risk_level = $12, notes = $13, client_id = $14, listing_agent_id = $15, buyer_agent_id = $16,
		last_modified = $17 WHERE id = $18`,
		t.Type, string(t.Status), t.PropertyAddress, t.ContractDate, t.ClosingDate, t.SalePrice, t.CommissionRate,
		t.TotalCommission, t.ProgressPercentage, t.CurrentMilestone, t.RiskScore, string(t.RiskLevel), t.Notes,
		t.ClientID, t.ListingAgentID, t.BuyerAgentID, t.LastModified, t.ID))
}

// ---- milestones ----

const milestoneColumns = `id, transaction_id, milestone_name, milestone_status, due_date, completed_date, notes, auto_reminder_sent`

func scanMilestone(row pgx.Row) (*models.TransactionMilestone, error) {
	var m models.TransactionMilestone
	err := row.Scan(&m.ID, &m.TransactionID, &m.Name, &m.Status, &m.DueDate, &m.CompletedDate, &m.Notes, &m.AutoReminderSent)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMilestone inserts a milestone and sets its ID.
func (s *PostgresStore) CreateMilestone(ctx context.Context, m *models.TransactionMilestone) error {
	if m.Status == "" {
		m.Status = models.MilestoneStatusPending
	}
	return s.db.QueryRow(ctx, `INSERT INTO transaction_milestones (transaction_id, milestone_name, milestone_status,
		due_date, completed_date, notes, auto_reminder_sent) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		m.TransactionID, m.Name, string(m.Status), m.DueDate, m.CompletedDate, m.Notes, m.AutoReminderSent,
	).Scan(&m.ID)
}

// GetMilestone retrieves a milestone by its ID.
func (s *PostgresStore) GetMilestone(ctx context.Context, id int64) (*models.TransactionMilestone, error) {
	m, err := scanMilestone(s.db.QueryRow(ctx, "SELECT "+milestoneColumns+" FROM transaction_milestones WHERE id = $1", id))
	return m, notFound(err)
}

func milestoneWhere(f MilestoneFilter) *where {
	w := &where{}
	if f.TransactionID != nil {
		w.add("transaction_id = ?", *f.TransactionID)
	}
	if len(f.Statuses) > 0 {
		w.add("milestone_status = ANY(?)", strs(f.Statuses))
	}
	if f.DueOnOrBefore != nil {
		w.add("due_date <= ?", *f.DueOnOrBefore)
	}
	if f.DueBefore != nil {
		w.add("due_date < ?", *f.DueBefore)
	}
	return w
}

// ListMilestones returns milestones matching filter ordered by ID.
func (s *PostgresStore) ListMilestones(ctx context.Context, f MilestoneFilter) ([]*models.TransactionMilestone, error) {
	w := milestoneWhere(f)
	q := "SELECT " + milestoneColumns + " FROM transaction_milestones" + w.String() + " ORDER BY id"
	q += w.limit(f.Limit)
	rows, err := s.db.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TransactionMilestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMilestones counts milestones matching filter.
func (s *PostgresStore) CountMilestones(ctx context.Context, f MilestoneFilter) (int, error) {
	return s.count(ctx, "transaction_milestones", milestoneWhere(f))
}

// UpdateMilestone writes every mutable milestone field.
func (s *PostgresStore) UpdateMilestone(ctx context.Context, m *models.TransactionMilestone) error {
	return requireRow(s.db.Exec(ctx, `UPDATE transaction_milestones SET milestone_name = $1, milestone_status = $2,
		due_date = $3, completed_date = $4, notes = $5, auto_reminder_sent = $6 WHERE id = $7`,
		m.Name, string(m.Status), m.DueDate, m.CompletedDate, m.Notes, m.AutoReminderSent, m.ID))
}

// ---- documents ----

// CreateDocument inserts a transaction document and sets its ID.
func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.TransactionDocument) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = s.now().UTC()
	}
	if d.Version == 0 {
		d.Version = 1
	}
	if d.Status == "" {
		d.Status = "Pending"
	}
	return s.db.QueryRow(ctx, `INSERT INTO transaction_documents (transaction_id, document_name, document_type,
		document_status, file_url, due_date, signed_date, version, uploaded_by_id, uploaded_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		d.TransactionID, d.Name, d.Type, d.Status, d.FileURL, d.DueDate, d.SignedDate, d.Version, d.UploadedByID, d.UploadedAt,
	).Scan(&d.ID)
}

// ListDocuments returns the documents of a transaction ordered by ID.
func (s *PostgresStore) ListDocuments(ctx context.Context, transactionID int64) ([]*models.TransactionDocument, error) {
	rows, err := s.db.Query(ctx, `SELECT id, transaction_id, document_name, document_type, document_status, file_url,
		due_date, signed_date, version, uploaded_by_id, uploaded_date
		FROM transaction_documents WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TransactionDocument
	for rows.Next() {
		var d models.TransactionDocument
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.Name, &d.Type, &d.Status, &d.FileURL,
			&d.DueDate, &d.SignedDate, &d.Version, &d.UploadedByID, &d.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
