package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/scoring"
	"realestate-crm/backend/pkg/models"
)

//go:embed fixtures.yaml
var defaultFixture []byte

// Fixture is the seed data file. People are referenced by email; dates are
// offsets in days from the seeding date.
type Fixture struct {
	Users        []UserFixture        `yaml:"users"`
	Clients      []ClientFixture      `yaml:"clients"`
	Leads        []LeadFixture        `yaml:"leads"`
	Transactions []TransactionFixture `yaml:"transactions"`
	Campaigns    []CampaignFixture    `yaml:"campaigns"`
}

type UserFixture struct {
	FirstName     string `yaml:"first_name"`
	LastName      string `yaml:"last_name"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	Role          string `yaml:"role"`
	Status        string `yaml:"status"`
	BrokerageName string `yaml:"brokerage_name"`
}

type ClientFixture struct {
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Email      string `yaml:"email"`
	Phone      string `yaml:"phone"`
	ClientType string `yaml:"client_type"`
	Agent      string `yaml:"agent"`
}

type LeadFixture struct {
	FirstName        string   `yaml:"first_name"`
	LastName         string   `yaml:"last_name"`
	Email            string   `yaml:"email"`
	Phone            string   `yaml:"phone"`
	Source           string   `yaml:"lead_source"`
	Status           string   `yaml:"lead_status"`
	Timeline         string   `yaml:"timeline"`
	PropertyInterest string   `yaml:"property_interest"`
	BudgetMin        *float64 `yaml:"budget_min"`
	BudgetMax        *float64 `yaml:"budget_max"`
	PreferredAreas   string   `yaml:"preferred_areas"`
	Agent            string   `yaml:"agent"`
	FollowUpInDays   *int     `yaml:"follow_up_in_days"`
}

type TransactionFixture struct {
	PropertyAddress string             `yaml:"property_address"`
	Type            string             `yaml:"transaction_type"`
	Status          string             `yaml:"transaction_status"`
	SalePrice       float64            `yaml:"sale_price"`
	CommissionRate  float64            `yaml:"commission_rate"`
	RiskScore       int                `yaml:"risk_score"`
	Client          string             `yaml:"client"`
	ListingAgent    string             `yaml:"listing_agent"`
	BuyerAgent      string             `yaml:"buyer_agent"`
	ContractInDays  *int               `yaml:"contract_in_days"`
	ClosingInDays   *int               `yaml:"closing_in_days"`
	Milestones      []MilestoneFixture `yaml:"milestones"`
}

type MilestoneFixture struct {
	Name      string `yaml:"name"`
	Status    string `yaml:"status"`
	DueInDays *int   `yaml:"due_in_days"`
}

type CampaignFixture struct {
	Name           string  `yaml:"campaign_name"`
	Type           string  `yaml:"campaign_type"`
	Status         string  `yaml:"campaign_status"`
	Budget         float64 `yaml:"budget"`
	LeadsGenerated int     `yaml:"leads_generated"`
	EmailsOpened   int     `yaml:"emails_opened"`
	StartInDays    *int    `yaml:"start_in_days"`
	EndInDays      *int    `yaml:"end_in_days"`
	CreatedBy      string  `yaml:"created_by"`
}

// Summary counts what a seeding pass created.
type Summary struct {
	Users        int
	Clients      int
	Leads        int
	Transactions int
	Milestones   int
	Campaigns    int
}

// LoadFixture reads a fixture file. An empty path returns the built-in data.
func LoadFixture(path string) (*Fixture, error) {
	data := defaultFixture
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		data = b
	}
	return ParseFixture(data)
}

// ParseFixture decodes fixture YAML. Unknown keys are rejected.
func ParseFixture(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

type seeder struct {
	store  repository.Store
	today  time.Time
	users  map[string]int64
	client map[string]int64
	sum    Summary
}

// Seed writes the fixture into store in one transaction. Users already present
// (by email) are reused, so seeding twice does not duplicate agents.
func Seed(ctx context.Context, store repository.Store, f *Fixture, now time.Time) (Summary, error) {
	var sum Summary
	err := store.InTx(ctx, func(ctx context.Context, tx repository.Store) error {
		s := &seeder{
			store:  tx,
			today:  models.DateOf(now),
			users:  make(map[string]int64),
			client: make(map[string]int64),
		}
		steps := []func(context.Context, *Fixture) error{
			s.seedUsers, s.seedClients, s.seedLeads, s.seedTransactions, s.seedCampaigns,
		}
		for _, step := range steps {
			if err := step(ctx, f); err != nil {
				return err
			}
		}
		sum = s.sum
		return nil
	})
	return sum, err
}

func (s *seeder) seedUsers(ctx context.Context, f *Fixture) error {
	for _, u := range f.Users {
		key := strings.ToLower(u.Email)
		existing, err := s.store.GetUserByEmail(ctx, u.Email)
		switch {
		case err == nil:
			s.users[key] = existing.ID
			continue
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("look up user %s: %w", u.Email, err)
		}

		user := &models.User{
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Email:         u.Email,
			Phone:         u.Phone,
			Role:          models.UserRole(orDefault(u.Role, string(models.UserRoleAgent))),
			Status:        models.UserStatus(orDefault(u.Status, string(models.UserStatusActive))),
			BrokerageName: u.BrokerageName,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user %s: %w", u.Email, err)
		}
		s.users[key] = user.ID
		s.sum.Users++
	}
	return nil
}

func (s *seeder) seedClients(ctx context.Context, f *Fixture) error {
	for _, c := range f.Clients {
		agent, err := s.user(c.Agent)
		if err != nil {
			return err
		}
		client := &models.Client{
			FirstName:       c.FirstName,
			LastName:        c.LastName,
			Email:           c.Email,
			Phone:           c.Phone,
			ClientType:      orDefault(c.ClientType, "Buyer"),
			Status:          models.ClientStatusActive,
			AssignedAgentID: agent,
		}
		if err := s.store.CreateClient(ctx, client); err != nil {
			return fmt.Errorf("create client %s: %w", c.Email, err)
		}
		s.client[strings.ToLower(c.Email)] = client.ID
		s.sum.Clients++
	}
	return nil
}

func (s *seeder) seedLeads(ctx context.Context, f *Fixture) error {
	for _, l := range f.Leads {
		agent, err := s.user(l.Agent)
		if err != nil {
			return err
		}
		lead := &models.Lead{
			FirstName:        l.FirstName,
			LastName:         l.LastName,
			Email:            l.Email,
			Phone:            l.Phone,
			Source:           l.Source,
			Status:           models.LeadStatus(orDefault(l.Status, string(models.LeadStatusNew))),
			Timeline:         l.Timeline,
			PropertyInterest: l.PropertyInterest,
			BudgetMin:        l.BudgetMin,
			BudgetMax:        l.BudgetMax,
			PreferredAreas:   l.PreferredAreas,
			AssignedAgentID:  agent,
			NextFollowUp:     s.date(l.FollowUpInDays),
		}
		lead.Score = scoring.Score(scoring.FromLead(lead, 0))
		if err := s.store.CreateLead(ctx, lead); err != nil {
			return fmt.Errorf("create lead %s %s: %w", l.FirstName, l.LastName, err)
		}
		s.sum.Leads++
	}
	return nil
}

func (s *seeder) seedTransactions(ctx context.Context, f *Fixture) error {
	for _, t := range f.Transactions {
		clientID, ok := s.client[strings.ToLower(t.Client)]
		if !ok {
			return fmt.Errorf("transaction %q: unknown client %q", t.PropertyAddress, t.Client)
		}
		listing, err := s.user(t.ListingAgent)
		if err != nil {
			return err
		}
		buyer, err := s.user(t.BuyerAgent)
		if err != nil {
			return err
		}
		tx := &models.Transaction{
			Type:            orDefault(t.Type, "Purchase"),
			Status:          models.TransactionStatus(orDefault(t.Status, string(models.TransactionStatusActive))),
			PropertyAddress: t.PropertyAddress,
			ContractDate:    s.date(t.ContractInDays),
			ClosingDate:     s.date(t.ClosingInDays),
			SalePrice:       t.SalePrice,
			CommissionRate:  t.CommissionRate,
			TotalCommission: t.SalePrice * t.CommissionRate / 100,
			RiskScore:       t.RiskScore,
			RiskLevel:       models.RiskLevelFor(t.RiskScore),
			ClientID:        clientID,
			ListingAgentID:  listing,
			BuyerAgentID:    buyer,
		}
		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("create transaction %q: %w", t.PropertyAddress, err)
		}
		s.sum.Transactions++

		completed := 0
		for _, m := range t.Milestones {
			milestone := &models.TransactionMilestone{
				TransactionID: tx.ID,
				Name:          m.Name,
				Status:        models.MilestoneStatus(orDefault(m.Status, string(models.MilestoneStatusPending))),
				DueDate:       s.date(m.DueInDays),
			}
			if milestone.Status == models.MilestoneStatusComplete {
				completed++
				done := s.today
				milestone.CompletedDate = &done
			}
			if err := s.store.CreateMilestone(ctx, milestone); err != nil {
				return fmt.Errorf("create milestone %q: %w", m.Name, err)
			}
			s.sum.Milestones++
		}
		if len(t.Milestones) > 0 {
			tx.ProgressPercentage = models.ProgressPercentage(completed, len(t.Milestones))
			if err := s.store.UpdateTransaction(ctx, tx); err != nil {
				return fmt.Errorf("update progress for %q: %w", t.PropertyAddress, err)
			}
		}
	}
	return nil
}

func (s *seeder) seedCampaigns(ctx context.Context, f *Fixture) error {
	for _, c := range f.Campaigns {
		creator, err := s.user(c.CreatedBy)
		if err != nil {
			return err
		}
		if creator == nil {
			return fmt.Errorf("campaign %q: created_by is required", c.Name)
		}
		campaign := &models.MarketingCampaign{
			Name:           c.Name,
			Type:           orDefault(c.Type, "Email"),
			Status:         models.CampaignStatus(orDefault(c.Status, string(models.CampaignStatusDraft))),
			Budget:         c.Budget,
			StartDate:      s.date(c.StartInDays),
			EndDate:        s.date(c.EndInDays),
			LeadsGenerated: c.LeadsGenerated,
			EmailsOpened:   c.EmailsOpened,
			CreatedByID:    *creator,
		}
		if err := s.store.CreateCampaign(ctx, campaign); err != nil {
			return fmt.Errorf("create campaign %q: %w", c.Name, err)
		}
		s.sum.Campaigns++
	}
	return nil
}

// user resolves an email reference. An empty reference is no user.
func (s *seeder) user(email string) (*int64, error) {
	if email == "" {
		return nil, nil
	}
	id, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("unknown user %q", email)
	}
	return &id, nil
}

func (s *seeder) date(offset *int) *time.Time {
	if offset == nil {
		return nil
	}
	d := s.today.AddDate(0, 0, *offset)
	return &d
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
