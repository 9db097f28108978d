package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-crm/backend/pkg/models"
)

var suiteNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// runStoreSuite exercises the Store contract against any implementation.
// The store must be empty and use suiteNow as its clock.
func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	agent := &models.User{FirstName: "Ada", LastName: "Agent", Email: "ada@example.com"}
	require.NoError(t, store.CreateUser(ctx, agent))
	broker := &models.User{FirstName: "Bo", LastName: "Broker", Email: "bo@example.com", Role: models.UserRoleBroker}
	require.NoError(t, store.CreateUser(ctx, broker))

	t.Run("users", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "  ADA@example.com ")
		require.NoError(t, err)
		assert.Equal(t, agent.ID, got.ID)
		assert.Equal(t, models.UserStatusActive, got.Status)

		agents, err := store.ListUsers(ctx, UserFilter{Roles: []models.UserRole{models.UserRoleAgent}, Statuses: []models.UserStatus{models.UserStatusActive}})
		require.NoError(t, err)
		require.Len(t, agents, 1)
		assert.Equal(t, "Ada Agent", agents[0].FullName())

		_, err = store.GetUser(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("leads", func(t *testing.T) {
		old := suiteNow.AddDate(0, 0, -40)
		stale := &models.Lead{FirstName: "Stan", LastName: "Stale", Email: "stan@example.com", Status: models.LeadStatusContacted,
			CreatedAt: old, LastModified: old}
		due := &models.Lead{FirstName: "Dee", LastName: "Due", Source: "Referral", Score: 40, NextFollowUp: date(2024, 3, 14),
			AssignedAgentID: &agent.ID}
		later := &models.Lead{FirstName: "Lee", LastName: "Later", NextFollowUp: date(2024, 3, 20)}
		for _, l := range []*models.Lead{stale, due, later} {
			require.NoError(t, store.CreateLead(ctx, l))
		}
		assert.NotZero(t, due.ID)
		assert.Equal(t, models.LeadStatusNew, due.Status)

		got, err := store.GetLead(ctx, due.ID)
		require.NoError(t, err)
		assert.Equal(t, "Referral", got.Source)
		require.NotNil(t, got.NextFollowUp)
		assert.True(t, got.NextFollowUp.Equal(*date(2024, 3, 14)))

		today := models.DateOf(suiteNow)
		dueLeads, err := store.ListLeads(ctx, LeadFilter{Statuses: models.ActiveLeadStatuses, FollowUpOnOrBefore: &today})
		require.NoError(t, err)
		require.Len(t, dueLeads, 1)
		assert.Equal(t, due.ID, dueLeads[0].ID)

		n, err := store.CountLeads(ctx, LeadFilter{AssignedAgentID: &agent.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		applied, err := store.UpdateLeadScore(ctx, due.ID, 40, 85)
		require.NoError(t, err)
		assert.True(t, applied)
		applied, err = store.UpdateLeadScore(ctx, due.ID, 40, 90)
		require.NoError(t, err)
		assert.False(t, applied, "stale compare value must not apply")
		got, err = store.GetLead(ctx, due.ID)
		require.NoError(t, err)
		assert.Equal(t, 85, got.Score)

		_, err = store.UpdateLeadScore(ctx, 9999, 0, 1)
		assert.ErrorIs(t, err, ErrNotFound)

		cutoff := suiteNow.AddDate(0, 0, -30)
		changed, err := store.SetLeadStatus(ctx, LeadFilter{Statuses: models.StaleLeadStatuses, ModifiedBefore: &cutoff}, models.LeadStatusUnresponsive)
		require.NoError(t, err)
		assert.Equal(t, 1, changed)
		got, err = store.GetLead(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusUnresponsive, got.Status)
		assert.True(t, got.LastModified.Equal(suiteNow))

		got.Notes = "called twice"
		require.NoError(t, store.UpdateLead(ctx, got))
		assert.ErrorIs(t, store.UpdateLead(ctx, &models.Lead{ID: 9999}), ErrNotFound)
	})

	t.Run("transactions and milestones", func(t *testing.T) {
		client := &models.Client{FirstName: "Cy", LastName: "Client"}
		require.NoError(t, store.CreateClient(ctx, client))

		closing := date(2024, 3, 15)
		tx := &models.Transaction{Type: "Purchase", ClientID: client.ID, SalePrice: 400000, TotalCommission: 12000,
			ClosingDate: closing, RiskScore: 45, ListingAgentID: &agent.ID}
		require.NoError(t, store.CreateTransaction(ctx, tx))
		assert.Equal(t, models.RiskLevelMedium, tx.RiskLevel)
		other := &models.Transaction{Type: "Sale", Status: models.TransactionStatusCancelled, SalePrice: 100}
		require.NoError(t, store.CreateTransaction(ctx, other))

		price, commission, err := store.SumTransactions(ctx, TransactionFilter{ClosingFrom: closing, ClosingTo: closing})
		require.NoError(t, err)
		assert.Equal(t, 400000.0, price)
		assert.Equal(t, 12000.0, commission)

		open, err := store.CountTransactions(ctx, TransactionFilter{ExcludeStatuses: []models.TransactionStatus{
			models.TransactionStatusClosed, models.TransactionStatusCancelled}})
		require.NoError(t, err)
		assert.Equal(t, 1, open)

		overdue := &models.TransactionMilestone{TransactionID: tx.ID, Name: "Inspection", DueDate: date(2024, 3, 10)}
		upcoming := &models.TransactionMilestone{TransactionID: tx.ID, Name: "Appraisal", DueDate: date(2024, 3, 17)}
		require.NoError(t, store.CreateMilestone(ctx, overdue))
		require.NoError(t, store.CreateMilestone(ctx, upcoming))

		today := models.DateOf(suiteNow)
		ms, err := store.ListMilestones(ctx, MilestoneFilter{Statuses: models.OpenMilestoneStatuses, DueBefore: &today})
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.Equal(t, "Inspection", ms[0].Name)

		overdue.Status = models.MilestoneStatusOverdue
		require.NoError(t, store.UpdateMilestone(ctx, overdue))
		n, err := store.CountMilestones(ctx, MilestoneFilter{TransactionID: &tx.ID, Statuses: []models.MilestoneStatus{models.MilestoneStatusOverdue}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		tx.AdjustRisk(10)
		require.NoError(t, store.UpdateTransaction(ctx, tx))
		got, err := store.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 55, got.RiskScore)
		assert.Equal(t, models.RiskLevelMedium, got.RiskLevel)

		// the stored level always follows the score
		got.RiskScore = 150
		got.RiskLevel = models.RiskLevelLow
		require.NoError(t, store.UpdateTransaction(ctx, got))
		got, err = store.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, got.RiskScore)
		assert.Equal(t, models.RiskLevelHigh, got.RiskLevel)

		wild := &models.Transaction{Type: "Lease", ClientID: client.ID, RiskScore: -20, RiskLevel: models.RiskLevelHigh}
		require.NoError(t, store.CreateTransaction(ctx, wild))
		got, err = store.GetTransaction(ctx, wild.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.RiskScore)
		assert.Equal(t, models.RiskLevelLow, got.RiskLevel)

		doc := &models.TransactionDocument{TransactionID: tx.ID, Name: "Purchase agreement", Type: "Contract", Status: "Signed"}
		require.NoError(t, store.CreateDocument(ctx, doc))
		docs, err := store.ListDocuments(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, 1, docs[0].Version)
	})

	t.Run("campaigns and communications", func(t *testing.T) {
		c := &models.MarketingCampaign{Name: "Spring open house", Type: "Email", Status: models.CampaignStatusActive,
			Budget: 1500, EndDate: date(2024, 3, 14), CreatedByID: broker.ID}
		require.NoError(t, store.CreateCampaign(ctx, c))
		today := models.DateOf(suiteNow)
		ended, err := store.ListCampaigns(ctx, CampaignFilter{Statuses: []models.CampaignStatus{models.CampaignStatusActive}, EndOnOrBefore: &today})
		require.NoError(t, err)
		require.Len(t, ended, 1)

		cpl := 187.5
		c.Status = models.CampaignStatusCompleted
		c.CostPerLead = &cpl
		require.NoError(t, store.UpdateCampaign(ctx, c))
		got, err := store.GetCampaign(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusCompleted, got.Status)
		require.NotNil(t, got.CostPerLead)
		assert.InDelta(t, 187.5, *got.CostPerLead, 1e-9)

		lead := &models.Lead{FirstName: "Comm", LastName: "Target"}
		require.NoError(t, store.CreateLead(ctx, lead))
		for _, automated := range []bool{true, true, false} {
			require.NoError(t, store.CreateCommunication(ctx, &models.Communication{
				Type: models.CommunicationEmail, Direction: "Outbound", Status: "Sent", IsAutomated: automated,
				UserID: agent.ID, LeadID: &lead.ID,
			}))
		}
		yes := true
		from := suiteNow.AddDate(0, 0, -7)
		n, err := store.CountCommunications(ctx, CommunicationFilter{LeadID: &lead.ID, Automated: &yes, SentFrom: &from})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
