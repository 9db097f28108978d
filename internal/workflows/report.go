package workflows

import (
	"context"
	"fmt"
	"time"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/notify"
	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

// DailyReport holds the figures sent in the daily activity email.
type DailyReport struct {
	Date                time.Time `json:"date"`
	NewLeads            int       `json:"new_leads"`
	HotLeads            int       `json:"hot_leads"`
	FollowUpsDue        int       `json:"followups_due"`
	Conversions         int       `json:"conversions"`
	ActiveTransactions  int       `json:"active_transactions"`
	ClosingThisWeek     int       `json:"closing_this_week"`
	OverdueMilestones   int       `json:"overdue_milestones"`
	ActiveCampaigns     int       `json:"active_campaigns"`
	EmailOpens          int       `json:"email_opens"`
	NewInquiries        int       `json:"new_inquiries"`
	PipelineValue       float64   `json:"pipeline_value"`
	ProjectedCommission float64   `json:"projected_commission"`
}

// Vars returns the daily_report template variables.
func (r DailyReport) Vars() map[string]any {
	return map[string]any{
		"date":                 r.Date.Format("2006-01-02"),
		"new_leads":            r.NewLeads,
		"hot_leads":            r.HotLeads,
		"followups_due":        r.FollowUpsDue,
		"conversions":          r.Conversions,
		"active_transactions":  r.ActiveTransactions,
		"closing_this_week":    r.ClosingThisWeek,
		"overdue_milestones":   r.OverdueMilestones,
		"active_campaigns":     r.ActiveCampaigns,
		"email_opens":          r.EmailOpens,
		"new_inquiries":        r.NewInquiries,
		"pipeline_value":       r.PipelineValue,
		"projected_commission": r.ProjectedCommission,
	}
}

// BuildDailyReport aggregates the activity figures for date.
func BuildDailyReport(ctx context.Context, store repository.Store, date time.Time) (DailyReport, error) {
	day := models.DateOf(date)
	next := day.AddDate(0, 0, 1)
	weekEnd := day.AddDate(0, 0, 7)
	hot := models.HotLeadThreshold
	opened := true
	r := DailyReport{Date: day}

	counts := []struct {
		dst   *int
		name  string
		count func() (int, error)
	}{
		{&r.NewLeads, "new leads", func() (int, error) {
			return store.CountLeads(ctx, repository.LeadFilter{CreatedFrom: &day, CreatedTo: &next})
		}},
		{&r.HotLeads, "hot leads", func() (int, error) {
			return store.CountLeads(ctx, repository.LeadFilter{MinScore: &hot})
		}},
		{&r.FollowUpsDue, "follow-ups due", func() (int, error) {
			return store.CountLeads(ctx, repository.LeadFilter{Statuses: models.ActiveLeadStatuses, FollowUpOnOrBefore: &day})
		}},
		{&r.Conversions, "conversions", func() (int, error) {
			return store.CountLeads(ctx, repository.LeadFilter{
				Statuses:     []models.LeadStatus{models.LeadStatusConverted},
				ModifiedFrom: &day,
				ModifiedTo:   &next,
			})
		}},
		{&r.ActiveTransactions, "active transactions", func() (int, error) {
			return store.CountTransactions(ctx, repository.TransactionFilter{Statuses: models.OpenTransactionStatuses})
		}},
		{&r.ClosingThisWeek, "closings this week", func() (int, error) {
			return store.CountTransactions(ctx, repository.TransactionFilter{
				ExcludeStatuses: []models.TransactionStatus{models.TransactionStatusClosed},
				ClosingFrom:     &day,
				ClosingTo:       &weekEnd,
			})
		}},
		{&r.OverdueMilestones, "overdue milestones", func() (int, error) {
			return store.CountMilestones(ctx, repository.MilestoneFilter{Statuses: models.OpenMilestoneStatuses, DueBefore: &day})
		}},
		{&r.ActiveCampaigns, "active campaigns", func() (int, error) {
			return store.CountCampaigns(ctx, repository.CampaignFilter{Statuses: []models.CampaignStatus{models.CampaignStatusActive}})
		}},
		{&r.EmailOpens, "email opens", func() (int, error) {
			return store.CountCommunications(ctx, repository.CommunicationFilter{
				Type:     models.CommunicationEmail,
				Opened:   &opened,
				SentFrom: &day,
				SentTo:   &next,
			})
		}},
	}
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			return DailyReport{}, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = n
	}
	r.NewInquiries = r.NewLeads

	var err error
	r.PipelineValue, r.ProjectedCommission, err = store.SumTransactions(ctx, repository.TransactionFilter{Statuses: models.OpenTransactionStatuses})
	if err != nil {
		return DailyReport{}, fmt.Errorf("sum pipeline: %w", err)
	}
	return r, nil
}

// DailyReport builds the activity report and sends it to every active agent.
func (h *Handlers) DailyReport(ctx context.Context, ev automation.Event) error {
	e, ok := ev.(automation.DailyReport)
	if !ok {
		return wrongEvent(automation.WorkflowDailyReport, ev)
	}
	date := e.Date
	if date.IsZero() {
		date = h.now()
	}
	report, err := BuildDailyReport(ctx, h.store, date)
	if err != nil {
		return err
	}
	agents, err := h.store.ListUsers(ctx, repository.UserFilter{
		Roles:    []models.UserRole{models.UserRoleAgent},
		Statuses: []models.UserStatus{models.UserStatusActive},
	})
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}

	vars := report.Vars()
	sent := 0
	for _, agent := range agents {
		if _, err := h.notifier.Send(ctx, notify.TemplateDailyReport, agent.Email, "", vars); err != nil {
			h.logger.Warn("daily report not sent", "agent_id", agent.ID, "error", err)
			continue
		}
		sent++
	}
	h.logger.Info("daily report sent", "date", report.Date.Format("2006-01-02"), "agents", sent)
	return nil
}
