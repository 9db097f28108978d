package workflows

import (
	"context"
	"math"
	"time"

	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/pkg/models"
)

// MetricsWindow is the trailing period used for automation metrics.
const MetricsWindow = 7 * 24 * time.Hour

// AutomationMetrics summarises recent automated outreach.
type AutomationMetrics struct {
	AutomatedEmails     int     `json:"automated_emails_sent"`
	TotalCommunications int     `json:"total_communications"`
	AutomationRate      float64 `json:"automation_rate"`
	WindowDays          int     `json:"window_days"`
}

// ComputeAutomationMetrics reports the share of communications in the
// trailing window that were automated emails, as a percentage rounded to one
// decimal.
func ComputeAutomationMetrics(ctx context.Context, store repository.CommunicationStore, now time.Time) (AutomationMetrics, error) {
	since := now.Add(-MetricsWindow)
	yes := true
	automated, err := store.CountCommunications(ctx, repository.CommunicationFilter{
		Type:      models.CommunicationEmail,
		Automated: &yes,
		SentFrom:  &since,
	})
	if err != nil {
		return AutomationMetrics{}, err
	}
	total, err := store.CountCommunications(ctx, repository.CommunicationFilter{SentFrom: &since})
	if err != nil {
		return AutomationMetrics{}, err
	}
	m := AutomationMetrics{
		AutomatedEmails:     automated,
		TotalCommunications: total,
		WindowDays:          int(MetricsWindow / (24 * time.Hour)),
	}
	if total > 0 {
		m.AutomationRate = math.Round(float64(automated)/float64(total)*1000) / 10
	}
	return m, nil
}
