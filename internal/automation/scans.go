package automation

import (
	"context"
	"fmt"
	"time"

	"realestate-crm/backend/internal/repository"
	"realestate-crm/backend/internal/scoring"
	"realestate-crm/backend/pkg/models"
)

const (
	// StaleLeadAge is how long a lead may go unmodified before the daily
	// maintenance marks it unresponsive.
	StaleLeadAge = 30 * 24 * time.Hour
	// EngagementWindow is the trailing period counted as recent engagement.
	EngagementWindow = 7 * 24 * time.Hour
)

// Scan task names.
const (
	TaskFollowUps   = "lead_follow_ups"
	TaskMilestones  = "milestone_deadlines"
	TaskRescoring   = "lead_rescoring"
	TaskCampaigns   = "campaign_expiry"
	TaskMaintenance = "daily_maintenance"
)

// TaskNames lists the scan tasks in scheduling order.
var TaskNames = []string{TaskFollowUps, TaskMilestones, TaskRescoring, TaskCampaigns, TaskMaintenance}

func (e *Engine) scanTasks() []Task {
	return []Task{
		{Name: TaskFollowUps, Interval: e.intervals.FollowUp, Run: e.scheduled(e.ScanFollowUps)},
		{Name: TaskMilestones, Interval: e.intervals.Milestone, Run: e.scheduled(e.ScanMilestones)},
		{Name: TaskRescoring, Interval: e.intervals.Rescoring, Run: e.scheduled(e.RescoreLeads)},
		{Name: TaskCampaigns, Interval: e.intervals.Campaign, Run: e.scheduled(e.ScanCampaigns)},
		{Name: TaskMaintenance, Interval: e.intervals.Maintenance, Run: e.scheduled(e.DailyMaintenance)},
	}
}

func (e *Engine) scheduled(scan func(ctx context.Context) (int, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := scan(withSource(ctx, SourceScheduled))
		return err
	}
}

// RunScan runs the named scan task once, outside the scheduler.
func (e *Engine) RunScan(ctx context.Context, name string) (int, error) {
	var scan func(context.Context) (int, error)
	switch name {
	case TaskFollowUps:
		scan = e.ScanFollowUps
	case TaskMilestones:
		scan = e.ScanMilestones
	case TaskRescoring:
		scan = e.RescoreLeads
	case TaskCampaigns:
		scan = e.ScanCampaigns
	case TaskMaintenance:
		scan = e.DailyMaintenance
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScan, name)
	}
	return scan(ctx)
}

type sourceKey struct{}

func withSource(ctx context.Context, src RunSource) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

func (e *Engine) scanFire(ctx context.Context, name TriggerName, ev Event) {
	src, ok := ctx.Value(sourceKey{}).(RunSource)
	if !ok {
		src = SourceManual
	}
	e.fire(ctx, name, ev, src)
}

// ScanFollowUps raises lead_follow_up_due for every active lead whose
// follow-up date is today or earlier. It returns the number of leads found.
func (e *Engine) ScanFollowUps(ctx context.Context) (int, error) {
	today := models.DateOf(e.now())
	leads, err := e.store.ListLeads(ctx, repository.LeadFilter{
		Statuses:           models.ActiveLeadStatuses,
		FollowUpOnOrBefore: &today,
	})
	if err != nil {
		return 0, fmt.Errorf("list follow-ups: %w", err)
	}
	for _, l := range leads {
		e.scanFire(ctx, TriggerLeadFollowUpDue, LeadFollowUpDue{
			LeadID:      l.ID,
			DaysOverdue: models.DaysBetween(*l.NextFollowUp, today),
		})
	}
	return len(leads), nil
}

// ScanMilestones raises milestone_overdue for every open milestone due today
// or earlier.
func (e *Engine) ScanMilestones(ctx context.Context) (int, error) {
	today := models.DateOf(e.now())
	milestones, err := e.store.ListMilestones(ctx, repository.MilestoneFilter{
		Statuses:      models.OpenMilestoneStatuses,
		DueOnOrBefore: &today,
	})
	if err != nil {
		return 0, fmt.Errorf("list milestones: %w", err)
	}
	for _, m := range milestones {
		e.scanFire(ctx, TriggerMilestoneOverdue, MilestoneOverdue{MilestoneID: m.ID, TransactionID: m.TransactionID})
	}
	return len(milestones), nil
}

// RescoreLeads recomputes the score of every active lead and raises
// hot_lead_identified for leads crossing the hot threshold. The new score is
// written with a compare-and-set against the score read in this pass, so a
// concurrent writer makes the update (and the crossing) lapse until the next
// pass. It returns the number of scores changed.
func (e *Engine) RescoreLeads(ctx context.Context) (int, error) {
	leads, err := e.store.ListLeads(ctx, repository.LeadFilter{Statuses: models.ActiveLeadStatuses})
	if err != nil {
		return 0, fmt.Errorf("list leads: %w", err)
	}
	since := e.now().Add(-EngagementWindow)
	changed := 0
	for _, l := range leads {
		recent, err := e.store.CountCommunications(ctx, repository.CommunicationFilter{LeadID: &l.ID, SentFrom: &since})
		if err != nil {
			e.logger.Error("failed to count recent communications", "lead_id", l.ID, "error", err)
			continue
		}
		oldScore := l.Score
		newScore := scoring.Score(scoring.FromLead(l, recent))
		if newScore == oldScore {
			continue
		}
		applied, err := e.store.UpdateLeadScore(ctx, l.ID, oldScore, newScore)
		if err != nil {
			e.logger.Error("failed to update lead score", "lead_id", l.ID, "error", err)
			continue
		}
		if !applied {
			e.logger.Warn("lead score changed concurrently, skipping", "lead_id", l.ID)
			continue
		}
		changed++
		if scoring.Crossed(oldScore, newScore) {
			e.scanFire(ctx, TriggerHotLead, HotLeadIdentified{LeadID: l.ID, Score: newScore})
		}
	}
	return changed, nil
}

// ScanCampaigns completes active campaigns whose end date has passed and
// raises campaign_completed for each.
func (e *Engine) ScanCampaigns(ctx context.Context) (int, error) {
	today := models.DateOf(e.now())
	campaigns, err := e.store.ListCampaigns(ctx, repository.CampaignFilter{
		Statuses:      []models.CampaignStatus{models.CampaignStatusActive},
		EndOnOrBefore: &today,
	})
	if err != nil {
		return 0, fmt.Errorf("list campaigns: %w", err)
	}
	completed := 0
	for _, c := range campaigns {
		c.Status = models.CampaignStatusCompleted
		if err := e.store.UpdateCampaign(ctx, c); err != nil {
			e.logger.Error("failed to complete campaign", "campaign_id", c.ID, "error", err)
			continue
		}
		completed++
		e.scanFire(ctx, TriggerCampaignCompleted, CampaignCompleted{CampaignID: c.ID})
	}
	return completed, nil
}

// DailyMaintenance marks stale leads unresponsive and raises daily_report for
// today. It returns the number of leads marked.
func (e *Engine) DailyMaintenance(ctx context.Context) (int, error) {
	now := e.now()
	cutoff := now.Add(-StaleLeadAge)
	n, err := e.store.SetLeadStatus(ctx, repository.LeadFilter{
		Statuses:       models.StaleLeadStatuses,
		ModifiedBefore: &cutoff,
	}, models.LeadStatusUnresponsive)
	if err != nil {
		return 0, fmt.Errorf("mark stale leads: %w", err)
	}
	if n > 0 {
		e.logger.Info("marked stale leads unresponsive", "count", n)
	}
	e.scanFire(ctx, TriggerDailyReport, DailyReport{Date: models.DateOf(now)})
	return n, nil
}
