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

// OverdueRiskPenalty is added to a transaction's risk score per overdue milestone event.
const OverdueRiskPenalty = 10

// MilestoneOverdue reminds the listing agent, marks a pending milestone
// overdue and raises the transaction risk score.
func (h *Handlers) MilestoneOverdue(ctx context.Context, ev automation.Event) error {
	e, ok := ev.(automation.MilestoneOverdue)
	if !ok {
		return wrongEvent(automation.WorkflowMilestoneOverdue, ev)
	}
	if e.MilestoneID == 0 {
		return missing(automation.WorkflowMilestoneOverdue, "milestone_id")
	}
	milestone, err := h.store.GetMilestone(ctx, e.MilestoneID)
	if err != nil {
		return fmt.Errorf("load milestone %d: %w", e.MilestoneID, err)
	}
	tx, err := h.store.GetTransaction(ctx, milestone.TransactionID)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", milestone.TransactionID, err)
	}

	h.remindListingAgent(ctx, tx, milestone)

	return h.store.InTx(ctx, func(ctx context.Context, s repository.Store) error {
		if milestone.Status == models.MilestoneStatusPending {
			milestone.Status = models.MilestoneStatusOverdue
			if err := s.UpdateMilestone(ctx, milestone); err != nil {
				return fmt.Errorf("update milestone %d: %w", milestone.ID, err)
			}
		}
		tx.AdjustRisk(OverdueRiskPenalty)
		if err := s.UpdateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("update transaction %d: %w", tx.ID, err)
		}
		h.logger.Info("transaction risk raised", "transaction_id", tx.ID, "risk_score", tx.RiskScore, "risk_level", tx.RiskLevel)
		return nil
	})
}

func (h *Handlers) remindListingAgent(ctx context.Context, tx *models.Transaction, m *models.TransactionMilestone) {
	if tx.ListingAgentID == nil {
		h.logger.Warn("transaction has no listing agent, reminder not sent", "transaction_id", tx.ID)
		return
	}
	agent, err := h.store.GetUser(ctx, *tx.ListingAgentID)
	if err != nil {
		h.logger.Warn("listing agent not found", "transaction_id", tx.ID, "error", err)
		return
	}
	dueDate := "Not set"
	if m.DueDate != nil {
		dueDate = m.DueDate.Format("2006-01-02")
	}
	clientName := "Unknown"
	if client, err := h.store.GetClient(ctx, tx.ClientID); err == nil {
		clientName = client.FullName()
	}
	vars := map[string]any{
		"agent_name":        agent.FullName(),
		"milestone_name":    m.Name,
		"due_date":          dueDate,
		"milestone_status":  string(m.Status),
		"property_address":  orDefault(tx.PropertyAddress, "Unknown"),
		"client_name":       clientName,
		"transaction_notes": orDefault(tx.Notes, "No notes"),
	}
	msg, err := h.notifier.Send(ctx, notify.TemplateMilestoneReminder, agent.Email, "", vars)
	if err != nil {
		h.logger.Warn("milestone reminder not sent", "milestone_id", m.ID, "error", err)
		return
	}
	if err := h.notifier.Log(ctx, notify.Entry{
		SenderID:      agent.ID,
		To:            msg.To,
		Subject:       msg.Subject,
		Body:          msg.Body,
		TransactionID: &tx.ID,
		Trigger:       string(automation.TriggerMilestoneOverdue),
	}); err != nil {
		h.logger.Warn("failed to log communication", "to", msg.To, "error", err)
	}
}

// UpdateMilestoneStatus sets a milestone's status, stamping the completion
// date when it becomes Complete, and recomputes the transaction progress.
func UpdateMilestoneStatus(ctx context.Context, store repository.Store, id int64, status models.MilestoneStatus, now time.Time) (*models.TransactionMilestone, error) {
	var out *models.TransactionMilestone
	err := store.InTx(ctx, func(ctx context.Context, s repository.Store) error {
		m, err := s.GetMilestone(ctx, id)
		if err != nil {
			return err
		}
		m.Status = status
		if status == models.MilestoneStatusComplete {
			if m.CompletedDate == nil {
				done := models.DateOf(now)
				m.CompletedDate = &done
			}
		} else {
			m.CompletedDate = nil
		}
		if err := s.UpdateMilestone(ctx, m); err != nil {
			return err
		}
		if _, err := RecomputeProgress(ctx, s, m.TransactionID); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update milestone %d: %w", id, err)
	}
	return out, nil
}

// RecomputeProgress sets a transaction's progress to the share of complete
// milestones and its current milestone to the first one not complete.
func RecomputeProgress(ctx context.Context, store repository.Store, transactionID int64) (*models.Transaction, error) {
	tx, err := store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	milestones, err := store.ListMilestones(ctx, repository.MilestoneFilter{TransactionID: &transactionID})
	if err != nil {
		return nil, err
	}
	completed := 0
	current := ""
	for _, m := range milestones {
		if m.Status == models.MilestoneStatusComplete {
			completed++
		} else if current == "" {
			current = m.Name
		}
	}
	tx.ProgressPercentage = models.ProgressPercentage(completed, len(milestones))
	tx.CurrentMilestone = current
	if err := store.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
