package workflows

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/pkg/models"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// CampaignResults computes the simplified ROI and cost per lead of a campaign.
// ROI is nil without a positive budget; cost per lead is nil without leads.
func CampaignResults(budget float64, leadsGenerated int, revenuePerLead float64) (roi, costPerLead *float64) {
	if budget > 0 {
		r := (float64(leadsGenerated)*revenuePerLead - budget) / budget
		roi = &r
	}
	if leadsGenerated > 0 {
		c := budget / float64(leadsGenerated)
		costPerLead = &c
	}
	return roi, costPerLead
}

// CampaignCompleted records final campaign results and emails the creator a
// summary.
func (h *Handlers) CampaignCompleted(ctx context.Context, ev automation.Event) error {
	e, ok := ev.(automation.CampaignCompleted)
	if !ok {
		return wrongEvent(automation.WorkflowCampaignCompleted, ev)
	}
	if e.CampaignID == 0 {
		return missing(automation.WorkflowCampaignCompleted, "campaign_id")
	}
	c, err := h.store.GetCampaign(ctx, e.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign %d: %w", e.CampaignID, err)
	}

	roi, cpl := CampaignResults(c.Budget, c.LeadsGenerated, h.cfg.RevenuePerLead)
	if roi != nil {
		c.ROI = roi
	}
	if cpl != nil {
		c.CostPerLead = cpl
	}
	if err := h.store.UpdateCampaign(ctx, c); err != nil {
		return fmt.Errorf("update campaign %d: %w", c.ID, err)
	}

	if c.CreatedByID == 0 {
		return nil
	}
	creator, err := h.store.GetUser(ctx, c.CreatedByID)
	if err != nil {
		h.logger.Warn("campaign creator not found", "campaign_id", c.ID, "user_id", c.CreatedByID, "error", err)
		return nil
	}
	subject := "Campaign Completed: " + c.Name
	if err := h.notifier.SendRaw(ctx, creator.Email, subject, campaignSummary(c)); err != nil {
		h.logger.Warn("campaign summary not sent", "campaign_id", c.ID, "error", err)
	}
	return nil
}

func campaignSummary(c *models.MarketingCampaign) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign %q has been completed.\n\nFinal Results:\n", c.Name)
	b.WriteString(printer.Sprintf("- Leads Generated: %d\n", c.LeadsGenerated))
	if c.CostPerLead != nil {
		b.WriteString(printer.Sprintf("- Cost Per Lead: $%.2f\n", *c.CostPerLead))
	} else {
		b.WriteString("- Cost Per Lead: n/a\n")
	}
	if c.ROI != nil {
		b.WriteString(printer.Sprintf("- ROI: %.1f%%\n", *c.ROI*100))
	} else {
		b.WriteString("- ROI: n/a\n")
	}
	b.WriteString(printer.Sprintf("- Total Budget: $%.2f\n", c.Budget))
	if c.StartDate != nil && c.EndDate != nil {
		fmt.Fprintf(&b, "\nCampaign ran from %s to %s.\n", c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	}
	b.WriteString("\nLogin to the CRM for detailed analytics.")
	return b.String()
}
