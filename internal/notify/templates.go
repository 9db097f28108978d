package notify

// Template names.
const (
	TemplateWelcomeLead       = "welcome_lead"
	TemplateLeadFollowUp      = "lead_follow_up"
	TemplateHotLeadAlert      = "hot_lead_alert"
	TemplateMilestoneReminder = "transaction_milestone_reminder"
	TemplateDailyReport       = "daily_report"
)

// Template is a named subject/body pair rendered with text/template.
// Every name in Variables must be supplied when sending.
type Template struct {
	Name      string
	Subject   string
	Body      string
	Variables []string
}

// DefaultTemplates is the built-in catalogue.
var DefaultTemplates = []Template{
	{
		Name:    TemplateWelcomeLead,
		Subject: `Welcome to {{.company_name}} - Let's Find Your Dream Home!`,
		Body: `Dear {{.first_name}},

Thank you for your interest in working with {{.company_name}}! I'm {{.agent_name}}, and I'm excited to help you with your real estate needs.

Based on your inquiry, I understand you're looking to {{.property_interest}} in the {{.preferred_areas}} area with a budget of {{money .budget_min}} - {{money .budget_max}}.

Here's what happens next:
1. I'll send you a personalized property search based on your criteria
2. We'll schedule a consultation to discuss your specific needs
3. I'll provide you with market insights and trends for your area of interest

Feel free to reply to this email or call me directly at {{.agent_phone}}.

Best regards,
{{.agent_name}}
{{.agent_title}}
{{.company_name}}
{{.agent_phone}}
{{.agent_email}}`,
		Variables: []string{"first_name", "company_name", "agent_name", "agent_title", "agent_phone", "agent_email",
			"property_interest", "preferred_areas", "budget_min", "budget_max"},
	},
	{
		Name:    TemplateLeadFollowUp,
		Subject: `Following up on your real estate inquiry - {{.first_name}}`,
		Body: `Hi {{.first_name}},

I wanted to follow up on your recent inquiry about {{.property_interest}} in {{.preferred_areas}}.

The market is moving quickly right now, and I've seen some opportunities that might interest you. I'd love to schedule a brief call to discuss current market conditions, new listings that match your criteria and your timeline.

You can reply to this email or call me directly at {{.agent_phone}}.

Best regards,
{{.agent_name}}
{{.company_name}}
{{.agent_phone}}`,
		Variables: []string{"first_name", "property_interest", "preferred_areas", "agent_name", "company_name", "agent_phone"},
	},
	{
		Name:    TemplateHotLeadAlert,
		Subject: `High-Priority Lead Alert: {{.first_name}} {{.last_name}}`,
		Body: `URGENT: High-Priority Lead Identified

Lead Details:
- Name: {{.first_name}} {{.last_name}}
- Email: {{.email}}
- Phone: {{.phone}}
- Lead Score: {{.lead_score}}/100
- Source: {{.lead_source}}
- Interest: {{.property_interest}}
- Budget: {{money .budget_min}} - {{money .budget_max}}
- Timeline: {{.timeline}}

Recommended action: contact within 1 hour.

Lead Notes: {{.notes}}`,
		Variables: []string{"first_name", "last_name", "email", "phone", "lead_score", "lead_source",
			"property_interest", "budget_min", "budget_max", "timeline", "notes"},
	},
	{
		Name:    TemplateMilestoneReminder,
		Subject: `Transaction Milestone Due: {{.milestone_name}}`,
		Body: `Dear {{.agent_name}},

The following transaction milestone is due:

- Property: {{.property_address}}
- Client: {{.client_name}}
- Milestone: {{.milestone_name}}
- Due Date: {{.due_date}}
- Status: {{.milestone_status}}

Transaction Notes: {{.transaction_notes}}

Login to the CRM to update the milestone status.`,
		Variables: []string{"agent_name", "milestone_name", "due_date", "milestone_status", "property_address",
			"client_name", "transaction_notes"},
	},
	{
		Name:    TemplateDailyReport,
		Subject: `Daily Real Estate Activity Report - {{.date}}`,
		Body: `Daily Activity Report for {{.date}}

LEADS:
- New Leads: {{.new_leads}}
- Hot Leads (80+ score): {{.hot_leads}}
- Follow-ups Due: {{.followups_due}}
- Conversions: {{.conversions}}

TRANSACTIONS:
- Active Transactions: {{.active_transactions}}
- Closing This Week: {{.closing_this_week}}
- Overdue Milestones: {{.overdue_milestones}}

MARKETING:
- Active Campaigns: {{.active_campaigns}}
- Email Opens Today: {{.email_opens}}
- New Inquiries: {{.new_inquiries}}

PERFORMANCE:
- Total Pipeline Value: {{money .pipeline_value}}
- Projected Monthly Commission: {{money .projected_commission}}`,
		Variables: []string{"date", "new_leads", "hot_leads", "followups_due", "conversions", "active_transactions",
			"closing_this_week", "overdue_milestones", "active_campaigns", "email_opens", "new_inquiries",
			"pipeline_value", "projected_commission"},
	},
}
