// Package scoring computes lead priority scores.
//
// Score is pure: the same Input always yields the same score. The engine
// relies on that to diff a lead's stored score against a fresh one and detect
// threshold crossings.
package scoring

import (
	"strings"

	"realestate-crm/backend/pkg/models"
)

// MaxScore is the ceiling of every lead score.
const MaxScore = 100

const (
	defaultSourcePoints   = 5
	defaultTimelinePoints = 3
	defaultInterestPoints = 5

	contactPoints       = 5
	pointsPerEngagement = 2
	maxEngagementPoints = 10
)

var sourcePoints = map[string]int{
	"Referral":     30,
	"Website Form": 25,
	"Google Ads":   20,
	"Social Media": 18,
	"Open House":   15,
	"Zillow":       12,
	"Realtor.com":  10,
	"Cold Call":    8,
	"Other":        5,
}

var timelinePoints = map[string]int{
	"ASAP":          25,
	"1-3 months":    20,
	"3-6 months":    15,
	"6-12 months":   10,
	"1+ years":      5,
	"Just browsing": 3,
}

var interestPoints = map[string]int{
	"Buying":    15,
	"Both":      12,
	"Selling":   10,
	"Investing": 8,
	"Renting":   3,
}

// Input holds the lead attributes that feed the score.
type Input struct {
	Source               string
	Timeline             string
	BudgetMax            *float64
	PropertyInterest     string
	HasEmail             bool
	HasPhone             bool
	RecentCommunications int // communications in the trailing 7 days
}

// FromLead builds an Input from a stored lead.
func FromLead(lead *models.Lead, recentCommunications int) Input {
	return Input{
		Source:               lead.Source,
		Timeline:             lead.Timeline,
		BudgetMax:            lead.BudgetMax,
		PropertyInterest:     lead.PropertyInterest,
		HasEmail:             strings.TrimSpace(lead.Email) != "",
		HasPhone:             strings.TrimSpace(lead.Phone) != "",
		RecentCommunications: recentCommunications,
	}
}

// Score returns the lead score in [0, MaxScore].
func Score(in Input) int {
	score := lookup(sourcePoints, in.Source, defaultSourcePoints)
	score += lookup(timelinePoints, in.Timeline, defaultTimelinePoints)
	score += budgetPoints(in.BudgetMax)
	score += lookup(interestPoints, in.PropertyInterest, defaultInterestPoints)

	if in.HasEmail {
		score += contactPoints
	}
	if in.HasPhone {
		score += contactPoints
	}
	score += engagementPoints(in.RecentCommunications)

	switch {
	case score > MaxScore:
		return MaxScore
	case score < 0:
		return 0
	}
	return score
}

// Crossed reports whether a score moved from below the hot-lead threshold to
// at or above it.
func Crossed(oldScore, newScore int) bool {
	return oldScore < models.HotLeadThreshold && newScore >= models.HotLeadThreshold
}

func lookup(table map[string]int, key string, fallback int) int {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

func budgetPoints(budgetMax *float64) int {
	if budgetMax == nil || *budgetMax <= 0 {
		return 0
	}
	switch b := *budgetMax; {
	case b >= 1_000_000:
		return 20
	case b >= 500_000:
		return 15
	case b >= 300_000:
		return 10
	case b >= 200_000:
		return 8
	default:
		return 5
	}
}

func engagementPoints(count int) int {
	if count <= 0 {
		return 0
	}
	// capped before multiplying so huge counts cannot overflow
	if count >= maxEngagementPoints/pointsPerEngagement {
		return maxEngagementPoints
	}
	return count * pointsPerEngagement
}
