package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"realestate-crm/backend/pkg/models"
)

func budget(v float64) *float64 { return &v }

func TestScore_ReferralAsapMillionBuyer(t *testing.T) {
	in := Input{
		Source:           "Referral",
		Timeline:         "ASAP",
		BudgetMax:        budget(1_200_000),
		PropertyInterest: "Buying",
		HasEmail:         true,
		HasPhone:         true,
	}
	assert.Equal(t, 100, Score(in))
}

func TestScore_Defaults(t *testing.T) {
	// unknown source 5, missing timeline 3, no budget 0, unknown interest 5
	assert.Equal(t, 13, Score(Input{Source: "Billboard"}))
}

func TestScore_BudgetTiers(t *testing.T) {
	base := Input{Source: "Other", Timeline: "Just browsing", PropertyInterest: "Renting"} // 5+3+3
	cases := []struct {
		budget *float64
		want   int
	}{
		{nil, 11},
		{budget(0), 11},
		{budget(150_000), 16},
		{budget(200_000), 19},
		{budget(300_000), 21},
		{budget(500_000), 26},
		{budget(1_000_000), 31},
	}
	for _, tc := range cases {
		in := base
		in.BudgetMax = tc.budget
		assert.Equal(t, tc.want, Score(in))
	}
}

func TestScore_EngagementCapped(t *testing.T) {
	base := Input{Source: "Other"} // 5+3+5 = 13
	for count, want := range map[int]int{0: 13, 1: 15, 4: 21, 5: 23, 50: 23, -3: 13} {
		in := base
		in.RecentCommunications = count
		assert.Equal(t, want, Score(in), "count %d", count)
	}
}

func TestScore_ExtremeEngagementCounts(t *testing.T) {
	base := Input{Source: "Other"} // 13
	for _, count := range []int{1 << 62, math.MaxInt, math.MinInt, -1 << 62} {
		in := base
		in.RecentCommunications = count
		got := Score(in)
		assert.GreaterOrEqual(t, got, 0, "count %d", count)
		assert.LessOrEqual(t, got, MaxScore, "count %d", count)
	}

	in := base
	in.RecentCommunications = 1 << 62
	assert.Equal(t, 23, Score(in))
}

func TestScore_AlwaysInRangeAndDeterministic(t *testing.T) {
	sources := []string{"", "Referral", "Website Form", "Zillow", "Cold Call", "Nope"}
	timelines := []string{"", "ASAP", "1-3 months", "1+ years", "whenever"}
	interests := []string{"", "Buying", "Both", "Renting", "Flipping"}
	budgets := []*float64{nil, budget(50_000), budget(250_000), budget(2_000_000)}

	for _, s := range sources {
		for _, tl := range timelines {
			for _, pi := range interests {
				for _, b := range budgets {
					for _, comms := range []int{0, 3, 20} {
						in := Input{
							Source: s, Timeline: tl, PropertyInterest: pi, BudgetMax: b,
							HasEmail: true, HasPhone: comms > 0, RecentCommunications: comms,
						}
						got := Score(in)
						assert.GreaterOrEqual(t, got, 0)
						assert.LessOrEqual(t, got, MaxScore)
						assert.Equal(t, got, Score(in))
					}
				}
			}
		}
	}
}

func TestFromLead(t *testing.T) {
	lead := &models.Lead{
		Source:           "Website Form",
		Timeline:         "3-6 months",
		BudgetMax:        budget(450_000),
		PropertyInterest: "Selling",
		Email:            "jane@example.com",
		Phone:            "  ",
	}
	in := FromLead(lead, 2)
	assert.True(t, in.HasEmail)
	assert.False(t, in.HasPhone)
	// 25 + 15 + 10 + 10 + 5 + 4
	assert.Equal(t, 69, Score(in))
}

func TestCrossed(t *testing.T) {
	assert.True(t, Crossed(79, 80))
	assert.True(t, Crossed(0, 100))
	assert.False(t, Crossed(85, 85))
	assert.False(t, Crossed(80, 90))
	assert.False(t, Crossed(50, 79))
	assert.False(t, Crossed(90, 70))
}
