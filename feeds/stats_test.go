package feeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformStats_Display(t *testing.T) {
	s := PlatformStats{
		TotalCommunities:         1_520,
		TotalFundsManaged:        2_450_000,
		TotalMembers:             89_000,
		TotalProjects:            340,
		AverageParticipationRate: 0.73,
		MonthlyGrowth:            0.15,
	}

	d := s.Display()
	assert.Equal(t, "2K", d.Communities.Formatted)
	assert.Equal(t, "$2.5M", d.Funds.Formatted)
	assert.Equal(t, "89K", d.Members.Formatted)
	assert.Equal(t, "340", d.Projects.Formatted)
	assert.Equal(t, "73%", d.Participation.Formatted)
	assert.Equal(t, "15%", d.Growth.Formatted)
	assert.Equal(t, "Active Members", d.Members.Label)
	assert.Equal(t, float64(89_000), d.Members.Value)
}

func TestPlatformStats_Activities(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	amount := 12_500.0
	members := 42
	votes := 318

	s := PlatformStats{RecentActivities: []Activity{
		{Type: ActivityProposalFunded, Title: "Solar Garden", Amount: &amount, Timestamp: "2026-03-10T11:55:00Z"},
		{Type: ActivityCommunityCreated, Title: "Bike Co-op", Members: &members, Timestamp: "2026-03-10T09:00:00Z"},
		{Type: ActivityVotingCompleted, Title: "Park Budget", Votes: &votes, Timestamp: "2026-03-08T12:00:00Z"},
		{Type: "something_else", Title: "Misc", Timestamp: "not a time"},
	}}

	got := s.Activities(now)
	require.Len(t, got, 4)

	assert.Equal(t, "Solar Garden received $12K", got[0].DisplayText)
	assert.Equal(t, "💰", got[0].Icon)
	assert.Equal(t, "5m ago", got[0].TimeAgo)

	assert.Equal(t, "Bike Co-op created with 42 members", got[1].DisplayText)
	assert.Equal(t, "3h ago", got[1].TimeAgo)

	assert.Equal(t, "Park Budget completed with 318 votes", got[2].DisplayText)
	assert.Equal(t, "2d ago", got[2].TimeAgo)

	assert.Equal(t, "Misc", got[3].DisplayText)
	assert.Equal(t, "📊", got[3].Icon)
	assert.Empty(t, got[3].TimeAgo)
}

func TestPlatformStats_MissingAmount(t *testing.T) {
	s := PlatformStats{RecentActivities: []Activity{
		{Type: ActivityProposalFunded, Title: "Library"},
	}}
	assert.Equal(t, "Library received $0", s.Activities(time.Now())[0].DisplayText)
}
