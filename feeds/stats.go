package feeds

import (
	"strconv"
	"time"
)

// PlatformStats is the payload of the platform statistics feed.
type PlatformStats struct {
	TotalCommunities         float64          `json:"totalCommunities"`
	TotalFundsManaged        float64          `json:"totalFundsManaged"`
	TotalMembers             float64          `json:"totalMembers"`
	TotalProjects            float64          `json:"totalProjects"`
	TotalFundsRaised         float64          `json:"totalFundsRaised"`
	TotalVotes               float64          `json:"totalVotes"`
	AverageParticipationRate float64          `json:"averageParticipationRate"`
	MonthlyGrowth            float64          `json:"monthlyGrowth"`
	LastUpdated              string           `json:"lastUpdated"`
	TopCommunities           []CommunityStats `json:"topCommunities"`
	RecentActivities         []Activity       `json:"recentActivities"`
}

type CommunityStats struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Members             int     `json:"members"`
	FundsRaised         float64 `json:"fundsRaised"`
	VotingParticipation float64 `json:"votingParticipation"`
}

// Activity types.
const (
	ActivityProposalFunded   = "proposal_funded"
	ActivityCommunityCreated = "community_created"
	ActivityVotingCompleted  = "voting_completed"
)

type Activity struct {
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Amount    *float64 `json:"amount,omitempty"`
	Members   *int     `json:"members,omitempty"`
	Votes     *int     `json:"votes,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Stat is one headline figure.
type Stat struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
	Label     string  `json:"label"`
}

// StatsDisplay holds the headline figures shown for the platform.
type StatsDisplay struct {
	Communities   Stat `json:"communities"`
	Funds         Stat `json:"funds"`
	Members       Stat `json:"members"`
	Projects      Stat `json:"projects"`
	Participation Stat `json:"participation"`
	Growth        Stat `json:"growth"`
}

// FormattedActivity is an [Activity] with display text.
type FormattedActivity struct {
	Activity
	DisplayText string `json:"displayText"`
	Icon        string `json:"icon"`
	TimeAgo     string `json:"timeAgo"`
}

// StatsView is the display model of the platform statistics feed.
type StatsView struct {
	Display          StatsDisplay        `json:"display"`
	RecentActivities []FormattedActivity `json:"recentActivities"`
	TopCommunities   []CommunityStats    `json:"topCommunities"`
}

// StatsFreshFor is how long platform statistics count as fresh.
const StatsFreshFor = 5 * time.Minute

// Display builds the headline figures.
func (s PlatformStats) Display() StatsDisplay {
	return StatsDisplay{
		Communities:   Stat{s.TotalCommunities, FormatNumber(s.TotalCommunities), "Communities Created"},
		Funds:         Stat{s.TotalFundsManaged, FormatCurrency(s.TotalFundsManaged), "Total Funds Managed"},
		Members:       Stat{s.TotalMembers, FormatNumber(s.TotalMembers), "Active Members"},
		Projects:      Stat{s.TotalProjects, FormatNumber(s.TotalProjects), "Projects Completed"},
		Participation: Stat{s.AverageParticipationRate, FormatPercentage(s.AverageParticipationRate), "Average Participation"},
		Growth:        Stat{s.MonthlyGrowth, FormatPercentage(s.MonthlyGrowth), "Monthly Growth"},
	}
}

// Activities formats the recent activity list relative to now.
func (s PlatformStats) Activities(now time.Time) []FormattedActivity {
	out := make([]FormattedActivity, 0, len(s.RecentActivities))
	for _, a := range s.RecentActivities {
		out = append(out, formatActivity(a, now))
	}
	return out
}

// View builds the full display model.
func (s PlatformStats) View(now time.Time) StatsView {
	return StatsView{
		Display:          s.Display(),
		RecentActivities: s.Activities(now),
		TopCommunities:   s.TopCommunities,
	}
}

func formatActivity(a Activity, now time.Time) FormattedActivity {
	f := FormattedActivity{Activity: a}
	if t, ok := parseTime(a.Timestamp); ok {
		f.TimeAgo = TimeAgo(t, now)
	}

	switch a.Type {
	case ActivityProposalFunded:
		f.DisplayText = a.Title + " received " + FormatCurrency(deref(a.Amount))
		f.Icon = "💰"
	case ActivityCommunityCreated:
		f.DisplayText = a.Title + " created with " + itoa(a.Members) + " members"
		f.Icon = "🏘️"
	case ActivityVotingCompleted:
		f.DisplayText = a.Title + " completed with " + itoa(a.Votes) + " votes"
		f.Icon = "🗳️"
	default:
		f.DisplayText = a.Title
		f.Icon = "📊"
	}
	return f
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func itoa(p *int) string {
	if p == nil {
		return "0"
	}
	return strconv.Itoa(*p)
}
