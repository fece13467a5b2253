package feeds

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// TeamData is the payload of the team feed.
type TeamData struct {
	TeamMembers   []TeamMember `json:"teamMembers"`
	TeamStats     TeamStats    `json:"teamStats"`
	OpenPositions int          `json:"openPositions"`
	LastUpdated   string       `json:"lastUpdated"`
}

type TeamMember struct {
	ID       int               `json:"id"`
	Name     string            `json:"name"`
	Role     string            `json:"role"`
	Bio      string            `json:"bio"`
	Image    string            `json:"image,omitempty"`
	Initials string            `json:"initials"`
	Active   bool              `json:"active"`
	JoinDate string            `json:"joinDate"`
	Skills   []string          `json:"skills"`
	Social   map[string]string `json:"social"`
	Stats    MemberStats       `json:"stats"`
}

type MemberStats struct {
	ProjectsLed        int     `json:"projectsLed,omitempty"`
	CommunitiesHelped  int     `json:"communitiesHelped,omitempty"`
	CommunitiesManaged int     `json:"communitiesManaged,omitempty"`
	MembersOnboarded   int     `json:"membersOnboarded,omitempty"`
	EngagementRate     float64 `json:"engagementRate,omitempty"`
	CodeCommits        int     `json:"codeCommits,omitempty"`
	CodeGenerated      int     `json:"codeGenerated,omitempty"`
	BugsFixed          int     `json:"bugsFixed,omitempty"`
	TestsWritten       int     `json:"testsWritten,omitempty"`
}

type TeamStats struct {
	TotalMembers           int     `json:"totalMembers"`
	ActiveMembers          int     `json:"activeMembers"`
	AverageExperience      float64 `json:"averageExperience"`
	TotalProjectsLed       int     `json:"totalProjectsLed"`
	TotalCommunitiesHelped int     `json:"totalCommunitiesHelped"`
}

// PrimaryStat is the single figure highlighted on a member card.
type PrimaryStat struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// SocialLink is one non-empty social profile.
type SocialLink struct {
	Network string `json:"network"`
	URL     string `json:"url"`
}

type FormattedMember struct {
	TeamMember
	ExperienceYears   int          `json:"experienceYears"`
	SkillsDisplay     string       `json:"skillsDisplay"`
	SocialLinks       []SocialLink `json:"socialLinks"`
	PrimaryStat       PrimaryStat  `json:"primaryStat"`
	IsFounder         bool         `json:"isFounder"`
	JoinDateFormatted string       `json:"joinDateFormatted"`
}

type FormattedTeamStats struct {
	TeamStats
	AverageExperienceFormatted string  `json:"averageExperienceFormatted"`
	ActiveRate                 float64 `json:"activeRate"`
	ActiveRateFormatted        string  `json:"activeRateFormatted"`
	GrowthIndicator            string  `json:"growthIndicator"`
}

// TeamView is the display model of the team feed.
type TeamView struct {
	Members  []FormattedMember       `json:"members"`
	Stats    FormattedTeamStats      `json:"stats"`
	Founders []TeamMember            `json:"founders"`
	ByRole   map[string][]TeamMember `json:"byRole"`
}

// TeamFreshFor is how long team data counts as fresh.
const TeamFreshFor = 60 * time.Minute

// IsFounder reports whether the member's role names them a founder or
// co-founder.
func (m TeamMember) IsFounder() bool {
	return strings.Contains(strings.ToLower(m.Role), "founder")
}

// Format builds the display card for m relative to now.
func (m TeamMember) Format(now time.Time) FormattedMember {
	f := FormattedMember{
		TeamMember:    m,
		SkillsDisplay: skillsDisplay(m.Skills),
		SocialLinks:   socialLinks(m.Social),
		PrimaryStat:   m.Stats.primary(),
		IsFounder:     m.IsFounder(),
	}
	if joined, ok := parseTime(m.JoinDate); ok {
		f.ExperienceYears = now.Year() - joined.Year()
		f.JoinDateFormatted = joined.Format("January 2006")
	}
	return f
}

func skillsDisplay(skills []string) string {
	if len(skills) <= 3 {
		return strings.Join(skills, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(skills[:3], ", "), len(skills)-3)
}

func socialLinks(social map[string]string) []SocialLink {
	links := make([]SocialLink, 0, len(social))
	for network, url := range social {
		if url != "" {
			links = append(links, SocialLink{Network: network, URL: url})
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Network < links[j].Network })
	return links
}

func (s MemberStats) primary() PrimaryStat {
	candidates := []PrimaryStat{
		{"Projects Led", s.ProjectsLed},
		{"Communities Helped", s.CommunitiesHelped},
		{"Communities Managed", s.CommunitiesManaged},
		{"Members Onboarded", s.MembersOnboarded},
		{"Code Commits", s.CodeCommits},
		{"Lines of Code", s.CodeGenerated},
		{"Bugs Fixed", s.BugsFixed},
		{"Tests Written", s.TestsWritten},
	}
	for _, c := range candidates {
		if c.Value != 0 {
			return c
		}
	}
	return PrimaryStat{Label: "Team Member", Value: 1}
}

// FormattedStats decorates the aggregate team figures.
func (d TeamData) FormattedStats() FormattedTeamStats {
	s := d.TeamStats
	f := FormattedTeamStats{
		TeamStats:                  s,
		AverageExperienceFormatted: fmt.Sprintf("%.1f years", s.AverageExperience),
		ActiveRateFormatted:        "0%",
		GrowthIndicator:            "✅",
	}
	if s.TotalMembers > 0 {
		f.ActiveRate = float64(s.ActiveMembers) / float64(s.TotalMembers)
		f.ActiveRateFormatted = fmt.Sprintf("%d%%", int(math.Round(f.ActiveRate*100)))
	}
	if d.OpenPositions > 0 {
		f.GrowthIndicator = "📈"
	}
	return f
}

// Founders returns the members whose role names them a founder.
func (d TeamData) Founders() []TeamMember {
	var out []TeamMember
	for _, m := range d.TeamMembers {
		if m.IsFounder() {
			out = append(out, m)
		}
	}
	return out
}

// ByRole groups members under "founders" and "team".
func (d TeamData) ByRole() map[string][]TeamMember {
	groups := make(map[string][]TeamMember)
	for _, m := range d.TeamMembers {
		key := "team"
		if m.IsFounder() {
			key = "founders"
		}
		groups[key] = append(groups[key], m)
	}
	return groups
}

// View builds the full display model.
func (d TeamData) View(now time.Time) TeamView {
	members := make([]FormattedMember, 0, len(d.TeamMembers))
	for _, m := range d.TeamMembers {
		members = append(members, m.Format(now))
	}
	return TeamView{
		Members:  members,
		Stats:    d.FormattedStats(),
		Founders: d.Founders(),
		ByRole:   d.ByRole(),
	}
}
