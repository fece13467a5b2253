// Package mockapi serves sample platform feeds for demos and local testing.
//
// Every endpoint answers with the {"success": true, "data": ...} envelope.
// A configurable share of requests fail with 503 so retries, staleness and
// degraded health can be seen on the dashboard.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/pulsefeed/feeds"
)

// Options tunes the mock API.
type Options struct {
	// FailRate is the probability in [0, 1] that a request returns 503.
	FailRate float64

	// MaxLatency adds a random delay of up to this long to each request.
	MaxLatency time.Duration

	Logger *slog.Logger
}

// API is the mock feed server. Create it with [New].
type API struct {
	opts Options

	mu    sync.Mutex
	stats feeds.PlatformStats
	down  bool
}

// New returns an API with seeded sample data.
func New(opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &API{opts: opts, stats: sampleStats(time.Now())}
}

// Handler returns the routes:
//
//	GET  /api/stats/platform
//	GET  /api/team
//	GET  /api/testimonials
//	POST /api/outage?down=true|false  (force every feed to fail)
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stats/platform", a.serve(a.platformStats))
	mux.HandleFunc("GET /api/team", a.serve(func() any { return sampleTeam() }))
	mux.HandleFunc("GET /api/testimonials", a.serve(func() any { return sampleTestimonials() }))
	mux.HandleFunc("POST /api/outage", a.handleOutage)
	return mux
}

// SetDown forces every feed endpoint to fail until cleared.
func (a *API) SetDown(down bool) {
	a.mu.Lock()
	a.down = down
	a.mu.Unlock()
}

func (a *API) serve(payload func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.opts.MaxLatency > 0 {
			time.Sleep(rand.N(a.opts.MaxLatency))
		}

		a.mu.Lock()
		down := a.down
		a.mu.Unlock()

		if down || rand.Float64() < a.opts.FailRate {
			a.opts.Logger.Info("mock failure", "path", r.URL.Path)
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"success": true, "data": payload()}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			a.opts.Logger.Error("failed to write response", "error", err)
		}
	}
}

func (a *API) handleOutage(w http.ResponseWriter, r *http.Request) {
	down := r.URL.Query().Get("down") != "false"
	a.SetDown(down)
	a.opts.Logger.Info("outage toggled", "down", down)
	w.WriteHeader(http.StatusNoContent)
}

// platformStats drifts the counters a little on every call.
func (a *API) platformStats() any {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &a.stats
	s.TotalMembers += float64(rand.IntN(25))
	s.TotalVotes += float64(rand.IntN(120))
	s.TotalFundsRaised += float64(rand.IntN(5000))
	s.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	cp := *s
	cp.TopCommunities = append([]feeds.CommunityStats(nil), s.TopCommunities...)
	cp.RecentActivities = append([]feeds.Activity(nil), s.RecentActivities...)
	return cp
}

func sampleStats(now time.Time) feeds.PlatformStats {
	amount := 25000.0
	members := 340
	votes := 1280
	ts := func(d time.Duration) string { return now.Add(-d).UTC().Format(time.RFC3339) }

	return feeds.PlatformStats{
		TotalCommunities:         128,
		TotalFundsManaged:        4_250_000,
		TotalMembers:             18_450,
		TotalProjects:            312,
		TotalFundsRaised:         1_870_000,
		TotalVotes:               96_400,
		AverageParticipationRate: 64,
		MonthlyGrowth:            8.5,
		TopCommunities: []feeds.CommunityStats{
			{ID: "c1", Name: "Riverside Makers", Members: 2100, FundsRaised: 320_000, VotingParticipation: 71},
			{ID: "c2", Name: "Harbour Growers", Members: 1650, FundsRaised: 210_000, VotingParticipation: 66},
		},
		RecentActivities: []feeds.Activity{
			{Type: feeds.ActivityProposalFunded, Title: "Community garden expansion", Amount: &amount, Timestamp: ts(2 * time.Hour)},
			{Type: feeds.ActivityCommunityCreated, Title: "Northside Cyclists", Members: &members, Timestamp: ts(26 * time.Hour)},
			{Type: feeds.ActivityVotingCompleted, Title: "Annual budget", Votes: &votes, Timestamp: ts(72 * time.Hour)},
		},
	}
}

func sampleTeam() feeds.TeamData {
	return feeds.TeamData{
		TeamMembers: []feeds.TeamMember{
			{
				ID: 1, Name: "Ada Byron", Role: "Co-Founder & CEO", Initials: "AB", Active: true,
				JoinDate: "2019-03-01", Skills: []string{"Strategy", "Governance", "Fundraising", "Community"},
				Social: map[string]string{"linkedin": "https://linkedin.com/in/ada", "twitter": ""},
				Stats:  feeds.MemberStats{ProjectsLed: 14, CommunitiesHelped: 40},
			},
			{
				ID: 2, Name: "Grace Hopper", Role: "CTO", Initials: "GH", Active: true,
				JoinDate: "2020-06-15", Skills: []string{"Go", "Distributed Systems"},
				Social: map[string]string{"github": "https://github.com/grace"},
				Stats:  feeds.MemberStats{CodeCommits: 5400, BugsFixed: 310},
			},
			{
				ID: 3, Name: "Alan Turing", Role: "Community Lead", Initials: "AT", Active: false,
				JoinDate: "2022-01-10", Skills: []string{"Onboarding"},
				Stats: feeds.MemberStats{MembersOnboarded: 900, EngagementRate: 82},
			},
		},
		TeamStats: feeds.TeamStats{
			TotalMembers: 3, ActiveMembers: 2, AverageExperience: 4.6,
			TotalProjectsLed: 14, TotalCommunitiesHelped: 40,
		},
		OpenPositions: 2,
		LastUpdated:   time.Now().UTC().Format(time.RFC3339),
	}
}

func sampleTestimonials() feeds.TestimonialsData {
	return feeds.TestimonialsData{
		Testimonials: []feeds.Testimonial{
			{ID: 1, Quote: "Running our food co-op budget in the open changed how people show up to meetings.", Author: "Maya Chen", Role: "Treasurer", Community: "Harbour Growers", Verified: true, Rating: 5, Date: "2026-08-02"},
			{ID: 2, Quote: "Voting takes minutes instead of a whole evening.", Author: "Tom Okafor", Role: "Member", Community: "Riverside Makers", Verified: true, Rating: 4, Date: "2026-07-18"},
			{ID: 3, Quote: "Setup was easy and the team answered every question.", Author: "Lena Fischer", Role: "Organiser", Community: "Northside Cyclists", Verified: false, Rating: 5, Date: "2026-06-30"},
		},
		TotalCount:    3,
		AverageRating: 4.7,
		VerifiedCount: 2,
		LastUpdated:   time.Now().UTC().Format(time.RFC3339),
	}
}
