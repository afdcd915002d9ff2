// Package report renders periodic summaries from the aggregator and the
// durable store. It holds no state of its own.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/store"
	"github.com/mstanton/overseer/internal/tracker"
)

// Summary is the headline block of a daily report.
type Summary struct {
	TotalReviews  int     `json:"total_reviews"`
	PassedReviews int     `json:"passed_reviews"`
	FailedReviews int     `json:"failed_reviews"`
	AutoFixes     int     `json:"auto_fixes"`
	PassRate      float64 `json:"pass_rate"`
}

// AgentSummary is the per-agent block of a daily report.
type AgentSummary struct {
	Agent        string  `json:"agent"`
	TotalReviews int     `json:"total_reviews"`
	MeanScore    float64 `json:"mean_score"`
	RevisionRate float64 `json:"revision_rate"`
}

// ProjectSummary is the per-project block of a daily report.
type ProjectSummary struct {
	Project     string  `json:"project"`
	HealthScore float64 `json:"health_score"`
	Status      string  `json:"status"`
	ItemCount   int     `json:"item_count"`
}

// DailyReport is the persisted daily quality report.
type DailyReport struct {
	Date             string           `json:"date"`
	Summary          Summary          `json:"summary"`
	AgentPerformance []AgentSummary   `json:"agent_performance"`
	ProjectHealth    []ProjectSummary `json:"project_health"`
	Escalations      int              `json:"escalations"`
	Recommendations  []string         `json:"recommendations"`
	ImmediateActions []string         `json:"immediate_actions"`
}

// Generator assembles reports from the live aggregator, the store, and the
// pipeline's active set.
type Generator struct {
	Tracker *tracker.Tracker
	Store   store.Store
	Active  func() []*models.WorkItem
	Dir     string
	Log     *slog.Logger
}

// Build assembles the report without writing anything.
func (g *Generator) Build(ctx context.Context) (*DailyReport, error) {
	snap := g.Tracker.Snapshot()

	r := &DailyReport{
		Date: time.Now().UTC().Format("2006-01-02"),
		Summary: Summary{
			TotalReviews:  snap.TotalReviews,
			PassedReviews: snap.PassedReviews,
			FailedReviews: snap.FailedReviews,
			AutoFixes:     snap.AutoFixes,
		},
	}
	if snap.TotalReviews > 0 {
		r.Summary.PassRate = float64(snap.PassedReviews) / float64(snap.TotalReviews)
	}

	agents := g.Tracker.Agents()
	sort.Slice(agents, func(i, j int) bool { return agents[i].Agent < agents[j].Agent })
	for _, a := range agents {
		r.AgentPerformance = append(r.AgentPerformance, AgentSummary{
			Agent:        a.Agent,
			TotalReviews: a.TotalReviews,
			MeanScore:    a.MeanScore,
			RevisionRate: a.RevisionRate,
		})
	}

	var projects []ProjectSummary
	for name, h := range snap.ProjectHealth {
		projects = append(projects, ProjectSummary{
			Project:     name,
			HealthScore: h.MeanScore,
			Status:      string(h.Status),
			ItemCount:   h.ItemCount,
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Project < projects[j].Project })
	r.ProjectHealth = projects

	if g.Store != nil {
		if hs, err := g.Store.HealthSnapshot(ctx); err == nil {
			r.Escalations = hs.OpenEscalations
		} else {
			return nil, fmt.Errorf("health snapshot: %w", err)
		}
	}

	r.Recommendations = recommendations(r)
	r.ImmediateActions = g.immediateActions(r)
	return r, nil
}

// Generate builds the daily report, writes the JSON record plus the
// executive summary, and returns the report.
func (g *Generator) Generate(ctx context.Context) (*DailyReport, error) {
	r, err := g.Build(ctx)
	if err != nil {
		return nil, err
	}
	if g.Dir == "" {
		return r, nil
	}

	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	stamp := strings.ReplaceAll(r.Date, "-", "")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	jsonPath := filepath.Join(g.Dir, fmt.Sprintf("daily-report-%s.json", stamp))
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	mdPath := filepath.Join(g.Dir, fmt.Sprintf("summary-%s.md", stamp))
	if err := os.WriteFile(mdPath, []byte(ExecutiveSummary(r)), 0o644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	if g.Log != nil {
		g.Log.Info("generated daily report", "json", jsonPath, "summary", mdPath)
	}
	return r, nil
}

// recommendations derives advice from the aggregates.
func recommendations(r *DailyReport) []string {
	var recs []string

	if r.Summary.TotalReviews > 0 {
		if r.Summary.PassRate < 0.8 {
			recs = append(recs, "Overall pass rate is below 80%. Consider reviewing coding standards and providing additional training.")
		}
		if r.Summary.PassRate < 0.6 {
			recs = append(recs, "Critical: pass rate is below 60%. Immediate intervention required.")
		}
	}

	var weakAgents []string
	for _, a := range r.AgentPerformance {
		if a.MeanScore < 0.7 && a.TotalReviews > 5 {
			weakAgents = append(weakAgents, a.Agent)
		}
	}
	if len(weakAgents) > 0 {
		recs = append(recs, "The following agents need performance improvement: "+strings.Join(weakAgents, ", "))
	}

	var weakProjects []string
	for _, p := range r.ProjectHealth {
		if p.HealthScore < 0.7 {
			weakProjects = append(weakProjects, p.Project)
		}
	}
	if len(weakProjects) > 0 {
		recs = append(recs, "Projects requiring attention: "+strings.Join(weakProjects, ", "))
	}

	return recs
}

// immediateActions lists the operator actions that should not wait for the
// next report.
func (g *Generator) immediateActions(r *DailyReport) []string {
	var actions []string

	if r.Summary.TotalReviews > 0 {
		if r.Summary.PassRate < 0.5 {
			actions = append(actions, "CRITICAL: pass rate below 50%. Stop all development and review process.")
		}
		if r.Summary.PassRate < 0.7 {
			actions = append(actions, "Conduct emergency training session for all agents.")
		}
	}

	if g.Active != nil {
		stuck := 0
		for _, item := range g.Active() {
			if item.RevisionCount >= 2 {
				stuck++
			}
		}
		if stuck > 0 {
			actions = append(actions, fmt.Sprintf("Review %d stuck work items nearing escalation.", stuck))
		}
	}

	return actions
}

// ExecutiveSummary renders the leadership-facing markdown view of a report.
func ExecutiveSummary(r *DailyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Quality Control Daily Summary\n\n## %s\n\n", r.Date)
	b.WriteString("## Key metrics\n")
	fmt.Fprintf(&b, "- Total reviews: %d\n", r.Summary.TotalReviews)
	fmt.Fprintf(&b, "- Pass rate: %.1f%%\n", r.Summary.PassRate*100)
	fmt.Fprintf(&b, "- Auto-fixes applied: %d\n", r.Summary.AutoFixes)
	fmt.Fprintf(&b, "- Active projects: %d\n", len(r.ProjectHealth))
	fmt.Fprintf(&b, "- Open escalations: %d\n", r.Escalations)

	b.WriteString("\n## Highlights\n")
	fmt.Fprintf(&b, "- Top performing agent: %s\n", topAgent(r.AgentPerformance))
	fmt.Fprintf(&b, "- Healthiest project: %s\n", topProject(r.ProjectHealth))
	if r.Summary.PassRate > 0.8 {
		b.WriteString("- Quality trend: improving\n")
	} else {
		b.WriteString("- Quality trend: needs attention\n")
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}
	if len(r.ImmediateActions) > 0 {
		b.WriteString("\n## Immediate actions required\n")
		for _, a := range r.ImmediateActions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

func topAgent(agents []AgentSummary) string {
	best := "n/a"
	bestScore := -1.0
	for _, a := range agents {
		if a.MeanScore > bestScore {
			best, bestScore = a.Agent, a.MeanScore
		}
	}
	return best
}

func topProject(projects []ProjectSummary) string {
	best := "n/a"
	bestScore := -1.0
	for _, p := range projects {
		if p.HealthScore > bestScore {
			best, bestScore = p.Project, p.HealthScore
		}
	}
	return best
}
