// Package api exposes the review pipeline over REST: artifact submission,
// review history, agent performance, project health, and the dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mstanton/overseer/internal/intake"
	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/pipeline"
	"github.com/mstanton/overseer/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store   store.Store
	pipe    *pipeline.Pipeline
	builder *intake.Builder
}

// NewServer creates a new API server.
func NewServer(s store.Store, p *pipeline.Pipeline, b *intake.Builder) *Server {
	if b == nil {
		b = intake.NewBuilder()
	}
	return &Server{store: s, pipe: p, builder: b}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reviews", s.submitReview)
	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)

	mux.HandleFunc("GET /api/v1/agents", s.listAgents)
	mux.HandleFunc("GET /api/v1/agents/{name}", s.getAgent)

	mux.HandleFunc("GET /api/v1/projects/{name}/health", s.projectHealth)

	mux.HandleFunc("GET /api/v1/escalations", s.listEscalations)

	mux.HandleFunc("GET /api/v1/dashboard", s.dashboard)
	mux.HandleFunc("GET /api/v1/status", s.statusOverview)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseLimit(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// --- Reviews ---

type submitRequest struct {
	FilePath     string   `json:"file_path"`
	Agent        string   `json:"agent"`
	Project      string   `json:"project"`
	WorkType     string   `json:"work_type"`
	Content      string   `json:"content"`
	Requirements []string `json:"requirements"`
}

// submitReview enqueues a work item. Content may be supplied inline; when it
// is omitted the artifact is snapshotted from file_path, the same way the
// watcher would.
func (s *Server) submitReview(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	var (
		item *models.WorkItem
		err  error
	)
	if req.Content != "" {
		item, err = s.builder.FromContent(req.FilePath, req.Content)
	} else {
		item, err = s.builder.Build(req.FilePath)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Agent != "" {
		item.Agent = req.Agent
	}
	if req.Project != "" {
		item.Project = req.Project
	}
	if req.WorkType != "" {
		item.WorkType = models.WorkType(req.WorkType)
	}
	if len(req.Requirements) > 0 {
		item.Requirements = req.Requirements
	}

	if err := s.pipe.Enqueue(item); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     item.ID,
		"status": string(models.WorkStatusPending),
	})
}

type metricsResponse struct {
	CodeQuality    float64 `json:"code_quality"`
	TestCoverage   float64 `json:"test_coverage"`
	Documentation  float64 `json:"documentation"`
	Security       float64 `json:"security"`
	Performance    float64 `json:"performance"`
	ArchCompliance float64 `json:"arch_compliance"`
	OverallScore   float64 `json:"overall_score"`
}

type issueResponse struct {
	IssueType    string `json:"issue_type"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
	AutoFixable  bool   `json:"auto_fixable"`
}

type reviewResponse struct {
	ID            string          `json:"id"`
	WorkItemID    string          `json:"work_item_id"`
	WorkType      string          `json:"work_type"`
	FilePath      string          `json:"file_path"`
	Agent         string          `json:"agent"`
	Project       string          `json:"project"`
	Status        string          `json:"status"`
	RevisionCount int             `json:"revision_count"`
	Metrics       metricsResponse `json:"metrics"`
	Issues        []issueResponse `json:"issues"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toReviewResponse(rec *models.ReviewRecord) reviewResponse {
	resp := reviewResponse{
		ID:            rec.ID,
		WorkItemID:    rec.WorkItemID,
		WorkType:      string(rec.WorkType),
		FilePath:      rec.FilePath,
		Agent:         rec.Agent,
		Project:       rec.Project,
		Status:        string(rec.Status),
		RevisionCount: rec.RevisionCount,
		Metrics: metricsResponse{
			CodeQuality:    rec.Metrics.CodeQuality,
			TestCoverage:   rec.Metrics.TestCoverage,
			Documentation:  rec.Metrics.Documentation,
			Security:       rec.Metrics.Security,
			Performance:    rec.Metrics.Performance,
			ArchCompliance: rec.Metrics.ArchCompliance,
			OverallScore:   rec.Metrics.OverallScore,
		},
		Issues:    []issueResponse{},
		CreatedAt: rec.CreatedAt,
	}
	for _, iss := range rec.Issues {
		resp.Issues = append(resp.Issues, issueResponse{
			IssueType:    iss.IssueType,
			Severity:     string(iss.Severity),
			Description:  iss.Description,
			SuggestedFix: iss.SuggestedFix,
			AutoFixable:  iss.AutoFixable,
		})
	}
	return resp
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	q := r.URL.Query()
	filter := store.ReviewFilter{
		Agent:   q.Get("agent"),
		Project: q.Get("project"),
		Status:  models.WorkStatus(q.Get("status")),
		Since:   q.Get("since"),
		Limit:   limit,
	}

	recs, err := s.store.ListReviewResults(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]reviewResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toReviewResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetReviewResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toReviewResponse(rec))
}

// --- Agents ---

type agentResponse struct {
	Agent           string  `json:"agent"`
	TotalReviews    int     `json:"total_reviews"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	MeanScore       float64 `json:"mean_score"`
	RevisionRate    float64 `json:"revision_rate"`
	Underperforming bool    `json:"underperforming"`
}

func toAgentResponse(perf models.AgentPerformance, under bool) agentResponse {
	return agentResponse{
		Agent:           perf.Agent,
		TotalReviews:    perf.TotalReviews,
		Passed:          perf.Passed,
		Failed:          perf.Failed,
		MeanScore:       perf.MeanScore,
		RevisionRate:    perf.RevisionRate,
		Underperforming: under,
	}
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	tr := s.pipe.Tracker()
	under := make(map[string]bool)
	for _, perf := range tr.Underperformers() {
		under[perf.Agent] = true
	}

	out := []agentResponse{}
	for _, perf := range tr.Agents() {
		out = append(out, toAgentResponse(perf, under[perf.Agent]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tr := s.pipe.Tracker()
	perf, ok := tr.AgentPerformance(name)
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found: "+name)
		return
	}

	under := false
	for _, u := range tr.Underperformers() {
		if u.Agent == name {
			under = true
			break
		}
	}
	writeJSON(w, http.StatusOK, toAgentResponse(perf, under))
}

// --- Projects ---

type projectHealthResponse struct {
	Project     string    `json:"project"`
	MeanScore   float64   `json:"mean_score"`
	Status      string    `json:"status"`
	ItemCount   int       `json:"item_count"`
	LastUpdated time.Time `json:"last_updated"`
}

func toProjectHealthResponse(h models.ProjectHealth) projectHealthResponse {
	return projectHealthResponse{
		Project:     h.Project,
		MeanScore:   h.MeanScore,
		Status:      string(h.Status),
		ItemCount:   h.ItemCount,
		LastUpdated: h.LastUpdated,
	}
}

func (s *Server) projectHealth(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h, ok := s.pipe.Tracker().ProjectHealth(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no health data for project: "+name)
		return
	}
	writeJSON(w, http.StatusOK, toProjectHealthResponse(h))
}

// --- Escalations ---

type escalationResponse struct {
	ID         string    `json:"id"`
	WorkItemID string    `json:"work_item_id"`
	FilePath   string    `json:"file_path"`
	Agent      string    `json:"agent"`
	Project    string    `json:"project"`
	Attempts   int       `json:"attempts"`
	Score      float64   `json:"score"`
	Report     string    `json:"report"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) listEscalations(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	recs, err := s.store.ListEscalations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]escalationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, escalationResponse{
			ID:         rec.ID,
			WorkItemID: rec.WorkItemID,
			FilePath:   rec.FilePath,
			Agent:      rec.Agent,
			Project:    rec.Project,
			Attempts:   rec.Attempts,
			Score:      rec.Score,
			Report:     rec.Report,
			CreatedAt:  rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Dashboard / status ---

type dashboardResponse struct {
	TotalReviews  int                              `json:"total_reviews"`
	PassedReviews int                              `json:"passed_reviews"`
	FailedReviews int                              `json:"failed_reviews"`
	AutoFixes     int                              `json:"auto_fixes"`
	QueueLength   int                              `json:"queue_length"`
	ActiveItems   int                              `json:"active_items"`
	AgentScores   map[string]float64               `json:"agent_scores"`
	ProjectHealth map[string]projectHealthResponse `json:"project_health"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.pipe.Tracker().Snapshot()

	health := make(map[string]projectHealthResponse, len(snap.ProjectHealth))
	for name, h := range snap.ProjectHealth {
		health[name] = toProjectHealthResponse(h)
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		TotalReviews:  snap.TotalReviews,
		PassedReviews: snap.PassedReviews,
		FailedReviews: snap.FailedReviews,
		AutoFixes:     snap.AutoFixes,
		QueueLength:   s.pipe.QueueLen(),
		ActiveItems:   len(s.pipe.ActiveItems()),
		AgentScores:   snap.AgentScores,
		ProjectHealth: health,
	})
}

type statusResponse struct {
	TotalReviews    int       `json:"total_reviews"`
	Approved        int       `json:"approved"`
	NeedsRevision   int       `json:"needs_revision"`
	Escalated       int       `json:"escalated"`
	Errors          int       `json:"errors"`
	MeanScore       float64   `json:"mean_score"`
	OpenEscalations int       `json:"open_escalations"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// statusOverview reports the persisted history, including error items so
// operators can tell reviewer failures apart from rejected artifacts.
func (s *Server) statusOverview(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.HealthSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		TotalReviews:    snap.TotalReviews,
		Approved:        snap.Approved,
		NeedsRevision:   snap.NeedsRevision,
		Escalated:       snap.Escalated,
		Errors:          snap.Errors,
		MeanScore:       snap.MeanScore,
		OpenEscalations: snap.OpenEscalations,
		GeneratedAt:     snap.GeneratedAt,
	})
}
