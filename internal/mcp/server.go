package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mstanton/overseer/internal/intake"
	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/pipeline"
	"github.com/mstanton/overseer/internal/store"
)

// Server wraps the review pipeline and exposes it as MCP tools, so agents
// can submit artifacts and inspect their own standing.
type Server struct {
	store   store.Store
	pipe    *pipeline.Pipeline
	builder *intake.Builder
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(s store.Store, p *pipeline.Pipeline, b *intake.Builder) *Server {
	if b == nil {
		b = intake.NewBuilder()
	}
	return &Server{store: s, pipe: p, builder: b}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("overseer", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.submitReviewTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.agentPerformanceTool())
	srv.AddTool(s.projectHealthTool())
	srv.AddTool(s.listEscalationsTool())
	srv.AddTool(s.dashboardTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// overseer_submit_review
func (s *Server) submitReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_submit_review",
		mcp.WithDescription("Submit an artifact for quality review. The item is queued and reviewed asynchronously; use overseer_list_reviews to see the outcome. Returns the queued work item ID."),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the artifact file")),
		mcp.WithString("content", mcp.Description("Artifact content; when omitted the file is read from disk")),
		mcp.WithString("agent", mcp.Description("Agent that produced the artifact (default: attributed from git history)")),
		mcp.WithString("project", mcp.Description("Project name (default: derived from the file path)")),
	)
	return tool, s.handleSubmitReview
}

func (s *Server) handleSubmitReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: file_path"), nil
	}

	content := request.GetString("content", "")
	var item *models.WorkItem
	if content != "" {
		item, err = s.builder.FromContent(filePath, content)
	} else {
		item, err = s.builder.Build(filePath)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build work item: %v", err)), nil
	}

	if agent := request.GetString("agent", ""); agent != "" {
		item.Agent = agent
	}
	if project := request.GetString("project", ""); project != "" {
		item.Project = project
	}

	if err := s.pipe.Enqueue(item); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to enqueue: %v", err)), nil
	}

	result := map[string]any{
		"id":        item.ID,
		"file_path": item.FilePath,
		"work_type": string(item.WorkType),
		"agent":     item.Agent,
		"project":   item.Project,
		"status":    string(models.WorkStatusPending),
	}
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// overseer_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_list_reviews",
		mcp.WithDescription("List completed reviews, optionally filtered by agent, project, and/or status. Returns a JSON array of review records, newest first. Each record has: status (approved/needs_revision/escalated/error), revision_count, metrics with the overall score, and the detected issues."),
		mcp.WithString("agent", mcp.Description("Agent name to filter by")),
		mcp.WithString("project", mcp.Description("Project name to filter by")),
		mcp.WithString("status", mcp.Description("Status filter: approved, needs_revision, escalated, error")),
		mcp.WithString("limit", mcp.Description("Maximum number of records to return")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ReviewFilter{
		Agent:   request.GetString("agent", ""),
		Project: request.GetString("project", ""),
		Status:  models.WorkStatus(request.GetString("status", "")),
	}
	if limit := request.GetString("limit", ""); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return mcp.NewToolResultError(fmt.Sprintf("invalid limit: %s", limit)), nil
		}
		filter.Limit = n
	}

	recs, err := s.store.ListReviewResults(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = reviewOut(rec)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// overseer_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_get_review",
		mcp.WithDescription("Get one review record by ID, including the full issue list with suggested fixes."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review record ID")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}

	rec, err := s.store.GetReviewResult(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
	}

	data, err := json.Marshal(reviewOut(rec))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// overseer_agent_performance
func (s *Server) agentPerformanceTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_agent_performance",
		mcp.WithDescription("Get the running performance record for an agent: total reviews, pass/fail counts, mean quality score, revision rate, and whether the agent is currently flagged as underperforming."),
		mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name")),
	)
	return tool, s.handleAgentPerformance
}

func (s *Server) handleAgentPerformance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := request.RequireString("agent")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: agent"), nil
	}

	tr := s.pipe.Tracker()
	perf, ok := tr.AgentPerformance(agent)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no reviews recorded for agent: %s", agent)), nil
	}

	under := false
	for _, u := range tr.Underperformers() {
		if u.Agent == agent {
			under = true
			break
		}
	}

	result := map[string]any{
		"agent":           perf.Agent,
		"total_reviews":   perf.TotalReviews,
		"passed":          perf.Passed,
		"failed":          perf.Failed,
		"mean_score":      perf.MeanScore,
		"revision_rate":   perf.RevisionRate,
		"underperforming": under,
	}
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal performance: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// overseer_project_health
func (s *Server) projectHealthTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_project_health",
		mcp.WithDescription("Get the last computed health for a project: mean quality score of in-flight items and the health bucket (excellent/good/fair/poor)."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
	)
	return tool, s.handleProjectHealth
}

func (s *Server) handleProjectHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}

	h, ok := s.pipe.Tracker().ProjectHealth(project)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no health data for project: %s", project)), nil
	}

	result := map[string]any{
		"project":      h.Project,
		"mean_score":   h.MeanScore,
		"status":       string(h.Status),
		"item_count":   h.ItemCount,
		"last_updated": h.LastUpdated.Format(time.RFC3339),
	}
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal health: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// overseer_list_escalations
func (s *Server) listEscalationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_list_escalations",
		mcp.WithDescription("List items escalated to human review after exhausting their revision attempts, newest first. Each record includes the full escalation report."),
		mcp.WithString("limit", mcp.Description("Maximum number of records to return")),
	)
	return tool, s.handleListEscalations
}

func (s *Server) handleListEscalations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if v := request.GetString("limit", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return mcp.NewToolResultError(fmt.Sprintf("invalid limit: %s", v)), nil
		}
		limit = n
	}

	recs, err := s.store.ListEscalations(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list escalations: %v", err)), nil
	}

	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = map[string]any{
			"id":           rec.ID,
			"work_item_id": rec.WorkItemID,
			"file_path":    rec.FilePath,
			"agent":        rec.Agent,
			"project":      rec.Project,
			"attempts":     rec.Attempts,
			"score":        rec.Score,
			"report":       rec.Report,
			"created_at":   rec.CreatedAt.Format(time.RFC3339),
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal escalations: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// overseer_dashboard
func (s *Server) dashboardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("overseer_dashboard",
		mcp.WithDescription("Get pipeline-wide counters: total/passed/failed reviews, auto-fix count, queue backlog, per-agent mean scores, and per-project health."),
	)
	return tool, s.handleDashboard
}

func (s *Server) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.pipe.Tracker().Snapshot()

	health := make(map[string]any, len(snap.ProjectHealth))
	for name, h := range snap.ProjectHealth {
		health[name] = map[string]any{
			"mean_score": h.MeanScore,
			"status":     string(h.Status),
			"item_count": h.ItemCount,
		}
	}

	result := map[string]any{
		"total_reviews":  snap.TotalReviews,
		"passed_reviews": snap.PassedReviews,
		"failed_reviews": snap.FailedReviews,
		"auto_fixes":     snap.AutoFixes,
		"queue_length":   s.pipe.QueueLen(),
		"active_items":   len(s.pipe.ActiveItems()),
		"agent_scores":   snap.AgentScores,
		"project_health": health,
	}
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal dashboard: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func reviewOut(rec *models.ReviewRecord) map[string]any {
	issues := make([]map[string]any, len(rec.Issues))
	for i, iss := range rec.Issues {
		issues[i] = map[string]any{
			"issue_type":    iss.IssueType,
			"severity":      string(iss.Severity),
			"description":   iss.Description,
			"suggested_fix": iss.SuggestedFix,
			"auto_fixable":  iss.AutoFixable,
		}
	}
	return map[string]any{
		"id":             rec.ID,
		"work_item_id":   rec.WorkItemID,
		"work_type":      string(rec.WorkType),
		"file_path":      rec.FilePath,
		"agent":          rec.Agent,
		"project":        rec.Project,
		"status":         string(rec.Status),
		"revision_count": rec.RevisionCount,
		"metrics": map[string]any{
			"code_quality":    rec.Metrics.CodeQuality,
			"test_coverage":   rec.Metrics.TestCoverage,
			"documentation":   rec.Metrics.Documentation,
			"security":        rec.Metrics.Security,
			"performance":     rec.Metrics.Performance,
			"arch_compliance": rec.Metrics.ArchCompliance,
			"overall_score":   rec.Metrics.OverallScore,
		},
		"issues":     issues,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
	}
}
