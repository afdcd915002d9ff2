// Package advice drafts the free-text guidance that accompanies pipeline
// decisions: improvement plans for struggling agents and operator briefs for
// escalations. Drafting uses the Anthropic API; every caller falls back to
// the deterministic templates when no client is configured or a call fails,
// so review outcomes never depend on the LLM.
package advice

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mstanton/overseer/internal/models"
)

// Client wraps the Anthropic API for advisory text generation.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an advice client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildPlanPrompt constructs the prompts for an agent improvement plan.
func buildPlanPrompt(perf models.AgentPerformance, recentIssues []string) (system string, user string) {
	system = `You write performance improvement plans for automated development agents in a code review pipeline. Given an agent's review statistics and its recent quality issues, write a concise improvement plan in plain markdown.

Rules:
- Open with a one-paragraph assessment of the agent's performance
- List 3-5 concrete improvement actions targeting the recurring issue types
- State measurable targets: quality score above 0.80, revision rate below 0.30
- Keep the whole plan under 300 words
- Return plain markdown only, no JSON, no code fencing`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Agent: %s\n", perf.Agent)
	fmt.Fprintf(&sb, "Total reviews: %d\n", perf.TotalReviews)
	fmt.Fprintf(&sb, "Mean quality score: %.2f\n", perf.MeanScore)
	fmt.Fprintf(&sb, "Revision rate: %.2f\n", perf.RevisionRate)
	if len(recentIssues) > 0 {
		sb.WriteString("\nRecent issues:\n")
		for _, iss := range recentIssues {
			fmt.Fprintf(&sb, "- %s\n", iss)
		}
	}
	user = sb.String()
	return
}

// buildEscalationPrompt constructs the prompts for an operator brief.
func buildEscalationPrompt(rec models.Escalation) (system string, user string) {
	system = `You brief a human operator on a work item that failed automated quality review repeatedly and has been escalated. Given the item's history, write a short decision brief in plain markdown.

Rules:
- Summarize in 2-3 sentences why the item keeps failing
- Recommend exactly one next step (reassign, clarify requirements, accept as-is, or rework) and justify it in one sentence
- Keep the brief under 150 words
- Return plain markdown only, no JSON, no code fencing`

	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", rec.FilePath)
	fmt.Fprintf(&sb, "Agent: %s\n", rec.Agent)
	fmt.Fprintf(&sb, "Project: %s\n", rec.Project)
	fmt.Fprintf(&sb, "Revision attempts: %d\n", rec.Attempts)
	fmt.Fprintf(&sb, "Final quality score: %.2f\n", rec.Score)
	if len(rec.Issues) > 0 {
		sb.WriteString("\nPersistent issues:\n")
		for _, iss := range rec.Issues {
			fmt.Fprintf(&sb, "- %s: %s\n", strings.ToUpper(string(iss.Severity)), iss.Description)
		}
	}
	user = sb.String()
	return
}

// ImprovementPlan drafts a tailored improvement plan for an underperforming
// agent.
func (c *Client) ImprovementPlan(ctx context.Context, perf models.AgentPerformance, recentIssues []string) (string, error) {
	systemPrompt, userPrompt := buildPlanPrompt(perf, recentIssues)
	return c.complete(ctx, systemPrompt, userPrompt, 1024)
}

// EscalationBrief drafts the operator-facing summary of an escalation.
func (c *Client) EscalationBrief(ctx context.Context, rec models.Escalation) (string, error) {
	systemPrompt, userPrompt := buildEscalationPrompt(rec)
	return c.complete(ctx, systemPrompt, userPrompt, 512)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text, nil
}
