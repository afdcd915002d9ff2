package notify

import (
	"fmt"
	"strings"

	"github.com/mstanton/overseer/internal/models"
)

// RevisionInstructions renders the per-agent revision notice for a failed
// review: metrics, every detected issue with its suggested fix, the project
// requirements, and the attempt counter.
func RevisionInstructions(item *models.WorkItem, minScore float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "REVISION REQUIRED: %s\n\n", item.FilePath)
	fmt.Fprintf(&b, "Quality metrics:\n")
	fmt.Fprintf(&b, "- Overall score: %.2f\n", item.Metrics.OverallScore)
	fmt.Fprintf(&b, "- Code quality: %.2f\n", item.Metrics.CodeQuality)
	fmt.Fprintf(&b, "- Test coverage: %.2f\n", item.Metrics.TestCoverage)
	fmt.Fprintf(&b, "- Documentation: %.2f\n", item.Metrics.Documentation)
	fmt.Fprintf(&b, "- Security: %.2f\n", item.Metrics.Security)

	b.WriteString("\nIssues to fix:\n")
	for _, iss := range item.Issues {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(string(iss.Severity)), iss.Description)
		if iss.SuggestedFix != "" {
			fmt.Fprintf(&b, "  Fix: %s\n", iss.SuggestedFix)
		}
		if iss.Line > 0 {
			fmt.Fprintf(&b, "  Location: %s:%d\n", iss.FilePath, iss.Line)
		} else if iss.FilePath != "" {
			fmt.Fprintf(&b, "  Location: %s\n", iss.FilePath)
		}
	}

	if len(item.Requirements) > 0 {
		b.WriteString("\nRequirements:\n")
		for _, req := range item.Requirements {
			fmt.Fprintf(&b, "- %s\n", req)
		}
	}

	b.WriteString("\nRevision checklist:\n")
	fmt.Fprintf(&b, "1. Address all %d quality issues listed above\n", len(item.Issues))
	fmt.Fprintf(&b, "2. Raise the overall quality score to at least %.2f\n", minScore)
	b.WriteString("3. Follow the project requirements and coding standards\n")
	b.WriteString("4. Test your changes thoroughly\n")
	b.WriteString("5. Document any significant changes\n")

	fmt.Fprintf(&b, "\nThis is revision attempt %d of %d.\n", item.RevisionCount, item.MaxRevisions)
	return b.String()
}

// EscalationReport renders the operator handoff for an item that exhausted
// its revision attempts.
func EscalationReport(item *models.WorkItem) string {
	var b strings.Builder

	b.WriteString("ESCALATION REQUIRED\n\n")
	fmt.Fprintf(&b, "File: %s\n", item.FilePath)
	fmt.Fprintf(&b, "Agent: %s\n", item.Agent)
	fmt.Fprintf(&b, "Project: %s\n", item.Project)
	fmt.Fprintf(&b, "Revision attempts: %d\n", item.RevisionCount)
	fmt.Fprintf(&b, "Quality score: %.2f\n", item.Metrics.OverallScore)

	b.WriteString("\nPersistent issues:\n")
	for _, iss := range item.Issues {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(string(iss.Severity)), iss.Description)
	}

	b.WriteString("\nRecommendations:\n")
	b.WriteString("1. Consider reassigning to a different agent\n")
	b.WriteString("2. Review project requirements for clarity\n")
	b.WriteString("3. Provide additional training or resources\n")
	b.WriteString("4. Evaluate whether the timeline is realistic\n")
	b.WriteString("5. Consider architectural changes\n")

	b.WriteString("\nDecision required:\n")
	b.WriteString("- Approve with current quality (not recommended)\n")
	b.WriteString("- Reassign to a senior developer\n")
	b.WriteString("- Modify requirements\n")
	b.WriteString("- Extend timeline\n")
	return b.String()
}

// ImprovementPlan renders the notice sent to an underperforming agent during
// the performance sweep.
func ImprovementPlan(perf models.AgentPerformance) string {
	var b strings.Builder

	b.WriteString("PERFORMANCE IMPROVEMENT PLAN\n\n")
	fmt.Fprintf(&b, "Agent: %s\n", perf.Agent)
	b.WriteString("Current stats:\n")
	fmt.Fprintf(&b, "- Quality score: %.2f\n", perf.MeanScore)
	fmt.Fprintf(&b, "- Revision rate: %.2f\n", perf.RevisionRate)
	fmt.Fprintf(&b, "- Total reviews: %d\n", perf.TotalReviews)

	b.WriteString("\nImprovement actions:\n")
	b.WriteString("1. Review coding standards and best practices\n")
	b.WriteString("2. Focus on error handling and documentation\n")
	b.WriteString("3. Improve test coverage\n")
	b.WriteString("4. Attend a quality training session\n")
	b.WriteString("5. Pair with a high-performing agent\n")

	b.WriteString("\nTargets:\n")
	b.WriteString("- Quality score above 0.80\n")
	b.WriteString("- Revision rate below 0.30\n")
	b.WriteString("- Timeline: 2 weeks\n")

	b.WriteString("\nContinued underperformance may result in task reassignment.\n")
	return b.String()
}
