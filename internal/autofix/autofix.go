// Package autofix applies deterministic content rewrites for specific issue
// types.
//
// Transformers are pure content-to-content functions keyed by issue type.
// Every transformer must be idempotent: the orchestrator re-runs the full
// reviewer pass after fixing, and a non-idempotent fix would re-trigger
// itself on the rewritten content.
package autofix

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mstanton/overseer/internal/models"
)

// Transformer rewrites content to resolve one issue. It must return the
// input unchanged when the issue is already resolved.
type Transformer func(content string, issue models.QualityIssue) (string, error)

// Engine holds the transformer registry. The registry is built at startup
// and validated eagerly; it is not mutated during review.
type Engine struct {
	transformers map[string]Transformer
	log          *slog.Logger
}

// NewEngine returns an engine with the built-in transformers registered.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		transformers: make(map[string]Transformer),
		log:          log,
	}
	e.Register("missing_error_handling", fixMissingErrorHandling)
	e.Register("missing_logging", fixMissingLogging)
	e.Register("missing_doc_comment", fixMissingDocComment)
	e.Register("missing_section", fixMissingSection)
	e.Register("missing_test_type", fixMissingTestType)
	return e
}

// Register adds or replaces the transformer for an issue type.
func (e *Engine) Register(issueType string, t Transformer) {
	e.transformers[issueType] = t
}

// Validate checks that every issue type in autoFixable has a registered
// transformer. An uncovered type is a configuration error and must fail
// startup rather than surface as a silent runtime skip.
func (e *Engine) Validate(autoFixable []string) error {
	var missing []string
	for _, it := range autoFixable {
		if _, ok := e.transformers[it]; !ok {
			missing = append(missing, it)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("autofix: no transformer registered for issue types %v", missing)
	}
	return nil
}

// Apply attempts to fix one issue in place. It returns true only when the
// content actually changed. Issues that are not auto-fixable, have no
// transformer, or whose transformer fails are skipped; a failing transformer
// means "fix not applied", never a failed review.
func (e *Engine) Apply(item *models.WorkItem, issue models.QualityIssue) bool {
	if !issue.AutoFixable {
		return false
	}
	t, ok := e.transformers[issue.IssueType]
	if !ok {
		return false
	}

	fixed, err := t(item.Content, issue)
	if err != nil {
		e.log.Error("autofix transformer failed",
			"issue_type", issue.IssueType, "file", item.FilePath, "error", err)
		return false
	}
	if fixed == item.Content {
		return false
	}

	item.Content = fixed
	e.log.Info("auto-fixed issue", "issue_type", issue.IssueType, "file", item.FilePath)
	return true
}

// FixAll applies every applicable fix to the item and returns the number of
// issues actually resolved.
func (e *Engine) FixAll(item *models.WorkItem) int {
	fixed := 0
	for _, issue := range item.Issues {
		if e.Apply(item, issue) {
			fixed++
		}
	}
	return fixed
}
