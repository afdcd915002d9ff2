package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// FileNotifier drops each message as a markdown file under a per-agent
// directory. Agents (or their orchestrators) poll the directory for new
// notices.
type FileNotifier struct {
	Dir string
}

func (n FileNotifier) Notify(agent, message string) error {
	dir := filepath.Join(n.Dir, sanitize(agent))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create notice dir: %w", err)
	}
	name := fmt.Sprintf("notice-%s.md", time.Now().UTC().Format("20060102-150405.000"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
		return fmt.Errorf("write notice: %w", err)
	}
	return nil
}

// WriteRevisionNotice places the revision instructions next to the artifact
// as .revision-<id>.md, where the producing agent will see them.
func WriteRevisionNotice(item *models.WorkItem, instructions string) (string, error) {
	dir := filepath.Dir(item.FilePath)
	path := filepath.Join(dir, fmt.Sprintf(".revision-%s.md", item.ID))
	if err := os.WriteFile(path, []byte(instructions), 0o644); err != nil {
		return "", fmt.Errorf("write revision notice: %w", err)
	}
	return path, nil
}

// FileEscalator stores each escalation as escalation-<work item id>.json in
// a flat directory for operator review.
type FileEscalator struct {
	Dir string
}

func (e FileEscalator) Escalate(rec models.Escalation) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("create escalation dir: %w", err)
	}

	type issueJSON struct {
		IssueType   string `json:"issue_type"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
	}
	issues := make([]issueJSON, 0, len(rec.Issues))
	for _, iss := range rec.Issues {
		issues = append(issues, issueJSON{
			IssueType:   iss.IssueType,
			Severity:    string(iss.Severity),
			Description: iss.Description,
		})
	}

	payload := struct {
		WorkItemID string      `json:"work_item_id"`
		FilePath   string      `json:"file_path"`
		Agent      string      `json:"agent"`
		Project    string      `json:"project"`
		Attempts   int         `json:"revision_attempts"`
		Score      float64     `json:"quality_score"`
		Issues     []issueJSON `json:"issues"`
		Report     string      `json:"report"`
		CreatedAt  time.Time   `json:"created_at"`
	}{
		WorkItemID: rec.WorkItemID,
		FilePath:   rec.FilePath,
		Agent:      rec.Agent,
		Project:    rec.Project,
		Attempts:   rec.Attempts,
		Score:      rec.Score,
		Issues:     issues,
		Report:     rec.Report,
		CreatedAt:  rec.CreatedAt,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}

	path := filepath.Join(e.Dir, fmt.Sprintf("escalation-%s.json", rec.WorkItemID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write escalation: %w", err)
	}
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
