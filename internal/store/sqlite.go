package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mstanton/overseer/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from the API server and the
	// review consumer writing at the same time.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	return ulid.Make().String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Review results ---

// PutReviewResult writes the review outcome and its issues in a single
// transaction. A reader never sees a result without its issues.
func (s *SQLiteStore) PutReviewResult(ctx context.Context, item *models.WorkItem) (*models.ReviewRecord, error) {
	rec := &models.ReviewRecord{
		ID:            newULID(),
		WorkItemID:    item.ID,
		WorkType:      item.WorkType,
		FilePath:      item.FilePath,
		Agent:         item.Agent,
		Project:       item.Project,
		Status:        item.Status,
		RevisionCount: item.RevisionCount,
		Metrics:       item.Metrics,
		Issues:        item.Issues,
		CreatedAt:     time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO review_results (id, work_item_id, work_type, file_path, agent, project, status, revision_count,
			code_quality, test_coverage, documentation, security, performance, arch_compliance, overall_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkItemID, string(rec.WorkType), rec.FilePath, rec.Agent, rec.Project,
		string(rec.Status), rec.RevisionCount,
		rec.Metrics.CodeQuality, rec.Metrics.TestCoverage, rec.Metrics.Documentation,
		rec.Metrics.Security, rec.Metrics.Performance, rec.Metrics.ArchCompliance,
		rec.Metrics.OverallScore, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert review result: %w", err)
	}

	for i := range rec.Issues {
		iss := &rec.Issues[i]
		detected := iss.DetectedAt
		if detected.IsZero() {
			detected = rec.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO quality_issues (id, review_id, issue_type, severity, description, file_path, line, suggested_fix, auto_fixable, agent, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newULID(), rec.ID, iss.IssueType, string(iss.Severity), iss.Description,
			iss.FilePath, iss.Line, iss.SuggestedFix, boolToInt(iss.AutoFixable), iss.Agent, detected,
		)
		if err != nil {
			return nil, fmt.Errorf("insert quality issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review result: %w", err)
	}
	return rec, nil
}

// GetReviewResult returns one review record with its issues.
func (s *SQLiteStore) GetReviewResult(ctx context.Context, id string) (*models.ReviewRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, work_item_id, work_type, file_path, agent, project, status, revision_count,
			code_quality, test_coverage, documentation, security, performance, arch_compliance, overall_score, created_at
		FROM review_results WHERE id = ?`, id)

	rec, err := scanReviewRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review result not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	issues, err := s.issuesForReview(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Issues = issues
	return rec, nil
}

// ListReviewResults returns records matching the filter, newest first.
func (s *SQLiteStore) ListReviewResults(ctx context.Context, filter ReviewFilter) ([]*models.ReviewRecord, error) {
	query := `SELECT id, work_item_id, work_type, file_path, agent, project, status, revision_count,
		code_quality, test_coverage, documentation, security, performance, arch_compliance, overall_score, created_at
	FROM review_results`

	var conds []string
	var args []any
	if filter.Agent != "" {
		conds = append(conds, "agent = ?")
		args = append(args, filter.Agent)
	}
	if filter.Project != "" {
		conds = append(conds, "project = ?")
		args = append(args, filter.Project)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != "" {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.Since)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review results: %w", err)
	}
	defer rows.Close()

	var recs []*models.ReviewRecord
	for rows.Next() {
		rec, err := scanReviewRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rec := range recs {
		issues, err := s.issuesForReview(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Issues = issues
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewRecord(row rowScanner) (*models.ReviewRecord, error) {
	var rec models.ReviewRecord
	var workType, status string
	err := row.Scan(
		&rec.ID, &rec.WorkItemID, &workType, &rec.FilePath, &rec.Agent, &rec.Project,
		&status, &rec.RevisionCount,
		&rec.Metrics.CodeQuality, &rec.Metrics.TestCoverage, &rec.Metrics.Documentation,
		&rec.Metrics.Security, &rec.Metrics.Performance, &rec.Metrics.ArchCompliance,
		&rec.Metrics.OverallScore, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.WorkType = models.WorkType(workType)
	rec.Status = models.WorkStatus(status)
	return &rec, nil
}

func (s *SQLiteStore) issuesForReview(ctx context.Context, reviewID string) ([]models.QualityIssue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_type, severity, description, file_path, line, suggested_fix, auto_fixable, agent, detected_at
		FROM quality_issues WHERE review_id = ? ORDER BY id`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list quality issues: %w", err)
	}
	defer rows.Close()

	var issues []models.QualityIssue
	for rows.Next() {
		var iss models.QualityIssue
		var severity string
		var fixable int
		if err := rows.Scan(&iss.IssueType, &severity, &iss.Description, &iss.FilePath,
			&iss.Line, &iss.SuggestedFix, &fixable, &iss.Agent, &iss.DetectedAt); err != nil {
			return nil, err
		}
		iss.Severity = models.Severity(severity)
		iss.AutoFixable = fixable == 1
		issues = append(issues, iss)
	}
	return issues, rows.Err()
}

// --- Escalations ---

func (s *SQLiteStore) PutEscalation(ctx context.Context, rec *models.Escalation) error {
	if rec.ID == "" {
		rec.ID = newULID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escalations (id, work_item_id, file_path, agent, project, attempts, score, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkItemID, rec.FilePath, rec.Agent, rec.Project,
		rec.Attempts, rec.Score, rec.Report, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListEscalations(ctx context.Context, limit int) ([]*models.Escalation, error) {
	query := `SELECT id, work_item_id, file_path, agent, project, attempts, score, report, created_at
		FROM escalations ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	var recs []*models.Escalation
	for rows.Next() {
		var rec models.Escalation
		if err := rows.Scan(&rec.ID, &rec.WorkItemID, &rec.FilePath, &rec.Agent, &rec.Project,
			&rec.Attempts, &rec.Score, &rec.Report, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// --- Reporting ---

// HealthSnapshot aggregates the persisted history in one pass.
func (s *SQLiteStore) HealthSnapshot(ctx context.Context) (*models.HealthSnapshot, error) {
	snap := &models.HealthSnapshot{GeneratedAt: time.Now().UTC()}

	var mean sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'needs_revision' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'escalated' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			AVG(overall_score)
		FROM review_results`).Scan(
		&snap.TotalReviews, &snap.Approved, &snap.NeedsRevision,
		&snap.Escalated, &snap.Errors, &mean,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate review results: %w", err)
	}
	if mean.Valid {
		snap.MeanScore = mean.Float64
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM escalations`).Scan(&snap.OpenEscalations); err != nil {
		return nil, fmt.Errorf("count escalations: %w", err)
	}
	return snap, nil
}
