package intake

import (
	"path/filepath"
	"strings"

	"github.com/mstanton/overseer/internal/models"
)

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true,
	".go": true, ".rs": true, ".cpp": true, ".c": true,
}

var docExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true,
}

// ClassifyWorkType picks the reviewer family for a path. Test files are
// recognized before plain code so that handler_test.go reaches the test
// reviewer rather than the code reviewer.
func ClassifyWorkType(path string) models.WorkType {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.ToLower(filepath.Base(path))

	switch {
	case strings.Contains(base, "_test.") || strings.HasPrefix(base, "test_"):
		return models.WorkTypeTests
	case codeExtensions[ext]:
		return models.WorkTypeCode
	case docExtensions[ext]:
		return models.WorkTypeDocumentation
	case strings.Contains(strings.ToLower(path), "test"):
		return models.WorkTypeTests
	case (ext == ".yaml" || ext == ".yml" || ext == ".json") && strings.Contains(strings.ToLower(path), "architect"):
		return models.WorkTypeArchitecture
	default:
		return models.WorkTypeCode
	}
}

// Filter decides which changed files enter the review queue.
type Filter struct {
	// Extensions are the reviewable file extensions, with leading dot.
	Extensions []string
	// Excludes are path substrings that disqualify a file.
	Excludes []string
}

// DefaultFilter mirrors the default monitoring config.
func DefaultFilter() Filter {
	return Filter{
		Extensions: []string{".py", ".js", ".ts", ".go", ".md", ".yaml", ".json"},
		Excludes:   []string{".pyc", ".log", "node_modules", ".git", ".revision-"},
	}
}

// ShouldReview reports whether the path passes the exclude list and carries
// a reviewable extension. Excludes win over includes.
func (f Filter) ShouldReview(path string) bool {
	for _, ex := range f.Excludes {
		if strings.Contains(path, ex) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range f.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
