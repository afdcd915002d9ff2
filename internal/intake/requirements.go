package intake

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-project overseer config file, searched for at
// the project root.
const ProjectConfigName = ".overseer.yaml"

// projectConfig is the subset of the per-project file the intake layer needs.
type projectConfig struct {
	Requirements []string `yaml:"requirements"`
	Agent        string   `yaml:"agent"`
}

// RequirementsProvider supplies the requirement strings reviewers check an
// artifact against.
type RequirementsProvider interface {
	Requirements(filePath string) []string
}

// ProjectRequirements reads requirements from the project root: first from
// .overseer.yaml, then from a "requirements:" list in CLAUDE.md.
type ProjectRequirements struct{}

func (ProjectRequirements) Requirements(filePath string) []string {
	root := FindProjectRoot(filePath)

	if reqs, err := readYAMLRequirements(filepath.Join(root, ProjectConfigName)); err == nil && len(reqs) > 0 {
		return reqs
	}
	if reqs := readClaudeRequirements(filepath.Join(root, "CLAUDE.md")); len(reqs) > 0 {
		return reqs
	}
	return nil
}

func readYAMLRequirements(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg.Requirements, nil
}

// readClaudeRequirements pulls "- item" lines following a "requirements:"
// marker. CLAUDE.md is free-form, so this stays a line scan rather than a
// YAML parse.
func readClaudeRequirements(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var reqs []string
	inSection := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.EqualFold(strings.TrimSuffix(line, ":"), "requirements") ||
			strings.HasPrefix(strings.ToLower(line), "requirements:"):
			inSection = true
		case inSection && strings.HasPrefix(line, "-"):
			reqs = append(reqs, strings.TrimSpace(strings.TrimPrefix(line, "-")))
		case inSection && line == "":
			continue
		case inSection:
			inSection = false
		}
	}
	return reqs
}

// FindProjectRoot walks up from the file looking for a project marker:
// .overseer.yaml, CLAUDE.md, or a .git directory. It falls back to the
// file's own directory.
func FindProjectRoot(filePath string) string {
	dir := filepath.Dir(filePath)
	for {
		for _, marker := range []string{ProjectConfigName, "CLAUDE.md", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Dir(filePath)
		}
		dir = parent
	}
}

// ProjectName derives the project identifier from the project root.
func ProjectName(filePath string) string {
	root := FindProjectRoot(filePath)
	name := filepath.Base(root)
	if name == "." || name == string(filepath.Separator) {
		return "unknown_project"
	}
	return name
}
