// Package git shells out to git for artifact attribution. The watcher uses
// it to map a changed file to the agent that last touched it.
package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client defines the git operations intake needs. All methods take a path
// parameter since the watcher spans multiple repos.
type Client interface {
	RepoRoot(path string) (string, error)
	LastAuthor(filePath string) (string, error)
	IsDirty(path string) (bool, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

// LastAuthor returns the committer name of the most recent commit touching
// the file, or an error when the file has no history.
func (c *RealClient) LastAuthor(filePath string) (string, error) {
	out, err := gitCmd(filepath.Dir(filePath), "log", "-1", "--format=%cn", "--", filepath.Base(filePath))
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("no commits for %s", filePath)
	}
	return out, nil
}

func (c *RealClient) IsDirty(path string) (bool, error) {
	out, err := gitCmd(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}
