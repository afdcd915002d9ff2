// Package daemon tracks detached overseer processes, such as the background
// watcher, through PID files.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PIDFile records which process owns a daemon role. The file holds a single
// decimal pid.
type PIDFile struct {
	Path string
}

// NewPIDFile returns a PIDFile rooted at path. Nothing is written until
// Write is called.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID records an arbitrary pid.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded pid. A missing file is an error; callers that
// only care whether the daemon is alive use IsRunning instead.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", p.Path, err)
	}
	return pid, nil
}

// Remove deletes the file. The daemon removes its own file on clean
// shutdown; a leftover file with a dead pid is treated as not running.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}
