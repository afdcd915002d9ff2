//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// setDaemonAttrs detaches the watcher child into its own session so it
// survives the parent terminal.
func setDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// shutdownSignals lists the signals that trigger graceful shutdown of the
// watcher, serve, and mcp loops.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// sigTERM is what `overseer watch stop` sends.
func sigTERM() syscall.Signal { return syscall.SIGTERM }

// sigKILL is the last-resort signal for an unresponsive watcher.
func sigKILL() syscall.Signal { return syscall.SIGKILL }
