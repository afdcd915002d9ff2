//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// setDaemonAttrs is a no-op on Windows, which has no session detach.
func setDaemonAttrs(_ *exec.Cmd) {}

// shutdownSignals lists the signals that trigger graceful shutdown of the
// watcher, serve, and mcp loops.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// sigTERM is what `overseer watch stop` sends.
func sigTERM() syscall.Signal { return syscall.SIGTERM }

// sigKILL is the last-resort signal for an unresponsive watcher.
func sigKILL() syscall.Signal { return syscall.SIGKILL }
