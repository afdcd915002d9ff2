package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mstanton/overseer/internal/daemon"
	"github.com/mstanton/overseer/internal/intake"
	"github.com/mstanton/overseer/internal/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]...",
	Short: "Watch directories and review changed artifacts",
	Long: `Watch directories for changed artifacts and run them through the
review pipeline. Directories default to watch.dirs from the config.

Runs in the foreground; use 'overseer watch start' to daemonize.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchRun(args)
	},
}

var watchStartCmd = &cobra.Command{
	Use:   "start [dir]...",
	Short: "Start the watcher as a background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchStartRun(args)
	},
}

var watchStopForce bool

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchStopRun()
	},
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background watcher is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchStatusRun()
	},
}

func init() {
	watchStopCmd.Flags().BoolVar(&watchStopForce, "force", false, "Kill the watcher instead of asking it to shut down")
	watchCmd.AddCommand(watchStartCmd)
	watchCmd.AddCommand(watchStopCmd)
	watchCmd.AddCommand(watchStatusCmd)
	rootCmd.AddCommand(watchCmd)
}

// pidFile returns the watcher daemon PID file under state_dir.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "overseer-watch.pid"))
}

// watchLogPath returns the daemon log path under state_dir.
func watchLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "overseer-watch.log")
}

func watchRoots(args []string) ([]string, error) {
	roots := args
	if len(roots) == 0 {
		roots = viper.GetStringSlice("watch.dirs")
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no directories to watch: pass them as arguments or set watch.dirs")
	}
	return roots, nil
}

func watchRun(args []string) error {
	roots, err := watchRoots(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	log := newLogger()
	pipe, _, err := buildPipeline(ctx, log)
	if err != nil {
		return err
	}

	builder := newBuilder()
	submit := func(item *models.WorkItem) {
		_ = pipe.Enqueue(item)
	}
	watcher, err := intake.NewWatcher(roots, intake.DefaultFilter(), builder, submit, watcherOptions(), log)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Stop()

	pf := pidFile()
	if err := os.MkdirAll(filepath.Dir(pf.Path), 0o755); err == nil {
		if err := pf.Write(); err == nil {
			defer func() { _ = pf.Remove() }()
		}
	}

	ui.Info("watching %d directories, reviewing on change", len(roots))
	pipe.Run(ctx)
	return nil
}

func watchStartRun(args []string) error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("watcher already running (pid %d)", pid)
	}

	roots, err := watchRoots(args)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(watchLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, append([]string{"watch"}, roots...)...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ui.Success("watcher started (pid %d), logging to %s", child.Process.Pid, watchLogPath())
	return nil
}

func watchStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		return fmt.Errorf("watcher is not running")
	}

	sig := sigTERM()
	if watchStopForce {
		sig = sigKILL()
	}
	if err := pf.Signal(sig); err != nil {
		return fmt.Errorf("stop watcher (pid %d): %w", pid, err)
	}
	ui.Success("sent stop signal to watcher (pid %d)", pid)
	return nil
}

func watchStatusRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		ui.Info("watcher is running (pid %d)", pid)
	} else {
		ui.Info("watcher is not running")
	}
	return nil
}
