// Package daemon implements the Daemon Loop component (spec §4.9): PID
// lifecycle, start/stop/restart/status control, and the filesystem
// watch loop that drives incremental indexing. Grounded on the
// teacher's one-shot Engine.IndexDirectory CLI invocation (cmd/canopy),
// generalized into a long-running watcher, and on fsnotify's standard
// recursive-add-per-directory pattern since neither the teacher nor any
// pack example ships a watch loop of its own.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jward/gabb/internal/schema"
)

// Options configure a daemon run.
type Options struct {
	WorkspaceRoot string
	DBPath        string
	Rebuild       bool
	Foreground    bool
}

// Status reports the outcome of a status check (spec §4.9 "Status").
type Status struct {
	Running         bool
	PID             int
	WorkspaceRoot   string
	DBPath          string
	VersionMismatch bool
}

// StartBackground re-execs the current binary as a detached daemon
// process (spec §4.9 step 2), returning once the child has been
// launched. It is the caller's responsibility to have already verified
// no live daemon exists for this workspace.
func StartBackground(opts Options) error {
	if err := os.MkdirAll(filepath.Join(opts.WorkspaceRoot, ".gabb"), 0o755); err != nil {
		return fmt.Errorf("creating .gabb: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}

	logFile, err := os.OpenFile(logPath(opts.WorkspaceRoot), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	defer logFile.Close()

	args := []string{"daemon", "run", "--workspace", opts.WorkspaceRoot, "--db", opts.DBPath}
	if opts.Rebuild {
		args = append(args, "--rebuild")
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	// Detach: don't wait, don't leave a zombie on our exit.
	go cmd.Process.Release()

	return nil
}

// Stop reads the PID file, sends TERM (or KILL if force), and waits for
// the process to exit, removing the PID file on success (spec §4.9
// "Stop").
func Stop(root string, force bool) error {
	pf, err := ReadPIDFile(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if !IsAlive(pf.PID) {
		return RemovePIDFile(root)
	}

	process, err := os.FindProcess(pf.PID)
	if err != nil {
		return err
	}

	timeout := 10 * time.Second
	if force {
		timeout = 2 * time.Second
		if err := process.Kill(); err != nil {
			return fmt.Errorf("killing daemon %d: %w", pf.PID, err)
		}
	} else {
		if err := process.Signal(terminateSignal()); err != nil {
			return fmt.Errorf("terminating daemon %d: %w", pf.PID, err)
		}
	}

	if !waitForLiveness(pf.PID, false, timeout) {
		return fmt.Errorf("daemon %d did not exit within %s", pf.PID, timeout)
	}
	return RemovePIDFile(root)
}

// Restart stops any running daemon, waits briefly, and starts a new one
// in the background (spec §4.9 "Restart": "stop + sleep 500ms + start").
func Restart(opts Options, force bool) error {
	if err := Stop(opts.WorkspaceRoot, force); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	return StartBackground(opts)
}

// GetStatus reports whether a daemon is running for root, and flags an
// app-version mismatch between the PID file and the caller's own
// build (spec §4.9 "Status").
func GetStatus(root, dbPath string) (Status, error) {
	pf, err := ReadPIDFile(root)
	if os.IsNotExist(err) {
		return Status{WorkspaceRoot: root, DBPath: dbPath}, nil
	}
	if err != nil {
		return Status{}, err
	}

	running := IsAlive(pf.PID)
	mismatch := pf.Version != schema.AppVersion
	return Status{
		Running:         running,
		PID:             pf.PID,
		WorkspaceRoot:   root,
		DBPath:          dbPath,
		VersionMismatch: running && mismatch,
	}, nil
}

// RequireNotRunning enforces step 1 of §4.9's lifecycle: if a live PID
// file exists, refuse to start; if stale, delete it.
func RequireNotRunning(root string) error {
	pf, err := ReadPIDFile(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if IsAlive(pf.PID) {
		return fmt.Errorf("daemon already running for %s (pid %d)", root, pf.PID)
	}
	return RemovePIDFile(root)
}

// ctxDone is a small helper so Run (watch.go) can select on both the
// fsnotify channel and external cancellation without importing context
// in two files redundantly.
func ctxDone(ctx context.Context) <-chan struct{} {
	return ctx.Done()
}
