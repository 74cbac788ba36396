// Package bootstrap implements the Auto-bootstrap query-time gate (spec
// §4.10): the narrow check every client query runs before touching the
// Store, ensuring a compatible, up-to-date index exists and a daemon is
// watching it, starting one if not. Grounded on the teacher's
// cmd/canopy/main.go resolveDBPath/findRepoRoot flow, generalized from
// a one-shot CLI index into a gate that can also recover from a missing
// or incompatible database by driving internal/daemon.
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/jward/gabb/internal/daemon"
	"github.com/jward/gabb/internal/schema"
	"github.com/jward/gabb/internal/store"
)

// Options configure a bootstrap attempt (spec §4.10's two suppression
// flags).
type Options struct {
	WorkspaceRoot string
	DBPath        string
	NoStartDaemon bool // suppress steps 1-3; every condition becomes an error
	NoDaemon      bool // suppress only the version-mismatch warning
	PollTimeout   time.Duration
}

// Result is what the gate learned, for the caller to log or act on.
type Result struct {
	Store           *store.Store
	VersionMismatch bool
	Warning         string
}

const defaultPollTimeout = 60 * time.Second

// Ensure runs the full gate described in spec §4.10 and returns an open,
// Ready Store on success.
func Ensure(opts Options) (*Result, error) {
	if opts.PollTimeout == 0 {
		opts.PollTimeout = defaultPollTimeout
	}

	if _, err := os.Stat(opts.DBPath); os.IsNotExist(err) {
		return opts.recover("index database not found", false)
	}

	result, err := store.TryOpen(opts.DBPath)
	if err != nil {
		return opts.recover(fmt.Sprintf("opening index: %v", err), true)
	}
	if !result.Ready() {
		return opts.recover(result.Reason.Message(), true)
	}

	return opts.finish(result.Store)
}

// regenerationRequiredError lets cmd/gabb's exit-code mapping detect a
// declined auto-recovery through the same RegenerationRequired()
// interface schema.RegenerationReason implements, without this package
// depending on a specific reason kind.
type regenerationRequiredError struct{ msg string }

func (e *regenerationRequiredError) Error() string             { return e.msg }
func (e *regenerationRequiredError) RegenerationRequired() bool { return true }

// recover handles the two failure branches of the gate: missing DB
// (rebuild=false, just needs a daemon running) and NeedsRegeneration or
// I/O failure (rebuild=true, wipe and rebuild).
func (o Options) recover(reason string, rebuild bool) (*Result, error) {
	if o.NoStartDaemon {
		suggestion := "run 'gabb daemon start'"
		if rebuild {
			suggestion = "run 'gabb daemon start --rebuild'"
		}
		return nil, &regenerationRequiredError{msg: fmt.Sprintf("%s (%s)", reason, suggestion)}
	}

	if rebuild {
		_ = daemon.Stop(o.WorkspaceRoot, false)
		if err := store.DeleteDatabaseFiles(o.DBPath); err != nil {
			return nil, fmt.Errorf("deleting stale database: %w", err)
		}
	}

	if err := daemon.RequireNotRunning(o.WorkspaceRoot); err != nil {
		// A live daemon already exists; give it a moment to catch up
		// rather than failing outright.
	} else if err := daemon.StartBackground(daemon.Options{
		WorkspaceRoot: o.WorkspaceRoot,
		DBPath:        o.DBPath,
		Rebuild:       rebuild,
	}); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}

	deadline := time.Now().Add(o.PollTimeout)
	for time.Now().Before(deadline) {
		result, err := store.TryOpen(o.DBPath)
		if err == nil && result.Ready() {
			return o.finish(result.Store)
		}
		time.Sleep(250 * time.Millisecond)
	}

	return nil, fmt.Errorf("timed out after %s waiting for the index to become ready", o.PollTimeout)
}

// finish wraps a Ready store with the version-mismatch warning named in
// spec §4.10 step 4.
func (o Options) finish(s *store.Store) (*Result, error) {
	res := &Result{Store: s}
	if o.NoDaemon {
		return res, nil
	}

	pf, err := daemon.ReadPIDFile(o.WorkspaceRoot)
	if err == nil && daemon.IsAlive(pf.PID) && pf.Version != schema.AppVersion {
		res.VersionMismatch = true
		res.Warning = fmt.Sprintf("daemon version %s differs from client version %s", pf.Version, schema.AppVersion)
	}
	return res, nil
}
