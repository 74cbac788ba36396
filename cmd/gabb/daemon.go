package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/gabb"
	"github.com/jward/gabb/internal/daemon"
	"github.com/jward/gabb/internal/indexer"
	"github.com/jward/gabb/internal/store"
)

var flagForeground bool
var flagRebuild bool
var flagForceStop bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the background indexing daemon",
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonRunCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)

	daemonStartCmd.Flags().BoolVar(&flagForeground, "foreground", false, "run in the foreground instead of backgrounding")
	daemonStartCmd.Flags().BoolVar(&flagRebuild, "rebuild", false, "delete the database and rebuild before watching")
	daemonRunCmd.Flags().BoolVar(&flagRebuild, "rebuild", false, "delete the database and rebuild before watching")
	daemonStopCmd.Flags().BoolVar(&flagForceStop, "force", false, "send KILL instead of TERM")
	daemonRestartCmd.Flags().BoolVar(&flagForceStop, "force", false, "send KILL instead of TERM when stopping")
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon (foreground or background)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, dbPath, err := resolveWorkspace()
		if err != nil {
			return err
		}
		if err := daemon.RequireNotRunning(root); err != nil {
			return err
		}
		opts := daemon.Options{WorkspaceRoot: root, DBPath: dbPath, Rebuild: flagRebuild, Foreground: flagForeground}
		if flagForeground {
			return runDaemonForeground(opts)
		}
		if err := daemon.StartBackground(opts); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Started daemon for %s\n", root)
		return nil
	},
}

// daemonRunCmd is the hidden re-exec target StartBackground launches
// with --workspace/--db/--rebuild; it always runs in the foreground.
var daemonRunCmd = &cobra.Command{
	Use:    "run",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, dbPath, err := resolveWorkspace()
		if err != nil {
			return err
		}
		return runDaemonForeground(daemon.Options{WorkspaceRoot: root, DBPath: dbPath, Rebuild: flagRebuild, Foreground: true})
	},
}

func runDaemonForeground(opts daemon.Options) error {
	if opts.Rebuild {
		if err := store.DeleteDatabaseFiles(opts.DBPath); err != nil {
			return fmt.Errorf("clearing database for rebuild: %w", err)
		}
	}

	result, err := store.TryOpen(opts.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if !result.Ready() {
		return result.Reason
	}
	defer result.Store.Close()

	ix := indexer.New(result.Store, gabb.DefaultRegistry(), nil)
	return daemon.Run(context.Background(), result.Store, ix, opts, nil)
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _, err := resolveWorkspace()
		if err != nil {
			return err
		}
		return daemon.Stop(root, flagForceStop)
	},
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, dbPath, err := resolveWorkspace()
		if err != nil {
			return err
		}
		return daemon.Restart(daemon.Options{WorkspaceRoot: root, DBPath: dbPath}, flagForceStop)
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, dbPath, err := resolveWorkspace()
		if err != nil {
			return err
		}
		st, err := daemon.GetStatus(root, dbPath)
		if err != nil {
			return err
		}
		if st.Running {
			fmt.Printf("running pid=%d workspace=%s db=%s\n", st.PID, st.WorkspaceRoot, st.DBPath)
			if st.VersionMismatch {
				fmt.Println("warning: daemon version differs from this client")
			}
		} else {
			fmt.Printf("not running workspace=%s db=%s\n", st.WorkspaceRoot, st.DBPath)
		}
		return nil
	},
}
