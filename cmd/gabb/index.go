package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/gabb"
	"github.com/jward/gabb/internal/indexer"
	"github.com/jward/gabb/internal/store"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run a full index of the workspace",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	root, dbPath, err := resolveWorkspace()
	if err != nil {
		return err
	}

	if flagForce {
		if err := store.DeleteDatabaseFiles(dbPath); err != nil {
			return fmt.Errorf("clearing database for --force: %w", err)
		}
	}

	result, err := store.TryOpen(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if !result.Ready() {
		return fmt.Errorf("%w (pass --force to rebuild)", result.Reason)
	}
	defer result.Store.Close()

	reg := gabb.DefaultRegistry()
	ix := indexer.New(result.Store, reg, nil)

	start := time.Now()
	err = ix.IndexDirectory(context.Background(), root, func(p indexer.Progress) {
		fmt.Fprintf(os.Stderr, "\r[%d/%d] %s", p.FilesDone, p.FilesTotal, p.Current)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s\nDatabase: %s\n", root, time.Since(start).Round(time.Millisecond), dbPath)
	return nil
}
