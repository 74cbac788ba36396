// Command gabb drives the index engine from the command line: a
// one-shot full index, daemon lifecycle control, and the narrow query
// surface named in spec §6. Output formatting, an MCP server, and the
// language walkers themselves are external collaborators, not part of
// this binary's scope.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagWorkspace     string
	flagDB            string
	flagNoStartDaemon bool
	flagNoDaemon      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:           "gabb",
	Short:         "Persistent code-intelligence index",
	Long:          "gabb watches a workspace, parses source with tree-sitter walkers, and maintains a SQLite index of symbols, edges, references, and file dependencies.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace root (default: discovered from the current directory)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: <workspace>/.gabb/index.db)")
	rootCmd.PersistentFlags().BoolVar(&flagNoStartDaemon, "no-start-daemon", false, "never start a daemon; fail instead with a rebuild suggestion")
	rootCmd.PersistentFlags().BoolVar(&flagNoDaemon, "no-daemon", false, "suppress the daemon version-mismatch warning")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(querySymbolCmd)
	rootCmd.AddCommand(queryUsagesCmd)
	rootCmd.AddCommand(queryDefinitionCmd)
	rootCmd.AddCommand(queryImplementationsCmd)
	rootCmd.AddCommand(listSymbolsCmd)
	rootCmd.AddCommand(searchSymbolsCmd)
	rootCmd.AddCommand(statsCmd)
}

// exitCodeFor maps an error to the exit code conventions spec §4.9
// step 4 and §4.10 imply: 2 for a version/regeneration condition the
// caller asked not to auto-fix, 1 for everything else.
func exitCodeFor(err error) int {
	var re interface{ RegenerationRequired() bool }
	if errors.As(err, &re) && re.RegenerationRequired() {
		return 2
	}
	return 1
}
