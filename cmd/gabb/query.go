package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/gabb"
	"github.com/jward/gabb/internal/bootstrap"
	"github.com/jward/gabb/internal/store"
)

// openForQuery runs the auto-bootstrap gate (spec §4.10) and hands back
// a ready Engine every query subcommand builds its QueryBuilder from.
func openForQuery() (*gabb.Engine, error) {
	root, dbPath, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}

	res, err := bootstrap.Ensure(bootstrap.Options{
		WorkspaceRoot: root,
		DBPath:        dbPath,
		NoStartDaemon: flagNoStartDaemon,
		NoDaemon:      flagNoDaemon,
	})
	if err != nil {
		return nil, err
	}
	if res.Warning != "" {
		fmt.Println("warning:", res.Warning)
	}

	return gabb.OpenWith(root, res.Store)
}

func printSymbol(s *store.Symbol) {
	fmt.Printf("%s\t%s\t%s\t%s:%d-%d\n", s.ID, s.Kind, s.Name, s.File, s.Start, s.End)
}

var flagLine int
var flagCharacter int
var flagTransitive bool
var flagKind string
var flagFile string
var flagLimit int
var flagOffset int

var querySymbolCmd = &cobra.Command{
	Use:   "symbol <file>",
	Short: "Resolve the symbol at a file position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		sym, err := eng.Query().SymbolAt(args[0], flagLine, flagCharacter)
		if err != nil {
			return err
		}
		printSymbol(sym)
		return nil
	},
}

var queryDefinitionCmd = &cobra.Command{
	Use:   "definition <file>",
	Short: "Find the definition referenced at a file position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		sym, err := eng.Query().DefinitionAt(args[0], flagLine, flagCharacter)
		if err != nil {
			return err
		}
		printSymbol(sym)
		return nil
	},
}

var queryUsagesCmd = &cobra.Command{
	Use:   "usages <symbol-id>",
	Short: "Find references to a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		q := eng.Query()
		target, err := q.ShowSymbol(args[0])
		if err != nil {
			return err
		}
		usages, err := q.FindUsages(target.Symbol)
		if err != nil {
			return err
		}
		for _, u := range usages {
			fmt.Printf("%s:%d-%d\t%s\n", u.Reference.File, u.Reference.Start, u.Reference.End, u.ImportText)
		}
		return nil
	},
}

var queryImplementationsCmd = &cobra.Command{
	Use:   "implementations <symbol-id>",
	Short: "Find implementations/subtypes of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		q := eng.Query()
		target, err := q.ShowSymbol(args[0])
		if err != nil {
			return err
		}
		impls, err := q.FindImplementations(target.Symbol)
		if err != nil {
			return err
		}
		for _, s := range impls {
			printSymbol(s)
		}
		return nil
	},
}

var listSymbolsCmd = &cobra.Command{
	Use:   "list-symbols",
	Short: "List symbols matching a filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		filter := store.SymbolFilter{FileExact: flagFile, Kind: flagKind}
		page := store.Page{Offset: flagOffset, Limit: flagLimit}
		syms, total, err := eng.Query().ListSymbols(filter, page)
		if err != nil {
			return err
		}
		for _, s := range syms {
			printSymbol(s)
		}
		fmt.Printf("# %d of %d\n", len(syms), total)
		return nil
	},
}

var searchSymbolsCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Full-text search over symbol names and qualifiers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		filter := store.SymbolFilter{FileExact: flagFile, Kind: flagKind}
		page := store.Page{Offset: flagOffset, Limit: flagLimit}
		syms, total, err := eng.Query().SearchSymbols(args[0], filter, page)
		if err != nil {
			return err
		}
		for _, s := range syms {
			printSymbol(s)
		}
		fmt.Printf("# %d of %d\n", len(syms), total)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report index-wide statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openForQuery()
		if err != nil {
			return err
		}
		defer eng.Close()

		total, err := eng.Query().TotalStats()
		if err != nil {
			return err
		}
		idx, err := eng.Query().IndexStats()
		if err != nil {
			return err
		}
		fmt.Printf("files=%d symbols=%d functions=%d classes=%d interfaces=%d\n",
			total.FileCount, total.SymbolCount, total.FunctionCount, total.ClassCount, total.InterfaceCount)
		fmt.Printf("schema=%s db_bytes=%d last_updated=%s\n", idx.SchemaVersion, idx.DBSizeBytes, idx.LastUpdated)
		for lang, n := range idx.FilesByLanguage {
			fmt.Printf("  %s: %d files\n", lang, n)
		}
		for _, f := range idx.ParseFailures {
			fmt.Println("  parse failure:", f)
		}
		return nil
	},
}

func graphCmd(use, short string, fn func(q *gabb.QueryBuilder, id string, transitive bool) ([]*store.Symbol, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <symbol-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openForQuery()
			if err != nil {
				return err
			}
			defer eng.Close()

			syms, err := fn(eng.Query(), args[0], flagTransitive)
			if err != nil {
				return err
			}
			for _, s := range syms {
				printSymbol(s)
			}
			return nil
		},
	}
}

var callersCmd = graphCmd("callers", "Find callers of a symbol", (*gabb.QueryBuilder).Callers)
var calleesCmd = graphCmd("callees", "Find callees of a symbol", (*gabb.QueryBuilder).Callees)
var supertypesCmd = graphCmd("supertypes", "Find supertypes of a symbol", (*gabb.QueryBuilder).Supertypes)
var subtypesCmd = graphCmd("subtypes", "Find subtypes of a symbol", (*gabb.QueryBuilder).Subtypes)

func init() {
	for _, cmd := range []*cobra.Command{querySymbolCmd, queryDefinitionCmd} {
		cmd.Flags().IntVar(&flagLine, "line", 1, "1-based line number")
		cmd.Flags().IntVar(&flagCharacter, "character", 0, "1-based character number within the line")
	}

	for _, cmd := range []*cobra.Command{listSymbolsCmd, searchSymbolsCmd} {
		cmd.Flags().StringVar(&flagFile, "file", "", "restrict to an exact file path")
		cmd.Flags().StringVar(&flagKind, "kind", "", "restrict to a symbol kind")
		cmd.Flags().IntVar(&flagOffset, "offset", 0, "page offset")
		cmd.Flags().IntVar(&flagLimit, "limit", 0, "page limit")
	}

	for _, cmd := range []*cobra.Command{callersCmd, calleesCmd, supertypesCmd, subtypesCmd} {
		cmd.Flags().BoolVar(&flagTransitive, "transitive", false, "follow the relation transitively")
		rootCmd.AddCommand(cmd)
	}
}
