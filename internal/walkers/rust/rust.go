// Package rust is a reference Parser Output Contract implementation
// (internal/walker) for Rust source. Unlike the Go, Python, and
// TypeScript walkers it is grounded on the tree-sitter/go-tree-sitter
// binding rather than the teacher's smacker/go-tree-sitter, following
// standardbeagle-lci's parser package, since that is the binding the
// example pack actually pairs with a Rust grammar.
package rust

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/jward/gabb/internal/contenthash"
	"github.com/jward/gabb/internal/store"
	"github.com/jward/gabb/internal/walker"
)

var language = tree_sitter.NewLanguage(tree_sitter_rust.Language())

const declQuery = `
(function_item name: (identifier) @name) @decl
(struct_item name: (type_identifier) @name) @decl
(enum_item name: (type_identifier) @name) @decl
(trait_item name: (type_identifier) @name) @decl
(impl_item trait: (type_identifier) @trait type: (type_identifier) @target) @impl
(use_declaration argument: (_) @path) @use
`

// testAttrQuery finds every function_item immediately preceded by an
// attribute (#[test], #[tokio::test], #[wasm_bindgen_test], ...) so Walk
// can mark it is_test without needing sibling-node navigation.
const testAttrQuery = `((attribute_item) @attr . (function_item) @target)`

// Walk implements walker.Func for Rust.
func Walk(path string, source []byte) (*walker.ParseResult, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("setting rust language: %w", err)
	}

	tree := parser.Parse(source, nil)
	defer tree.Close()
	root := tree.RootNode()

	query, qerr := tree_sitter.NewQuery(language, declQuery)
	if qerr != nil {
		return nil, fmt.Errorf("compiling rust query: %w", qerr)
	}
	defer query.Close()

	names := query.CaptureNames()

	result := &walker.ParseResult{}
	declared := map[string]*store.Symbol{}

	// cargo's integration-test convention: anything under tests/ or named
	// *_test.rs. original_source has no Rust equivalent of Go's
	// is_test_file to ground this on, so unit tests (#[test] functions
	// inside an in-file #[cfg(test)] mod) are caught per-symbol below via
	// their preceding attribute instead.
	isTestFile := isTestFilePath(path)
	testTargets := testAttributedSpans(root, source)

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(query, root, source)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		captures := map[string]tree_sitter.Node{}
		for _, c := range match.Captures {
			captures[names[c.Index]] = c.Node
		}

		if declNode, ok := captures["decl"]; ok {
			nameNode, ok2 := captures["name"]
			if !ok2 {
				continue
			}
			start := int(declNode.StartByte())
			end := int(declNode.EndByte())
			name := string(source[nameNode.StartByte():nameNode.EndByte()])
			kind := rustKind(declNode.Kind())
			sym := &store.Symbol{
				ID:          fmt.Sprintf("%s#%d-%d", path, start, end),
				File:        path,
				Kind:        kind,
				Name:        name,
				Start:       start,
				End:         end,
				Qualifier:   fmt.Sprintf("%s::%s", path, name),
				Visibility:  "public",
				ContentHash: contenthash.Symbol(source, start, end),
				IsTest:      isTestFile || testTargets[start],
			}
			result.Symbols = append(result.Symbols, sym)
			declared[name] = sym
			continue
		}

		if implNode, ok := captures["impl"]; ok {
			traitNode, hasTrait := captures["trait"]
			targetNode, hasTarget := captures["target"]
			if !hasTrait || !hasTarget {
				continue
			}
			traitName := string(source[traitNode.StartByte():traitNode.EndByte()])
			targetName := string(source[targetNode.StartByte():targetNode.EndByte()])
			targetSym, ok := declared[targetName]
			if !ok {
				start := int(implNode.StartByte())
				end := int(implNode.EndByte())
				targetSym = &store.Symbol{ID: fmt.Sprintf("%s#%d-%d", path, start, end)}
			}
			dst := fmt.Sprintf("%s::%s", path, traitName)
			if traitSym, ok := declared[traitName]; ok {
				dst = traitSym.ID
			}
			result.Edges = append(result.Edges, &store.Edge{Src: targetSym.ID, Dst: dst, Kind: "trait_impl"})
			continue
		}

		if _, ok := captures["use"]; ok {
			pathNode, ok2 := captures["path"]
			if !ok2 {
				continue
			}
			importText := string(source[pathNode.StartByte():pathNode.EndByte()])
			local, original := splitUsePath(importText)
			result.Imports = append(result.Imports, &store.ImportBinding{
				File:         path,
				LocalName:    local,
				OriginalName: original,
				SourceFile:   original,
				ImportText:   importText,
			})
			result.Dependencies = append(result.Dependencies, &store.FileDependency{
				FromFile: path,
				ToFile:   original,
				Kind:     "use",
			})
		}
	}

	return result, nil
}

func rustKind(nodeKind string) string {
	switch nodeKind {
	case "function_item":
		return "function"
	case "struct_item":
		return "struct"
	case "enum_item":
		return "enum"
	case "trait_item":
		return "trait"
	default:
		return "symbol"
	}
}

// isTestFilePath applies cargo's integration-test convention: anything
// under a tests/ directory, or named *_test.rs / test.rs.
func isTestFilePath(path string) bool {
	if strings.Contains(path, "/tests/") || strings.HasPrefix(path, "tests/") {
		return true
	}
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return base == "test.rs" || strings.HasSuffix(base, "_test.rs")
}

// testAttributedSpans runs testAttrQuery and returns the set of
// function_item start offsets that are immediately preceded by an
// attribute whose text mentions "test" (#[test], #[tokio::test],
// #[wasm_bindgen_test], ...) — the in-file #[cfg(test)] mod convention
// cargo itself uses to discover unit tests.
func testAttributedSpans(root tree_sitter.Node, source []byte) map[int]bool {
	query, err := tree_sitter.NewQuery(language, testAttrQuery)
	if err != nil {
		return nil
	}
	defer query.Close()
	names := query.CaptureNames()

	spans := map[int]bool{}
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(query, root, source)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		var attr, target *tree_sitter.Node
		for i, c := range match.Captures {
			switch names[c.Index] {
			case "attr":
				node := match.Captures[i].Node
				attr = &node
			case "target":
				node := match.Captures[i].Node
				target = &node
			}
		}
		if attr == nil || target == nil {
			continue
		}
		attrText := string(source[attr.StartByte():attr.EndByte()])
		if strings.Contains(attrText, "test") {
			spans[int(target.StartByte())] = true
		}
	}
	return spans
}

func splitUsePath(text string) (local, original string) {
	idx := -1
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == ':' {
			idx = i + 1
			break
		}
	}
	if idx < 0 {
		return text, text
	}
	return text[idx:], text
}
