// Package typescript is a reference Parser Output Contract
// implementation (internal/walker) for TypeScript/TSX source, grounded
// on the teacher's smacker/go-tree-sitter usage in
// internal/runtime/{languages,hostfuncs}.go (mvp-joe-canopy), driven
// directly instead of through its Risor extraction scripts.
package typescript

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jward/gabb/internal/contenthash"
	"github.com/jward/gabb/internal/store"
	"github.com/jward/gabb/internal/walker"
)

var language = typescript.GetLanguage()

const declQuery = `
(class_declaration name: (type_identifier) @name) @decl
(interface_declaration name: (type_identifier) @name) @decl
(function_declaration name: (identifier) @name) @decl
(method_definition name: (property_identifier) @name) @decl
`

const heritageQuery = `
(class_heritage (extends_clause value: (identifier) @extends))
(class_heritage (implements_clause (type_identifier) @implements))
(interface_declaration name: (type_identifier) @child (extends_type_clause (type_identifier) @extends))
`

const importQuery = `(import_statement source: (string) @path) @import`

// Walk implements walker.Func for TypeScript and TSX.
func Walk(path string, source []byte) (*walker.ParseResult, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	root := tree.RootNode()

	result := &walker.ParseResult{}
	declared := map[string]*store.Symbol{}

	// Jest/Vitest/Mocha file-naming convention: *.test.ts(x)/*.spec.ts(x).
	isTestFile := isTestFileName(path)

	runQuery(declQuery, root, source, func(captures map[string]*sitter.Node) {
		declNode := captures["decl"]
		nameNode := captures["name"]
		if declNode == nil || nameNode == nil {
			return
		}
		name := nameNode.Content(source)
		start := int(declNode.StartByte())
		end := int(declNode.EndByte())
		container := enclosingClassName(declNode, source)
		kind := tsKind(declNode.Type())
		qualifier := fmt.Sprintf("%s::%s", path, name)
		if container != "" {
			qualifier = fmt.Sprintf("%s::%s::%s", path, container, name)
		}
		sym := &store.Symbol{
			ID:          fmt.Sprintf("%s#%d-%d", path, start, end),
			File:        path,
			Kind:        kind,
			Name:        name,
			Start:       start,
			End:         end,
			Qualifier:   qualifier,
			Container:   container,
			Visibility:  "public",
			ContentHash: contenthash.Symbol(source, start, end),
			IsTest:      isTestFile,
		}
		result.Symbols = append(result.Symbols, sym)
		declared[name] = sym
	})

	runQuery(heritageQuery, root, source, func(captures map[string]*sitter.Node) {
		var childName string
		if child := captures["child"]; child != nil {
			childName = child.Content(source)
		} else {
			// class_heritage is a child of class_declaration; find the
			// enclosing declaration's name from whichever symbol spans it.
			for _, kind := range []string{"extends", "implements"} {
				target := captures[kind]
				if target == nil {
					continue
				}
				childName = enclosingDeclName(target, declared, source)
				break
			}
		}
		child, ok := declared[childName]
		if !ok {
			return
		}
		if extends := captures["extends"]; extends != nil {
			name := extends.Content(source)
			dst := fmt.Sprintf("%s::%s", path, name)
			if target, ok := declared[name]; ok {
				dst = target.ID
			}
			result.Edges = append(result.Edges, &store.Edge{Src: child.ID, Dst: dst, Kind: "extends"})
		}
		if impl := captures["implements"]; impl != nil {
			name := impl.Content(source)
			dst := fmt.Sprintf("%s::%s", path, name)
			if target, ok := declared[name]; ok {
				dst = target.ID
			}
			result.Edges = append(result.Edges, &store.Edge{Src: child.ID, Dst: dst, Kind: "implements"})
		}
	})

	runQuery(importQuery, root, source, func(captures map[string]*sitter.Node) {
		pathNode := captures["path"]
		if pathNode == nil {
			return
		}
		importPath := trimQuotes(pathNode.Content(source))
		result.Imports = append(result.Imports, &store.ImportBinding{
			File:         path,
			OriginalName: importPath,
			SourceFile:   importPath,
			ImportText:   captures["import"].Content(source),
		})
		result.Dependencies = append(result.Dependencies, &store.FileDependency{
			FromFile: path,
			ToFile:   importPath,
			Kind:     "import",
		})
	})

	return result, nil
}

func tsKind(nodeType string) string {
	switch nodeType {
	case "class_declaration":
		return "class"
	case "interface_declaration":
		return "interface"
	case "function_declaration":
		return "function"
	case "method_definition":
		return "method"
	default:
		return "symbol"
	}
}

func enclosingClassName(node *sitter.Node, source []byte) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_declaration" || p.Type() == "interface_declaration" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(source)
			}
		}
	}
	return ""
}

func enclosingDeclName(node *sitter.Node, declared map[string]*store.Symbol, source []byte) string {
	start := int(node.StartByte())
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_declaration" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(source)
			}
		}
	}
	_ = start
	return ""
}

// isTestFileName applies the ecosystem's file-naming test convention
// (Jest/Vitest/Mocha): a .test. or .spec. infix before the extension.
// original_source has no TypeScript equivalent of Go's is_test_file or
// Python's is_test_decorator to ground this on; it is the same
// file-naming rule every JS/TS test runner in common use applies.
func isTestFileName(path string) bool {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func runQuery(pattern string, root *sitter.Node, source []byte, fn func(captures map[string]*sitter.Node)) {
	q, err := sitter.NewQuery([]byte(pattern), language)
	if err != nil {
		return
	}
	defer q.Close()
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		captures := map[string]*sitter.Node{}
		for _, c := range match.Captures {
			captures[q.CaptureNameForId(c.Index)] = c.Node
		}
		fn(captures)
	}
}
