// Package golang is a reference implementation of the Parser Output
// Contract (internal/walker) for Go source, grounded on the teacher's
// tree-sitter usage (internal/runtime/{languages,hostfuncs}.go in
// mvp-joe-canopy) but driven directly through
// github.com/smacker/go-tree-sitter instead of through a Risor script,
// since the distilled spec replaces the scripted extraction VM with a
// plain Go function per language (spec §4.4).
package golang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/jward/gabb/internal/contenthash"
	"github.com/jward/gabb/internal/store"
	"github.com/jward/gabb/internal/walker"
)

var language = golang.GetLanguage()

const declQuery = `
(function_declaration name: (identifier) @name) @decl
(method_declaration receiver: (parameter_list (parameter_declaration type: (_) @recv)) name: (field_identifier) @name) @decl
(type_declaration (type_spec name: (type_identifier) @name type: (struct_type)) @decl)
(type_declaration (type_spec name: (type_identifier) @name type: (interface_type)) @decl)
(type_declaration (type_spec name: (type_identifier) @name) @decl)
(const_declaration (const_spec name: (identifier) @name) @decl)
(var_declaration (var_spec name: (identifier) @name) @decl)
`

const callQuery = `(call_expression function: [(identifier) @callee (selector_expression field: (field_identifier) @callee)]) @call`

const importQuery = `(import_spec name: (_)? @alias path: (interpreted_string_literal) @path) @import`

// Walk implements walker.Func for Go.
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

	// Go's own test convention, package-suffix-free: a _test.go file is a
	// test file end to end, so every symbol it declares is a test symbol.
	isTestFile := strings.HasSuffix(path, "_test.go")

	declared := map[string]*store.Symbol{}
	runQuery(declQuery, root, source, func(captures map[string]*sitter.Node) {
		declNode := captures["decl"]
		nameNode := captures["name"]
		if declNode == nil || nameNode == nil {
			return
		}
		name := nameNode.Content(source)
		kind := declKind(declNode, captures)
		container := ""
		if recv := captures["recv"]; recv != nil {
			container = stripPointer(recv.Content(source))
		}
		sym := newSymbol(path, source, name, kind, int(declNode.StartByte()), int(declNode.EndByte()), container, isTestFile)
		// A struct or interface type_spec matches both its own pattern and
		// the catch-all type pattern; emit it once.
		if prev, ok := declared[sym.Name]; ok && prev.ID == sym.ID {
			return
		}
		result.Symbols = append(result.Symbols, sym)
		declared[sym.Name] = sym
	})

	runQuery(importQuery, root, source, func(captures map[string]*sitter.Node) {
		pathNode := captures["path"]
		if pathNode == nil {
			return
		}
		importPath := trimQuotes(pathNode.Content(source))
		local := ""
		if alias := captures["alias"]; alias != nil {
			local = alias.Content(source)
		}
		result.Imports = append(result.Imports, &store.ImportBinding{
			File:         path,
			LocalName:    local,
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

	runQuery(callQuery, root, source, func(captures map[string]*sitter.Node) {
		calleeNode := captures["callee"]
		callNode := captures["call"]
		if calleeNode == nil || callNode == nil {
			return
		}
		calleeName := calleeNode.Content(source)
		enclosing := enclosingSymbol(callNode, declared, source)
		if enclosing == nil {
			return
		}
		start := int(calleeNode.StartByte())
		end := int(calleeNode.EndByte())
		dst := calleeName
		if target, ok := declared[calleeName]; ok {
			dst = target.ID
		} else {
			dst = fmt.Sprintf("%s#%s", path, calleeName)
		}
		result.Edges = append(result.Edges, &store.Edge{Src: enclosing.ID, Dst: dst, Kind: "calls"})
		if target, ok := declared[calleeName]; ok {
			result.References = append(result.References, &store.Reference{File: path, Start: start, End: end, SymbolID: target.ID})
		}
	})

	return result, nil
}

func declKind(decl *sitter.Node, captures map[string]*sitter.Node) string {
	switch decl.Type() {
	case "function_declaration":
		return "function"
	case "method_declaration":
		return "method"
	case "const_declaration", "const_spec":
		return "const"
	case "var_declaration", "var_spec":
		return "variable"
	case "type_spec":
		if typeNode := decl.ChildByFieldName("type"); typeNode != nil {
			switch typeNode.Type() {
			case "struct_type":
				return "struct"
			case "interface_type":
				return "interface"
			}
		}
		return "type"
	default:
		return "symbol"
	}
}

func newSymbol(path string, source []byte, name, kind string, start, end int, container string, isTest bool) *store.Symbol {
	qualifier := path
	if container != "" {
		qualifier = fmt.Sprintf("%s::%s::%s", path, container, name)
	} else {
		qualifier = fmt.Sprintf("%s::%s", path, name)
	}
	return &store.Symbol{
		ID:          fmt.Sprintf("%s#%d-%d", path, start, end),
		File:        path,
		Kind:        kind,
		Name:        name,
		Start:       start,
		End:         end,
		Qualifier:   qualifier,
		Container:   container,
		Visibility:  visibilityFor(name),
		ContentHash: contenthash.Symbol(source, start, end),
		IsTest:      isTest,
	}
}

func visibilityFor(name string) string {
	if len(name) == 0 {
		return "private"
	}
	if name[0] >= 'A' && name[0] <= 'Z' {
		return "public"
	}
	return "private"
}

func enclosingSymbol(node *sitter.Node, declared map[string]*store.Symbol, source []byte) *store.Symbol {
	start := int(node.StartByte())
	end := int(node.EndByte())
	var best *store.Symbol
	for _, sym := range declared {
		if sym.Start <= start && sym.End >= end {
			if best == nil || (sym.End-sym.Start) < (best.End-best.Start) {
				best = sym
			}
		}
	}
	return best
}

func stripPointer(s string) string {
	for len(s) > 0 && s[0] == '*' {
		s = s[1:]
	}
	return s
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

// runQuery executes pattern against root and invokes fn once per match
// with a name->node map of that match's captures.
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
			name := q.CaptureNameForId(c.Index)
			node := c.Node
			captures[name] = node
		}
		fn(captures)
	}
}
