// Package python is a reference Parser Output Contract implementation
// (internal/walker) for Python source, grounded on the teacher's
// smacker/go-tree-sitter usage (mvp-joe-canopy's internal/runtime),
// driven directly rather than through its Risor extraction scripts.
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/jward/gabb/internal/contenthash"
	"github.com/jward/gabb/internal/store"
	"github.com/jward/gabb/internal/walker"
)

var language = python.GetLanguage()

const declQuery = `
(class_definition name: (identifier) @name superclasses: (argument_list (identifier) @base)?) @decl
(function_definition name: (identifier) @name) @decl
`

const importQuery = `
(import_statement name: (dotted_name) @module) @import
(import_from_statement module_name: (dotted_name) @module name: (dotted_name) @symbol) @fromimport
`

// Walk implements walker.Func for Python.
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
		kind := "function"
		if declNode.Type() == "class_definition" {
			kind = "class"
		} else if container != "" {
			kind = "method"
		}
		qualifier := fmt.Sprintf("%s::%s", path, name)
		if container != "" {
			qualifier = fmt.Sprintf("%s::%s::%s", path, container, name)
		}
		isTest := (kind == "function" || kind == "method") && isTestFunction(name, declNode, source)
		sym := &store.Symbol{
			ID:          fmt.Sprintf("%s#%d-%d", path, start, end),
			File:        path,
			Kind:        kind,
			Name:        name,
			Start:       start,
			End:         end,
			Qualifier:   qualifier,
			Container:   container,
			Visibility:  pyVisibility(name),
			ContentHash: contenthash.Symbol(source, start, end),
			IsTest:      isTest,
		}
		result.Symbols = append(result.Symbols, sym)
		declared[name] = sym

		if base := captures["base"]; base != nil {
			baseName := base.Content(source)
			dst := fmt.Sprintf("%s::%s", path, baseName)
			if target, ok := declared[baseName]; ok {
				dst = target.ID
			}
			result.Edges = append(result.Edges, &store.Edge{Src: sym.ID, Dst: dst, Kind: "extends"})
		}
	})

	runQuery(importQuery, root, source, func(captures map[string]*sitter.Node) {
		if moduleNode := captures["module"]; moduleNode != nil {
			module := moduleNode.Content(source)
			local := module
			if sym := captures["symbol"]; sym != nil {
				local = sym.Content(source)
				result.Imports = append(result.Imports, &store.ImportBinding{
					File:         path,
					LocalName:    local,
					OriginalName: local,
					SourceFile:   module,
					ImportText:   captures["fromimport"].Content(source),
				})
			} else {
				result.Imports = append(result.Imports, &store.ImportBinding{
					File:         path,
					LocalName:    local,
					OriginalName: module,
					SourceFile:   module,
					ImportText:   captures["import"].Content(source),
				})
			}
			result.Dependencies = append(result.Dependencies, &store.FileDependency{
				FromFile: path,
				ToFile:   module,
				Kind:     "import",
			})
		}
	})

	return result, nil
}

func pyVisibility(name string) string {
	if len(name) > 0 && name[0] == '_' {
		return "private"
	}
	return "public"
}

// isTestFunction reports whether declNode (a function_definition) is a
// test: either its name starts with "test" (pytest/unittest discovery
// convention) or it carries a decorator mentioning test/pytest/unittest/
// fixture/parametrize — the same two signals original_source's Python
// extractor combines in is_test_decorator/handle_function.
func isTestFunction(name string, declNode *sitter.Node, source []byte) bool {
	if strings.HasPrefix(name, "test") {
		return true
	}
	parent := declNode.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return false
	}
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		text := strings.ToLower(child.Content(source))
		for _, marker := range []string{"test", "pytest", "unittest", "fixture", "parametrize"} {
			if strings.Contains(text, marker) {
				return true
			}
		}
	}
	return false
}

func enclosingClassName(node *sitter.Node, source []byte) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_definition" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(source)
			}
		}
	}
	return ""
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
