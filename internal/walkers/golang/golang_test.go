package golang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkFunctionsAndCalls(t *testing.T) {
	src := []byte(`package demo

func Greet(name string) string {
	return helper(name)
}

func helper(name string) string {
	return name
}
`)

	result, err := Walk("demo.go", src)
	require.NoError(t, err)
	require.Len(t, result.Symbols, 2)

	byName := map[string]string{}
	ids := map[string]string{}
	for _, s := range result.Symbols {
		byName[s.Name] = s.Kind
		ids[s.Name] = s.ID
		assert.Equal(t, "demo.go", s.File)
		assert.NotEmpty(t, s.ContentHash)
	}
	assert.Equal(t, "function", byName["Greet"])
	assert.Equal(t, "function", byName["helper"])

	require.Len(t, result.Edges, 1)
	assert.Equal(t, "calls", result.Edges[0].Kind)
	assert.Equal(t, ids["helper"], result.Edges[0].Dst)
}

func TestWalkStructAndImport(t *testing.T) {
	src := []byte(`package demo

import alias "fmt"

type Widget struct {
	Name string
}

func (w *Widget) String() string {
	return alias.Sprintf(w.Name)
}
`)

	result, err := Walk("widget.go", src)
	require.NoError(t, err)

	var sawStruct, sawMethod bool
	for _, s := range result.Symbols {
		switch s.Kind {
		case "struct":
			sawStruct = s.Name == "Widget"
		case "method":
			sawMethod = s.Name == "String" && s.Container == "Widget"
		}
	}
	assert.True(t, sawStruct, "expected Widget struct symbol")
	assert.True(t, sawMethod, "expected String method with Widget container")

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "alias", result.Imports[0].LocalName)
	assert.Equal(t, "fmt", result.Imports[0].SourceFile)

	require.Len(t, result.Dependencies, 1)
	assert.Equal(t, "fmt", result.Dependencies[0].ToFile)
}

func TestVisibilityFor(t *testing.T) {
	assert.Equal(t, "public", visibilityFor("Exported"))
	assert.Equal(t, "private", visibilityFor("unexported"))
	assert.Equal(t, "private", visibilityFor(""))
}
