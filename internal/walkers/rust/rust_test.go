package rust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkDeclarations(t *testing.T) {
	src := []byte(`
struct Widget {
    name: String,
}

trait Shape {
    fn area(&self) -> f64;
}

impl Shape for Widget {
    fn area(&self) -> f64 {
        0.0
    }
}

fn make() -> Widget {
    Widget { name: String::new() }
}
`)

	result, err := Walk("lib.rs", src)
	require.NoError(t, err)

	byName := map[string]string{}
	ids := map[string]string{}
	for _, s := range result.Symbols {
		byName[s.Name] = s.Kind
		ids[s.Name] = s.ID
		assert.Equal(t, "lib.rs", s.File)
	}
	assert.Equal(t, "struct", byName["Widget"])
	assert.Equal(t, "trait", byName["Shape"])
	assert.Equal(t, "function", byName["make"])

	require.Len(t, result.Edges, 1)
	assert.Equal(t, "trait_impl", result.Edges[0].Kind)
	assert.Equal(t, ids["Shape"], result.Edges[0].Dst)
}

func TestWalkUseDeclaration(t *testing.T) {
	src := []byte(`use std::collections::HashMap;

fn main() {}
`)

	result, err := Walk("main.rs", src)
	require.NoError(t, err)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "HashMap", result.Imports[0].LocalName)
	assert.Equal(t, "std::collections::HashMap", result.Imports[0].SourceFile)

	require.Len(t, result.Dependencies, 1)
	assert.Equal(t, "use", result.Dependencies[0].Kind)
}

func TestSplitUsePath(t *testing.T) {
	local, original := splitUsePath("std::collections::HashMap")
	assert.Equal(t, "HashMap", local)
	assert.Equal(t, "std::collections::HashMap", original)

	local, original = splitUsePath("serde")
	assert.Equal(t, "serde", local)
	assert.Equal(t, "serde", original)
}
