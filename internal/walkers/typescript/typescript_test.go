package typescript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkClassHierarchy(t *testing.T) {
	src := []byte(`
interface Shape {
    area(): number;
}

class Widget extends Base implements Shape {
    area(): number {
        return 0;
    }
}
`)

	result, err := Walk("widget.ts", src)
	require.NoError(t, err)

	byName := map[string]string{}
	ids := map[string]string{}
	for _, s := range result.Symbols {
		byName[s.Name] = s.Kind
		ids[s.Name] = s.ID
	}
	assert.Equal(t, "interface", byName["Shape"])
	assert.Equal(t, "class", byName["Widget"])
	assert.Equal(t, "method", byName["area"])

	var sawExtends, sawImplements bool
	for _, e := range result.Edges {
		switch e.Kind {
		case "extends":
			sawExtends = true
		case "implements":
			sawImplements = true
			assert.Equal(t, ids["Shape"], e.Dst)
		}
	}
	assert.True(t, sawExtends)
	assert.True(t, sawImplements)
}

func TestWalkImport(t *testing.T) {
	src := []byte(`import { thing } from "./module";

function run() {}
`)

	result, err := Walk("app.ts", src)
	require.NoError(t, err)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "./module", result.Imports[0].SourceFile)

	require.Len(t, result.Dependencies, 1)
	assert.Equal(t, "./module", result.Dependencies[0].ToFile)
}

func TestMethodContainer(t *testing.T) {
	src := []byte(`class Widget {
    render(): void {}
}
`)
	result, err := Walk("widget2.ts", src)
	require.NoError(t, err)

	var found bool
	for _, s := range result.Symbols {
		if s.Name == "render" {
			found = true
			assert.Equal(t, "Widget", s.Container)
		}
	}
	assert.True(t, found, "expected render method symbol")
}
