package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkClassAndMethod(t *testing.T) {
	src := []byte(`class Base:
    pass


class Widget(Base):
    def render(self):
        pass

    def _hidden(self):
        pass
`)

	result, err := Walk("widget.py", src)
	require.NoError(t, err)

	byName := map[string]string{}
	ids := map[string]string{}
	for _, s := range result.Symbols {
		byName[s.Name] = s.Kind
		ids[s.Name] = s.ID
	}
	assert.Equal(t, "class", byName["Base"])
	assert.Equal(t, "class", byName["Widget"])
	assert.Equal(t, "method", byName["render"])
	assert.Equal(t, "method", byName["_hidden"])

	var sawExtends bool
	for _, e := range result.Edges {
		if e.Kind == "extends" {
			sawExtends = true
			assert.Equal(t, ids["Base"], e.Dst)
		}
	}
	assert.True(t, sawExtends)

	for _, s := range result.Symbols {
		if s.Name == "_hidden" {
			assert.Equal(t, "private", s.Visibility)
		}
		if s.Name == "render" {
			assert.Equal(t, "public", s.Visibility)
			assert.Equal(t, "Widget", s.Container)
		}
	}
}

func TestWalkImports(t *testing.T) {
	src := []byte(`import os
from collections import OrderedDict
`)

	result, err := Walk("app.py", src)
	require.NoError(t, err)
	require.Len(t, result.Imports, 2)
	require.Len(t, result.Dependencies, 2)

	var sawPlain, sawFrom bool
	for _, imp := range result.Imports {
		if imp.SourceFile == "os" {
			sawPlain = true
			assert.Equal(t, "os", imp.LocalName)
		}
		if imp.SourceFile == "collections" {
			sawFrom = true
			assert.Equal(t, "OrderedDict", imp.LocalName)
		}
	}
	assert.True(t, sawPlain)
	assert.True(t, sawFrom)
}
