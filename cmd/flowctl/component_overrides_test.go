package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesEmptyPathReturnsNil(t *testing.T) {
	overrides, err := loadOverrides("")
	require.NoError(t, err)
	assert.Nil(t, overrides)
}

func TestLoadOverridesMissingFileReturnsNil(t *testing.T) {
	overrides, err := loadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, overrides)
}

func TestLoadOverridesParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "component.yaml")
	content := "variables:\n  - name: a\n    initial: 3\n  - name: b\n    initial: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	overrides, err := loadOverrides(path)
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, "a", overrides[0].Name)
	assert.Equal(t, 3.0, overrides[0].Initial)
	assert.Equal(t, "b", overrides[1].Name)
	assert.Equal(t, 5.0, overrides[1].Initial)
}

func TestLoadOverridesRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "component.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variables: [unterminated"), 0644))

	_, err := loadOverrides(path)
	assert.Error(t, err)
}

func TestVariableByNameResolvesDemoVariables(t *testing.T) {
	id, ok := variableByName("a")
	assert.True(t, ok)
	assert.Equal(t, varA, id)

	_, ok = variableByName("nope")
	assert.False(t, ok)
}
