package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validDecision = `---
id: dec-1
title: Test ADR
status: accepted
date: 2026-01-05
deciders:
  - Alice
tags:
  - testing
---

This is a test ADR.
`

func TestLoad_ValidEntity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001.md", validDecision)

	entities, warnings, err := Load(dir, Options{})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, entities, 1)
	assert.Equal(t, "dec-1", entities[0].ID)
	assert.Equal(t, "Test ADR", entities[0].Title)
	assert.Equal(t, "This is a test ADR.", entities[0].Body)
}

func TestLoad_MalformedFileIsRecoveredAsWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001.md", validDecision)
	writeFile(t, dir, "002.md", "No frontmatter here")

	entities, warnings, err := Load(dir, Options{})

	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Path, "002.md")
}

func TestLoad_MissingDirectoryIsFatal(t *testing.T) {
	_, _, err := Load("/nonexistent/path/for/ixchel", Options{})

	assert.Error(t, err)
}

func TestLoad_KindDisagreementWithIDIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001.md", `---
id: dec-1
kind: issue
title: Mismatched kind
status: accepted
date: 2026-01-05
---

body
`)

	entities, warnings, err := Load(dir, Options{})

	require.NoError(t, err)
	assert.Empty(t, entities)
	require.Len(t, warnings, 1)
}

func TestLoad_RecursiveWalksKindDirectories(t *testing.T) {
	dir := t.TempDir()
	decisionsDir := filepath.Join(dir, "decisions")
	require.NoError(t, os.MkdirAll(decisionsDir, 0o755))
	writeFile(t, decisionsDir, "001.md", validDecision)

	entities, _, err := Load(dir, Options{Recursive: true})

	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "dec-1", entities[0].ID)
}

func TestLoad_RecursiveHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	decisionsDir := filepath.Join(dir, "decisions")
	require.NoError(t, os.MkdirAll(decisionsDir, 0o755))
	writeFile(t, decisionsDir, "001.md", validDecision)
	writeFile(t, dir, ".gitignore", "decisions/\n")

	entities, _, err := Load(dir, Options{Recursive: true})

	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestLoad_NonRecursiveDoesNotDescendIntoSubdirectories(t *testing.T) {
	dir := t.TempDir()
	decisionsDir := filepath.Join(dir, "decisions")
	require.NoError(t, os.MkdirAll(decisionsDir, 0o755))
	writeFile(t, decisionsDir, "001.md", validDecision)

	entities, _, err := Load(dir, Options{Recursive: false})

	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestLoad_EmptyDirectoryProducesEmptyResult(t *testing.T) {
	dir := t.TempDir()

	entities, warnings, err := Load(dir, Options{})

	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Empty(t, warnings)
}
