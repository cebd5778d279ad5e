package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDecision(t *testing.T, dir, filename, id, title, status string) {
	t.Helper()
	content := `---
id: ` + id + `
kind: decision
title: ` + title + `
status: ` + status + `
date: 2026-01-15
tags: [backend, storage]
deciders: [alice]
---

We decided to use an embedded graph and vector store rather than a
separate search service, to keep the tool dependency-free.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "ixchel")
	assert.Contains(t, out, "Usage:")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "sync")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "stats")
	assert.Contains(t, names, "clear")
}

func TestInit_CreatesIndexDirectory(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized")
	assert.DirExists(t, filepath.Join(dir, ".ixchel"))
	assert.FileExists(t, filepath.Join(dir, ".ixchel", "ixchel.toml"))
}

func TestInit_RefusesToOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)

	_, err = runCLI(t, "init", "--directory", dir)
	require.Error(t, err)
}

func TestInit_OverwritesWithForce(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)

	_, err = runCLI(t, "init", "--directory", dir, "--force")
	require.NoError(t, err)
}

func TestSync_RequiresInitFirst(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "sync", "--directory", dir)
	require.Error(t, err)
}

func TestSyncAndSearch_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, "decision-001.md", "DECISION-001", "Use embedded storage", "accepted")

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)

	syncOut, err := runCLI(t, "sync", "--directory", dir)
	require.NoError(t, err)
	assert.Contains(t, syncOut, "Sync complete")

	searchOut, err := runCLI(t, "search", "--directory", dir, "embedded graph and vector store")
	require.NoError(t, err)
	assert.Contains(t, searchOut, "Use embedded storage")
}

func TestSearch_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, "decision-001.md", "DECISION-001", "Use embedded storage", "accepted")

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)
	_, err = runCLI(t, "sync", "--directory", dir)
	require.NoError(t, err)

	out, err := runCLI(t, "search", "--directory", dir, "--json", "embedded storage")
	require.NoError(t, err)
	assert.Contains(t, out, `"query"`)
	assert.Contains(t, out, `"file_path"`)
}

func TestSearch_StatusFilterExcludesNonMatching(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, "decision-001.md", "DECISION-001", "Use embedded storage", "accepted")
	writeDecision(t, dir, "decision-002.md", "DECISION-002", "Use embedded storage", "proposed")

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)
	_, err = runCLI(t, "sync", "--directory", dir)
	require.NoError(t, err)

	out, err := runCLI(t, "search", "--directory", dir, "--json", "--status", "proposed", "embedded storage")
	require.NoError(t, err)
	assert.Contains(t, out, "DECISION-002")
	assert.NotContains(t, out, "DECISION-001")
}

func TestStats_ReportsNodeCount(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, "decision-001.md", "DECISION-001", "Use embedded storage", "accepted")

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)
	_, err = runCLI(t, "sync", "--directory", dir)
	require.NoError(t, err)

	out, err := runCLI(t, "stats", "--directory", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes:     1")
}

func TestClear_RemovesStorageButKeepsConfig(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, "decision-001.md", "DECISION-001", "Use embedded storage", "accepted")

	_, err := runCLI(t, "init", "--directory", dir)
	require.NoError(t, err)
	_, err = runCLI(t, "sync", "--directory", dir)
	require.NoError(t, err)

	_, err = runCLI(t, "clear", "--directory", dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, ".ixchel", "ixchel.toml"))

	statsOut, err := runCLI(t, "stats", "--directory", dir)
	require.NoError(t, err)
	assert.Contains(t, statsOut, "Nodes:     0")
}
