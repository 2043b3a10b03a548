package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/frameworks"
	"github.com/mehtasarang17/dockguard-ai/service"
)

func TestSelectFrameworks(t *testing.T) {
	catalog := frameworks.Default()

	selected, err := selectFrameworks(catalog, "")
	require.NoError(t, err)
	assert.Len(t, selected, len(frameworks.CoreKeys))

	selected, err = selectFrameworks(catalog, " GDPR, HIPAA ,GDPR,")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"GDPR": false, "HIPAA": false}, selected)

	_, err = selectFrameworks(catalog, "GDPR,NOPE")
	assert.ErrorIs(t, err, service.ErrUnsupportedFramework)
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "policy.md")
	require.NoError(t, os.WriteFile(good, []byte("# Access\nMFA everywhere."), 0o600))

	docs, err := readDocuments([]string{good})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "policy.md", docs[0].Filename)
	assert.Contains(t, docs[0].Text, "MFA")

	pdf := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7"), 0o600))
	_, err = readDocuments([]string{pdf})
	assert.ErrorIs(t, err, service.ErrUnsupportedFileType)

	_, err = readDocuments([]string{filepath.Join(dir, "missing.md")})
	assert.Error(t, err)
}
