package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("JOURNAL_PATH", filepath.Join(dir, "journal.db"))
	t.Setenv("TEMP_DIR", dir)
	t.Setenv("ENV", "test")

	submitHN, submitBP, submitHR, submitO2, submitFile = "", "", "", "", ""
	auditFolder = ""
	sandbox = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(dir, "missing.env"), "--sandbox"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubmitCommand(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "ecg_001.pdf")
	require.NoError(t, os.WriteFile(pdf, make([]byte, 2048), 0600))

	out, err := run(t, "submit", "--hn", "HN001", "--bp", "120/80", "--hr", "72", "--o2", "98", "--file", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved ecg_001.pdf for HN001 (2 KB)")
	assert.Contains(t, out, "sandbox://blob/")
}

func TestSubmitCommand_MissingField(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "ecg.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("pdf"), 0600))

	_, err := run(t, "submit", "--hn", "HN001", "--hr", "72", "--o2", "98", "--file", pdf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BP is required")
}

func TestSheetCommands(t *testing.T) {
	out, err := run(t, "sheet", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Header OK: 8 columns")

	_, err = run(t, "sheet", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestJournalList_Empty(t *testing.T) {
	out, err := run(t, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending appends: 0")
}

func TestHistoryCommand_NoRecords(t *testing.T) {
	out, err := run(t, "history", "HN404")
	require.NoError(t, err)
	assert.Contains(t, out, "No records for HN404")
}
