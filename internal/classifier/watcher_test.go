package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeRules(t *testing.T, path, issue string) {
	t.Helper()
	doc := "rules:\n  - error_code: E001\n    issue_type: " + issue + "\n    severity: Major\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func TestWatcherReloadsRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, "First")

	c := New(nil)
	w, err := NewWatcher(path, 20*time.Millisecond, c, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer func() { assert.NoError(t, w.Stop()) }()

	assert.Equal(t, "First", c.Classify("E001", "").IssueType)

	writeRules(t, path, "Second")
	require.Eventually(t, func() bool {
		return c.Classify("E001", "").IssueType == "Second"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherKeepsRulesOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, "Stable")

	c := New(nil)
	w, err := NewWatcher(path, 10*time.Millisecond, c, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer func() { assert.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("rules: ["), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "Stable", c.Classify("E001", "").IssueType)
}

func TestWatcherStartFailsOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []"), 0o644))

	w, err := NewWatcher(path, 0, New(nil), nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))

	_, err = NewWatcher("", 0, New(nil), nil)
	assert.Error(t, err)
}

func TestWatcherStopWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, "Unused")

	w, err := NewWatcher(path, 0, New(nil), nil)
	require.NoError(t, err)

	start := time.Now()
	assert.NoError(t, w.Stop())
	assert.Less(t, time.Since(start), time.Second)
}

func TestWatcherIgnoresReloadAfterStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, "Before")

	c := New(nil)
	w, err := NewWatcher(path, time.Hour, c, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	writeRules(t, path, "After")
	w.reload()
	assert.Equal(t, "Before", c.Classify("E001", "").IssueType)
}
