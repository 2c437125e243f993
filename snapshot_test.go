package lookout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureMatchSnapshot(t *testing.T) {
	c := newCapture([]string{"Home", "  About\n us ", "Contact"})
	c.MatchSnapshot(t, "menu")
}

func TestNormalizeForSnapshot(t *testing.T) {
	assert.Equal(t, "a\n  b\n", normalizeForSnapshot("a  \n  b\n\n\n"))
	assert.Equal(t, "\n", normalizeForSnapshot(""))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "TestX_sub_case_1", sanitizeName("TestX/sub case#1"))
	assert.Equal(t, "a-b_c.d", sanitizeName("a-b_c.d"))
}

func TestSnapshotDiff(t *testing.T) {
	diff := snapshotDiff("A\nB\nC\n", "A\nX\nC\n")
	assert.True(t, strings.HasPrefix(diff, "--- golden\n+++ actual\n"), diff)
	assert.Contains(t, diff, "-B\n")
	assert.Contains(t, diff, "+X\n")
}

func TestSnapshotDir(t *testing.T) {
	dir := snapshotDir(t)
	assert.True(t, strings.HasPrefix(dir, "testdata/TestSnapshotDir-"), dir)
	assert.Len(t, strings.TrimPrefix(dir, "testdata/TestSnapshotDir-"), 8)
}

func TestShouldUpdate(t *testing.T) {
	t.Setenv("LOOKOUT_UPDATE", "yes")
	assert.True(t, shouldUpdate())
	t.Setenv("LOOKOUT_UPDATE", "0")
	assert.False(t, shouldUpdate())
}
