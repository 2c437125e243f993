package lookout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// MatchSnapshot compares the collection's current texts against a golden
// file stored in testdata/<sanitized-test-name>/<sanitized-name>.txt.
// It does not wait; assert on the collection first if the page is still
// loading.
//
// Set LOOKOUT_UPDATE=1 to create or update golden files.
func (c *Collection) MatchSnapshot(ctx context.Context, t testing.TB, name string) {
	t.Helper()
	capture, err := c.Capture(ctx)
	if err != nil {
		t.Fatalf("lookout: snapshot: %s: %v", c, err)
	}
	capture.MatchSnapshot(t, name)
}

// MatchSnapshot on Capture allows snapshotting previously captured texts.
func (c *Capture) MatchSnapshot(t testing.TB, name string) {
	t.Helper()

	dir := snapshotDir(t)
	path := filepath.Join(dir, sanitizeName(name)+".txt")
	content := normalizeForSnapshot(c.String())

	if shouldUpdate() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("lookout: snapshot: failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("lookout: snapshot: failed to write golden file: %v", err)
		}
		return
	}

	golden, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("lookout: snapshot: golden file not found: %s\nRun with LOOKOUT_UPDATE=1 to create it.\n\nActual texts:\n%s", path, content)
		}
		t.Fatalf("lookout: snapshot: failed to read golden file: %v", err)
	}

	if string(golden) != content {
		t.Fatalf("lookout: snapshot: mismatch for %q\nGolden file: %s\nRun with LOOKOUT_UPDATE=1 to update.\n\n%s",
			name, path, snapshotDiff(string(golden), content))
	}
}

// snapshotDiff renders a unified diff between golden and actual content.
func snapshotDiff(golden, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(golden),
		B:        difflib.SplitLines(actual),
		FromFile: "golden",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return "--- golden ---\n" + golden + "\n--- actual ---\n" + actual
	}
	return diff
}

// snapshotDir returns the directory for golden files for the current test.
// Uses testdata/<sanitized-test-name>-<hash>/ where hash ensures uniqueness.
func snapshotDir(t testing.TB) string {
	t.Helper()

	fullName := t.Name()
	sanitized := sanitizeName(fullName)

	h := sha256.Sum256([]byte(fullName))
	hash := hex.EncodeToString(h[:4])

	return filepath.Join("testdata", sanitized+"-"+hash)
}

// normalizeForSnapshot trims trailing spaces and blank lines and ends the
// content with a single newline.
func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

// sanitizeName replaces characters that are unsafe in file names.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// shouldUpdate returns true if LOOKOUT_UPDATE is set to a truthy value.
func shouldUpdate() bool {
	v := os.Getenv("LOOKOUT_UPDATE")
	return v == "1" || v == "true" || v == "yes"
}
