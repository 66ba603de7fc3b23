package scan

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

func seed(t *testing.T, fs afero.Fs, path string, data string, mtime time.Time) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(data), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	if err := fs.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set mtime on %s: %v", path, err)
	}
}

func TestSpoolSelectsOldEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := fs.MkdirAll("/spool/job", 0o755); err != nil {
		t.Fatal(err)
	}
	seed(t, fs, "/spool/old.bin", "0123456789", now.Add(-2*time.Hour))
	seed(t, fs, "/spool/older.bin", "01", now.Add(-3*time.Hour))
	seed(t, fs, "/spool/fresh.bin", "x", now.Add(-time.Minute))
	seed(t, fs, "/spool/job/a", "aaaa", now.Add(-4*time.Hour))
	if err := fs.Chtimes("/spool/job", now.Add(-4*time.Hour), now.Add(-4*time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, err := Spool(fs, []string{"/spool"}, 30*time.Minute, false, now)
	if err != nil {
		t.Fatalf("Spool failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Path != "/spool/older.bin" || got[1].Path != "/spool/old.bin" {
		t.Errorf("Expected oldest first, got %s, %s", got[0].Path, got[1].Path)
	}
	if got[1].Size != 10 || got[1].Age != 2*time.Hour {
		t.Errorf("unexpected candidate fields: %+v", got[1])
	}
}

func TestSpoolDirectoryAgeUsesNewestEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-5 * time.Hour)

	for _, d := range []string{"/spool/done", "/spool/busy"} {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	seed(t, fs, "/spool/done/a", "aaa", old)
	seed(t, fs, "/spool/done/b", "bb", old)
	seed(t, fs, "/spool/busy/a", "a", old)
	seed(t, fs, "/spool/busy/b", "b", now.Add(-time.Minute))
	for _, d := range []string{"/spool/done", "/spool/busy"} {
		if err := fs.Chtimes(d, old, old); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Spool(fs, []string{"/spool"}, time.Hour, true, now)
	if err != nil {
		t.Fatalf("Spool failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected only the finished job, got %+v", got)
	}
	if got[0].Path != "/spool/done" || !got[0].IsDir || got[0].Size != 5 {
		t.Errorf("unexpected directory candidate: %+v", got[0])
	}
}

func TestSpoolMissingPath(t *testing.T) {
	if _, err := Spool(afero.NewMemMapFs(), []string{"/nope"}, 0, false, time.Now()); err == nil {
		t.Error("Expected error for missing spool directory")
	}
}

func TestDescribeDirectorySumsFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed(t, fs, "/target/a", "aaaa", now.Add(-time.Hour))
	seed(t, fs, "/target/sub/b", "bb", now.Add(-2*time.Hour))

	c, err := NewScanner(fs, nil).Describe("/target", now)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if !c.IsDir {
		t.Error("Expected directory candidate")
	}
	if c.Size != 6 {
		t.Errorf("Expected size 6, got %d", c.Size)
	}

	if _, err := NewScanner(fs, nil).Describe("/missing", now); err == nil {
		t.Error("Expected error for missing target")
	}
}
