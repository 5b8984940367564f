package scratch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gotestmon/testmon/internal/scratch"
)

func TestOpen_SetsGOCOVERDIRAndCreatesDir(t *testing.T) {
	root := t.TempDir()

	s, err := scratch.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer s.Close() //nolint:errcheck

	if _, err := os.Stat(s.CoverDir()); err != nil {
		t.Errorf("cover dir not created: %v", err)
	}

	if got := os.Getenv("GOCOVERDIR"); got != s.CoverDir() {
		t.Errorf("GOCOVERDIR = %q, want %q", got, s.CoverDir())
	}
}

func TestClose_RestoresPriorGOCOVERDIR(t *testing.T) {
	root := t.TempDir()

	t.Setenv("GOCOVERDIR", "/prior/value")

	s, err := scratch.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := os.Getenv("GOCOVERDIR"); got != "/prior/value" {
		t.Errorf("GOCOVERDIR after Close = %q, want restored %q", got, "/prior/value")
	}
}

func TestClose_RemovesScratchDirectory(t *testing.T) {
	root := t.TempDir()

	s, err := scratch.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	scratchDir := filepath.Dir(s.CoverDir())

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(scratchDir); !os.IsNotExist(err) {
		t.Errorf("scratch directory should be removed, stat err = %v", err)
	}
}

func TestCombineText_NoCounterFilesIsNoop(t *testing.T) {
	root := t.TempDir()

	s, err := scratch.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer s.Close() //nolint:errcheck

	out := filepath.Join(root, "merged.out")

	if err := s.CombineText(context.Background(), out); err != nil {
		t.Fatalf("CombineText: %v", err)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("no output expected when no counter files were written")
	}
}

func TestForTest_PointsGOCOVERDIRAtIsolatedSubdir(t *testing.T) {
	root := t.TempDir()

	s, err := scratch.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer s.Close() //nolint:errcheck

	dir, err := s.ForTest("pkg_TestFoo")
	if err != nil {
		t.Fatalf("ForTest: %v", err)
	}

	if filepath.Dir(dir) != s.CoverDir() {
		t.Errorf("ForTest dir = %q, want child of %q", dir, s.CoverDir())
	}

	if got := os.Getenv("GOCOVERDIR"); got != dir {
		t.Errorf("GOCOVERDIR = %q, want %q", got, dir)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("ForTest dir not created: %v", err)
	}
}

func TestCombineDir_NoCounterFilesIsNoop(t *testing.T) {
	root := t.TempDir()

	s, err := scratch.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	defer s.Close() //nolint:errcheck

	dir, err := s.ForTest("pkg_TestFoo")
	if err != nil {
		t.Fatalf("ForTest: %v", err)
	}

	out := filepath.Join(root, "pkg_TestFoo.out")

	if err := s.CombineDir(context.Background(), dir, out); err != nil {
		t.Fatalf("CombineDir: %v", err)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("no output expected when no counter files were written")
	}
}
