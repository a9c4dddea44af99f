package fetch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScratchDirLifecycle(t *testing.T) {
	dir, cleanup, err := newScratchDir("test")
	if err != nil {
		t.Fatal(err)
	}
	if err := writeScratchFile(dir, "UGRD:10 m above ground", []byte("data")); err != nil {
		t.Fatal(err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.grib2"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 scratch file, got %v", matches)
	}

	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir removed after cleanup, stat err = %v", err)
	}
}
