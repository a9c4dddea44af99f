package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// newScratchDir creates a scoped-lifetime temporary directory for one
// fetcher invocation. The returned cleanup func removes it; callers must
// defer cleanup() immediately so the directory is released on every exit
// path, including a panic unwind.
func newScratchDir(prefix string) (dir string, cleanup func(), err error) {
	dir, err = os.MkdirTemp("", "synopticspread-"+prefix+"-*")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// writeScratchFile persists a downloaded GRIB2 message under dir so it
// survives decode-time inspection (and crash postmortems) without being
// held only in memory.
func writeScratchFile(dir, varLevel string, raw []byte) error {
	name := strings.NewReplacer(":", "_", " ", "_", "/", "_").Replace(varLevel)
	path := filepath.Join(dir, fmt.Sprintf("%s.grib2", name))
	return os.WriteFile(path, raw, 0o644)
}
