package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"dvdmirror/internal/dvderr"
)

// titleNameFromSource derives a default mirror directory name from a source
// path: its base name with any trailing slash and file extension stripped.
func titleNameFromSource(source string) string {
	base := filepath.Base(filepath.Clean(source))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ensureRoot creates the VIDEO_TS output directory tree before any core
// package opens a file under it; output.Open is O_CREATE-only and assumes
// the directory already exists.
func ensureRoot(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return dvderr.New(dvderr.KindFileIO, root, "creating output directory", err)
	}
	return nil
}
