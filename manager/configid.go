// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package manager

import (
	"path/filepath"
	"strings"
)

// ConfigID derives the on-disk configuration identity for a mountpoint:
// the symlink-resolved absolute path with the leading separator removed
// and the remaining separators replaced by "-". Distinct resolved paths
// yield distinct identities since the separator is the only character
// translated.
func ConfigID(mountpoint string) string {
	resolved := resolvePath(mountpoint)
	return strings.ReplaceAll(strings.TrimPrefix(resolved, "/"), "/", "-")
}

// resolvePath resolves symlinks as far as the filesystem allows:
// trailing components that do not exist are kept verbatim under the
// deepest resolvable ancestor.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	prefix, suffix := abs, ""
	for {
		resolved, err := filepath.EvalSymlinks(prefix)
		if err == nil {
			return filepath.Join(resolved, suffix)
		}
		parent, base := filepath.Split(filepath.Clean(prefix))
		if parent == prefix || base == "" {
			return abs
		}
		prefix, suffix = parent, filepath.Join(base, suffix)
	}
}
