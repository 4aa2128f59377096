// Package filesystem provides filesystem primitives shared by the extraction
// and organization pipelines: atomic writes, case-insensitive path
// resolution, and directory pruning.
package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ResolveInsensitive resolves a slash-separated relative path beneath root
// against the filesystem without regard to casing. It first probes the path
// verbatim and, on a miss, walks the path segment by segment, scanning each
// parent directory for an entry whose lowercased name matches. The returned
// path is the on-disk relative path (using the platform separator). If no
// entry matches, the returned error wraps os.ErrNotExist: errors.Is reports
// it, while os.IsNotExist does not see through the wrapping.
//
// Logical paths inside property trees are case-insensitive references, but
// POSIX filesystems are not, so every on-disk lookup in the pipeline goes
// through this fallback before a path is declared missing.
func ResolveInsensitive(root, relPath string) (string, error) {
	// Fast path: the path exists as spelled.
	native := filepath.FromSlash(relPath)
	if _, err := os.Lstat(filepath.Join(root, native)); err == nil {
		return native, nil
	}

	// Walk segment by segment, matching case-insensitively at each level.
	segments := strings.Split(relPath, "/")
	resolved := ""
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		parent := filepath.Join(root, resolved)
		candidate := filepath.Join(resolved, segment)
		if _, err := os.Lstat(filepath.Join(root, candidate)); err == nil {
			resolved = candidate
			continue
		}
		entries, err := os.ReadDir(parent)
		if err != nil {
			return "", errors.Wrapf(os.ErrNotExist, "no case-insensitive match for %q", relPath)
		}
		lower := strings.ToLower(segment)
		matched := false
		for _, entry := range entries {
			if strings.ToLower(entry.Name()) == lower {
				resolved = filepath.Join(resolved, entry.Name())
				matched = true
				break
			}
		}
		if !matched {
			return "", errors.Wrapf(os.ErrNotExist, "no case-insensitive match for %q", relPath)
		}
	}
	return resolved, nil
}

// ExistsInsensitive indicates whether a slash-separated relative path exists
// beneath root, matching case-insensitively.
func ExistsInsensitive(root, relPath string) bool {
	_, err := ResolveInsensitive(root, relPath)
	return err == nil
}
