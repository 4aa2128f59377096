package filesystem

import (
	"os"
	"path/filepath"
	"sort"
)

// RemoveEmptyDirectories removes all empty directories beneath (and
// including) the specified root, pruning bottom-up so that directories left
// empty by the removal of their children are themselves removed. Removal
// failures are ignored; the operation is best-effort by design.
func RemoveEmptyDirectories(root string) {
	// Collect directories in depth order.
	var directories []string
	filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			directories = append(directories, path)
		}
		return nil
	})

	// Deepest paths sort last; process in reverse so children go first.
	sort.Strings(directories)
	for i := len(directories) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(directories[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		os.Remove(directories[i])
	}
}
