package organizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/bin"
	"github.com/ritoshark/flint/pkg/filesystem"
	"github.com/ritoshark/flint/pkg/logging"
	"github.com/ritoshark/flint/pkg/wad"
)

// RepathResult reports the outcome of a repathing operation.
type RepathResult struct {
	// BinsProcessed is the number of trees rewritten (or inspected).
	BinsProcessed int
	// PathsModified is the total number of string substitutions.
	PathsModified int
	// FilesRelocated is the number of asset files moved to their
	// namespaced locations.
	FilesRelocated int
	// FilesRemoved is the number of unreferenced files removed.
	FilesRemoved int
	// MissingPaths lists referenced paths that did not resolve on disk.
	MissingPaths []string
}

// Repath prefixes every asset path referenced by the main skin tree and its
// linked trees under ASSETS/<creator>/<project>, physically relocates the
// corresponding files, and prunes files the rewritten trees no longer
// reference.
func Repath(contentBase string, config *Config, mappings wad.PathMapping, logger *logging.Logger) (*RepathResult, error) {
	if _, err := os.Stat(contentBase); err != nil {
		return nil, errors.Wrap(err, "content base not found")
	}
	root := selectRoot(contentBase, config.Champion, logger)
	prefix := config.Prefix()
	logger.Infof("repathing under prefix ASSETS/%s", prefix)

	// Locate the main skin tree and assemble the working set.
	mainPath, err := findMainSkinTree(root, config.Champion, config.TargetSkinID)
	if err != nil {
		return nil, err
	}
	logger.Infof("main skin tree: %s", mainPath)

	treePaths := []string{mainPath}
	if mainTree, err := bin.ParseFile(mainPath); err != nil {
		logger.Warnf("unable to parse main tree for dependency discovery: %v", err)
	} else {
		for _, dependency := range mainTree.Dependencies {
			normalized := normalizePath(dependency)
			actual := normalized
			if mapped, ok := mappings[normalized]; ok {
				actual = mapped
			}
			resolved, err := filesystem.ResolveInsensitive(root, actual)
			if err != nil {
				logger.Warnf("linked tree not found: %s", normalized)
				continue
			}
			treePaths = append(treePaths, filepath.Join(root, resolved))
		}
	}
	logger.Infof("working set: %d trees", len(treePaths))

	// Collect every referenced asset path.
	referenced := make(map[string]struct{})
	for _, treePath := range treePaths {
		tree, err := bin.ParseFile(treePath)
		if err != nil {
			logger.Warnf("unable to scan %s: %v", treePath, err)
			continue
		}
		collectTreePaths(tree, referenced)
	}
	logger.Infof("found %d unique asset paths", len(referenced))

	// Partition into existing and missing, case-insensitively.
	result := &RepathResult{}
	existing := make(map[string]struct{}, len(referenced))
	for path := range referenced {
		if filesystem.ExistsInsensitive(root, path) {
			existing[path] = struct{}{}
		} else {
			result.MissingPaths = append(result.MissingPaths, path)
		}
	}
	if len(result.MissingPaths) > 0 {
		logger.Warnf("%d referenced paths not found on disk", len(result.MissingPaths))
	}

	// Rewrite the working set.
	for _, treePath := range treePaths {
		tree, err := bin.ParseFile(treePath)
		if err != nil {
			logger.Warnf("unable to rewrite %s: %v", treePath, err)
			continue
		}
		modified := rewriteTreePaths(tree, existing, prefix)
		if modified > 0 {
			data, err := bin.Write(tree)
			if err != nil {
				logger.Warnf("unable to serialize %s: %v", treePath, err)
				continue
			}
			if err := filesystem.WriteFileAtomic(treePath, data, 0644); err != nil {
				logger.Warnf("unable to write %s: %v", treePath, err)
				continue
			}
			result.PathsModified += modified
		}
		result.BinsProcessed++
	}

	// Relocate the backing files (trees stay where their whitelist rules
	// put them).
	for path := range existing {
		if strings.HasSuffix(path, ".bin") || alreadyPrefixed(path, prefix) {
			continue
		}
		if err := relocateFile(root, path, prefix); err != nil {
			logger.Warnf("unable to relocate %s: %v", path, err)
			continue
		}
		result.FilesRelocated++
	}

	if config.CleanupUnused {
		result.FilesRemoved = cleanupUnusedFiles(root, existing, prefix, logger)
	}
	cleanupIrrelevantTrees(root, config.TargetSkinID, logger)
	filesystem.RemoveEmptyDirectories(root)

	logger.Infof(
		"repathing complete: %d trees, %d paths modified, %d files relocated, %d removed",
		result.BinsProcessed, result.PathsModified, result.FilesRelocated, result.FilesRemoved,
	)
	return result, nil
}

// selectRoot picks the working root: the champion WAD folder when present,
// the content base itself for legacy layouts.
func selectRoot(contentBase, champion string, logger *logging.Logger) string {
	wadBase := filepath.Join(contentBase, strings.ToLower(champion)+".wad.client")
	if info, err := os.Stat(wadBase); err == nil && info.IsDir() {
		return wadBase
	}
	logger.Infof("no WAD folder found, using legacy layout")
	return contentBase
}

// findMainSkinTree locates the main skin tree for the target skin. The
// direct candidate paths are probed first; failing that, a recursive search
// matches any tree whose relative path ends with a candidate. Absence is a
// hard error.
func findMainSkinTree(root, champion string, skinID uint32) (string, error) {
	champion = strings.ToLower(champion)
	candidates := []string{
		fmt.Sprintf("data/characters/%s/skins/skin%d.bin", champion, skinID),
		fmt.Sprintf("data/characters/%s/skins/skin%02d.bin", champion, skinID),
	}

	for _, candidate := range candidates {
		if resolved, err := filesystem.ResolveInsensitive(root, candidate); err == nil {
			return filepath.Join(root, resolved), nil
		}
	}

	var found string
	filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || found != "" || entry.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".bin") {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		normalized := normalizePath(filepath.ToSlash(relative))
		for _, candidate := range candidates {
			if strings.HasSuffix(normalized, candidate) {
				found = path
				break
			}
		}
		return nil
	})
	if found == "" {
		return "", errors.Errorf("main skin tree not found for %s skin %d", champion, skinID)
	}
	return found, nil
}

// relocateFile moves one asset file to its namespaced location with a
// copy-then-delete so that a failure cannot lose the original.
func relocateFile(root, path, prefix string) error {
	resolved, err := filesystem.ResolveInsensitive(root, path)
	if err != nil {
		return errors.Wrap(err, "source vanished")
	}
	source := filepath.Join(root, resolved)
	destination := filepath.Join(root, filepath.FromSlash(applyPrefix(path, prefix)))

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return errors.Wrap(err, "unable to create destination directory")
	}
	if err := copyFile(source, destination); err != nil {
		return err
	}
	if err := os.Remove(source); err != nil {
		return errors.Wrap(err, "unable to remove source")
	}
	return nil
}

// copyFile copies a single file's contents.
func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return errors.Wrap(err, "unable to open source")
	}
	defer in.Close()
	out, err := os.Create(destination)
	if err != nil {
		return errors.Wrap(err, "unable to create destination")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "unable to copy contents")
	}
	return out.Close()
}

// cleanupUnusedFiles removes every non-tree file whose relative path is not
// in the expected (namespaced) set.
func cleanupUnusedFiles(root string, existing map[string]struct{}, prefix string, logger *logging.Logger) int {
	expected := make(map[string]struct{}, len(existing))
	for path := range existing {
		if alreadyPrefixed(path, prefix) {
			expected[path] = struct{}{}
		} else {
			expected[normalizePath(applyPrefix(path, prefix))] = struct{}{}
		}
	}

	removed := 0
	filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".bin") {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		normalized := normalizePath(filepath.ToSlash(relative))
		if _, ok := expected[normalized]; ok {
			return nil
		}
		if err := os.Remove(path); err != nil {
			logger.Warnf("unable to remove %s: %v", path, err)
		} else {
			removed++
		}
		return nil
	})
	return removed
}

// cleanupIrrelevantTrees prunes extracted trees outside the whitelist: the
// concat tree, the target skin's main tree, and the target skin's animation
// tree. Everything else under the root is deleted.
func cleanupIrrelevantTrees(root string, skinID uint32, logger *logging.Logger) int {
	keepNames := []string{
		fmt.Sprintf("skin%d.bin", skinID),
		fmt.Sprintf("skin%02d.bin", skinID),
	}

	removed := 0
	filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".bin") {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		normalized := normalizePath(filepath.ToSlash(relative))
		filename := normalized[strings.LastIndex(normalized, "/")+1:]

		if strings.Contains(filename, "__concat") {
			return nil
		}
		for _, keep := range keepNames {
			if filename == keep && (strings.Contains(normalized, "/skins/") || strings.Contains(normalized, "/animations/")) {
				return nil
			}
		}

		if err := os.Remove(path); err != nil {
			logger.Warnf("unable to remove tree %s: %v", path, err)
		} else {
			logger.Debugf("removed irrelevant tree: %s", normalized)
			removed++
		}
		return nil
	})
	if removed > 0 {
		logger.Infof("removed %d irrelevant trees", removed)
	}
	return removed
}
