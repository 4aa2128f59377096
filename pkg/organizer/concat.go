package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/bin"
	"github.com/ritoshark/flint/pkg/filesystem"
	"github.com/ritoshark/flint/pkg/logging"
	"github.com/ritoshark/flint/pkg/wad"
)

// ConcatResult reports the outcome of a concatenation.
type ConcatResult struct {
	// ConcatPath is the logical path of the written concat tree.
	ConcatPath string
	// SourceCount is the number of linked trees merged.
	SourceCount int
	// ObjectCount is the number of objects in the concat tree.
	ObjectCount int
	// CollisionCount is the number of path digest collisions resolved by
	// last-write-wins during the merge.
	CollisionCount int
	// SourcePaths lists the on-disk relative paths of the merged sources.
	SourcePaths []string
}

// ConcatenateLinkedTrees merges every linked-data dependency of the main
// tree at mainPath into a single concat tree under root, rewrites the main
// tree's dependency list to [concat, root, animation], and deletes the
// merged sources. Sources that are missing, unparseable, or crash the
// parser are skipped with a warning; source deletion failures are logged
// but never fail the operation.
func ConcatenateLinkedTrees(mainPath string, config *Config, root string, mappings wad.PathMapping, logger *logging.Logger) (*ConcatResult, error) {
	mainTree, err := bin.ParseFile(mainPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse main tree")
	}

	// Retain only linked-data dependencies, honoring Ignore promotions.
	var linked []string
	for _, dependency := range mainTree.Dependencies {
		normalized := normalizePath(dependency)
		if config.ignored(normalized) {
			logger.Warnf("ignoring suspicious linked tree: %s", dependency)
			continue
		}
		if bin.Classify(dependency) == bin.CategoryLinkedData {
			linked = append(linked, dependency)
		}
	}
	if len(linked) == 0 {
		return nil, errors.New("main tree has no linked-data dependencies")
	}
	logger.Infof("found %d linked-data trees to concatenate", len(linked))

	// Merge all objects, last-write-wins on collisions.
	output := bin.NewTree()
	result := &ConcatResult{}
	for _, dependency := range linked {
		normalized := normalizePath(dependency)
		actual := normalized
		if mapped, ok := mappings[normalized]; ok {
			actual = mapped
		}
		resolved, err := filesystem.ResolveInsensitive(root, actual)
		if err != nil {
			logger.Warnf("linked tree not found, skipping: %s (tried %s)", normalized, actual)
			continue
		}
		fullPath := filepath.Join(root, resolved)

		source, err := bin.ParseFile(fullPath)
		if err != nil {
			// CrashError and ordinary parse failures alike skip the source;
			// one corrupt tree must not abort the batch.
			logger.Warnf("unable to parse linked tree %s: %v", actual, err)
			continue
		}
		if len(source.Dependencies) > 0 {
			logger.Warnf(
				"linked tree has %d dependencies of its own, may cause issues: %s",
				len(source.Dependencies), dependency,
			)
		}

		for _, object := range source.Objects {
			if output.Insert(object) {
				result.CollisionCount++
				logger.Warnf("digest collision for 0x%08x in %s, last write wins", object.PathDigest, dependency)
			}
		}
		result.SourceCount++
		result.SourcePaths = append(result.SourcePaths, filepath.ToSlash(resolved))
	}
	result.ObjectCount = len(output.Objects)

	// Name and write the concat tree, then prove it parses back before
	// trusting it.
	result.ConcatPath = fmt.Sprintf(
		"data/%s_%s_%s__Concat.bin",
		strings.ToLower(config.Champion), Slugify(config.CreatorName), Slugify(config.ProjectName),
	)
	concatFullPath := filepath.Join(root, filepath.FromSlash(result.ConcatPath))
	if err := os.MkdirAll(filepath.Dir(concatFullPath), 0755); err != nil {
		return nil, errors.Wrap(err, "unable to create concat directory")
	}
	concatData, err := bin.Write(output)
	if err != nil {
		return nil, errors.Wrap(err, "unable to serialize concat tree")
	}
	if err := filesystem.WriteFileAtomic(concatFullPath, concatData, 0644); err != nil {
		return nil, errors.Wrap(err, "unable to write concat tree")
	}
	if _, err := bin.Parse(concatData); err != nil {
		os.Remove(concatFullPath)
		return nil, errors.Wrap(err, "concat tree does not parse back")
	}
	logger.Infof(
		"wrote concat tree %s: %d objects from %d sources (%d collisions)",
		result.ConcatPath, result.ObjectCount, result.SourceCount, result.CollisionCount,
	)

	// Rewrite the main tree's dependency list: concat first, then the root
	// and animation trees when present, in that order.
	newDependencies := []string{result.ConcatPath}
	for _, category := range []bin.Category{bin.CategoryRoot, bin.CategoryAnimation} {
		for _, dependency := range mainTree.Dependencies {
			if bin.Classify(dependency) == category {
				newDependencies = append(newDependencies, dependency)
				break
			}
		}
	}
	mainTree.Dependencies = newDependencies
	mainData, err := bin.Write(mainTree)
	if err != nil {
		return nil, errors.Wrap(err, "unable to serialize main tree")
	}
	if err := filesystem.WriteFileAtomic(mainPath, mainData, 0644); err != nil {
		return nil, errors.Wrap(err, "unable to write main tree")
	}

	// Delete the merged sources. A prior concat output can itself be a
	// source when re-running; it must never be deleted out from under the
	// freshly written tree.
	deleted := 0
	for _, source := range result.SourcePaths {
		if normalizePath(source) == normalizePath(result.ConcatPath) {
			continue
		}
		fullPath := filepath.Join(root, filepath.FromSlash(source))
		if err := os.Remove(fullPath); err != nil {
			logger.Warnf("unable to delete merged source %s: %v", source, err)
		} else {
			deleted++
		}
	}
	logger.Infof("deleted %d merged source trees", deleted)

	return result, nil
}
