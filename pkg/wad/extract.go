package wad

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ritoshark/flint/pkg/hashes"
	"github.com/ritoshark/flint/pkg/logging"
)

// longPathBudget is the maximum length of a chunk's on-disk path relative to
// the extraction root. Paths over budget are written under their hex digest
// instead, with the original recorded in the extraction's path mappings.
const longPathBudget = 200

// PathMapping records substitutions of hash-named on-disk files for overlong
// logical paths, keyed by the normalized logical path. Downstream stages use
// it to locate files whose human-readable names never made it to disk.
type PathMapping map[string]string

// ExtractionResult reports the outcome of an extraction operation.
type ExtractionResult struct {
	// ExtractedCount is the number of chunks written to disk.
	ExtractedCount int
	// FailedCount is the number of chunks that could not be decoded or
	// written.
	FailedCount int
	// PathMappings records hash-name substitutions for overlong paths.
	PathMappings PathMapping
}

// ExtractOptions adjusts the behavior of ExtractAll.
type ExtractOptions struct {
	// Include restricts extraction to chunks whose resolved logical path
	// matches at least one of these doublestar patterns. An empty slice
	// extracts everything.
	Include []string
}

// selected indicates whether a resolved path passes the include patterns.
func (o *ExtractOptions) selected(resolved string) bool {
	if o == nil || len(o.Include) == 0 {
		return true
	}
	lower := strings.ToLower(resolved)
	for _, pattern := range o.Include {
		if matched, err := doublestar.Match(strings.ToLower(pattern), lower); err == nil && matched {
			return true
		}
	}
	return false
}

// ExtractAll materializes every chunk of the archive (or the subset selected
// by the options) beneath the output directory, resolving names through the
// hash store, inferring extensions for extensionless paths, and falling back
// to hex digest names when the platform rejects a filename. Individual chunk
// failures are logged and counted; they never abort the batch. Cancellation
// is honored between chunks.
func ExtractAll(ctx context.Context, reader *Reader, outputDir string, store *hashes.Store, options *ExtractOptions, logger *logging.Logger) (*ExtractionResult, error) {
	result := &ExtractionResult{PathMappings: make(PathMapping)}

	for _, digest := range reader.Digests() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		chunk := reader.chunks[digest]

		resolved := fmt.Sprintf("%016x", digest)
		if store != nil {
			resolved = store.Resolve(hashes.Game, digest)
		}
		if !options.selected(resolved) {
			continue
		}

		payload, err := reader.Decode(chunk)
		if err != nil {
			logger.Warnf("unable to decode chunk %s: %v", resolved, err)
			result.FailedCount++
			continue
		}

		finalPath := resolveChunkPath(resolved, payload)
		outputPath := filepath.Join(outputDir, filepath.FromSlash(finalPath))
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			logger.Warnf("unable to create directory for %s: %v", resolved, err)
			result.FailedCount++
			continue
		}

		if err := os.WriteFile(outputPath, payload, 0644); err != nil {
			// Platform filename rejections (length, reserved characters)
			// retry under the chunk's hex digest.
			hexPath := resolveChunkPath(fmt.Sprintf("%016x", digest), payload)
			hexOutput := filepath.Join(outputDir, filepath.FromSlash(hexPath))
			if writeErr := os.WriteFile(hexOutput, payload, 0644); writeErr != nil {
				logger.Warnf("unable to write chunk %s: %v", resolved, err)
				result.FailedCount++
				continue
			}
			logger.Infof("wrote %s under hex fallback %s", resolved, hexPath)
		}
		result.ExtractedCount++
		if result.ExtractedCount%100 == 0 {
			logger.Debugf("extracted %d/%d chunks", result.ExtractedCount, reader.Count())
		}
	}

	logger.Infof("extracted %d/%d chunks to %s", result.ExtractedCount, reader.Count(), outputDir)
	return result, nil
}

// ExtractSkinAssets materializes a champion archive's asset and data chunks
// beneath <outputDir>/<champion>.wad.client/ so that downstream tooling can
// treat the directory as a mountable archive. Only chunks whose resolved
// path begins with assets/ or data/ are written; chunks whose on-disk path
// would exceed the length budget are written under their hex digest with the
// substitution recorded in the result's path mappings.
//
// All matching chunks are extracted regardless of skin: pruning down to the
// chosen skin happens later during organization, once the skin tree's
// references are known.
func ExtractSkinAssets(ctx context.Context, reader *Reader, outputDir, champion string, store *hashes.Store, logger *logging.Logger) (*ExtractionResult, error) {
	result := &ExtractionResult{PathMappings: make(PathMapping)}

	wadFolderName := strings.ToLower(champion) + ".wad.client"
	wadOutputDir := filepath.Join(outputDir, wadFolderName)
	logger.Infof("extracting assets to %s", wadOutputDir)

	skippedUnknown := 0
	for _, digest := range reader.Digests() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		chunk := reader.chunks[digest]

		resolved := store.Resolve(hashes.Game, digest)
		lower := strings.ToLower(resolved)
		if !strings.HasPrefix(lower, "assets/") && !strings.HasPrefix(lower, "data/") {
			if isHexDigest(resolved) {
				skippedUnknown++
			}
			continue
		}

		payload, err := reader.Decode(chunk)
		if err != nil {
			logger.Warnf("unable to decode chunk %s: %v", resolved, err)
			result.FailedCount++
			continue
		}

		finalPath := resolveChunkPath(resolved, payload)
		relativePath := finalPath
		if len(path.Join(wadFolderName, finalPath)) > longPathBudget {
			parent := path.Dir(finalPath)
			if parent == "." {
				parent = "data"
			}
			extension := strings.TrimPrefix(path.Ext(finalPath), ".")
			if extension == "" || extension == "ltk" {
				extension = "bin"
			}
			relativePath = path.Join(parent, fmt.Sprintf("%016x.%s", digest, extension))
			original := strings.ToLower(finalPath)
			actual := strings.ToLower(relativePath)
			result.PathMappings[original] = actual
			logger.Infof("using hex digest for overlong path: %s -> %s", finalPath, relativePath)
		}

		outputPath := filepath.Join(wadOutputDir, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			logger.Warnf("unable to create directory for %s: %v", resolved, err)
			result.FailedCount++
			continue
		}
		if err := os.WriteFile(outputPath, payload, 0644); err != nil {
			logger.Warnf("unable to write %s: %v", outputPath, err)
			result.FailedCount++
			continue
		}
		result.ExtractedCount++
	}

	if skippedUnknown > 0 {
		logger.Warnf("skipped %d chunks with unresolved digests", skippedUnknown)
	}
	logger.Infof(
		"extracted %d/%d chunks (%d path mappings)",
		result.ExtractedCount, reader.Count(), len(result.PathMappings),
	)

	return result, nil
}

// FindChampionWAD locates the champion archive within a game installation.
// Champion names are normalized the way the installation lays them out:
// lowercased with apostrophes, spaces, and periods removed.
func FindChampionWAD(leaguePath, champion string) (string, error) {
	normalized := strings.ToLower(champion)
	normalized = strings.NewReplacer("'", "", " ", "", ".", "").Replace(normalized)
	wadPath := filepath.Join(
		leaguePath, "Game", "DATA", "FINAL", "Champions",
		normalized+".wad.client",
	)
	if _, err := os.Stat(wadPath); err != nil {
		return "", errors.Wrapf(err, "champion archive not found for %q", champion)
	}
	return wadPath, nil
}

// resolveChunkPath decides the on-disk filename for a chunk. Paths that
// already carry an extension are kept as-is; extensionless paths get a .ltk
// marker extension plus the canonical extension of the sniffed payload kind,
// when one exists.
func resolveChunkPath(logicalPath string, payload []byte) string {
	if path.Ext(logicalPath) != "" {
		return logicalPath
	}
	kind := IdentifyFileKind(payload)
	if extension := kind.Extension(); extension != "" {
		return logicalPath + ".ltk." + extension
	}
	return logicalPath + ".ltk"
}

// isHexDigest indicates whether a resolved name is an unresolved digest
// rendering rather than a logical path.
func isHexDigest(s string) bool {
	if len(s) != 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
