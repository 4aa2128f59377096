// Package validation cross-checks the asset references of a property tree
// against an index of available digests, reporting present and missing
// references grouped by inferred asset kind.
package validation

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ritoshark/flint/pkg/bin"
)

// AssetKind is the coarse classification of a referenced asset, inferred
// from its path.
type AssetKind string

const (
	// KindTexture covers texture formats.
	KindTexture AssetKind = "Texture"
	// KindModel covers skinned meshes.
	KindModel AssetKind = "Model"
	// KindSkeleton covers skeletons.
	KindSkeleton AssetKind = "Skeleton"
	// KindAnimation covers animations.
	KindAnimation AssetKind = "Animation"
	// KindAudio covers audio banks and packages.
	KindAudio AssetKind = "Audio"
	// KindBinary covers property trees.
	KindBinary AssetKind = "Binary"
	// KindParticle covers particle and VFX assets.
	KindParticle AssetKind = "Particle"
	// KindUnknown covers everything else.
	KindUnknown AssetKind = "Unknown"
)

// Reference is a single asset reference extracted from a tree.
type Reference struct {
	// Path is the referenced logical path.
	Path string
	// PathDigest is the 64-bit digest of the normalized path.
	PathDigest uint64
	// Kind is the inferred asset kind.
	Kind AssetKind
	// Line is the 1-indexed source line for references extracted from text
	// form, zero otherwise.
	Line int
}

// MissingAsset records one unresolvable reference.
type MissingAsset struct {
	// Path is the referenced logical path.
	Path string
	// PathDigest is the 64-bit digest of the normalized path.
	PathDigest uint64
	// SourceFile names the tree the reference came from.
	SourceFile string
	// Kind is the inferred asset kind.
	Kind AssetKind
}

// KindStats aggregates per-kind counts.
type KindStats struct {
	// Total is the number of references of this kind.
	Total int
	// Valid is the number that resolved.
	Valid int
	// Missing is the number that did not.
	Missing int
}

// Report partitions every checked reference into present and missing.
type Report struct {
	// TotalReferences is the number of references checked.
	TotalReferences int
	// ValidReferences is the number that resolved against the index.
	ValidReferences int
	// MissingAssets lists the references that did not resolve.
	MissingAssets []MissingAsset
	// StatsByKind aggregates counts per inferred kind.
	StatsByKind map[AssetKind]*KindStats
}

// Valid indicates whether every reference resolved.
func (r *Report) Valid() bool {
	return len(r.MissingAssets) == 0
}

// SuccessRate returns the fraction of resolved references as a percentage.
// An empty report is fully valid.
func (r *Report) SuccessRate() float64 {
	if r.TotalReferences == 0 {
		return 100
	}
	return float64(r.ValidReferences) / float64(r.TotalReferences) * 100
}

// PathDigest computes the 64-bit digest of a logical path (xxh64 over the
// lowercased, slash-normalized form).
func PathDigest(path string) uint64 {
	normalized := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	return xxhash.Sum64String(normalized)
}

// Validate checks references against an index of available path digests
// (an archive index or an on-disk expected set).
func Validate(references []Reference, available map[uint64]struct{}, sourceFile string) *Report {
	report := &Report{
		TotalReferences: len(references),
		StatsByKind:     make(map[AssetKind]*KindStats),
	}
	for _, reference := range references {
		stats := report.StatsByKind[reference.Kind]
		if stats == nil {
			stats = &KindStats{}
			report.StatsByKind[reference.Kind] = stats
		}
		stats.Total++

		if _, ok := available[reference.PathDigest]; ok {
			report.ValidReferences++
			stats.Valid++
			continue
		}
		stats.Missing++
		report.MissingAssets = append(report.MissingAssets, MissingAsset{
			Path:       reference.Path,
			PathDigest: reference.PathDigest,
			SourceFile: sourceFile,
			Kind:       reference.Kind,
		})
	}
	return report
}

// ExtractTreeReferences extracts asset references from a live tree by
// walking its string-valued leaves.
func ExtractTreeReferences(tree *bin.Tree) []Reference {
	seen := make(map[string]struct{})
	var references []Reference
	for _, object := range tree.Objects {
		for _, property := range object.Properties {
			collectValueReferences(property.Value, seen, &references)
		}
	}
	return references
}

// collectValueReferences recursively extracts references from a value.
func collectValueReferences(value bin.Value, seen map[string]struct{}, into *[]Reference) {
	switch v := value.(type) {
	case bin.String:
		addReference(string(v), 0, seen, into)
	case *bin.Container:
		for _, item := range v.Items {
			collectValueReferences(item, seen, into)
		}
	case *bin.UnorderedContainer:
		for _, item := range v.Items {
			collectValueReferences(item, seen, into)
		}
	case *bin.Struct:
		for _, property := range v.Properties {
			collectValueReferences(property.Value, seen, into)
		}
	case *bin.Embedded:
		for _, property := range v.Properties {
			collectValueReferences(property.Value, seen, into)
		}
	case *bin.Optional:
		if v.Value != nil {
			collectValueReferences(v.Value, seen, into)
		}
	case *bin.Map:
		for _, entry := range v.Entries {
			collectValueReferences(entry.Key(), seen, into)
			collectValueReferences(entry.Value, seen, into)
		}
	}
}

// ExtractTextReferences extracts asset references from a tree's text form
// by scanning quoted strings line by line.
func ExtractTextReferences(content string) []Reference {
	seen := make(map[string]struct{})
	var references []Reference
	for lineNumber, line := range strings.Split(content, "\n") {
		for _, candidate := range quotedStrings(line) {
			addReference(candidate, lineNumber+1, seen, &references)
		}
	}
	return references
}

// quotedStrings extracts the contents of double-quoted spans from a line.
func quotedStrings(line string) []string {
	var result []string
	inQuote := false
	var current strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && inQuote && i+1 < len(line) {
			current.WriteByte(line[i+1])
			i++
			continue
		}
		if c == '"' {
			if inQuote {
				result = append(result, current.String())
				current.Reset()
			}
			inQuote = !inQuote
			continue
		}
		if inQuote {
			current.WriteByte(c)
		}
	}
	return result
}

// addReference records a candidate path if it looks like an asset reference
// and hasn't been seen.
func addReference(candidate string, line int, seen map[string]struct{}, into *[]Reference) {
	if !IsAssetPath(candidate) {
		return
	}
	if _, duplicate := seen[candidate]; duplicate {
		return
	}
	seen[candidate] = struct{}{}
	*into = append(*into, Reference{
		Path:       candidate,
		PathDigest: PathDigest(candidate),
		Kind:       InferKind(candidate),
		Line:       line,
	})
}

// assetPathPrefixes are path fragments that mark a string as an asset
// reference.
var assetPathPrefixes = []string{
	"assets/", "data/", "characters/", "particles/", "sfx/", "vo/", "ui/",
}

// assetExtensions are file extensions that mark a string as an asset
// reference.
var assetExtensions = []string{
	".dds", ".tex", ".png", ".jpg",
	".skn", ".skl", ".anm",
	".bin", ".bnk", ".wem", ".wpk",
	".troybin", ".luabin",
}

// IsAssetPath indicates whether a string plausibly references an asset.
func IsAssetPath(s string) bool {
	if len(s) < 5 {
		return false
	}
	if !strings.ContainsAny(s, "/\\") {
		return false
	}
	lower := strings.ToLower(s)
	for _, prefix := range assetPathPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	for _, extension := range assetExtensions {
		if strings.HasSuffix(lower, extension) {
			return true
		}
	}
	return false
}

// InferKind infers the asset kind from a path.
func InferKind(path string) AssetKind {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".dds"), strings.HasSuffix(lower, ".tex"), strings.HasSuffix(lower, ".png"):
		return KindTexture
	case strings.HasSuffix(lower, ".skn"):
		return KindModel
	case strings.HasSuffix(lower, ".skl"):
		return KindSkeleton
	case strings.HasSuffix(lower, ".anm"):
		return KindAnimation
	case strings.HasSuffix(lower, ".bnk"), strings.HasSuffix(lower, ".wem"), strings.HasSuffix(lower, ".wpk"):
		return KindAudio
	case strings.HasSuffix(lower, ".bin"), strings.HasSuffix(lower, ".troybin"):
		return KindBinary
	case strings.Contains(lower, "particle"), strings.Contains(lower, "/vfx/"):
		return KindParticle
	default:
		return KindUnknown
	}
}
