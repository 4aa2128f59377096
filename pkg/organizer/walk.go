package organizer

import (
	"strings"

	"github.com/ritoshark/flint/pkg/bin"
)

// isAssetPath indicates whether a string value references an asset: its
// lowercase form starts with assets/ or data/.
func isAssetPath(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "assets/") || strings.HasPrefix(lower, "data/")
}

// normalizePath lowercases a logical path and normalizes separators.
func normalizePath(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "\\", "/"))
}

// alreadyPrefixed indicates whether a normalized path already lives under
// the namespace prefix. Prefixed paths are fixed points of the rewrite:
// without this check a second run would nest them again.
func alreadyPrefixed(normalized, prefix string) bool {
	return strings.HasPrefix(normalized, "assets/"+strings.ToLower(prefix)+"/")
}

// applyPrefix namespaces an asset path under ASSETS/<prefix>/. Recognized
// assets/ and data/ roots are replaced; anything else is nested wholesale.
func applyPrefix(path, prefix string) string {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "assets/") {
		return "ASSETS/" + prefix + path[6:]
	}
	if strings.HasPrefix(lower, "data/") {
		return "ASSETS/" + prefix + path[4:]
	}
	return "ASSETS/" + prefix + "/" + path
}

// collectTreePaths gathers every asset path referenced from a tree's
// property values, normalized. Map keys are inspected as well: a path used
// as a key still references a file, even though keys are never rewritten.
func collectTreePaths(tree *bin.Tree, into map[string]struct{}) {
	for _, object := range tree.Objects {
		for _, property := range object.Properties {
			collectValuePaths(property.Value, into)
		}
	}
}

// collectValuePaths recursively gathers asset paths from a value.
func collectValuePaths(value bin.Value, into map[string]struct{}) {
	switch v := value.(type) {
	case bin.String:
		if isAssetPath(string(v)) {
			into[normalizePath(string(v))] = struct{}{}
		}
	case *bin.Container:
		for _, item := range v.Items {
			collectValuePaths(item, into)
		}
	case *bin.UnorderedContainer:
		for _, item := range v.Items {
			collectValuePaths(item, into)
		}
	case *bin.Struct:
		for _, property := range v.Properties {
			collectValuePaths(property.Value, into)
		}
	case *bin.Embedded:
		for _, property := range v.Properties {
			collectValuePaths(property.Value, into)
		}
	case *bin.Optional:
		if v.Value != nil {
			collectValuePaths(v.Value, into)
		}
	case *bin.Map:
		for _, entry := range v.Entries {
			collectValuePaths(entry.Key(), into)
			collectValuePaths(entry.Value, into)
		}
	}
}

// rewriteTreePaths namespaces every string property whose normalized value
// is in the existing set, returning the number of substitutions. Map keys
// are immutable wrappers: the walk descends into map values only.
func rewriteTreePaths(tree *bin.Tree, existing map[string]struct{}, prefix string) int {
	modified := 0
	for _, object := range tree.Objects {
		for i := range object.Properties {
			value, count := rewriteValue(object.Properties[i].Value, existing, prefix)
			object.Properties[i].Value = value
			modified += count
		}
	}
	return modified
}

// rewriteValue rewrites a single value, returning the (possibly replaced)
// value and the substitution count.
func rewriteValue(value bin.Value, existing map[string]struct{}, prefix string) (bin.Value, int) {
	switch v := value.(type) {
	case bin.String:
		if isAssetPath(string(v)) {
			normalized := normalizePath(string(v))
			if _, ok := existing[normalized]; ok && !alreadyPrefixed(normalized, prefix) {
				return bin.String(applyPrefix(string(v), prefix)), 1
			}
		}
		return v, 0
	case *bin.Container:
		count := 0
		for i, item := range v.Items {
			rewritten, n := rewriteValue(item, existing, prefix)
			v.Items[i] = rewritten
			count += n
		}
		return v, count
	case *bin.UnorderedContainer:
		count := 0
		for i, item := range v.Items {
			rewritten, n := rewriteValue(item, existing, prefix)
			v.Items[i] = rewritten
			count += n
		}
		return v, count
	case *bin.Struct:
		count := 0
		for i := range v.Properties {
			rewritten, n := rewriteValue(v.Properties[i].Value, existing, prefix)
			v.Properties[i].Value = rewritten
			count += n
		}
		return v, count
	case *bin.Embedded:
		count := 0
		for i := range v.Properties {
			rewritten, n := rewriteValue(v.Properties[i].Value, existing, prefix)
			v.Properties[i].Value = rewritten
			count += n
		}
		return v, count
	case *bin.Optional:
		if v.Value == nil {
			return v, 0
		}
		rewritten, count := rewriteValue(v.Value, existing, prefix)
		v.Value = rewritten
		return v, count
	case *bin.Map:
		count := 0
		for i := range v.Entries {
			rewritten, n := rewriteValue(v.Entries[i].Value, existing, prefix)
			v.Entries[i].Value = rewritten
			count += n
		}
		return v, count
	default:
		return value, 0
	}
}
