// Package organizer implements the two-phase project rewriter: linked-tree
// concatenation followed by asset repathing under a per-mod namespace.
package organizer

import (
	"strings"
)

// Config carries the shared inputs of the organization phases plus the two
// orthogonal phase switches.
type Config struct {
	// EnableConcat enables linked-tree concatenation.
	EnableConcat bool
	// EnableRepath enables asset repathing.
	EnableRepath bool
	// CreatorName is the mod creator's name, used in the namespace prefix.
	CreatorName string
	// ProjectName is the project name, used in the namespace prefix.
	ProjectName string
	// Champion is the champion's internal name.
	Champion string
	// TargetSkinID is the skin being modded.
	TargetSkinID uint32
	// CleanupUnused removes files not referenced by any rewritten tree.
	CleanupUnused bool
	// IgnoredPaths lists normalized logical paths promoted to the Ignore
	// category by caller policy (corrupt or recursive trees). The
	// concatenator warns about and skips them; repathing does not consult
	// this list.
	IgnoredPaths []string
}

// NewConfig creates a configuration with both phases and cleanup enabled.
func NewConfig(creator, project, champion string, targetSkinID uint32) *Config {
	return &Config{
		EnableConcat: true,
		EnableRepath: true,
		CreatorName:  creator,
		ProjectName:  project,
		Champion:     champion,
		TargetSkinID: targetSkinID,
		CleanupUnused: true,
	}
}

// Prefix computes the namespace prefix <creator>/<project> with spaces
// dashed, preserving case. Rewritten paths live under ASSETS/<Prefix>/.
func (c *Config) Prefix() string {
	creator := strings.ReplaceAll(c.CreatorName, " ", "-")
	project := strings.ReplaceAll(c.ProjectName, " ", "-")
	return creator + "/" + project
}

// ignored indicates whether a normalized path was promoted to Ignore.
func (c *Config) ignored(normalized string) bool {
	for _, path := range c.IgnoredPaths {
		if path == normalized {
			return true
		}
	}
	return false
}

// Slugify lowercases a name, substitutes spaces, collapses every other
// non-alphanumeric run to a single dash, and trims dangling dashes. Slugs
// name the concat tree on disk.
func Slugify(name string) string {
	var builder strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			builder.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			builder.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(builder.String(), "-")
}
