// Package project manages Flint mod projects on disk, using the external
// mod ecosystem's config format (mod.config.json) plus a tool-specific
// sidecar (flint.json) for champion and skin metadata.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/google/uuid"

	"github.com/ritoshark/flint/pkg/encoding"
)

const (
	// ConfigName is the ecosystem-compatible project config file name.
	ConfigName = "mod.config.json"
	// MetadataName is the tool-specific metadata file name.
	MetadataName = "flint.json"
	// initialVersion is the semver assigned to fresh projects.
	initialVersion = "0.1.0"
)

// Author identifies a mod author, optionally with a role.
type Author struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Layer is a content layer of the project. Every project carries at least
// the base layer.
type Layer struct {
	Name string `json:"name"`
}

// defaultLayers returns the default layer set.
func defaultLayers() []Layer {
	return []Layer{{Name: "base"}}
}

// modConfig is the on-disk form of mod.config.json.
type modConfig struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Authors      []Author `json:"authors"`
	License      string   `json:"license,omitempty"`
	Transformers []string `json:"transformers"`
	Layers       []Layer  `json:"layers"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
}

// metadata is the on-disk form of flint.json.
type metadata struct {
	ID         string    `json:"id"`
	Champion   string    `json:"champion"`
	SkinID     uint32    `json:"skin_id"`
	LeaguePath string    `json:"league_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Project is the runtime representation of a mod project.
type Project struct {
	// Name is the project's slug.
	Name string
	// DisplayName is the human-readable name.
	DisplayName string
	// Version is the project's semver version.
	Version string
	// Description describes the mod.
	Description string
	// Authors lists the mod's authors.
	Authors []Author
	// Layers lists the project's content layers.
	Layers []Layer
	// ID is the project's stable identity.
	ID string
	// Champion is the champion's internal name.
	Champion string
	// SkinID is the skin being modded.
	SkinID uint32
	// LeaguePath is the game installation the project was created from.
	LeaguePath string
	// Root is the project directory.
	Root string
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time
	// ModifiedAt is the last save timestamp.
	ModifiedAt time.Time
}

// ConfigPath returns the path to the project's mod.config.json.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.Root, ConfigName)
}

// MetadataPath returns the path to the project's flint.json.
func (p *Project) MetadataPath() string {
	return filepath.Join(p.Root, MetadataName)
}

// ContentPath returns the content directory for a layer.
func (p *Project) ContentPath(layer string) string {
	return filepath.Join(p.Root, "content", layer)
}

// BaseContentPath returns the base layer's content directory, the default
// destination for extracted assets.
func (p *Project) BaseContentPath() string {
	return p.ContentPath("base")
}

// OutputPath returns the packaging output directory.
func (p *Project) OutputPath() string {
	return filepath.Join(p.Root, "output")
}

// Create creates a new project directory with the canonical layout and
// saves both config files. An existing directory at the computed location
// is an error. The author is optional.
func Create(name, champion string, skinID uint32, leaguePath, outputDir, author string) (*Project, error) {
	if name == "" {
		return nil, errors.New("project name cannot be empty")
	}
	if champion == "" {
		return nil, errors.New("champion name cannot be empty")
	}
	if leaguePath != "" {
		if _, err := os.Stat(leaguePath); err != nil {
			return nil, errors.Wrap(err, "league path does not exist")
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "unable to create output directory")
	}

	root := filepath.Join(outputDir, sanitizeFileName(name))
	if _, err := os.Stat(root); err == nil {
		return nil, errors.Errorf("project already exists at %s", root)
	}

	displayName := name
	description := fmt.Sprintf("Mod for %s skin %d", champion, skinID)
	now := time.Now().UTC()
	project := &Project{
		Name:        slugify(name),
		DisplayName: displayName,
		Version:     initialVersion,
		Description: description,
		Layers:      defaultLayers(),
		ID:          uuid.NewString(),
		Champion:    champion,
		SkinID:      skinID,
		LeaguePath:  leaguePath,
		Root:        root,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	if author != "" {
		project.Authors = []Author{{Name: author}}
	}

	for _, directory := range []string{root, project.BaseContentPath(), project.OutputPath()} {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return nil, errors.Wrapf(err, "unable to create %s", directory)
		}
	}
	if err := Save(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Open loads a project from a directory (or from a path to its
// mod.config.json). The metadata sidecar is optional; projects imported
// from the wider ecosystem may not carry one.
func Open(path string) (*Project, error) {
	root := path
	if filepath.Base(path) == ConfigName {
		root = filepath.Dir(path)
	}
	configPath := filepath.Join(root, ConfigName)

	config := &modConfig{}
	if err := encoding.LoadAndUnmarshalJSON(configPath, config); err != nil {
		return nil, errors.Wrap(err, "unable to load project config")
	}

	project := &Project{
		Name:        config.Name,
		DisplayName: config.DisplayName,
		Version:     config.Version,
		Description: config.Description,
		Authors:     config.Authors,
		Layers:      config.Layers,
		Root:        root,
	}
	if len(project.Layers) == 0 {
		project.Layers = defaultLayers()
	}

	meta := &metadata{}
	if err := encoding.LoadAndUnmarshalJSON(filepath.Join(root, MetadataName), meta); err == nil {
		project.ID = meta.ID
		project.Champion = meta.Champion
		project.SkinID = meta.SkinID
		project.LeaguePath = meta.LeaguePath
		project.CreatedAt = meta.CreatedAt
		project.ModifiedAt = meta.ModifiedAt
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "unable to load project metadata")
	}

	return project, nil
}

// Save writes both project files atomically, bumping the modification
// timestamp.
func Save(project *Project) error {
	project.ModifiedAt = time.Now().UTC()

	config := &modConfig{
		Name:         project.Name,
		DisplayName:  project.DisplayName,
		Version:      project.Version,
		Description:  project.Description,
		Authors:      project.Authors,
		Transformers: []string{},
		Layers:       project.Layers,
	}
	if config.Authors == nil {
		config.Authors = []Author{}
	}
	if err := encoding.MarshalAndSaveJSON(project.ConfigPath(), config); err != nil {
		return errors.Wrap(err, "unable to save project config")
	}

	meta := &metadata{
		ID:         project.ID,
		Champion:   project.Champion,
		SkinID:     project.SkinID,
		LeaguePath: project.LeaguePath,
		CreatedAt:  project.CreatedAt,
		ModifiedAt: project.ModifiedAt,
	}
	if err := encoding.MarshalAndSaveJSON(project.MetadataPath(), meta); err != nil {
		return errors.Wrap(err, "unable to save project metadata")
	}
	return nil
}

// Remove deletes a project directory. It is used to unwind freshly created
// projects when extraction fails.
func Remove(project *Project) error {
	return os.RemoveAll(project.Root)
}

// sanitizeFileName replaces characters that are unsafe in directory names.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == ' ':
			return r
		default:
			return '_'
		}
	}, name)
}

// slugify lowercases a name and collapses non-alphanumeric runs to single
// dashes.
func slugify(name string) string {
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
