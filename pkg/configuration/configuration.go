// Package configuration provides Flint's global configuration, loaded from a
// YAML file in the user's home directory. Project-level configuration lives
// alongside each project (see the project package); this file carries only
// machine-level settings shared by every invocation.
package configuration

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/encoding"
)

// ConfigurationName is the name of the global configuration file within the
// user's home directory.
const ConfigurationName = ".flint.yaml"

// Configuration represents the global Flint configuration.
type Configuration struct {
	// HashDirectory overrides the directory from which hash files are
	// loaded. If empty, the shared RitoShark hash directory is used.
	HashDirectory string `yaml:"hashDirectory"`
	// LeaguePath is the default path to the game installation.
	LeaguePath string `yaml:"leaguePath"`
	// LogLevel is the default log level name for CLI operations.
	LogLevel string `yaml:"logLevel"`
}

// Path computes the path to the global configuration file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to compute home directory")
	}
	return filepath.Join(home, ConfigurationName), nil
}

// Load loads the global configuration from the specified path. A missing file
// is not an error: defaults are returned.
func Load(path string) (*Configuration, error) {
	result := &Configuration{}
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

// EffectiveHashDirectory returns the configured hash directory override, or
// the shared RitoShark hash directory used by sibling tools.
func (c *Configuration) EffectiveHashDirectory() string {
	if c.HashDirectory != "" {
		return c.HashDirectory
	}
	return DefaultHashDirectory()
}

// DefaultHashDirectory computes the shared RitoShark hash directory. On
// Windows this is %APPDATA%/RitoShark/Requirements/Hashes; elsewhere the
// user configuration directory is used so that sibling tools agree on the
// location.
func DefaultHashDirectory() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "RitoShark", "Requirements", "Hashes")
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "RitoShark", "Requirements", "Hashes")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ritoshark", "hashes")
}
