package encoding

import (
	"gopkg.in/yaml.v3"
)

// LoadAndUnmarshalYAML loads data from the specified path and decodes it into
// the specified structure.
func LoadAndUnmarshalYAML(path string, value any) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return yaml.Unmarshal(data, value)
	})
}

// MarshalAndSaveYAML marshals the specified structure as YAML and saves it
// atomically to the specified path.
func MarshalAndSaveYAML(path string, value any) error {
	return MarshalAndSave(path, func() ([]byte, error) {
		return yaml.Marshal(value)
	})
}
