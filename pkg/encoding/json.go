package encoding

import (
	"encoding/json"
)

// LoadAndUnmarshalJSON loads data from the specified path and decodes it into
// the specified structure.
func LoadAndUnmarshalJSON(path string, value any) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return json.Unmarshal(data, value)
	})
}

// MarshalAndSaveJSON marshals the specified structure as pretty-printed JSON
// and saves it atomically to the specified path. Pretty-printing is required
// for compatibility with the external mod ecosystem, whose tooling treats
// mod.config.json as a human-editable file.
func MarshalAndSaveJSON(path string, value any) error {
	return MarshalAndSave(path, func() ([]byte, error) {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	})
}
