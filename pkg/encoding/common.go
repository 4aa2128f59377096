// Package encoding provides the loading, unmarshaling, marshaling, and saving
// infrastructure for Flint's configuration and metadata formats.
package encoding

import (
	"os"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/filesystem"
)

// LoadAndUnmarshal provides the underlying loading and unmarshaling
// functionality for the encoding package. It reads the data at the specified
// path and then invokes the specified unmarshaling callback (usually a
// closure) to decode the data.
func LoadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	// Grab the file contents. Non-existence errors pass through untouched so
	// that callers can detect them with os.IsNotExist.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return errors.Wrap(err, "unable to load file")
	}

	// Perform the unmarshaling.
	if err := unmarshal(data); err != nil {
		return errors.Wrap(err, "unable to unmarshal data")
	}

	// Success.
	return nil
}

// MarshalAndSave provides the underlying marshaling and saving functionality
// for the encoding package. It invokes the specified marshaling callback
// (usually a closure) and writes the result atomically to the specified path.
func MarshalAndSave(path string, marshal func() ([]byte, error)) error {
	// Marshal the message.
	data, err := marshal()
	if err != nil {
		return errors.Wrap(err, "unable to marshal message")
	}

	// Write the file atomically.
	if err := filesystem.WriteFileAtomic(path, data, 0644); err != nil {
		return errors.Wrap(err, "unable to write message data")
	}

	// Success.
	return nil
}
