package text

import (
	"os"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/bin"
	"github.com/ritoshark/flint/pkg/filesystem"
	"github.com/ritoshark/flint/pkg/logging"
)

// SidecarSuffix is appended to a tree's path to form its text-form cache
// sidecar (<path>.bin becomes <path>.bin.ritobin).
const SidecarSuffix = ".ritobin"

// SidecarPath computes the sidecar path for a binary tree path.
func SidecarPath(binPath string) string {
	return binPath + SidecarSuffix
}

// SidecarFresh indicates whether the sidecar for the specified binary path
// exists and is at least as new as the binary itself.
func SidecarFresh(binPath string) bool {
	binInfo, err := os.Stat(binPath)
	if err != nil {
		return false
	}
	sidecarInfo, err := os.Stat(SidecarPath(binPath))
	if err != nil {
		return false
	}
	return !sidecarInfo.ModTime().Before(binInfo.ModTime())
}

// ReadOrConvert returns the text form of the tree at the specified path,
// preferring the sidecar when it is fresh. On a stale or missing sidecar the
// tree is reconverted and the sidecar rewritten; a sidecar write failure is
// logged but does not fail the read.
func ReadOrConvert(binPath string, provider Provider, logger *logging.Logger) (string, error) {
	if SidecarFresh(binPath) {
		content, err := os.ReadFile(SidecarPath(binPath))
		if err == nil {
			logger.Debugf("sidecar hit: %s", SidecarPath(binPath))
			return string(content), nil
		}
		logger.Warnf("unable to read fresh sidecar: %v", err)
	}

	tree, err := bin.ParseFile(binPath)
	if err != nil {
		return "", errors.Wrap(err, "unable to parse tree")
	}
	converted, err := MarshalWith(tree, provider)
	if err != nil {
		return "", errors.Wrap(err, "unable to convert tree")
	}

	if err := filesystem.WriteFileAtomic(SidecarPath(binPath), []byte(converted), 0644); err != nil {
		logger.Warnf("unable to write sidecar: %v", err)
	}

	return converted, nil
}

// SaveText parses edited text-form content and writes both the binary tree
// and its sidecar atomically. The binary is written first: a failure leaves
// both files untouched, and a sidecar failure is logged, leaving a stale
// sidecar that the next read will regenerate.
func SaveText(binPath, content string, logger *logging.Logger) error {
	tree, err := Unmarshal(content)
	if err != nil {
		return errors.Wrap(err, "unable to parse text content")
	}
	data, err := bin.Write(tree)
	if err != nil {
		return errors.Wrap(err, "unable to serialize tree")
	}
	if err := filesystem.WriteFileAtomic(binPath, data, 0644); err != nil {
		return errors.Wrap(err, "unable to write tree")
	}
	if err := filesystem.WriteFileAtomic(SidecarPath(binPath), []byte(content), 0644); err != nil {
		logger.Warnf("unable to update sidecar: %v", err)
	}
	return nil
}
