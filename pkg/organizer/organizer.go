package organizer

import (
	"context"

	"github.com/ritoshark/flint/pkg/logging"
	"github.com/ritoshark/flint/pkg/wad"
)

// Result reports the outcome of a full organization run. Either phase may be
// absent if disabled or failed.
type Result struct {
	// Concat is the concatenation result, if that phase ran successfully.
	Concat *ConcatResult
	// Repath is the repathing result, if that phase ran successfully.
	Repath *RepathResult
}

// Organize runs the enabled phases over a project's content base:
// concatenation first, then repathing. A concatenation failure is logged
// and never aborts repathing; its on-disk effects are fully visible before
// repathing begins.
func Organize(ctx context.Context, contentBase string, config *Config, mappings wad.PathMapping, logger *logging.Logger) (*Result, error) {
	logger.Infof(
		"organizing %s (concat: %t, repath: %t)",
		contentBase, config.EnableConcat, config.EnableRepath,
	)
	result := &Result{}

	if config.EnableConcat {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		root := selectRoot(contentBase, config.Champion, logger)
		if mainPath, err := findMainSkinTree(root, config.Champion, config.TargetSkinID); err != nil {
			logger.Warnf("skipping concatenation: %v", err)
		} else if concat, err := ConcatenateLinkedTrees(mainPath, config, root, mappings, logger); err != nil {
			logger.Warnf("concatenation failed: %v", err)
		} else {
			logger.Infof("concatenated %d trees into %s", concat.SourceCount, concat.ConcatPath)
			result.Concat = concat
		}
	}

	if config.EnableRepath {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		repath, err := Repath(contentBase, config, mappings, logger)
		if err != nil {
			return result, err
		}
		result.Repath = repath
	}

	return result, nil
}
