package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"golang.org/x/sync/errgroup"

	"github.com/ritoshark/flint/pkg/bin"
	"github.com/ritoshark/flint/pkg/bin/text"
	"github.com/ritoshark/flint/pkg/logging"
)

// preconvertBatchSize bounds how many trees are in flight at once. Batches
// exist purely for memory control; they confer no ordering.
const preconvertBatchSize = 32

// PreconvertBins converts every eligible tree beneath the project root to
// its text form, so that later opens hit the sidecar cache. Root and
// animation trees are skipped (their conversion is never needed and
// animation trees routinely carry hostile metadata); trees with fresh
// sidecars are skipped as well. Per-file failures are logged and counted,
// never fatal. Cancellation is honored between batches.
func PreconvertBins(ctx context.Context, root string, provider text.Provider, logger *logging.Logger) (int, error) {
	if _, err := os.Stat(root); err != nil {
		return 0, errors.Wrap(err, "project root not found")
	}

	// Gather eligible trees.
	var eligible []string
	filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".bin") {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		// Classification anchors at the archive-relative data/ segment; the
		// project layout nests it under content/<layer>/<wad folder>/.
		logical := filepath.ToSlash(relative)
		if i := strings.Index(strings.ToLower(logical), "data/"); i >= 0 {
			logical = logical[i:]
		}
		switch bin.Classify(logical) {
		case bin.CategoryRoot, bin.CategoryAnimation, bin.CategoryIgnore:
			return nil
		}
		if text.SidecarFresh(path) {
			return nil
		}
		eligible = append(eligible, path)
		return nil
	})
	logger.Infof("preconverting %d trees", len(eligible))

	var converted atomic.Int64
	for start := 0; start < len(eligible); start += preconvertBatchSize {
		if err := ctx.Err(); err != nil {
			return int(converted.Load()), err
		}
		end := start + preconvertBatchSize
		if end > len(eligible) {
			end = len(eligible)
		}
		var group errgroup.Group
		for _, path := range eligible[start:end] {
			group.Go(func() error {
				if _, err := text.ReadOrConvert(path, provider, logger); err != nil {
					logger.Warnf("unable to preconvert %s: %v", path, err)
					return nil
				}
				converted.Add(1)
				return nil
			})
		}
		group.Wait()
	}

	return int(converted.Load()), nil
}
