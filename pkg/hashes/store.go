package hashes

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"golang.org/x/sync/errgroup"

	"github.com/ritoshark/flint/pkg/logging"
)

// tables is the immutable snapshot of all digest tables. Readers always
// observe a complete snapshot; loads and reloads build a replacement off to
// the side and swap it in under the write lock.
type tables [categoryCount]map[uint64]string

// Store is the reverse-lookup store for name digests. A Store is safe for
// concurrent use: resolution takes a read lock, while Load and Reload take
// the write lock only for the final swap. A Store created by NewLazy defers
// loading to the first resolution.
type Store struct {
	// directory is the source directory for hash files.
	directory string
	// logger is the logger for load operations. It may be nil.
	logger *logging.Logger
	// lock guards tables and loaded.
	lock sync.RWMutex
	// tables is the current table snapshot. It is nil before the first load
	// of a lazy store.
	tables *tables
	// loaded tracks whether an initial load has been attempted.
	loaded bool
}

// Load creates a store by reading all recognized hash files beneath the
// specified directory. A missing or unreadable directory is a hard error;
// a malformed record yields a *ParseError.
func Load(directory string, logger *logging.Logger) (*Store, error) {
	store := &Store{directory: directory, logger: logger}
	loaded, err := load(directory, logger)
	if err != nil {
		return nil, err
	}
	store.tables = loaded
	store.loaded = true
	return store, nil
}

// NewLazy creates a store that holds only the source directory until the
// first resolution, at which point it loads on the calling goroutine. A
// failed lazy load falls back to hex rendering for every digest and is
// retried on the next Reload.
func NewLazy(directory string, logger *logging.Logger) *Store {
	return &Store{directory: directory, logger: logger}
}

// load reads every recognized hash file beneath directory in parallel and
// merges the per-file tables per category.
func load(directory string, logger *logging.Logger) (*tables, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, errors.Wrap(err, "unable to access hash directory")
	} else if !info.IsDir() {
		return nil, errors.Errorf("hash path is not a directory: %s", directory)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, errors.Wrap(err, "unable to enumerate hash directory")
	}

	// Parse recognized files in parallel. Each file lands in its own table;
	// merging happens after the group completes so that no locking is needed
	// during parsing.
	type loadedFile struct {
		category Category
		table    map[uint64]string
	}
	var group errgroup.Group
	group.SetLimit(runtime.NumCPU())
	results := make([]loadedFile, 0, len(entries))
	var resultsLock sync.Mutex
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		category, known := categoryForFile(entry.Name())
		if !known {
			continue
		}
		path := filepath.Join(directory, entry.Name())
		group.Go(func() error {
			table, err := loadFile(path)
			if err != nil {
				return err
			}
			resultsLock.Lock()
			results = append(results, loadedFile{category, table})
			resultsLock.Unlock()
			logger.Debugf("loaded %d records from %s", len(table), path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Merge per-category.
	var merged tables
	for c := Category(0); c < categoryCount; c++ {
		merged[c] = make(map[uint64]string)
	}
	for _, result := range results {
		if len(merged[result.category]) == 0 {
			merged[result.category] = result.table
			continue
		}
		for digest, name := range result.table {
			merged[result.category][digest] = name
		}
	}

	total := 0
	for c := Category(0); c < categoryCount; c++ {
		total += len(merged[c])
	}
	logger.Infof("hash store loaded: %d records from %s", total, directory)

	return &merged, nil
}

// ensureLoaded performs the lazy initial load if one hasn't been attempted.
func (s *Store) ensureLoaded() {
	s.lock.RLock()
	loaded := s.loaded
	s.lock.RUnlock()
	if loaded {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.loaded {
		return
	}
	s.loaded = true
	tables, err := load(s.directory, s.logger)
	if err != nil {
		s.logger.Warnf("lazy hash load failed: %v", err)
		return
	}
	s.tables = tables
}

// Resolve resolves a digest in the specified category to its name. If the
// digest is unknown (or the store never loaded), the lowercase zero-padded
// hexadecimal rendering is returned: 16 digits for the 64-bit archive
// categories, 8 digits for the 32-bit property-tree categories.
func (s *Store) Resolve(category Category, digest uint64) string {
	s.ensureLoaded()
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.tables != nil {
		if name, ok := s.tables[category][digest]; ok {
			return name
		}
	}
	return fmt.Sprintf("%0*x", category.hexDigits(), digest)
}

// Lookup resolves a digest in the specified category without the hex
// fallback, reporting whether a name was found.
func (s *Store) Lookup(category Category, digest uint64) (string, bool) {
	s.ensureLoaded()
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.tables == nil {
		return "", false
	}
	name, ok := s.tables[category][digest]
	return name, ok
}

// Count returns the total number of records across all categories.
func (s *Store) Count() int {
	s.ensureLoaded()
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.tables == nil {
		return 0
	}
	total := 0
	for c := Category(0); c < categoryCount; c++ {
		total += len(s.tables[c])
	}
	return total
}

// CountByCategory returns the number of records in the specified category.
func (s *Store) CountByCategory(category Category) int {
	s.ensureLoaded()
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.tables == nil {
		return 0
	}
	return len(s.tables[category])
}

// Directory returns the store's source directory.
func (s *Store) Directory() string {
	return s.directory
}

// Reload re-reads the source directory and atomically swaps in the result.
// Readers observe either the previous snapshot or the new one, never a
// partial state.
func (s *Store) Reload() error {
	loaded, err := load(s.directory, s.logger)
	if err != nil {
		return err
	}
	s.lock.Lock()
	s.tables = loaded
	s.loaded = true
	s.lock.Unlock()
	return nil
}
