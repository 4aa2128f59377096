// Package text provides the bidirectional human-readable form of property
// trees, with optional digest-to-name resolution and a sidecar cache for
// batch conversions.
package text

import (
	"sync"

	"github.com/ritoshark/flint/pkg/hashes"
)

// Provider resolves digests to names during text rendering. Every method
// reports whether a name was found; rendering falls back to hex digests on
// misses.
type Provider interface {
	// ResolveEntry resolves an object path digest.
	ResolveEntry(digest uint32) (string, bool)
	// ResolveField resolves a property name digest.
	ResolveField(digest uint32) (string, bool)
	// ResolveType resolves a class name digest.
	ResolveType(digest uint32) (string, bool)
	// ResolveHash resolves a hash-valued name digest.
	ResolveHash(digest uint32) (string, bool)
	// ResolvePath resolves a 64-bit archive path digest.
	ResolvePath(digest uint64) (string, bool)
}

// StoreProvider adapts a hash store into a Provider.
type StoreProvider struct {
	// Store is the backing hash store.
	Store *hashes.Store
}

// ResolveEntry implements Provider.ResolveEntry.
func (p *StoreProvider) ResolveEntry(digest uint32) (string, bool) {
	return p.Store.Lookup(hashes.BinEntries, uint64(digest))
}

// ResolveField implements Provider.ResolveField.
func (p *StoreProvider) ResolveField(digest uint32) (string, bool) {
	return p.Store.Lookup(hashes.BinFields, uint64(digest))
}

// ResolveType implements Provider.ResolveType.
func (p *StoreProvider) ResolveType(digest uint32) (string, bool) {
	return p.Store.Lookup(hashes.BinTypes, uint64(digest))
}

// ResolveHash implements Provider.ResolveHash.
func (p *StoreProvider) ResolveHash(digest uint32) (string, bool) {
	return p.Store.Lookup(hashes.BinHashes, uint64(digest))
}

// ResolvePath implements Provider.ResolvePath.
func (p *StoreProvider) ResolvePath(digest uint64) (string, bool) {
	return p.Store.Lookup(hashes.Game, digest)
}

// cachedProvider is the process-wide provider used by batch conversions. It
// exists to eliminate repeated hash loads: the underlying store loads once
// and every organizer shares it.
var cachedProvider struct {
	once     sync.Once
	provider Provider
	factory  func() Provider
}

// InitializeCachedProvider installs the factory used to build the cached
// provider on first use. It must be called before the first CachedProvider
// call; later calls have no effect (one initialization wins). Tests use this
// to swap in fixture providers.
func InitializeCachedProvider(factory func() Provider) {
	cachedProvider.factory = factory
}

// CachedProvider returns the process-wide provider, building it on first
// use. The load path is race-safe and idempotent: concurrent first calls
// observe a single initialization. If no factory was installed, a lazy
// store over the default hash directory would be ambiguous, so nil is
// returned and rendering falls back to hex digests.
func CachedProvider() Provider {
	cachedProvider.once.Do(func() {
		if cachedProvider.factory != nil {
			cachedProvider.provider = cachedProvider.factory()
		}
	})
	return cachedProvider.provider
}
