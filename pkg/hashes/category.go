// Package hashes provides the reverse-lookup store for name digests: 64-bit
// digests over archive paths and 32-bit digests over property-tree names,
// loaded from the community hash lists and refreshed from their upstream
// mirror.
package hashes

// Category identifies which digest table a name record belongs to. The
// archive path tables (Game, LCU, RST) key 64-bit digests; the property-tree
// tables (BinEntries, BinFields, BinHashes, BinTypes) key 32-bit digests
// stored zero-extended.
type Category uint

const (
	// BinEntries is the table of property-tree object path names.
	BinEntries Category = iota
	// BinFields is the table of property-tree field names.
	BinFields
	// BinHashes is the table of property-tree hash-valued names.
	BinHashes
	// BinTypes is the table of property-tree class names.
	BinTypes
	// Game is the table of game archive paths.
	Game
	// LCU is the table of client archive paths.
	LCU
	// RST is the table of string-table keys.
	RST
	// categoryCount is the number of categories. It must come last.
	categoryCount
)

// String provides a human-readable representation of a category.
func (c Category) String() string {
	switch c {
	case BinEntries:
		return "binentries"
	case BinFields:
		return "binfields"
	case BinHashes:
		return "binhashes"
	case BinTypes:
		return "bintypes"
	case Game:
		return "game"
	case LCU:
		return "lcu"
	case RST:
		return "rst"
	default:
		return "unknown"
	}
}

// hexDigits returns the width of the zero-padded hexadecimal fallback
// rendering for digests in this category.
func (c Category) hexDigits() int {
	switch c {
	case BinEntries, BinFields, BinHashes, BinTypes:
		return 8
	default:
		return 16
	}
}

// categoryForFile maps a hash file name to its category. The second return
// value indicates whether the file name is recognized; unrecognized files are
// silently ignored by loading.
func categoryForFile(name string) (Category, bool) {
	switch name {
	case "hashes.binentries.txt":
		return BinEntries, true
	case "hashes.binfields.txt":
		return BinFields, true
	case "hashes.binhashes.txt":
		return BinHashes, true
	case "hashes.bintypes.txt":
		return BinTypes, true
	case "hashes.game.txt":
		return Game, true
	case "hashes.lcu.txt":
		return LCU, true
	case "hashes.rst.txt":
		return RST, true
	default:
		return 0, false
	}
}
