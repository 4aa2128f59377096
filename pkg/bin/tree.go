package bin

import (
	"hash/fnv"
	"strings"
)

// Magic identifies a tree's file flavor.
type Magic uint8

const (
	// MagicNormal is a standard property tree (PROP).
	MagicNormal Magic = iota
	// MagicPatch is a patch overlay tree (PTCH).
	MagicPatch
)

// String provides the magic's four-byte file rendering.
func (m Magic) String() string {
	if m == MagicPatch {
		return "PTCH"
	}
	return "PROP"
}

// defaultVersion is the format version used for freshly constructed trees.
const defaultVersion = 3

// Property is a single named, typed value.
type Property struct {
	// Name is the 32-bit digest of the property's name.
	Name uint32
	// Value is the property's value; its kind is Value.Kind().
	Value Value
}

// Object is a single tree object: a property bag with a path identity and a
// class.
type Object struct {
	// PathDigest is the 32-bit digest of the object's path. It is unique
	// within a tree.
	PathDigest uint32
	// ClassDigest is the 32-bit digest of the object's class name.
	ClassDigest uint32
	// Properties are the object's properties in file order.
	Properties []Property
}

// Tree is a parsed property tree. A Tree exclusively owns its objects and
// dependencies; all editing happens through the tree. Objects preserve file
// order so that serialization is byte-stable.
type Tree struct {
	// Magic is the tree's file flavor.
	Magic Magic
	// Version is the format version.
	Version uint32
	// Dependencies are the logical paths of linked trees, in file order.
	Dependencies []string
	// Objects are the tree's objects in file order. Path digests are unique;
	// use Insert to preserve that invariant when merging.
	Objects []*Object
	// patchHeader is the opaque header carried between the PTCH and PROP
	// sections of patch trees. It is preserved verbatim for byte-stability.
	patchHeader uint64
}

// NewTree constructs an empty tree with default magic and version.
func NewTree() *Tree {
	return &Tree{Magic: MagicNormal, Version: defaultVersion, patchHeader: 1}
}

// Lookup returns the object with the specified path digest, or nil.
func (t *Tree) Lookup(pathDigest uint32) *Object {
	for _, object := range t.Objects {
		if object.PathDigest == pathDigest {
			return object
		}
	}
	return nil
}

// Insert adds an object to the tree, replacing any existing object with the
// same path digest in place. It returns true if an existing object was
// replaced.
func (t *Tree) Insert(object *Object) bool {
	for i, existing := range t.Objects {
		if existing.PathDigest == object.PathDigest {
			t.Objects[i] = object
			return true
		}
	}
	t.Objects = append(t.Objects, object)
	return false
}

// Digest computes the 32-bit name digest used for property-tree names:
// FNV-1a over the lowercased string.
func Digest(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name)))
	return h.Sum32()
}
