package bin

import (
	"bytes"
	"sort"
)

// Equal reports deep structural equality with another tree: magic, version,
// dependency lists (order-sensitive), and object sets (order-insensitive by
// path digest, with per-property deep equality including kinds). Unordered
// containers compare as multisets.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Magic != other.Magic || t.Version != other.Version {
		return false
	}
	if len(t.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i := range t.Dependencies {
		if t.Dependencies[i] != other.Dependencies[i] {
			return false
		}
	}
	if len(t.Objects) != len(other.Objects) {
		return false
	}
	for _, object := range t.Objects {
		counterpart := other.Lookup(object.PathDigest)
		if counterpart == nil || !objectEqual(object, counterpart) {
			return false
		}
	}
	return true
}

// objectEqual reports deep equality of two objects.
func objectEqual(a, b *Object) bool {
	if a.PathDigest != b.PathDigest || a.ClassDigest != b.ClassDigest {
		return false
	}
	return propertiesEqual(a.Properties, b.Properties)
}

// propertiesEqual reports ordered deep equality of two property lists.
func propertiesEqual(a, b []Property) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !ValueEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// ValueEqual reports deep equality of two values, including kinds. Unordered
// containers compare as multisets; everything else compares structurally in
// order.
func ValueEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *Container:
		bv := b.(*Container)
		if av.Item != bv.Item || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !ValueEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *UnorderedContainer:
		bv := b.(*UnorderedContainer)
		if av.Item != bv.Item || len(av.Items) != len(bv.Items) {
			return false
		}
		return multisetEqual(av.Items, bv.Items)
	case *Struct:
		bv := b.(*Struct)
		return av.Class == bv.Class && propertiesEqual(av.Properties, bv.Properties)
	case *Embedded:
		bv := b.(*Embedded)
		return av.Class == bv.Class && propertiesEqual(av.Properties, bv.Properties)
	case *Optional:
		bv := b.(*Optional)
		if av.Item != bv.Item {
			return false
		}
		return ValueEqual(av.Value, bv.Value)
	case *Map:
		bv := b.(*Map)
		if av.KeyKind != bv.KeyKind || av.ValueKind != bv.ValueKind || len(av.Entries) != len(bv.Entries) {
			return false
		}
		for i := range av.Entries {
			if !ValueEqual(av.Entries[i].Key(), bv.Entries[i].Key()) {
				return false
			}
			if !ValueEqual(av.Entries[i].Value, bv.Entries[i].Value) {
				return false
			}
		}
		return true
	default:
		// Primitive values are comparable directly.
		return a == b
	}
}

// multisetEqual compares two value slices as multisets, using serialized
// bytes as the canonical element form.
func multisetEqual(a, b []Value) bool {
	serialize := func(values []Value) [][]byte {
		result := make([][]byte, len(values))
		for i, value := range values {
			var scratch bytes.Buffer
			if err := writeValue(&scratch, value); err != nil {
				return nil
			}
			result[i] = scratch.Bytes()
		}
		sort.Slice(result, func(i, j int) bool {
			return bytes.Compare(result[i], result[j]) < 0
		})
		return result
	}
	as, bs := serialize(a), serialize(b)
	if as == nil || bs == nil {
		return false
	}
	for i := range as {
		if !bytes.Equal(as[i], bs[i]) {
			return false
		}
	}
	return true
}
