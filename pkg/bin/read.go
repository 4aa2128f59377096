package bin

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
)

// maxDepth bounds value recursion during parsing. Legitimate trees nest a
// handful of levels deep; anything past this bound is hostile input.
const maxDepth = 128

// cursor is a bounded reader over an in-memory buffer. Every read is range
// checked and returns an explicit error past the end of data, so that
// corrupt length fields cannot walk out of bounds.
type cursor struct {
	data   []byte
	offset int
}

// remaining returns the number of unread bytes.
func (c *cursor) remaining() int {
	return len(c.data) - c.offset
}

// take consumes n bytes.
func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, errors.Errorf("unexpected end of data at offset %d (need %d bytes)", c.offset, n)
	}
	data := c.data[c.offset : c.offset+n]
	c.offset += n
	return data, nil
}

func (c *cursor) u8() (uint8, error) {
	data, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (c *cursor) u16() (uint16, error) {
	data, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (c *cursor) u32() (uint32, error) {
	data, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (c *cursor) u64() (uint64, error) {
	data, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (c *cursor) f32() (float32, error) {
	bits, err := c.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// string16 reads a length-prefixed string. The result is a fresh copy: no
// parsed value aliases the source buffer.
func (c *cursor) string16() (string, error) {
	length, err := c.u16()
	if err != nil {
		return "", err
	}
	data, err := c.take(int(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseFile parses the property tree at the specified path. The size gate is
// checked against file metadata before any buffer is allocated.
func ParseFile(path string) (*Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to access file")
	}
	if info.Size() > MaxSize {
		return nil, &TooLargeError{Size: info.Size()}
	}
	if info.Size() < 4 {
		return nil, ErrTooSmall
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read file")
	}
	return Parse(data)
}

// Parse parses a property tree from memory. Input is rejected before any
// structural work when possible (size and magic gates); structural parsing
// is bounded and panic-isolated, so hostile data yields an error rather than
// tearing down the worker. The returned tree is fully owned: no slices into
// the source buffer persist.
func Parse(data []byte) (tree *Tree, err error) {
	if len(data) < 4 {
		return nil, ErrTooSmall
	}
	if int64(len(data)) > MaxSize {
		return nil, &TooLargeError{Size: int64(len(data))}
	}

	// The cursor makes ordinary truncation an error rather than a panic, but
	// the recover is load-bearing for everything it can't anticipate (stack
	// exhaustion, allocator limits on hostile counts).
	defer func() {
		if recovered := recover(); recovered != nil {
			tree = nil
			err = &CrashError{Reason: fmt.Sprint(recovered)}
		}
	}()

	c := &cursor{data: data}
	tree = &Tree{patchHeader: 1}

	magic, _ := c.take(4)
	if string(magic) == "PTCH" {
		tree.Magic = MagicPatch
		header, err := c.u64()
		if err != nil {
			return nil, err
		}
		tree.patchHeader = header
		inner, err := c.take(4)
		if err != nil {
			return nil, err
		}
		if string(inner) != "PROP" {
			return nil, ErrInvalidMagic
		}
	} else if string(magic) == "PROP" {
		tree.Magic = MagicNormal
	} else {
		return nil, ErrInvalidMagic
	}

	version, err := c.u32()
	if err != nil {
		return nil, err
	}
	tree.Version = version

	if version >= 2 {
		count, err := c.u32()
		if err != nil {
			return nil, err
		}
		if int(count) > c.remaining()/2 {
			return nil, errors.Errorf("corrupt dependency count %d", count)
		}
		tree.Dependencies = make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			dependency, err := c.string16()
			if err != nil {
				return nil, err
			}
			tree.Dependencies = append(tree.Dependencies, dependency)
		}
	}

	objectCount, err := c.u32()
	if err != nil {
		return nil, err
	}
	if int(objectCount) > c.remaining()/4 {
		return nil, errors.Errorf("corrupt object count %d", objectCount)
	}

	classDigests := make([]uint32, objectCount)
	for i := range classDigests {
		if classDigests[i], err = c.u32(); err != nil {
			return nil, err
		}
	}

	tree.Objects = make([]*Object, 0, objectCount)
	seen := make(map[uint32]struct{}, objectCount)
	for i := uint32(0); i < objectCount; i++ {
		size, err := c.u32()
		if err != nil {
			return nil, err
		}
		if int(size) > c.remaining() {
			return nil, errors.Errorf("corrupt object size %d at offset %d", size, c.offset)
		}
		start := c.offset

		pathDigest, err := c.u32()
		if err != nil {
			return nil, err
		}
		if _, duplicate := seen[pathDigest]; duplicate {
			return nil, errors.Errorf("duplicate object path digest 0x%08x", pathDigest)
		}
		seen[pathDigest] = struct{}{}

		propertyCount, err := c.u16()
		if err != nil {
			return nil, err
		}
		object := &Object{
			PathDigest:  pathDigest,
			ClassDigest: classDigests[i],
			Properties:  make([]Property, 0, propertyCount),
		}
		for p := uint16(0); p < propertyCount; p++ {
			property, err := readProperty(c, 0)
			if err != nil {
				return nil, err
			}
			object.Properties = append(object.Properties, property)
		}

		if c.offset-start != int(size) {
			return nil, errors.Errorf(
				"object 0x%08x size mismatch: declared %d, consumed %d",
				pathDigest, size, c.offset-start,
			)
		}
		tree.Objects = append(tree.Objects, object)
	}

	return tree, nil
}

// readProperty reads one name/kind/value triple.
func readProperty(c *cursor, depth int) (Property, error) {
	name, err := c.u32()
	if err != nil {
		return Property{}, err
	}
	raw, err := c.u8()
	if err != nil {
		return Property{}, err
	}
	kind, err := unpackKind(raw)
	if err != nil {
		return Property{}, err
	}
	value, err := readValue(c, kind, depth)
	if err != nil {
		return Property{}, err
	}
	return Property{Name: name, Value: value}, nil
}

// readValue reads a bare value of the specified kind.
func readValue(c *cursor, kind Kind, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.Errorf("value nesting exceeds depth limit %d", maxDepth)
	}

	switch kind {
	case KindNone:
		return None{}, nil
	case KindBool:
		v, err := c.u8()
		return Bool(v != 0), err
	case KindBitBool:
		v, err := c.u8()
		return BitBool(v != 0), err
	case KindI8:
		v, err := c.u8()
		return I8(v), err
	case KindU8:
		v, err := c.u8()
		return U8(v), err
	case KindI16:
		v, err := c.u16()
		return I16(v), err
	case KindU16:
		v, err := c.u16()
		return U16(v), err
	case KindI32:
		v, err := c.u32()
		return I32(v), err
	case KindU32:
		v, err := c.u32()
		return U32(v), err
	case KindI64:
		v, err := c.u64()
		return I64(v), err
	case KindU64:
		v, err := c.u64()
		return U64(v), err
	case KindF32:
		v, err := c.f32()
		return F32(v), err
	case KindVector2:
		var v Vector2
		err := readFloats(c, v[:])
		return v, err
	case KindVector3:
		var v Vector3
		err := readFloats(c, v[:])
		return v, err
	case KindVector4:
		var v Vector4
		err := readFloats(c, v[:])
		return v, err
	case KindMatrix44:
		var v Matrix44
		err := readFloats(c, v[:])
		return v, err
	case KindColor:
		data, err := c.take(4)
		if err != nil {
			return nil, err
		}
		return Color{data[0], data[1], data[2], data[3]}, nil
	case KindString:
		v, err := c.string16()
		return String(v), err
	case KindHash:
		v, err := c.u32()
		return Hash(v), err
	case KindWadLink:
		v, err := c.u64()
		return WadLink(v), err
	case KindObjectLink:
		v, err := c.u32()
		return ObjectLink(v), err
	case KindContainer, KindUnorderedContainer:
		itemRaw, err := c.u8()
		if err != nil {
			return nil, err
		}
		item, err := unpackKind(itemRaw)
		if err != nil {
			return nil, err
		}
		if _, err := c.u32(); err != nil { // content size, re-derived on write
			return nil, err
		}
		count, err := c.u32()
		if err != nil {
			return nil, err
		}
		if int(count) > c.remaining()+1 {
			return nil, errors.Errorf("corrupt container count %d", count)
		}
		items := make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			value, err := readValue(c, item, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if kind == KindContainer {
			return &Container{Item: item, Items: items}, nil
		}
		return &UnorderedContainer{Item: item, Items: items}, nil
	case KindStruct, KindEmbedded:
		class, err := c.u32()
		if err != nil {
			return nil, err
		}
		var properties []Property
		if class != 0 {
			if _, err := c.u32(); err != nil { // content size, re-derived on write
				return nil, err
			}
			count, err := c.u16()
			if err != nil {
				return nil, err
			}
			properties = make([]Property, 0, count)
			for i := uint16(0); i < count; i++ {
				property, err := readProperty(c, depth+1)
				if err != nil {
					return nil, err
				}
				properties = append(properties, property)
			}
		}
		if kind == KindStruct {
			return &Struct{Class: class, Properties: properties}, nil
		}
		return &Embedded{Class: class, Properties: properties}, nil
	case KindOptional:
		itemRaw, err := c.u8()
		if err != nil {
			return nil, err
		}
		item, err := unpackKind(itemRaw)
		if err != nil {
			return nil, err
		}
		present, err := c.u8()
		if err != nil {
			return nil, err
		}
		optional := &Optional{Item: item}
		if present != 0 {
			if optional.Value, err = readValue(c, item, depth+1); err != nil {
				return nil, err
			}
		}
		return optional, nil
	case KindMap:
		keyRaw, err := c.u8()
		if err != nil {
			return nil, err
		}
		keyKind, err := unpackKind(keyRaw)
		if err != nil {
			return nil, err
		}
		valueRaw, err := c.u8()
		if err != nil {
			return nil, err
		}
		valueKind, err := unpackKind(valueRaw)
		if err != nil {
			return nil, err
		}
		if _, err := c.u32(); err != nil { // content size, re-derived on write
			return nil, err
		}
		count, err := c.u32()
		if err != nil {
			return nil, err
		}
		if int(count) > c.remaining()+1 {
			return nil, errors.Errorf("corrupt map count %d", count)
		}
		entries := make([]MapEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			key, err := readValue(c, keyKind, depth+1)
			if err != nil {
				return nil, err
			}
			value, err := readValue(c, valueKind, depth+1)
			if err != nil {
				return nil, err
			}
			entries = append(entries, NewMapEntry(key, value))
		}
		return &Map{KeyKind: keyKind, ValueKind: valueKind, Entries: entries}, nil
	default:
		return nil, errors.Errorf("unreadable kind %v", kind)
	}
}

// readFloats fills a float slice from consecutive 32-bit values.
func readFloats(c *cursor, out []float32) error {
	for i := range out {
		value, err := c.f32()
		if err != nil {
			return err
		}
		out[i] = value
	}
	return nil
}
