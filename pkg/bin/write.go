package bin

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Write serializes a tree to its binary form. Serialization is byte-stable:
// writing, parsing, and writing again produces identical bytes. Unordered
// containers are written in canonical order (lexicographic on the serialized
// element) so that stability holds regardless of in-memory element order.
func Write(tree *Tree) ([]byte, error) {
	var buffer bytes.Buffer

	if tree.Magic == MagicPatch {
		buffer.WriteString("PTCH")
		writeU64(&buffer, tree.patchHeader)
	}
	buffer.WriteString("PROP")
	writeU32(&buffer, tree.Version)

	if tree.Version >= 2 {
		writeU32(&buffer, uint32(len(tree.Dependencies)))
		for _, dependency := range tree.Dependencies {
			if err := writeString16(&buffer, dependency); err != nil {
				return nil, err
			}
		}
	} else if len(tree.Dependencies) > 0 {
		return nil, errors.Errorf("version %d trees cannot carry dependencies", tree.Version)
	}

	writeU32(&buffer, uint32(len(tree.Objects)))
	for _, object := range tree.Objects {
		writeU32(&buffer, object.ClassDigest)
	}

	var scratch bytes.Buffer
	for _, object := range tree.Objects {
		scratch.Reset()
		writeU32(&scratch, object.PathDigest)
		if len(object.Properties) > math.MaxUint16 {
			return nil, errors.Errorf("object 0x%08x has too many properties", object.PathDigest)
		}
		writeU16(&scratch, uint16(len(object.Properties)))
		for _, property := range object.Properties {
			if err := writeProperty(&scratch, property); err != nil {
				return nil, errors.Wrapf(err, "object 0x%08x", object.PathDigest)
			}
		}
		writeU32(&buffer, uint32(scratch.Len()))
		buffer.Write(scratch.Bytes())
	}

	return buffer.Bytes(), nil
}

// writeProperty writes one name/kind/value triple.
func writeProperty(buffer *bytes.Buffer, property Property) error {
	if property.Value == nil {
		return errors.Errorf("property 0x%08x has no value", property.Name)
	}
	writeU32(buffer, property.Name)
	buffer.WriteByte(property.Value.Kind().wire())
	return writeValue(buffer, property.Value)
}

// writeValue writes a bare value.
func writeValue(buffer *bytes.Buffer, value Value) error {
	switch v := value.(type) {
	case None:
		return nil
	case Bool:
		return writeBoolByte(buffer, bool(v))
	case BitBool:
		return writeBoolByte(buffer, bool(v))
	case I8:
		buffer.WriteByte(byte(v))
	case U8:
		buffer.WriteByte(byte(v))
	case I16:
		writeU16(buffer, uint16(v))
	case U16:
		writeU16(buffer, uint16(v))
	case I32:
		writeU32(buffer, uint32(v))
	case U32:
		writeU32(buffer, uint32(v))
	case I64:
		writeU64(buffer, uint64(v))
	case U64:
		writeU64(buffer, uint64(v))
	case F32:
		writeU32(buffer, math.Float32bits(float32(v)))
	case Vector2:
		writeFloats(buffer, v[:])
	case Vector3:
		writeFloats(buffer, v[:])
	case Vector4:
		writeFloats(buffer, v[:])
	case Matrix44:
		writeFloats(buffer, v[:])
	case Color:
		buffer.Write(v[:])
	case String:
		return writeString16(buffer, string(v))
	case Hash:
		writeU32(buffer, uint32(v))
	case WadLink:
		writeU64(buffer, uint64(v))
	case ObjectLink:
		writeU32(buffer, uint32(v))
	case *Container:
		return writeContainer(buffer, v.Item, v.Items, false)
	case *UnorderedContainer:
		return writeContainer(buffer, v.Item, v.Items, true)
	case *Struct:
		return writeStruct(buffer, v.Class, v.Properties)
	case *Embedded:
		return writeStruct(buffer, v.Class, v.Properties)
	case *Optional:
		buffer.WriteByte(v.Item.wire())
		if v.Value == nil {
			buffer.WriteByte(0)
			return nil
		}
		if v.Value.Kind() != v.Item {
			return errors.Errorf("optional holds %v, declared %v", v.Value.Kind(), v.Item)
		}
		buffer.WriteByte(1)
		return writeValue(buffer, v.Value)
	case *Map:
		return writeMap(buffer, v)
	default:
		return errors.Errorf("unwritable value type %T", value)
	}
	return nil
}

// writeFloats writes consecutive 32-bit values from a float slice.
func writeFloats(buffer *bytes.Buffer, values []float32) {
	for _, value := range values {
		writeU32(buffer, math.Float32bits(value))
	}
}

// writeContainer writes an ordered or unordered container. Unordered
// containers carry set semantics, so their elements are sorted by serialized
// bytes to give the write a canonical form.
func writeContainer(buffer *bytes.Buffer, item Kind, items []Value, unordered bool) error {
	serialized := make([][]byte, len(items))
	for i, element := range items {
		if element.Kind() != item {
			return errors.Errorf("container element %d is %v, declared %v", i, element.Kind(), item)
		}
		var scratch bytes.Buffer
		if err := writeValue(&scratch, element); err != nil {
			return err
		}
		serialized[i] = scratch.Bytes()
	}
	if unordered {
		sort.Slice(serialized, func(i, j int) bool {
			return bytes.Compare(serialized[i], serialized[j]) < 0
		})
	}

	var content bytes.Buffer
	writeU32(&content, uint32(len(items)))
	for _, element := range serialized {
		content.Write(element)
	}

	buffer.WriteByte(item.wire())
	writeU32(buffer, uint32(content.Len()))
	buffer.Write(content.Bytes())
	return nil
}

// writeStruct writes a structure or embedded value. A zero class digest is
// the null structure and carries nothing else.
func writeStruct(buffer *bytes.Buffer, class uint32, properties []Property) error {
	writeU32(buffer, class)
	if class == 0 {
		if len(properties) > 0 {
			return errors.New("null structure cannot carry properties")
		}
		return nil
	}

	var content bytes.Buffer
	if len(properties) > math.MaxUint16 {
		return errors.New("structure has too many properties")
	}
	writeU16(&content, uint16(len(properties)))
	for _, property := range properties {
		if err := writeProperty(&content, property); err != nil {
			return err
		}
	}

	writeU32(buffer, uint32(content.Len()))
	buffer.Write(content.Bytes())
	return nil
}

// writeMap writes a map value, keys first within each entry, in entry order.
func writeMap(buffer *bytes.Buffer, m *Map) error {
	var content bytes.Buffer
	writeU32(&content, uint32(len(m.Entries)))
	for i, entry := range m.Entries {
		key := entry.Key()
		if key == nil || entry.Value == nil {
			return errors.Errorf("map entry %d is incomplete", i)
		}
		if key.Kind() != m.KeyKind {
			return errors.Errorf("map entry %d key is %v, declared %v", i, key.Kind(), m.KeyKind)
		}
		if entry.Value.Kind() != m.ValueKind {
			return errors.Errorf("map entry %d value is %v, declared %v", i, entry.Value.Kind(), m.ValueKind)
		}
		if err := writeValue(&content, key); err != nil {
			return err
		}
		if err := writeValue(&content, entry.Value); err != nil {
			return err
		}
	}

	buffer.WriteByte(m.KeyKind.wire())
	buffer.WriteByte(m.ValueKind.wire())
	writeU32(buffer, uint32(content.Len()))
	buffer.Write(content.Bytes())
	return nil
}

func writeBoolByte(buffer *bytes.Buffer, value bool) error {
	if value {
		buffer.WriteByte(1)
	} else {
		buffer.WriteByte(0)
	}
	return nil
}

func writeString16(buffer *bytes.Buffer, value string) error {
	if len(value) > math.MaxUint16 {
		return errors.Errorf("string too long (%d bytes)", len(value))
	}
	writeU16(buffer, uint16(len(value)))
	buffer.WriteString(value)
	return nil
}

func writeU16(buffer *bytes.Buffer, value uint16) {
	var scratch [2]byte
	binary.LittleEndian.PutUint16(scratch[:], value)
	buffer.Write(scratch[:])
}

func writeU32(buffer *bytes.Buffer, value uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], value)
	buffer.Write(scratch[:])
}

func writeU64(buffer *bytes.Buffer, value uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], value)
	buffer.Write(scratch[:])
}
