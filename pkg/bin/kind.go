// Package bin provides the property-tree codec: a defensive parser and
// byte-stable serializer for the recursive, hash-keyed, typed property
// format (PROP/PTCH), plus path classification and the 32-bit name digest.
package bin

import (
	"github.com/pkg/errors"
)

// Kind identifies the type of a property value.
type Kind uint8

const (
	// KindNone is the empty value.
	KindNone Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindI8 is a signed 8-bit integer.
	KindI8
	// KindU8 is an unsigned 8-bit integer.
	KindU8
	// KindI16 is a signed 16-bit integer.
	KindI16
	// KindU16 is an unsigned 16-bit integer.
	KindU16
	// KindI32 is a signed 32-bit integer.
	KindI32
	// KindU32 is an unsigned 32-bit integer.
	KindU32
	// KindI64 is a signed 64-bit integer.
	KindI64
	// KindU64 is an unsigned 64-bit integer.
	KindU64
	// KindF32 is a 32-bit float.
	KindF32
	// KindVector2 is a 2-component float vector.
	KindVector2
	// KindVector3 is a 3-component float vector.
	KindVector3
	// KindVector4 is a 4-component float vector.
	KindVector4
	// KindMatrix44 is a 4x4 float matrix.
	KindMatrix44
	// KindColor is an RGBA8 color.
	KindColor
	// KindString is a UTF-8 string.
	KindString
	// KindHash is a 32-bit name digest.
	KindHash
	// KindWadLink is a 64-bit archive path digest.
	KindWadLink
	// KindContainer is an ordered homogeneous container.
	KindContainer
	// KindUnorderedContainer is a homogeneous container with set semantics.
	KindUnorderedContainer
	// KindStruct is a named sub-tree of properties.
	KindStruct
	// KindEmbedded is a named sub-tree with identity.
	KindEmbedded
	// KindObjectLink is a 32-bit object reference.
	KindObjectLink
	// KindOptional holds zero or one value of a fixed kind.
	KindOptional
	// KindMap is an ordered sequence of key/value pairs with fixed key and
	// value kinds.
	KindMap
	// KindBitBool is a boolean stored as a bit flag.
	KindBitBool
)

// complexFlag marks complex kinds in the wire encoding.
const complexFlag = 0x80

// unpackKind decodes a wire type byte into a Kind.
func unpackKind(raw uint8) (Kind, error) {
	var kind Kind
	if raw&complexFlag != 0 {
		kind = Kind(raw-complexFlag) + KindContainer
	} else {
		kind = Kind(raw)
	}
	if (raw&complexFlag == 0 && kind > KindWadLink) || kind > KindBitBool {
		return 0, errors.Errorf("unknown property kind 0x%02x", raw)
	}
	return kind, nil
}

// wire encodes a Kind as its wire type byte.
func (k Kind) wire() uint8 {
	if k >= KindContainer {
		return uint8(k-KindContainer) + complexFlag
	}
	return uint8(k)
}

// String provides the kind's name as used by the text form.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindI8:
		return "i8"
	case KindU8:
		return "u8"
	case KindI16:
		return "i16"
	case KindU16:
		return "u16"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindVector2:
		return "vec2"
	case KindVector3:
		return "vec3"
	case KindVector4:
		return "vec4"
	case KindMatrix44:
		return "mtx44"
	case KindColor:
		return "rgba"
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindWadLink:
		return "file"
	case KindContainer:
		return "list"
	case KindUnorderedContainer:
		return "list2"
	case KindStruct:
		return "pointer"
	case KindEmbedded:
		return "embed"
	case KindObjectLink:
		return "link"
	case KindOptional:
		return "option"
	case KindMap:
		return "map"
	case KindBitBool:
		return "flag"
	default:
		return "unknown"
	}
}

// KindFromName maps a text-form kind name back to its Kind. The boolean
// result indicates whether the name was recognized.
func KindFromName(name string) (Kind, bool) {
	for k := KindNone; k <= KindBitBool; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
