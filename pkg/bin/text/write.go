package text

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/bin"
)

// Marshal renders a tree to its text form with hex digests throughout.
func Marshal(tree *bin.Tree) (string, error) {
	return MarshalWith(tree, nil)
}

// MarshalWith renders a tree to its text form, resolving digests to names
// through the provider where possible. A nil provider renders hex digests
// throughout.
func MarshalWith(tree *bin.Tree, provider Provider) (string, error) {
	w := &writer{provider: provider}
	w.line("#PROP_text")
	w.line("type: string = %q", tree.Magic.String())
	w.line("version: u32 = %d", tree.Version)

	w.open("linked: list[string] = {")
	for _, dependency := range tree.Dependencies {
		w.line("%q", dependency)
	}
	w.close()

	w.open("entries: map[hash,embed] = {")
	for _, object := range tree.Objects {
		w.open("%s = %s {", w.entryName(object.PathDigest), w.typeName(object.ClassDigest))
		for _, property := range object.Properties {
			if err := w.property(property); err != nil {
				return "", err
			}
		}
		w.close()
	}
	w.close()

	return w.builder.String(), nil
}

// writer accumulates indented text output.
type writer struct {
	builder  strings.Builder
	provider Provider
	indent   int
}

// line writes one indented line.
func (w *writer) line(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.builder.WriteString("    ")
	}
	fmt.Fprintf(&w.builder, format, args...)
	w.builder.WriteByte('\n')
}

// open writes a block-opening line and increases indentation.
func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.indent++
}

// close decreases indentation and writes the closing brace.
func (w *writer) close() {
	w.indent--
	w.line("}")
}

// identifierSafe indicates whether a resolved name can be written bare.
func identifierSafe(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		alpha := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
		digit := c >= '0' && c <= '9'
		if !alpha && !(digit && i > 0) {
			return false
		}
	}
	return true
}

// entryName renders an object path digest: a quoted resolved name, or hex.
func (w *writer) entryName(digest uint32) string {
	if w.provider != nil {
		if name, ok := w.provider.ResolveEntry(digest); ok {
			return strconv.Quote(name)
		}
	}
	return fmt.Sprintf("0x%08x", digest)
}

// typeName renders a class digest: a bare resolved identifier, or hex.
func (w *writer) typeName(digest uint32) string {
	if w.provider != nil {
		if name, ok := w.provider.ResolveType(digest); ok && identifierSafe(name) {
			return name
		}
	}
	return fmt.Sprintf("0x%08x", digest)
}

// fieldName renders a property name digest: a bare resolved identifier, or
// hex.
func (w *writer) fieldName(digest uint32) string {
	if w.provider != nil {
		if name, ok := w.provider.ResolveField(digest); ok && identifierSafe(name) {
			return name
		}
	}
	return fmt.Sprintf("0x%08x", digest)
}

// hashName renders a hash value: a quoted resolved name, or hex.
func (w *writer) hashName(digest uint32) string {
	if w.provider != nil {
		if name, ok := w.provider.ResolveHash(digest); ok {
			return strconv.Quote(name)
		}
	}
	return fmt.Sprintf("0x%08x", digest)
}

// pathName renders an archive path digest: a quoted resolved path, or hex.
func (w *writer) pathName(digest uint64) string {
	if w.provider != nil {
		if name, ok := w.provider.ResolvePath(digest); ok {
			return strconv.Quote(name)
		}
	}
	return fmt.Sprintf("0x%016x", digest)
}

// property writes a single name: kind = value declaration.
func (w *writer) property(property bin.Property) error {
	return w.declaration(w.fieldName(property.Name), property.Value)
}

// declaration writes name: kind = value for an arbitrary value.
func (w *writer) declaration(name string, value bin.Value) error {
	spec := w.specFor(value)
	switch v := value.(type) {
	case *bin.Container:
		return w.block(fmt.Sprintf("%s: %s = {", name, spec), v.Items)
	case *bin.UnorderedContainer:
		return w.block(fmt.Sprintf("%s: %s = {", name, spec), v.Items)
	case *bin.Struct:
		return w.structure(fmt.Sprintf("%s: %s = ", name, spec), v.Class, v.Properties)
	case *bin.Embedded:
		return w.structure(fmt.Sprintf("%s: %s = ", name, spec), v.Class, v.Properties)
	case *bin.Optional:
		if v.Value == nil {
			w.line("%s: %s = {}", name, spec)
			return nil
		}
		w.open("%s: %s = {", name, spec)
		if err := w.bareValue(v.Value); err != nil {
			return err
		}
		w.close()
		return nil
	case *bin.Map:
		w.open("%s: %s = {", name, spec)
		for _, entry := range v.Entries {
			key, err := w.scalar(entry.Key())
			if err != nil {
				return err
			}
			if err := w.declarationValue(key+" = ", entry.Value); err != nil {
				return err
			}
		}
		w.close()
		return nil
	default:
		scalar, err := w.scalar(value)
		if err != nil {
			return err
		}
		w.line("%s: %s = %s", name, spec, scalar)
		return nil
	}
}

// declarationValue writes prefix followed by a value (used for map entries,
// which carry no kind annotation on the value side).
func (w *writer) declarationValue(prefix string, value bin.Value) error {
	switch v := value.(type) {
	case *bin.Container:
		return w.blockPrefixed(prefix+"{", v.Items)
	case *bin.UnorderedContainer:
		return w.blockPrefixed(prefix+"{", v.Items)
	case *bin.Struct:
		return w.structure(prefix, v.Class, v.Properties)
	case *bin.Embedded:
		return w.structure(prefix, v.Class, v.Properties)
	case *bin.Optional:
		if v.Value == nil {
			w.line("%s{}", prefix)
			return nil
		}
		w.open("%s{", prefix)
		if err := w.bareValue(v.Value); err != nil {
			return err
		}
		w.close()
		return nil
	case *bin.Map:
		w.open("%s{", prefix)
		for _, entry := range v.Entries {
			key, err := w.scalar(entry.Key())
			if err != nil {
				return err
			}
			if err := w.declarationValue(key+" = ", entry.Value); err != nil {
				return err
			}
		}
		w.close()
		return nil
	default:
		scalar, err := w.scalar(value)
		if err != nil {
			return err
		}
		w.line("%s%s", prefix, scalar)
		return nil
	}
}

// block writes a brace block of container items.
func (w *writer) block(opening string, items []bin.Value) error {
	return w.blockPrefixed(opening, items)
}

func (w *writer) blockPrefixed(opening string, items []bin.Value) error {
	w.open("%s", opening)
	for _, item := range items {
		if err := w.bareValue(item); err != nil {
			return err
		}
	}
	w.close()
	return nil
}

// bareValue writes a container element on its own line.
func (w *writer) bareValue(value bin.Value) error {
	switch v := value.(type) {
	case *bin.Container:
		return w.blockPrefixed("{", v.Items)
	case *bin.UnorderedContainer:
		return w.blockPrefixed("{", v.Items)
	case *bin.Struct:
		return w.structure("", v.Class, v.Properties)
	case *bin.Embedded:
		return w.structure("", v.Class, v.Properties)
	case *bin.Optional, *bin.Map:
		return errors.Errorf("%v values cannot nest inside containers", value.Kind())
	default:
		scalar, err := w.scalar(value)
		if err != nil {
			return err
		}
		w.line("%s", scalar)
		return nil
	}
}

// structure writes prefix followed by ClassName { ... } or null.
func (w *writer) structure(prefix string, class uint32, properties []bin.Property) error {
	if class == 0 {
		w.line("%snull", prefix)
		return nil
	}
	w.open("%s%s {", prefix, w.typeName(class))
	for _, property := range properties {
		if err := w.property(property); err != nil {
			return err
		}
	}
	w.close()
	return nil
}

// scalar renders a non-recursive value as a single token sequence.
func (w *writer) scalar(value bin.Value) (string, error) {
	switch v := value.(type) {
	case bin.None:
		return "null", nil
	case bin.Bool:
		return strconv.FormatBool(bool(v)), nil
	case bin.BitBool:
		return strconv.FormatBool(bool(v)), nil
	case bin.I8:
		return strconv.FormatInt(int64(v), 10), nil
	case bin.U8:
		return strconv.FormatUint(uint64(v), 10), nil
	case bin.I16:
		return strconv.FormatInt(int64(v), 10), nil
	case bin.U16:
		return strconv.FormatUint(uint64(v), 10), nil
	case bin.I32:
		return strconv.FormatInt(int64(v), 10), nil
	case bin.U32:
		return strconv.FormatUint(uint64(v), 10), nil
	case bin.I64:
		return strconv.FormatInt(int64(v), 10), nil
	case bin.U64:
		return strconv.FormatUint(uint64(v), 10), nil
	case bin.F32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case bin.Vector2:
		return tuple(v[:]), nil
	case bin.Vector3:
		return tuple(v[:]), nil
	case bin.Vector4:
		return tuple(v[:]), nil
	case bin.Matrix44:
		return tuple(v[:]), nil
	case bin.Color:
		return fmt.Sprintf("{ %d, %d, %d, %d }", v[0], v[1], v[2], v[3]), nil
	case bin.String:
		return strconv.Quote(string(v)), nil
	case bin.Hash:
		return w.hashName(uint32(v)), nil
	case bin.WadLink:
		return w.pathName(uint64(v)), nil
	case bin.ObjectLink:
		return w.entryName(uint32(v)), nil
	default:
		return "", errors.Errorf("value kind %v is not scalar", value.Kind())
	}
}

// tuple renders a brace-grouped numeric tuple.
func tuple(values []float32) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = strconv.FormatFloat(float64(value), 'g', -1, 32)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// specFor derives the type annotation for a value, recursing into container
// element kinds where the annotation needs them.
func (w *writer) specFor(value bin.Value) string {
	switch v := value.(type) {
	case *bin.Container:
		return "list[" + w.itemSpec(v.Item, v.Items) + "]"
	case *bin.UnorderedContainer:
		return "list2[" + w.itemSpec(v.Item, v.Items) + "]"
	case *bin.Optional:
		return "option[" + v.Item.String() + "]"
	case *bin.Map:
		valueSpec := v.ValueKind.String()
		if len(v.Entries) > 0 {
			valueSpec = w.specFor(v.Entries[0].Value)
			if !strings.Contains(valueSpec, "[") {
				valueSpec = v.ValueKind.String()
			}
		}
		return "map[" + v.KeyKind.String() + "," + valueSpec + "]"
	default:
		return value.Kind().String()
	}
}

// itemSpec renders a container element kind, nesting when the elements are
// themselves containers.
func (w *writer) itemSpec(item bin.Kind, items []bin.Value) string {
	if (item == bin.KindContainer || item == bin.KindUnorderedContainer) && len(items) > 0 {
		return w.specFor(items[0])
	}
	return item.String()
}
