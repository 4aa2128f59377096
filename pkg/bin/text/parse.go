package text

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cespare/xxhash/v2"

	"github.com/ritoshark/flint/pkg/bin"
)

// tokenKind identifies a lexical token class.
type tokenKind uint

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenPunct
)

// token is a single lexical token.
type token struct {
	kind tokenKind
	text string
	line int
}

// lex splits text-form input into tokens. Comments run from # to end of
// line; commas are pure separators and are discarded along with other
// whitespace, since the grammar attaches no significance to line breaks
// beyond token separation.
func lex(input string) ([]token, error) {
	var tokens []token
	line := 1
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			i++
		case c == '#':
			for i < len(input) && input[i] != '\n' {
				i++
			}
		case c == '"':
			start := i
			i++
			for i < len(input) && input[i] != '"' {
				if input[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(input) {
				return nil, errors.Errorf("line %d: unterminated string", line)
			}
			i++
			tokens = append(tokens, token{tokenString, input[start:i], line})
		case c == ':' || c == '=' || c == '{' || c == '}' || c == '[' || c == ']':
			tokens = append(tokens, token{tokenPunct, string(c), line})
			i++
		case c == '-' || c >= '0' && c <= '9':
			start := i
			i++
			for i < len(input) && (isNumberChar(input[i])) {
				i++
			}
			tokens = append(tokens, token{tokenNumber, input[start:i], line})
		case isIdentChar(c):
			start := i
			for i < len(input) && isIdentChar(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokenIdent, input[start:i], line})
		default:
			return nil, errors.Errorf("line %d: unexpected character %q", line, c)
		}
	}
	return append(tokens, token{kind: tokenEOF, line: line}), nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isNumberChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' ||
		c == 'x' || c == 'X' || c == '.' || c == '+' || c == '-' || c == 'e' || c == 'E'
}

// typeSpec is a parsed type annotation, possibly with bracketed arguments
// (list[string], map[hash,embed], option[f32]).
type typeSpec struct {
	kind bin.Kind
	args []typeSpec
}

// parser is a recursive-descent parser over the token stream.
type parser struct {
	tokens []token
	pos    int
}

// Unmarshal parses text-form input back into a property tree. Names map
// back through the digest functions: FNV-1a for 32-bit names, xxh64 for
// archive path links.
func Unmarshal(input string) (*bin.Tree, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	tree := bin.NewTree()
	for p.peek().kind != tokenEOF {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		spec, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}

		switch name {
		case "type":
			literal, err := p.expectString()
			if err != nil {
				return nil, err
			}
			switch literal {
			case "PROP":
				tree.Magic = bin.MagicNormal
			case "PTCH":
				tree.Magic = bin.MagicPatch
			default:
				return nil, errors.Errorf("line %d: unknown tree type %q", p.peek().line, literal)
			}
		case "version":
			version, err := p.expectUint(32)
			if err != nil {
				return nil, err
			}
			tree.Version = uint32(version)
		case "linked":
			if err := p.expectPunct("{"); err != nil {
				return nil, err
			}
			for !p.acceptPunct("}") {
				dependency, err := p.expectString()
				if err != nil {
					return nil, err
				}
				tree.Dependencies = append(tree.Dependencies, dependency)
			}
		case "entries":
			if spec.kind != bin.KindMap {
				return nil, errors.Errorf("line %d: entries must be a map", p.peek().line)
			}
			if err := p.entries(tree); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("line %d: unknown declaration %q", p.peek().line, name)
		}
	}
	return tree, nil
}

// entries parses the entries block into tree objects.
func (p *parser) entries(tree *bin.Tree) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for !p.acceptPunct("}") {
		pathDigest, err := p.digest32()
		if err != nil {
			return err
		}
		if err := p.expectPunct("="); err != nil {
			return err
		}
		class, properties, err := p.structureBody()
		if err != nil {
			return err
		}
		if class == 0 {
			return errors.Errorf("line %d: entry 0x%08x has a null class", p.peek().line, pathDigest)
		}
		if existing := tree.Lookup(pathDigest); existing != nil {
			return errors.Errorf("line %d: duplicate entry 0x%08x", p.peek().line, pathDigest)
		}
		tree.Insert(&bin.Object{
			PathDigest:  pathDigest,
			ClassDigest: class,
			Properties:  properties,
		})
	}
	return nil
}

// structureBody parses ClassName { properties } or null, returning the
// class digest (zero for null) and properties.
func (p *parser) structureBody() (uint32, []bin.Property, error) {
	next := p.next()
	switch {
	case next.kind == tokenIdent && next.text == "null":
		return 0, nil, nil
	case next.kind == tokenIdent:
		class := bin.Digest(next.text)
		properties, err := p.propertyBlock()
		return class, properties, err
	case next.kind == tokenNumber:
		value, err := parseUintToken(next.text, 32)
		if err != nil {
			return 0, nil, errors.Errorf("line %d: bad class digest %q", next.line, next.text)
		}
		properties, err := p.propertyBlock()
		return uint32(value), properties, err
	default:
		return 0, nil, errors.Errorf("line %d: expected class name, got %q", next.line, next.text)
	}
}

// propertyBlock parses { name: kind = value ... }.
func (p *parser) propertyBlock() ([]bin.Property, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var properties []bin.Property
	for !p.acceptPunct("}") {
		name, err := p.digest32()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		spec, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		value, err := p.value(spec)
		if err != nil {
			return nil, err
		}
		properties = append(properties, bin.Property{Name: name, Value: value})
	}
	return properties, nil
}

// typeSpec parses a type annotation with optional bracketed arguments.
func (p *parser) typeSpec() (typeSpec, error) {
	name, err := p.expectIdent()
	if err != nil {
		return typeSpec{}, err
	}
	kind, ok := bin.KindFromName(name)
	if !ok {
		return typeSpec{}, errors.Errorf("line %d: unknown kind %q", p.peek().line, name)
	}
	spec := typeSpec{kind: kind}
	if p.acceptPunct("[") {
		for !p.acceptPunct("]") {
			arg, err := p.typeSpec()
			if err != nil {
				return typeSpec{}, err
			}
			spec.args = append(spec.args, arg)
		}
	}
	return spec, nil
}

// value parses a value according to its type annotation.
func (p *parser) value(spec typeSpec) (bin.Value, error) {
	switch spec.kind {
	case bin.KindNone:
		if _, err := p.expectIdentText("null"); err != nil {
			return nil, err
		}
		return bin.None{}, nil
	case bin.KindBool, bin.KindBitBool:
		literal, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		var value bool
		switch literal {
		case "true":
			value = true
		case "false":
			value = false
		default:
			return nil, errors.Errorf("line %d: bad boolean %q", p.peek().line, literal)
		}
		if spec.kind == bin.KindBool {
			return bin.Bool(value), nil
		}
		return bin.BitBool(value), nil
	case bin.KindI8:
		v, err := p.expectInt(8)
		return bin.I8(v), err
	case bin.KindU8:
		v, err := p.expectUint(8)
		return bin.U8(v), err
	case bin.KindI16:
		v, err := p.expectInt(16)
		return bin.I16(v), err
	case bin.KindU16:
		v, err := p.expectUint(16)
		return bin.U16(v), err
	case bin.KindI32:
		v, err := p.expectInt(32)
		return bin.I32(v), err
	case bin.KindU32:
		v, err := p.expectUint(32)
		return bin.U32(v), err
	case bin.KindI64:
		v, err := p.expectInt(64)
		return bin.I64(v), err
	case bin.KindU64:
		v, err := p.expectUint(64)
		return bin.U64(v), err
	case bin.KindF32:
		v, err := p.expectFloat()
		return bin.F32(v), err
	case bin.KindVector2:
		var v bin.Vector2
		err := p.tuple(v[:])
		return v, err
	case bin.KindVector3:
		var v bin.Vector3
		err := p.tuple(v[:])
		return v, err
	case bin.KindVector4:
		var v bin.Vector4
		err := p.tuple(v[:])
		return v, err
	case bin.KindMatrix44:
		var v bin.Matrix44
		err := p.tuple(v[:])
		return v, err
	case bin.KindColor:
		var floats [4]float32
		if err := p.tuple(floats[:]); err != nil {
			return nil, err
		}
		var v bin.Color
		for i, f := range floats {
			if f < 0 || f > 255 {
				return nil, errors.Errorf("line %d: color component out of range", p.peek().line)
			}
			v[i] = uint8(f)
		}
		return v, nil
	case bin.KindString:
		v, err := p.expectString()
		return bin.String(v), err
	case bin.KindHash:
		v, err := p.digest32()
		return bin.Hash(v), err
	case bin.KindObjectLink:
		v, err := p.digest32()
		return bin.ObjectLink(v), err
	case bin.KindWadLink:
		v, err := p.digest64()
		return bin.WadLink(v), err
	case bin.KindContainer, bin.KindUnorderedContainer:
		item := typeSpec{kind: bin.KindNone}
		if len(spec.args) > 0 {
			item = spec.args[0]
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		var items []bin.Value
		for !p.acceptPunct("}") {
			value, err := p.value(item)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if spec.kind == bin.KindContainer {
			return &bin.Container{Item: item.kind, Items: items}, nil
		}
		return &bin.UnorderedContainer{Item: item.kind, Items: items}, nil
	case bin.KindStruct, bin.KindEmbedded:
		class, properties, err := p.structureBody()
		if err != nil {
			return nil, err
		}
		if spec.kind == bin.KindStruct {
			return &bin.Struct{Class: class, Properties: properties}, nil
		}
		if class == 0 {
			return nil, errors.Errorf("line %d: embedded values cannot be null", p.peek().line)
		}
		return &bin.Embedded{Class: class, Properties: properties}, nil
	case bin.KindOptional:
		item := typeSpec{kind: bin.KindNone}
		if len(spec.args) > 0 {
			item = spec.args[0]
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		optional := &bin.Optional{Item: item.kind}
		if !p.acceptPunct("}") {
			value, err := p.value(item)
			if err != nil {
				return nil, err
			}
			optional.Value = value
			if err := p.expectPunct("}"); err != nil {
				return nil, err
			}
		}
		return optional, nil
	case bin.KindMap:
		keySpec := typeSpec{kind: bin.KindNone}
		valueSpec := typeSpec{kind: bin.KindNone}
		if len(spec.args) > 0 {
			keySpec = spec.args[0]
		}
		if len(spec.args) > 1 {
			valueSpec = spec.args[1]
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		m := &bin.Map{KeyKind: keySpec.kind, ValueKind: valueSpec.kind}
		for !p.acceptPunct("}") {
			key, err := p.value(keySpec)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			value, err := p.value(valueSpec)
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, bin.NewMapEntry(key, value))
		}
		return m, nil
	default:
		return nil, errors.Errorf("line %d: unparseable kind %v", p.peek().line, spec.kind)
	}
}

// tuple parses a brace-grouped numeric tuple of fixed arity.
func (p *parser) tuple(out []float32) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for i := range out {
		value, err := p.expectFloat()
		if err != nil {
			return err
		}
		out[i] = value
	}
	return p.expectPunct("}")
}

// digest32 parses a 32-bit digest: a hex/decimal number, a quoted name, or
// a bare identifier (both names digest through FNV-1a).
func (p *parser) digest32() (uint32, error) {
	next := p.next()
	switch next.kind {
	case tokenNumber:
		value, err := parseUintToken(next.text, 32)
		if err != nil {
			return 0, errors.Errorf("line %d: bad digest %q", next.line, next.text)
		}
		return uint32(value), nil
	case tokenString:
		name, err := strconv.Unquote(next.text)
		if err != nil {
			return 0, errors.Errorf("line %d: bad string %q", next.line, next.text)
		}
		return bin.Digest(name), nil
	case tokenIdent:
		return bin.Digest(next.text), nil
	default:
		return 0, errors.Errorf("line %d: expected digest, got %q", next.line, next.text)
	}
}

// digest64 parses a 64-bit archive path digest: a hex number or a quoted
// path (digested through xxh64 over the lowercased, slash-normalized form).
func (p *parser) digest64() (uint64, error) {
	next := p.next()
	switch next.kind {
	case tokenNumber:
		value, err := parseUintToken(next.text, 64)
		if err != nil {
			return 0, errors.Errorf("line %d: bad digest %q", next.line, next.text)
		}
		return value, nil
	case tokenString:
		name, err := strconv.Unquote(next.text)
		if err != nil {
			return 0, errors.Errorf("line %d: bad string %q", next.line, next.text)
		}
		normalized := strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
		return xxhash.Sum64String(normalized), nil
	default:
		return 0, errors.Errorf("line %d: expected path digest, got %q", next.line, next.text)
	}
}

// Token stream helpers.

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptPunct(text string) bool {
	if t := p.peek(); t.kind == tokenPunct && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(text string) error {
	if !p.acceptPunct(text) {
		t := p.peek()
		return errors.Errorf("line %d: expected %q, got %q", t.line, text, t.text)
	}
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.next()
	if t.kind != tokenIdent {
		return "", errors.Errorf("line %d: expected identifier, got %q", t.line, t.text)
	}
	return t.text, nil
}

func (p *parser) expectIdentText(text string) (string, error) {
	literal, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	if literal != text {
		return "", errors.Errorf("expected %q, got %q", text, literal)
	}
	return literal, nil
}

func (p *parser) expectString() (string, error) {
	t := p.next()
	if t.kind != tokenString {
		return "", errors.Errorf("line %d: expected string, got %q", t.line, t.text)
	}
	value, err := strconv.Unquote(t.text)
	if err != nil {
		return "", errors.Errorf("line %d: bad string %s", t.line, t.text)
	}
	return value, nil
}

func (p *parser) expectUint(bits int) (uint64, error) {
	t := p.next()
	if t.kind != tokenNumber {
		return 0, errors.Errorf("line %d: expected number, got %q", t.line, t.text)
	}
	value, err := parseUintToken(t.text, bits)
	if err != nil {
		return 0, errors.Errorf("line %d: bad number %q", t.line, t.text)
	}
	return value, nil
}

func (p *parser) expectInt(bits int) (int64, error) {
	t := p.next()
	if t.kind != tokenNumber {
		return 0, errors.Errorf("line %d: expected number, got %q", t.line, t.text)
	}
	value, err := strconv.ParseInt(t.text, 0, bits)
	if err != nil {
		return 0, errors.Errorf("line %d: bad number %q", t.line, t.text)
	}
	return value, nil
}

func (p *parser) expectFloat() (float32, error) {
	t := p.next()
	if t.kind != tokenNumber {
		return 0, errors.Errorf("line %d: expected number, got %q", t.line, t.text)
	}
	value, err := strconv.ParseFloat(t.text, 32)
	if err != nil {
		return 0, errors.Errorf("line %d: bad number %q", t.line, t.text)
	}
	return float32(value), nil
}

// parseUintToken parses hex (with 0x) or decimal unsigned tokens.
func parseUintToken(text string, bits int) (uint64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		return strconv.ParseUint(text[2:], 16, bits)
	}
	return strconv.ParseUint(text, 10, bits)
}
