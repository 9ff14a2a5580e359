// Package types defines the closed set of column logical types understood
// by the shuffle core. The Schema/Field abstractions built on top of it live
// in package schema.
package types

import "fmt"

// Tag identifies one of the logical column types in the closed set this
// module understands. Any value outside this set is a programmer error.
type Tag int

// The closed set of supported column logical types. Adding a type here
// requires extending the switch in internal/codec, table, and schema in the
// one site each of them centralizes its dispatch.
const (
	Float64 Tag = iota
	Float32
	Int64
	Int32
	Uint64
	Uint32
	LargeUTF8
	Null
	LargeList
)

// IsNumeric returns true for the six raw fixed-width numeric tags.
func (t Tag) IsNumeric() bool {
	switch t {
	case Float64, Float32, Int64, Int32, Uint64, Uint32:
		return true
	default:
		return false
	}
}

// String returns a human-readable name for a Tag, for error messages and logs.
func (t Tag) String() string {
	switch t {
	case Float64:
		return "f64"
	case Float32:
		return "f32"
	case Int64:
		return "i64"
	case Int32:
		return "i32"
	case Uint64:
		return "u64"
	case Uint32:
		return "u32"
	case LargeUTF8:
		return "large-utf8"
	case Null:
		return "null"
	case LargeList:
		return "large-list"
	default:
		return fmt.Sprintf("unknown-tag(%d)", int(t))
	}
}

// ColumnType is the logical type of one column. For LargeList columns, Elem
// identifies the element type, which must itself be one of the six numeric
// tags (spec closed set); for every other tag Elem is unused.
type ColumnType struct {
	Tag  Tag
	Elem Tag
}

// Numeric builds a ColumnType for one of the six raw numeric tags.
func Numeric(tag Tag) ColumnType {
	if !tag.IsNumeric() {
		panic(fmt.Errorf("types: %s is not a numeric column type", tag))
	}
	return ColumnType{Tag: tag}
}

// NewLargeUTF8 builds the large-utf8 string ColumnType.
func NewLargeUTF8() ColumnType { return ColumnType{Tag: LargeUTF8} }

// NewNull builds the null ColumnType.
func NewNull() ColumnType { return ColumnType{Tag: Null} }

// NewLargeList builds a large-list<elem> ColumnType. elem must be one of the
// six numeric tags, matching the closed set in spec.md section 3.
func NewLargeList(elem Tag) ColumnType {
	if !elem.IsNumeric() {
		panic(fmt.Errorf("types: large-list element type must be numeric, got %s", elem))
	}
	return ColumnType{Tag: LargeList, Elem: elem}
}

// Equals returns true iff two ColumnTypes denote the same logical type.
// Schema equality (spec.md section 3, section 4.3) is built out of this.
func (c ColumnType) Equals(other ColumnType) bool {
	return c.Tag == other.Tag && (c.Tag != LargeList || c.Elem == other.Elem)
}

// String renders a ColumnType the way the wire-format table in spec.md
// section 3 names it, e.g. "large-list<i32>".
func (c ColumnType) String() string {
	if c.Tag == LargeList {
		return fmt.Sprintf("large-list<%s>", c.Elem)
	}
	return c.Tag.String()
}

// Validate panics if t names something outside the closed type set (section
// 3: "any other type is a fatal programmer error"). It is called at the one
// boundary where a caller hands this module a ColumnType it didn't build
// through the constructors above (e.g. after deserializing a Schema).
func Validate(t ColumnType) {
	switch t.Tag {
	case Float64, Float32, Int64, Int32, Uint64, Uint32, LargeUTF8, Null:
		return
	case LargeList:
		if !t.Elem.IsNumeric() {
			panic(fmt.Errorf("types: unsupported large-list element type %s", t.Elem))
		}
	default:
		panic(fmt.Errorf("types: unsupported column type tag %d", int(t.Tag)))
	}
}
