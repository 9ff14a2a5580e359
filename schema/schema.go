// Package schema defines an ordered sequence of named, typed columns bound
// to a record batch, and the canonical byte encoding the Schema Barrier
// exchanges between peers (spec.md section 4.3, section 6).
package schema

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tableshuffle/shuffle/types"
)

// Field is one (name, logical-type) pair within a Schema.
type Field struct {
	Name string
	Type types.ColumnType
}

// Schema is an ordered sequence of Fields. Order is significant: it
// determines column order within every RecordBatch bound to this Schema,
// and the order columns are (de)serialized in (spec.md section 4.1).
type Schema struct {
	fields []Field
}

// New builds a Schema from an ordered list of Fields. Each field's type is
// validated against the closed type set (section 3); an unsupported type is
// a fatal programmer error, not a recoverable one.
func New(fields ...Field) *Schema {
	for _, f := range fields {
		types.Validate(f.Type)
	}
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return &Schema{fields: cp}
}

// NumFields returns the number of columns in the Schema.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the i'th field in schema order.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the ordered field list.
func (s *Schema) Fields() []Field {
	cp := make([]Field, len(s.fields))
	copy(cp, s.fields)
	return cp
}

// Equals reports whether two Schemas are identical in field count, order,
// names and types. The Schema Barrier (internal/barrier) deserializes each
// peer's canonical encoding and compares it with this method; since the
// encoding covers exactly these properties, two schemas are Equal exactly
// when their encodings are byte-for-byte identical.
func (s *Schema) Equals(other *Schema) bool {
	if other == nil || len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		of := other.fields[i]
		if f.Name != of.Name || !f.Type.Equals(of.Type) {
			return false
		}
	}
	return true
}

// Serialize writes the canonical byte encoding of the Schema: a 64-bit
// field count, then per field a length-prefixed name, a type tag byte, and
// (for large-list fields only) an element type tag byte. This stands in for
// the columnar library's IPC schema serializer referenced in spec.md
// section 4.3/6 — see DESIGN.md for why this module cannot simply call an
// external IPC serializer here.
func (s *Schema) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(s.fields))); err != nil {
		return fmt.Errorf("schema: failed to write field count: %w", err)
	}
	for _, f := range s.fields {
		nameBytes := []byte(f.Name)
		if err := binary.Write(w, binary.LittleEndian, int64(len(nameBytes))); err != nil {
			return fmt.Errorf("schema: failed to write name length: %w", err)
		}
		if _, err := w.Write(nameBytes); err != nil {
			return fmt.Errorf("schema: failed to write name bytes: %w", err)
		}
		if _, err := w.Write([]byte{byte(f.Type.Tag)}); err != nil {
			return fmt.Errorf("schema: failed to write type tag: %w", err)
		}
		if f.Type.Tag == types.LargeList {
			if _, err := w.Write([]byte{byte(f.Type.Elem)}); err != nil {
				return fmt.Errorf("schema: failed to write element type tag: %w", err)
			}
		}
	}
	return nil
}

// Deserialize reads back a Schema written by Serialize.
func Deserialize(r io.Reader) (*Schema, error) {
	var numFields int64
	if err := binary.Read(r, binary.LittleEndian, &numFields); err != nil {
		return nil, fmt.Errorf("schema: failed to read field count: %w", err)
	}
	fields := make([]Field, 0, numFields)
	for i := int64(0); i < numFields; i++ {
		var nameLen int64
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("schema: failed to read name length: %w", err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, fmt.Errorf("schema: failed to read name bytes: %w", err)
		}
		var tagByte [1]byte
		if _, err := io.ReadFull(r, tagByte[:]); err != nil {
			return nil, fmt.Errorf("schema: failed to read type tag: %w", err)
		}
		tag := types.Tag(tagByte[0])
		var ct types.ColumnType
		if tag == types.LargeList {
			var elemByte [1]byte
			if _, err := io.ReadFull(r, elemByte[:]); err != nil {
				return nil, fmt.Errorf("schema: failed to read element type tag: %w", err)
			}
			ct = types.NewLargeList(types.Tag(elemByte[0]))
		} else {
			ct = types.ColumnType{Tag: tag}
		}
		fields = append(fields, Field{Name: string(nameBytes), Type: ct})
	}
	return New(fields...), nil
}
