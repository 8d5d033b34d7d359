package ledger

import (
	"fmt"
	"strings"
)

// Canonical field names shared by the file format and the wire protocol.
const (
	FieldIdentifier = "IDENTIFIER"
	FieldSpec       = "SETSPEC"
	FieldCreated    = "CREATED"
	FieldInfo       = "INFO"
	FieldState      = "STATE"
	FieldStateTime  = "STATE_TIME"
)

// CommentMark prefixes ledger lines that are preserved but never parsed.
const CommentMark = "#"

// LegacyHeader is the six-column layout used by migrated ledgers.
func LegacyHeader() []string {
	return []string{FieldIdentifier, FieldSpec, FieldCreated, FieldInfo, FieldState, FieldStateTime}
}

// CompactHeader is the four-column layout for newly created ledgers.
func CompactHeader() []string {
	return []string{FieldIdentifier, FieldInfo, FieldState, FieldStateTime}
}

// Schema fixes the field roles of one ledger: the first field identifies
// the record, the second-to-last holds its state, the last its state
// timestamp. Any fields in between are caller-defined and optional.
// Validated once at construction instead of re-derived per access.
type Schema struct {
	fields []string
	byName map[string]int
}

// NewSchema builds a schema from header tokens.
func NewSchema(fields []string) (Schema, error) {
	if len(fields) < 3 {
		return Schema{}, fmt.Errorf("%w: header needs at least identifier, state and state-time, got %q", ErrDataShape, fields)
	}
	byName := make(map[string]int, len(fields))
	for i, field := range fields {
		name := strings.TrimSpace(field)
		if name == "" {
			return Schema{}, fmt.Errorf("%w: blank header field at position %d", ErrDataShape, i)
		}
		if _, dup := byName[name]; dup {
			return Schema{}, fmt.Errorf("%w: duplicate header field %q", ErrDataShape, name)
		}
		byName[name] = i
	}
	cp := make([]string, len(fields))
	for i, field := range fields {
		cp[i] = strings.TrimSpace(field)
	}
	return Schema{fields: cp, byName: byName}, nil
}

// Fields returns the ordered field names.
func (s Schema) Fields() []string {
	cp := make([]string, len(s.fields))
	copy(cp, s.fields)
	return cp
}

// Len returns the column count.
func (s Schema) Len() int { return len(s.fields) }

// Identifier names the identifier field.
func (s Schema) Identifier() string { return s.fields[0] }

// State names the state field.
func (s Schema) State() string { return s.fields[len(s.fields)-2] }

// StateTime names the state timestamp field.
func (s Schema) StateTime() string { return s.fields[len(s.fields)-1] }

// Index resolves a field name to its column position.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Equal reports whether both schemas carry the same fields in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i, field := range s.fields {
		if other.fields[i] != field {
			return false
		}
	}
	return true
}

// HeaderLine renders the tab-separated header row.
func (s Schema) HeaderLine() string {
	return strings.Join(s.fields, "\t")
}

// Row is one parsed ledger line: the schema plus its column values.
type Row struct {
	schema Schema
	values []string
}

func newRow(schema Schema, values []string) Row {
	return Row{schema: schema, values: values}
}

// Schema returns the row's schema.
func (r Row) Schema() Schema { return r.schema }

// Field returns the value of a named field.
func (r Row) Field(name string) (string, bool) {
	i, ok := r.schema.Index(name)
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Identifier returns the identifier column.
func (r Row) Identifier() string { return r.values[0] }

// State returns the state column.
func (r Row) State() string { return r.values[len(r.values)-2] }

// StateTime returns the state timestamp column.
func (r Row) StateTime() string { return r.values[len(r.values)-1] }

func (r Row) setState(state string) { r.values[len(r.values)-2] = state }

func (r Row) setStateTime(ts string) { r.values[len(r.values)-1] = ts }

func (r Row) set(name, value string) bool {
	i, ok := r.schema.Index(name)
	if !ok {
		return false
	}
	r.values[i] = value
	return true
}

// Line renders the row as a tab-separated ledger line.
func (r Row) Line() string {
	return strings.Join(r.values, "\t")
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	values := make([]string, len(r.values))
	copy(values, r.values)
	return Row{schema: r.schema, values: values}
}
