package listview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// QuickFilterAll is the identity quick filter selected by default.
const QuickFilterAll = "all"

var (
	// ErrInvalidSchema reports a schema that cannot drive a list page.
	ErrInvalidSchema = errors.New("listview: invalid schema")
)

var schemaValidator = validator.New()

// Column describes one declared column of a list page. Value computes the
// column from a row; when nil the column reads row[Key]. Derived columns are
// declared once here and reused by search, filters and sort.
type Column struct {
	Key   string        `json:"key" validate:"required"`
	Label string        `json:"label"`
	Value func(Row) any `json:"-"`
}

// Get returns the column value for row.
func (c Column) Get(row Row) any {
	if c.Value != nil {
		return c.Value(row)
	}
	return row[c.Key]
}

// QuickFilter is a named canned predicate such as "active only".
type QuickFilter struct {
	Name  string         `json:"name" validate:"required"`
	Label string         `json:"label"`
	Match func(Row) bool `json:"-"`
}

// Schema declares the shape of one list page: its columns, the fields searched
// by free text, the quick filters on offer and the defaults restored by a
// reset.
type Schema struct {
	Entity          string        `validate:"required"`
	IDField         string        `validate:"required"`
	Columns         []Column      `validate:"required,min=1,dive"`
	SearchFields    []string      `validate:"dive,required"`
	QuickFilters    []QuickFilter `validate:"dive"`
	DefaultSort     SortSpec
	DefaultColumns  []string `validate:"dive,required"`
	DefaultPageSize int      `validate:"omitempty,oneof=10 25 50"`
}

// Validate checks the schema for structural problems.
func (s *Schema) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if err := schemaValidator.Struct(s); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchema, s.Entity, err)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if _, dup := seen[col.Key]; dup {
			return fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidSchema, s.Entity, col.Key)
		}
		seen[col.Key] = struct{}{}
	}
	for _, key := range s.DefaultColumns {
		if _, ok := seen[key]; !ok {
			return fmt.Errorf("%w: %s: default column %q not declared", ErrInvalidSchema, s.Entity, key)
		}
	}
	if s.DefaultSort.Key != "" {
		if _, ok := seen[s.DefaultSort.Key]; !ok {
			return fmt.Errorf("%w: %s: default sort %q not declared", ErrInvalidSchema, s.Entity, s.DefaultSort.Key)
		}
		if !s.DefaultSort.Direction.valid() {
			return fmt.Errorf("%w: %s: sort direction %q", ErrInvalidSchema, s.Entity, s.DefaultSort.Direction)
		}
	}
	quick := make(map[string]struct{}, len(s.QuickFilters))
	for _, qf := range s.QuickFilters {
		if qf.Name == QuickFilterAll {
			return fmt.Errorf("%w: %s: quick filter %q is reserved", ErrInvalidSchema, s.Entity, QuickFilterAll)
		}
		if _, dup := quick[qf.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate quick filter %q", ErrInvalidSchema, s.Entity, qf.Name)
		}
		quick[qf.Name] = struct{}{}
	}
	return nil
}

// Column looks up a declared column.
func (s *Schema) Column(key string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

// ColumnKeys lists declared column keys in declaration order.
func (s *Schema) ColumnKeys() []string {
	keys := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		keys[i] = col.Key
	}
	return keys
}

// Value resolves key on row through the declared column when there is one,
// falling back to the raw field.
func (s *Schema) Value(row Row, key string) any {
	if col, ok := s.Column(key); ok {
		return col.Get(row)
	}
	return row[key]
}

// ID returns the row identifier as a string.
func (s *Schema) ID(row Row) string {
	return Stringify(row[s.IDField])
}

// Project builds the rendered form of row: the identifier plus the given
// column keys, derived columns included.
func (s *Schema) Project(row Row, keys []string) Row {
	out := make(Row, len(keys)+1)
	out[s.IDField] = row[s.IDField]
	for _, key := range keys {
		out[key] = s.Value(row, key)
	}
	return out
}

func (s *Schema) searchFields() []string {
	if len(s.SearchFields) > 0 {
		return s.SearchFields
	}
	return s.ColumnKeys()
}

func (s *Schema) defaultColumns() []string {
	if len(s.DefaultColumns) > 0 {
		return s.DefaultColumns
	}
	return s.ColumnKeys()
}

func (s *Schema) defaultPageSize() int {
	if ValidPageSize(s.DefaultPageSize) {
		return s.DefaultPageSize
	}
	return DefaultPageSize
}

func (s *Schema) quickFilter(name string) (QuickFilter, bool) {
	for _, qf := range s.QuickFilters {
		if qf.Name == name {
			return qf, true
		}
	}
	return QuickFilter{}, false
}

// Concat derives a value by joining the non-empty stringified fields with sep,
// e.g. a full name from first and last name.
func Concat(sep string, keys ...string) func(Row) any {
	return func(row Row) any {
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			if v := strings.TrimSpace(Stringify(row[key])); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, sep)
	}
}

// FieldEquals matches rows whose field equals value, ignoring case.
func FieldEquals(key, value string) func(Row) bool {
	want := Fold(value)
	return func(row Row) bool {
		return Fold(Stringify(row[key])) == want
	}
}

// FieldTrue matches rows whose boolean field is set.
func FieldTrue(key string) func(Row) bool {
	return func(row Row) bool {
		switch v := row[key].(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true")
		default:
			return false
		}
	}
}

// Not negates a row predicate.
func Not(fn func(Row) bool) func(Row) bool {
	return func(row Row) bool { return !fn(row) }
}
