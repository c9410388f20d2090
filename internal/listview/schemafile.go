package listview

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type schemaDocument struct {
	Entity       string                `yaml:"entity"`
	IDField      string                `yaml:"id"`
	Columns      []columnDocument      `yaml:"columns"`
	SearchFields []string              `yaml:"searchFields"`
	QuickFilters []quickFilterDocument `yaml:"quickFilters"`
	DefaultSort  struct {
		Key       string `yaml:"key"`
		Direction string `yaml:"direction"`
	} `yaml:"defaultSort"`
	DefaultColumns []string `yaml:"defaultColumns"`
	PageSize       int      `yaml:"pageSize"`
}

type columnDocument struct {
	Key    string   `yaml:"key"`
	Label  string   `yaml:"label"`
	Field  string   `yaml:"field"`
	Concat []string `yaml:"concat"`
	Sep    string   `yaml:"separator"`
}

type quickFilterDocument struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Field  string `yaml:"field"`
	Equals string `yaml:"equals"`
	Truthy bool   `yaml:"truthy"`
	Negate bool   `yaml:"negate"`
}

// LoadSchemaFile reads a YAML schema definition from path.
func LoadSchemaFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("listview: open schema: %w", err)
	}
	defer f.Close()
	return LoadSchemaYAML(f)
}

// LoadSchemaYAML decodes a declarative schema. A column may read another
// field, or derive its value by joining several fields:
//
//	columns:
//	  - key: fullName
//	    label: Full name
//	    concat: [firstName, lastName]
//
// Quick filters compare one field against a value, or test it for truth.
func LoadSchemaYAML(r io.Reader) (*Schema, error) {
	var doc schemaDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("listview: decode schema: %w", err)
	}

	schema := &Schema{
		Entity:          doc.Entity,
		IDField:         doc.IDField,
		SearchFields:    doc.SearchFields,
		DefaultColumns:  doc.DefaultColumns,
		DefaultPageSize: doc.PageSize,
		DefaultSort: SortSpec{
			Key:       doc.DefaultSort.Key,
			Direction: Direction(doc.DefaultSort.Direction),
		},
	}
	if schema.IDField == "" {
		schema.IDField = "id"
	}
	if schema.DefaultSort.Key != "" && schema.DefaultSort.Direction == "" {
		schema.DefaultSort.Direction = Asc
	}

	for _, cd := range doc.Columns {
		col := Column{Key: cd.Key, Label: cd.Label}
		if col.Label == "" {
			col.Label = cd.Key
		}
		switch {
		case len(cd.Concat) > 0:
			sep := cd.Sep
			if sep == "" {
				sep = " "
			}
			col.Value = Concat(sep, cd.Concat...)
		case cd.Field != "" && cd.Field != cd.Key:
			field := cd.Field
			col.Value = func(row Row) any { return row[field] }
		}
		schema.Columns = append(schema.Columns, col)
	}

	for _, qd := range doc.QuickFilters {
		if qd.Field == "" {
			return nil, fmt.Errorf("%w: quick filter %q has no field", ErrInvalidSchema, qd.Name)
		}
		var match func(Row) bool
		if qd.Truthy {
			match = FieldTrue(qd.Field)
		} else {
			match = FieldEquals(qd.Field, qd.Equals)
		}
		if qd.Negate {
			match = Not(match)
		}
		label := qd.Label
		if label == "" {
			label = qd.Name
		}
		schema.QuickFilters = append(schema.QuickFilters, QuickFilter{Name: qd.Name, Label: label, Match: match})
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}
