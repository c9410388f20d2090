package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

const contactsSchema = `
entity: contacts
columns:
  - key: fullName
    label: Name
    concat: [firstName, lastName]
  - key: email
  - key: type
    label: Type
searchFields: [fullName, email]
quickFilters:
  - name: customers
    field: type
    equals: CUSTOMER
defaultSort:
  key: fullName
`

const contactsData = `{"data": [
	{"id": 1, "firstName": "Grace", "lastName": "Hopper", "email": "grace@navy.mil", "type": "CUSTOMER"},
	{"id": 2, "firstName": "Ada", "lastName": "Lovelace", "email": "ada@engine.org", "type": "LEAD"},
	{"id": 3, "firstName": "Alan", "lastName": "Turing", "email": "alan@bletchley.uk", "type": "CUSTOMER"}
]}`

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	schema := filepath.Join(dir, "contacts.yaml")
	data := filepath.Join(dir, "contacts.json")
	require.NoError(t, os.WriteFile(schema, []byte(contactsSchema), 0o600))
	require.NoError(t, os.WriteFile(data, []byte(contactsData), 0o600))
	return schema, data
}

func TestQueryCommandJSON(t *testing.T) {
	schema, data := writeFixtures(t)
	var stdout, stderr bytes.Buffer
	code := QueryCommand(context.Background(), QueryOptions{
		SchemaPath:  schema,
		DataPath:    data,
		QuickFilter: "customers",
		Sort:        "fullName:desc",
		JSONOutput:  true,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	require.Equal(t, 0, code, stderr.String())

	var summary QuerySummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, "contacts", summary.Entity)
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, 3, summary.RawCount)
	assert.Equal(t, []string{"fullName", "email", "type"}, summary.Columns)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "Grace Hopper", summary.Rows[0]["fullName"])
	assert.Equal(t, "Alan Turing", summary.Rows[1]["fullName"])
}

func TestQueryCommandHumanOutput(t *testing.T) {
	schema, data := writeFixtures(t)
	var stdout bytes.Buffer
	code := QueryCommand(context.Background(), QueryOptions{
		SchemaPath: schema,
		DataPath:   data,
		Filters:    []string{"type!=CUSTOMER"},
		Columns:    []string{"email", "fullName"},
		Stdout:     &stdout,
		Stderr:     &bytes.Buffer{},
	})
	require.Equal(t, 0, code)
	out := stdout.String()
	assert.Contains(t, out, "contacts: 1 of 3 rows, page 1/1")
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "ada@engine.org")
	assert.NotContains(t, out, "Hopper")
}

func TestQueryCommandNoMatchExitCode(t *testing.T) {
	schema, data := writeFixtures(t)
	var stdout bytes.Buffer
	code := QueryCommand(context.Background(), QueryOptions{
		SchemaPath: schema,
		DataPath:   data,
		Search:     "nobody",
		Stdout:     &stdout,
		Stderr:     &bytes.Buffer{},
	})
	assert.Equal(t, 10, code)
	assert.Contains(t, stdout.String(), "No rows match.")
}

func TestQueryCommandErrors(t *testing.T) {
	schema, data := writeFixtures(t)
	cases := map[string]QueryOptions{
		"missing paths":   {},
		"missing data":    {SchemaPath: schema, DataPath: filepath.Join(t.TempDir(), "none.json")},
		"unknown quick":   {SchemaPath: schema, DataPath: data, QuickFilter: "vip"},
		"bad sort":        {SchemaPath: schema, DataPath: data, Sort: "email:sideways"},
		"bad page size":   {SchemaPath: schema, DataPath: data, ItemsPerPage: 7},
		"bad column find": {SchemaPath: schema, DataPath: data, ColumnSearch: []string{"email"}},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			opts.Stdout = &bytes.Buffer{}
			opts.Stderr = &stderr
			assert.Equal(t, 1, QueryCommand(context.Background(), opts))
			assert.Contains(t, stderr.String(), "query:")
		})
	}
}

func TestParseFilters(t *testing.T) {
	filters, err := ParseFilters([]string{"status=ACTIVE", "type!=LEAD", " role = admin"})
	require.NoError(t, err)
	assert.Equal(t, listview.Filters{
		"status": {Value: "ACTIVE", Operator: listview.OperatorInclude},
		"type":   {Value: "LEAD", Operator: listview.OperatorExclude},
		"role":   {Value: " admin", Operator: listview.OperatorInclude},
	}, filters)

	_, err = ParseFilters([]string{"status"})
	assert.Error(t, err)
	_, err = ParseFilters([]string{"=x"})
	assert.Error(t, err)
}
