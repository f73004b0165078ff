package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Empty(t *testing.T) {
	assert.Equal(t, "(0 rows)", Table([]string{"id"}, nil))
}

func TestTable_RendersColumnsInOrder(t *testing.T) {
	out := Table([]string{"id", "name", "note"}, []map[string]any{
		{"id": int64(1), "name": []byte("alice"), "note": nil},
		{"id": int64(2), "name": "bob"},
	})

	lines := strings.Split(out, "\n")
	header := lines[1]
	assert.Less(t, strings.Index(header, "id"), strings.Index(header, "name"))
	assert.Less(t, strings.Index(header, "name"), strings.Index(header, "note"))
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "NULL")
}

func TestValue(t *testing.T) {
	assert.Equal(t, "NULL", Value(nil))
	assert.Equal(t, "abc", Value([]byte("abc")))
	assert.Equal(t, "42", Value(42))
}
