package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateSQL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `c.id = '123'`, want: `c.id == '123'`},
		{in: `c.n >= 3 AND c.n <= 5`, want: `c.n >= 3 and c.n <= 5`},
		{in: `c.a <> 1 OR NOT c.b`, want: `c.a != 1 or not c.b`},
		{in: `c.x == 1`, want: `c.x == 1`},
		{in: `c.x != 1`, want: `c.x != 1`},
		{in: `c.tag = 'a = b AND c'`, want: `c.tag == 'a = b AND c'`},
		{in: `c.v = NULL`, want: `c.v == nil`},
		{in: `c.on = TRUE`, want: `c.on == true`},
		{in: `c.AND = 1`, want: `c.AND == 1`},
		{in: `c.s = 'it\'s'`, want: `c.s == 'it\'s'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, translateSQL(tt.in), tt.in)
	}
}

func TestFilter_Match(t *testing.T) {
	doc := []byte(`{"id":"123","age":41,"employer":"Some Company","managers":["A","B","C"],"address":{"city":"Seattle"}}`)

	tests := []struct {
		query string
		want  bool
	}{
		{query: `c.id == "123"`, want: true},
		{query: `id == "123"`, want: true},
		{query: `c.id == "124"`, want: false},
		{query: `age > 40 && len(managers) == 3`, want: true},
		{query: `c.age == 41.0`, want: true},
		{query: `c.address.city == "Seattle"`, want: true},
		{query: `"B" in c.managers`, want: true},
		{query: `missing == nil`, want: true},
		{query: `c.missing.deeper == 1`, want: false},
		{query: `SELECT * FROM c`, want: true},
		{query: `select * from c where c.id = '123'`, want: true},
		{query: `SELECT * FROM p WHERE p.employer = 'Some Company' AND p.age > 40`, want: true},
		{query: `SELECT * FROM p WHERE p.employer <> 'Some Company'`, want: false},
		{query: `employer`, want: false},
	}
	for _, tt := range tests {
		f, err := CompileQuery(tt.query)
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.want, f.Match(doc), tt.query)
	}
}

func TestCompileQuery_Errors(t *testing.T) {
	for _, q := range []string{"", "   ", "c.id ==", "1 +"} {
		_, err := CompileQuery(q)
		assert.Error(t, err, q)
	}
}

func TestFilter_MatchInvalidDocument(t *testing.T) {
	f, err := CompileQuery("true")
	require.NoError(t, err)
	assert.False(t, f.Match([]byte(`not json`)))
	assert.Equal(t, "true", f.String())
}
