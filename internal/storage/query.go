package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled query evaluated against documents held by backends
// without a native query language.
//
// A query is an expr boolean expression. The document's properties are
// variables and the document itself is bound to c:
//
//	c.id == "123"
//	employer == "Some Company" && len(managers) > 2
//
// The Cosmos DB subset SELECT * FROM <alias> [WHERE <condition>] is also
// accepted; the condition is rewritten into expr syntax and the document is
// bound to the alias.
type Filter struct {
	source  string
	alias   string
	program *vm.Program
}

var selectPattern = regexp.MustCompile(`(?is)^select\s+\*\s+from\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+where\s+(.+?))?\s*;?$`)

// CompileQuery parses query text.
func CompileQuery(query string) (*Filter, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	f := &Filter{source: q, alias: "c"}
	if m := selectPattern.FindStringSubmatch(q); m != nil {
		f.alias = m[1]
		q = "true"
		if m[2] != "" {
			q = translateSQL(m[2])
		}
	}
	program, err := expr.Compile(q, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile query %q: %w", f.source, err)
	}
	f.program = program
	return f, nil
}

func (f *Filter) String() string {
	return f.source
}

// Match reports whether doc satisfies the filter. Evaluation errors, such
// as member access on a missing property, count as no match.
func (f *Filter) Match(doc []byte) bool {
	var fields map[string]interface{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false
	}
	env := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		env[k] = v
	}
	env[f.alias] = fields

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// translateSQL rewrites a Cosmos DB WHERE clause into expr syntax:
// '=' becomes '==', '<>' becomes '!=', AND/OR/NOT are lower-cased and NULL
// becomes nil. Quoted strings are copied untouched.
func translateSQL(where string) string {
	var (
		b     strings.Builder
		quote byte
	)
	for i := 0; i < len(where); i++ {
		ch := where[i]
		if quote != 0 {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(where) {
				i++
				b.WriteByte(where[i])
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"':
			quote = ch
			b.WriteByte(ch)
		case ch == '<' && i+1 < len(where) && where[i+1] == '>':
			b.WriteString("!=")
			i++
		case ch == '=':
			var prev, next byte
			if i > 0 {
				prev = where[i-1]
			}
			if i+1 < len(where) {
				next = where[i+1]
			}
			if strings.IndexByte("=!<>", prev) < 0 && next != '=' {
				b.WriteString("==")
			} else {
				b.WriteByte(ch)
			}
		case isWordStart(ch):
			j := i
			for j < len(where) && isWordChar(where[j]) {
				j++
			}
			word := where[i:j]
			if i > 0 && where[i-1] == '.' {
				// member name
				b.WriteString(word)
			} else {
				switch strings.ToUpper(word) {
				case "AND", "OR", "NOT", "TRUE", "FALSE":
					b.WriteString(strings.ToLower(word))
				case "NULL":
					b.WriteString("nil")
				default:
					b.WriteString(word)
				}
			}
			i = j - 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
