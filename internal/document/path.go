package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a value inside a document. The empty path is the root.
type Path []Segment

// Key returns a copy of p extended by an object key.
func (p Path) Key(k string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Key: k})
}

// Index returns a copy of p extended by an array index.
func (p Path) Index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Index: i, IsIndex: true})
}

func (p Path) IsRoot() bool {
	return len(p) == 0
}

// String renders p as a gjson path.
// Examples:
//   - root -> ""
//   - previousJobs[0] -> "previousJobs.0"
//   - key "user.info" -> "user\.info"
func (p Path) String() string {
	segments := make([]string, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			segments[i] = strconv.Itoa(seg.Index)
		} else {
			segments[i] = escapeGjsonKey(seg.Key)
		}
	}
	return strings.Join(segments, ".")
}

// Pointer renders p as a JSON Pointer (RFC 6901).
func (p Path) Pointer() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		if seg.IsIndex {
			b.WriteString(strconv.Itoa(seg.Index))
			continue
		}
		k := strings.ReplaceAll(seg.Key, "~", "~0")
		b.WriteString(strings.ReplaceAll(k, "/", "~1"))
	}
	return b.String()
}

// MarshalText encodes p as its JSON Pointer.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.Pointer()), nil
}

// Get returns the value at path p. Keys are matched exactly, so names that
// gjson would treat as syntax are safe.
func Get(root []byte, p Path) (gjson.Result, bool) {
	cur := gjson.ParseBytes(root)
	for _, seg := range p {
		if seg.IsIndex {
			if !cur.IsArray() {
				return gjson.Result{}, false
			}
			elems := cur.Array()
			if seg.Index < 0 || seg.Index >= len(elems) {
				return gjson.Result{}, false
			}
			cur = elems[seg.Index]
			continue
		}
		if !cur.IsObject() {
			return gjson.Result{}, false
		}
		var next gjson.Result
		found := false
		cur.ForEach(func(key, value gjson.Result) bool {
			if key.String() == seg.Key {
				next, found = value, true
			}
			return true
		})
		if !found {
			return gjson.Result{}, false
		}
		cur = next
	}
	return cur, cur.Exists()
}

// SetAt replaces the value at path p and returns the rewritten document.
// Every step of the path must already exist.
func SetAt(root []byte, p Path, value []byte) ([]byte, error) {
	if len(p) == 0 {
		return value, nil
	}
	seg := p[0]
	if seg.IsIndex {
		node := gjson.ParseBytes(root)
		if !node.IsArray() {
			return nil, fmt.Errorf("failed to set %s: index %d applied to a non-array", p.Pointer(), seg.Index)
		}
		elems := node.Array()
		if seg.Index < 0 || seg.Index >= len(elems) {
			return nil, fmt.Errorf("failed to set %s: index %d out of range", p.Pointer(), seg.Index)
		}
		child, err := SetAt([]byte(elems[seg.Index].Raw), p[1:], value)
		if err != nil {
			return nil, err
		}
		parts := make([][]byte, len(elems))
		for i, e := range elems {
			parts[i] = []byte(e.Raw)
		}
		parts[seg.Index] = child
		return JoinArray(parts), nil
	}

	obj, err := ParseObject(root)
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", p.Pointer(), err)
	}
	current, ok := obj.Get(seg.Key)
	if !ok {
		return nil, fmt.Errorf("failed to set %s: key %q does not exist", p.Pointer(), seg.Key)
	}
	child, err := SetAt(current, p[1:], value)
	if err != nil {
		return nil, err
	}
	obj.Set(seg.Key, child)
	return obj.Bytes(), nil
}

// escapeGjsonKey escapes special characters in a gjson key
// Based on gjson's internal escapeComp and isSafePathKeyChar functions
func escapeGjsonKey(key string) string {
	for i := 0; i < len(key); i++ {
		if !isSafeGjsonChar(key[i]) {
			escaped := make([]byte, 0, len(key)+8)
			escaped = append(escaped, key[:i]...)
			for ; i < len(key); i++ {
				if !isSafeGjsonChar(key[i]) {
					escaped = append(escaped, '\\')
				}
				escaped = append(escaped, key[i])
			}
			return string(escaped)
		}
	}
	return key
}

// isSafeGjsonChar reports whether c can appear unescaped in a gjson path.
// ':' is escaped so the path stays valid for sjson, which reads a leading ':'
// as an object key hint.
func isSafeGjsonChar(c byte) bool {
	return c == '_' || c == '$' || c == '-' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
