// Package document holds the JSON document model shared by stored documents
// and patches. Documents stay as raw JSON bytes; reads go through gjson and
// writes rebuild objects with Object, which keeps property order.
package document

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// IDField is the property every stored document is addressed by.
const IDField = "id"

// ValidateObject checks that data is a JSON object.
func ValidateObject(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("document is empty")
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("document is not valid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return fmt.Errorf("document must be a JSON object")
	}
	return nil
}

// ID returns the document's id property as a string.
func ID(doc []byte) (string, error) {
	res := gjson.GetBytes(doc, IDField)
	if !res.Exists() || res.Type == gjson.Null {
		return "", fmt.Errorf("document has no %q property", IDField)
	}
	id := res.String()
	if id == "" {
		return "", fmt.Errorf("document %q property is empty", IDField)
	}
	return id, nil
}

// PartitionKey reads the partition key at the given gjson path. An empty path
// means the document is partitioned by its id.
func PartitionKey(doc []byte, path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" || path == IDField {
		return ID(doc)
	}
	res := gjson.GetBytes(doc, path)
	if !res.Exists() || res.Type == gjson.Null {
		return "", fmt.Errorf("document has no partition key at %q", path)
	}
	return res.String(), nil
}

// ScalarString returns the string form used when comparing a value against a
// filter. Only strings, numbers and booleans have one.
//
//	"abc" -> abc, 12 -> 12, 1.50 -> 1.5, true -> true
func ScalarString(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return v.String(), true
	default:
		return "", false
	}
}

// Elements returns the raw elements of a JSON array in order.
func Elements(raw []byte) []gjson.Result {
	return gjson.ParseBytes(raw).Array()
}

// JoinArray builds a JSON array from raw element values.
func JoinArray(elems [][]byte) []byte {
	size := 2
	for _, e := range elems {
		size += len(e) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, '[')
	for i, e := range elems {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, e...)
	}
	return append(buf, ']')
}
