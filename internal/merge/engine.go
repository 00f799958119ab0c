// Package merge applies patch documents to stored documents.
//
// A patch is a JSON object; each non-null property is merged into the target
// object according to Options:
//   - scalars overwrite the existing value
//   - arrays follow ArrayPolicy
//   - objects follow ObjectPolicy
//
// Locate picks the target object inside a document and ApplyAt writes the
// merged object back in place.
package merge

import (
	"fmt"

	"github.com/hkloudou/docpatch/internal/document"
	"github.com/hkloudou/docpatch/internal/errors"
	"github.com/tidwall/gjson"
)

// Apply merges patch into the target object and returns the new target.
func Apply(target, patch []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := document.ValidateObject(patch); err != nil {
		return nil, errors.ValidationError("invalid patch: %v", err)
	}
	obj, err := document.ParseObject(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target: %w", err)
	}

	if opts.ObjectPolicy == ObjectReplace {
		obj.Clear()
	}

	gjson.ParseBytes(patch).ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		existing, exists := obj.Get(name)
		switch {
		case value.Type == gjson.Null:
			// null patch fields never alter the target
		case value.IsArray():
			obj.Set(name, mergeArray(existing, exists, value, opts.ArrayPolicy))
		case value.IsObject():
			obj.Set(name, mergeObject(existing, exists, value, opts.ObjectPolicy))
		default:
			obj.Set(name, []byte(value.Raw))
		}
		return true
	})

	return obj.Bytes(), nil
}

// ApplyAt merges patch into the object at path and returns the whole
// rewritten document.
func ApplyAt(doc []byte, path document.Path, patch []byte, opts Options) ([]byte, error) {
	target, ok := document.Get(doc, path)
	if !ok || !target.IsObject() {
		return nil, fmt.Errorf("failed to merge: no object at %s", path.Pointer())
	}
	merged, err := Apply([]byte(target.Raw), patch, opts)
	if err != nil {
		return nil, err
	}
	out, err := document.SetAt(doc, path, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to write merged object: %w", err)
	}
	return out, nil
}
