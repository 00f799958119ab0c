package merge

import (
	"github.com/hkloudou/docpatch/internal/document"
	"github.com/tidwall/gjson"
)

// Locate finds the object that a patch applies to.
//
// With an empty filterName the root is returned. Otherwise the document is
// walked depth first, pre-order: an object matches when it has a property
// filterName whose string form equals filterValue; if it does not match,
// its properties are visited in declaration order, descending into object
// values and into object elements of arrays. The first match wins.
func Locate(doc []byte, filterName, filterValue string) (document.Path, bool) {
	root := gjson.ParseBytes(doc)
	if filterName == "" {
		if !root.IsObject() {
			return nil, false
		}
		return document.Path{}, true
	}
	return locate(root, document.Path{}, filterName, filterValue)
}

func locate(node gjson.Result, at document.Path, name, value string) (document.Path, bool) {
	if !node.IsObject() {
		return nil, false
	}
	if matches(node, name, value) {
		return at, true
	}

	var (
		found document.Path
		ok    bool
	)
	node.ForEach(func(key, child gjson.Result) bool {
		switch {
		case child.IsObject():
			found, ok = locate(child, at.Key(key.String()), name, value)
		case child.IsArray():
			idx := 0
			child.ForEach(func(_, elem gjson.Result) bool {
				if elem.IsObject() {
					found, ok = locate(elem, at.Key(key.String()).Index(idx), name, value)
				}
				idx++
				return !ok
			})
		}
		return !ok
	})
	return found, ok
}

func matches(obj gjson.Result, name, value string) bool {
	var (
		prop   gjson.Result
		exists bool
	)
	// exact key match; gjson path syntax is not applied to the filter name
	obj.ForEach(func(key, v gjson.Result) bool {
		if key.String() == name {
			prop, exists = v, true
		}
		return true
	})
	if !exists {
		return false
	}
	s, ok := document.ScalarString(prop)
	return ok && s == value
}
