package merge

import (
	"github.com/hkloudou/docpatch/internal/document"
	"github.com/tidwall/gjson"
)

// mergeObject returns the new raw value for a property whose patch value is
// the object incoming. A missing or non-object existing value is replaced.
// UPDATE overlays one level deep: nested objects in incoming overwrite their
// counterparts wholesale.
func mergeObject(existing []byte, exists bool, incoming gjson.Result, policy ObjectPolicy) []byte {
	if !exists || policy == ObjectReplace {
		return []byte(incoming.Raw)
	}
	obj, err := document.ParseObject(existing)
	if err != nil {
		return []byte(incoming.Raw)
	}
	incoming.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Null {
			obj.Set(key.String(), []byte(value.Raw))
		}
		return true
	})
	return obj.Bytes()
}
