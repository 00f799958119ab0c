package merge

import (
	"strconv"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/hkloudou/docpatch/internal/document"
	"github.com/tidwall/gjson"
)

// arrayMerger combines the elements of an existing array with incoming ones.
type arrayMerger func(existing, incoming []gjson.Result) [][]byte

// Stateless, safe to share.
var arrayMergers = map[ArrayPolicy]arrayMerger{
	ArrayUnion:   unionArrays,
	ArrayConcat:  concatArrays,
	ArrayMerge:   concatArrays,
	ArrayReplace: replaceArray,
}

// mergeArray returns the new raw value for a property whose patch value is
// the array incoming. A missing or non-array existing value is replaced.
func mergeArray(existing []byte, exists bool, incoming gjson.Result, policy ArrayPolicy) []byte {
	if !exists {
		return []byte(incoming.Raw)
	}
	current := gjson.ParseBytes(existing)
	if !current.IsArray() {
		return []byte(incoming.Raw)
	}
	merger, ok := arrayMergers[policy]
	if !ok {
		merger = unionArrays
	}
	return document.JoinArray(merger(current.Array(), incoming.Array()))
}

func concatArrays(existing, incoming []gjson.Result) [][]byte {
	out := make([][]byte, 0, len(existing)+len(incoming))
	for _, e := range existing {
		out = append(out, []byte(e.Raw))
	}
	for _, e := range incoming {
		out = append(out, []byte(e.Raw))
	}
	return out
}

func replaceArray(_, incoming []gjson.Result) [][]byte {
	out := make([][]byte, 0, len(incoming))
	for _, e := range incoming {
		out = append(out, []byte(e.Raw))
	}
	return out
}

// unionArrays keeps the first occurrence of every distinct value, existing
// elements first. Numbers compare by value (1 == 1.0), strings exactly,
// objects and arrays structurally.
func unionArrays(existing, incoming []gjson.Result) [][]byte {
	out := make([][]byte, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	var composites [][]byte

	add := func(e gjson.Result) {
		raw := []byte(e.Raw)
		if key, ok := scalarKey(e); ok {
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			out = append(out, raw)
			return
		}
		for _, c := range composites {
			if jsonpatch.Equal(c, raw) {
				return
			}
		}
		composites = append(composites, raw)
		out = append(out, raw)
	}

	for _, e := range existing {
		add(e)
	}
	for _, e := range incoming {
		add(e)
	}
	return out
}

// scalarKey returns a comparison key for scalar elements.
func scalarKey(e gjson.Result) (string, bool) {
	switch e.Type {
	case gjson.Number:
		return "n:" + strconv.FormatFloat(e.Num, 'g', -1, 64), true
	case gjson.String:
		return "s:" + e.Str, true
	case gjson.True:
		return "t", true
	case gjson.False:
		return "f", true
	case gjson.Null:
		return "z", true
	default:
		return "", false
	}
}
