package document

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Object is a JSON object whose properties keep their declaration order.
// Values are held as raw JSON.
type Object struct {
	keys []string
	vals map[string][]byte
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string][]byte)}
}

// ParseObject reads raw JSON into an Object. A repeated key keeps its first
// position and its last value.
func ParseObject(raw []byte) (*Object, error) {
	if err := ValidateObject(raw); err != nil {
		return nil, err
	}
	obj := NewObject()
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		obj.Set(key.String(), []byte(value.Raw))
		return true
	})
	return obj, nil
}

func (o *Object) Get(key string) ([]byte, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Set stores value under key, appending the key if it is new.
func (o *Object) Set(key string, value []byte) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = value
}

func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Clear removes every property.
func (o *Object) Clear() {
	o.keys = nil
	o.vals = make(map[string][]byte)
}

// Keys returns the property names in order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int {
	return len(o.keys)
}

// Bytes serializes the object as compact JSON.
func (o *Object) Bytes() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, quoteKey(k)...)
		buf = append(buf, ':')
		buf = append(buf, o.vals[k]...)
	}
	buf = append(buf, '}')
	return pretty.Ugly(buf)
}

func quoteKey(k string) []byte {
	// marshaling a string cannot fail
	b, _ := json.Marshal(k)
	return b
}
