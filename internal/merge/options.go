package merge

import (
	"fmt"
	"strings"

	"github.com/hkloudou/docpatch/internal/errors"
)

// ArrayPolicy controls how an incoming array is combined with an existing one.
type ArrayPolicy int

const (
	// ArrayUnion keeps each distinct value once.
	ArrayUnion ArrayPolicy = iota
	// ArrayConcat appends incoming elements after existing ones.
	ArrayConcat
	// ArrayMerge is an alias of ArrayConcat.
	ArrayMerge
	// ArrayReplace discards the existing array.
	ArrayReplace
)

var arrayPolicyNames = map[ArrayPolicy]string{
	ArrayUnion:   "UNION",
	ArrayConcat:  "CONCAT",
	ArrayMerge:   "MERGE",
	ArrayReplace: "REPLACE",
}

func (p ArrayPolicy) String() string {
	if s, ok := arrayPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("ArrayPolicy(%d)", int(p))
}

func (p ArrayPolicy) MarshalText() ([]byte, error) {
	if _, ok := arrayPolicyNames[p]; !ok {
		return nil, fmt.Errorf("invalid array policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *ArrayPolicy) UnmarshalText(text []byte) error {
	v, err := ParseArrayPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParseArrayPolicy parses a policy name, case-insensitively.
func ParseArrayPolicy(s string) (ArrayPolicy, error) {
	for p, name := range arrayPolicyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, errors.ValidationError("invalid array policy %q (want UNION, CONCAT, MERGE or REPLACE)", s)
}

// ObjectPolicy controls how an incoming object is combined with an existing one.
type ObjectPolicy int

const (
	// ObjectUpdate overlays incoming properties one level deep.
	ObjectUpdate ObjectPolicy = iota
	// ObjectReplace swaps the existing object out.
	ObjectReplace
)

var objectPolicyNames = map[ObjectPolicy]string{
	ObjectUpdate:  "UPDATE",
	ObjectReplace: "REPLACE",
}

func (p ObjectPolicy) String() string {
	if s, ok := objectPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("ObjectPolicy(%d)", int(p))
}

func (p ObjectPolicy) MarshalText() ([]byte, error) {
	if _, ok := objectPolicyNames[p]; !ok {
		return nil, fmt.Errorf("invalid object policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *ObjectPolicy) UnmarshalText(text []byte) error {
	v, err := ParseObjectPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func ParseObjectPolicy(s string) (ObjectPolicy, error) {
	for p, name := range objectPolicyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, errors.ValidationError("invalid object policy %q (want UPDATE or REPLACE)", s)
}

// NullPolicy is accepted for compatibility. Null patch fields are skipped
// under both values.
type NullPolicy int

const (
	NullIgnore NullPolicy = iota
	NullMerge
)

var nullPolicyNames = map[NullPolicy]string{
	NullIgnore: "IGNORE",
	NullMerge:  "MERGE",
}

func (p NullPolicy) String() string {
	if s, ok := nullPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("NullPolicy(%d)", int(p))
}

func (p NullPolicy) MarshalText() ([]byte, error) {
	if _, ok := nullPolicyNames[p]; !ok {
		return nil, fmt.Errorf("invalid null policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *NullPolicy) UnmarshalText(text []byte) error {
	v, err := ParseNullPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func ParseNullPolicy(s string) (NullPolicy, error) {
	for p, name := range nullPolicyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, errors.ValidationError("invalid null policy %q (want IGNORE or MERGE)", s)
}

// Options configures one update call.
type Options struct {
	ArrayPolicy  ArrayPolicy  `json:"arrayPolicy"`
	ObjectPolicy ObjectPolicy `json:"objectPolicy"`
	NullPolicy   NullPolicy   `json:"nullPolicy"`
	// FilterName and FilterValue select the nested object to update.
	// An empty FilterName targets the document root.
	FilterName  string `json:"filterPropertyName,omitempty"`
	FilterValue string `json:"filterPropertyValue,omitempty"`
}

// DefaultOptions returns {UNION, UPDATE, IGNORE} with no filter.
func DefaultOptions() Options {
	return Options{
		ArrayPolicy:  ArrayUnion,
		ObjectPolicy: ObjectUpdate,
		NullPolicy:   NullIgnore,
	}
}

// Validate checks the policies and the filter pairing.
func (o Options) Validate() error {
	if _, ok := arrayPolicyNames[o.ArrayPolicy]; !ok {
		return errors.ValidationError("invalid array policy %d", int(o.ArrayPolicy))
	}
	if _, ok := objectPolicyNames[o.ObjectPolicy]; !ok {
		return errors.ValidationError("invalid object policy %d", int(o.ObjectPolicy))
	}
	if _, ok := nullPolicyNames[o.NullPolicy]; !ok {
		return errors.ValidationError("invalid null policy %d", int(o.NullPolicy))
	}
	if o.FilterValue != "" && o.FilterName == "" {
		return errors.ValidationError("filter property value %q is set but filter property name is empty", o.FilterValue)
	}
	return nil
}

// HasFilter reports whether the options select a nested object.
func (o Options) HasFilter() bool {
	return o.FilterName != ""
}
