package docpatch

import "github.com/hkloudou/docpatch/internal/merge"

// MergeOptions selects the merge policies and the target object of an
// update. A nil *MergeOptions means DefaultMergeOptions().
type MergeOptions = merge.Options

type (
	ArrayPolicy  = merge.ArrayPolicy
	ObjectPolicy = merge.ObjectPolicy
	NullPolicy   = merge.NullPolicy
)

const (
	// ArrayUnion keeps one copy of every distinct element.
	ArrayUnion = merge.ArrayUnion
	// ArrayConcat appends incoming elements, keeping duplicates.
	ArrayConcat = merge.ArrayConcat
	// ArrayMerge behaves exactly like ArrayConcat.
	ArrayMerge = merge.ArrayMerge
	// ArrayReplace discards the existing array.
	ArrayReplace = merge.ArrayReplace

	ObjectUpdate  = merge.ObjectUpdate
	ObjectReplace = merge.ObjectReplace

	NullIgnore = merge.NullIgnore
	// NullMerge is accepted but null patch fields are still skipped.
	NullMerge = merge.NullMerge
)

// DefaultMergeOptions returns {UNION, UPDATE, IGNORE} targeting the root.
func DefaultMergeOptions() MergeOptions {
	return merge.DefaultOptions()
}

func ParseArrayPolicy(s string) (ArrayPolicy, error)   { return merge.ParseArrayPolicy(s) }
func ParseObjectPolicy(s string) (ObjectPolicy, error) { return merge.ParseObjectPolicy(s) }
func ParseNullPolicy(s string) (NullPolicy, error)     { return merge.ParseNullPolicy(s) }
