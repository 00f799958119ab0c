package merge

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Diff returns the RFC 7396 merge patch that turns before into after.
// https://datatracker.ietf.org/doc/html/rfc7396
func Diff(before, after []byte) ([]byte, error) {
	if len(before) == 0 {
		before = []byte(`{}`)
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("RFC7396 diff failed: %w", err)
	}
	return patch, nil
}
