package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		before   string
		after    string
		expected map[string]interface{}
	}{
		{
			name:     "no change",
			before:   `{"a":1}`,
			after:    `{"a":1}`,
			expected: map[string]interface{}{},
		},
		{
			name:     "changed and removed",
			before:   `{"a":1,"b":2}`,
			after:    `{"a":3}`,
			expected: map[string]interface{}{"a": float64(3), "b": nil},
		},
		{
			name:     "nested",
			before:   `{"x":{"y":1,"z":2}}`,
			after:    `{"x":{"y":1,"z":5}}`,
			expected: map[string]interface{}{"x": map[string]interface{}{"z": float64(5)}},
		},
		{
			name:     "from nothing",
			before:   ``,
			after:    `{"a":1}`,
			expected: map[string]interface{}{"a": float64(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Diff([]byte(tt.before), []byte(tt.after))
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			if diff := cmp.Diff(tt.expected, decode(t, got)); diff != "" {
				t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
