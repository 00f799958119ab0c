package document

import (
	"encoding/json"
	"testing"
)

func TestPath_String(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		expected string
	}{
		{
			name:     "root path",
			path:     nil,
			expected: "",
		},
		{
			name:     "single key",
			path:     Path{}.Key("user"),
			expected: "user",
		},
		{
			name:     "key and index",
			path:     Path{}.Key("previousJobs").Index(2),
			expected: "previousJobs.2",
		},
		{
			name:     "key with dot",
			path:     Path{}.Key("user.info"),
			expected: `user\.info`,
		},
		{
			name:     "special characters",
			path:     Path{}.Key("a*b?c"),
			expected: `a\*b\?c`,
		},
		{
			name:     "colon is escaped",
			path:     Path{}.Key("a:b"),
			expected: `a\:b`,
		},
		{
			name:     "underscore dollar and dash",
			path:     Path{}.Key("_private").Key("$config").Key("a-b"),
			expected: "_private.$config.a-b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.path.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPath_Pointer(t *testing.T) {
	tests := []struct {
		path     Path
		expected string
	}{
		{path: nil, expected: "/"},
		{path: Path{}.Key("previousJobs").Index(0), expected: "/previousJobs/0"},
		{path: Path{}.Key("a/b").Key("c~d"), expected: "/a~1b/c~0d"},
	}
	for _, tt := range tests {
		if got := tt.path.Pointer(); got != tt.expected {
			t.Errorf("Pointer() = %q, want %q", got, tt.expected)
		}
	}
}

func TestPath_ExtendDoesNotAlias(t *testing.T) {
	base := make(Path, 0, 4).Key("a")
	left := base.Key("left")
	right := base.Key("right")
	if left[1].Key != "left" || right[1].Key != "right" {
		t.Errorf("extended paths share storage: left=%v right=%v", left, right)
	}
}

func TestGet(t *testing.T) {
	doc := []byte(`{"a":{"b.c":[10,{"d":"x"}]},"0":"zero"}`)
	tests := []struct {
		name   string
		path   Path
		want   string
		wantOK bool
	}{
		{name: "root", path: nil, want: string(doc), wantOK: true},
		{name: "dotted key", path: Path{}.Key("a").Key("b.c").Index(0), want: "10", wantOK: true},
		{name: "nested object", path: Path{}.Key("a").Key("b.c").Index(1).Key("d"), want: `"x"`, wantOK: true},
		{name: "numeric key", path: Path{}.Key("0"), want: `"zero"`, wantOK: true},
		{name: "missing key", path: Path{}.Key("nope")},
		{name: "index out of range", path: Path{}.Key("a").Key("b.c").Index(5)},
		{name: "index on object", path: Path{}.Index(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Get(doc, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Get() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Raw != tt.want {
				t.Errorf("Get() = %s, want %s", got.Raw, tt.want)
			}
		})
	}
}

func TestSetAt(t *testing.T) {
	doc := []byte(`{"name":"n","jobs":[{"id":"1","x":1},{"id":"2","x":2}],"tail":true}`)

	tests := []struct {
		name    string
		path    Path
		value   string
		want    string
		wantErr bool
	}{
		{
			name:  "root",
			path:  nil,
			value: `{"k":1}`,
			want:  `{"k":1}`,
		},
		{
			name:  "top level key",
			path:  Path{}.Key("name"),
			value: `"m"`,
			want:  `{"name":"m","jobs":[{"id":"1","x":1},{"id":"2","x":2}],"tail":true}`,
		},
		{
			name:  "array element",
			path:  Path{}.Key("jobs").Index(1),
			value: `{"id":"2","x":20}`,
			want:  `{"name":"n","jobs":[{"id":"1","x":1},{"id":"2","x":20}],"tail":true}`,
		},
		{
			name:  "inside array element",
			path:  Path{}.Key("jobs").Index(0).Key("x"),
			value: `[1,2]`,
			want:  `{"name":"n","jobs":[{"id":"1","x":[1,2]},{"id":"2","x":2}],"tail":true}`,
		},
		{
			name:    "missing key",
			path:    Path{}.Key("nope").Key("x"),
			value:   `1`,
			wantErr: true,
		},
		{
			name:    "index out of range",
			path:    Path{}.Key("jobs").Index(9),
			value:   `1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SetAt(doc, tt.path, []byte(tt.value))
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetAt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("SetAt() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPath_MarshalJSON(t *testing.T) {
	v := struct {
		Root   Path `json:"root"`
		Nested Path `json:"nested"`
	}{
		Nested: Path{}.Key("previousJobs").Index(2),
	}
	got, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if want := `{"root":"/","nested":"/previousJobs/2"}`; string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
