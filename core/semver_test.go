package core

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"v1.2.3", Version{1, 2, 3}, true},
		{"1.2.3", Version{1, 2, 3}, true},
		{"v10.0.0", Version{10, 0, 0}, true},
		{"v1.2.3-rc1", Version{1, 2, 3}, true},
		{" v0.2.0 ", Version{0, 2, 0}, true},
		{"v1.2", Version{}, false},
		{"v1.2.3.4", Version{}, false},
		{"dev", Version{}, false},
		{"v1.x.3", Version{}, false},
		{"", Version{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseVersion(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseVersion(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestVersionNewer(t *testing.T) {
	newer := func(a, b string) bool {
		va, _ := ParseVersion(a)
		vb, _ := ParseVersion(b)
		return va.Newer(vb)
	}

	if !newer("v1.2.4", "v1.2.3") {
		t.Fatalf("patch bump should be newer")
	}
	if !newer("v2.0.0", "v1.9.9") {
		t.Fatalf("major bump should be newer")
	}
	if newer("v1.2.3", "v1.2.3") {
		t.Fatalf("equal versions are not newer")
	}
	if newer("v1.2.3", "v1.2.4") {
		t.Fatalf("older version is not newer")
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
		{"dev", "dev"},
		{"", ""},
		{"  1.0.0 ", "v1.0.0"},
	}
	for _, tt := range tests {
		if got := NormalizeTag(tt.in); got != tt.want {
			t.Fatalf("NormalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
