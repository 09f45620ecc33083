package storage

import "testing"

func TestModelContentType(t *testing.T) {
	cases := []struct {
		name   string
		wantCT string
		wantOK bool
	}{
		{"booth.glb", "model/gltf-binary", true},
		{"Booth.GLTF", "model/gltf+json", true},
		{"booth.obj", "", false},
		{"booth", "", false},
	}
	for _, tc := range cases {
		ct, ok := ModelContentType(tc.name)
		if ct != tc.wantCT || ok != tc.wantOK {
			t.Errorf("ModelContentType(%q) = %q, %v", tc.name, ct, ok)
		}
	}
}

func TestModelKey(t *testing.T) {
	got := ModelKey("e1", "b1", "n1", "../../etc/Booth.GLB")
	if got != "booths/e1/b1/n1.glb" {
		t.Fatalf("ModelKey = %q", got)
	}
}

func TestUnderPrefix(t *testing.T) {
	prefix := ModelPrefix("e1", "b1")
	if prefix != "booths/e1/b1/" {
		t.Fatalf("ModelPrefix = %q", prefix)
	}
	cases := map[string]bool{
		"booths/e1/b1/n1.glb":       true,
		"booths/e1/b2/n1.glb":       false,
		"booths/e1/b1/":             false,
		"booths/e1/b1/../b2/n1.glb": false,
		"booths/e1/b1//n1.glb":      false,
		"":                          false,
		"other/booths/e1/b1/n1.glb": false,
	}
	for key, want := range cases {
		if got := UnderPrefix(prefix, key); got != want {
			t.Errorf("UnderPrefix(%q) = %v, want %v", key, got, want)
		}
	}
	if !UnderPrefix(ExpoModelPrefix("e1"), "booths/e1/b2/n1.glb") {
		t.Error("expo prefix should cover every booth of the expo")
	}
}
