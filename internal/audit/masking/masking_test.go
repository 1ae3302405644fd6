package masking

import "testing"

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"short":              "****",
		"hunter2-long-value": "****alue",
		"sk_abcdefghijkl":    "sk_****ijkl",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitiveKeepsPlainFields(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"title":    "VPN",
		"password": "correct-horse-battery",
		"nested":   map[string]any{"apiToken": "abcdefghijklmnop", "count": 3},
	})
	if out["title"] != "VPN" {
		t.Fatalf("expected title untouched, got %v", out["title"])
	}
	if out["password"] != "****tery" {
		t.Fatalf("expected masked password, got %v", out["password"])
	}
	nested := out["nested"].(map[string]any)
	if nested["apiToken"] != "****mnop" {
		t.Fatalf("expected masked nested token, got %v", nested["apiToken"])
	}
	if nested["count"] != 3 {
		t.Fatalf("expected count untouched, got %v", nested["count"])
	}
}
