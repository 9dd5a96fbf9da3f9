package masking

import "testing"

func TestMaskSensitiveRedactsOnlySensitiveKeys(t *testing.T) {
	input := map[string]any{
		"plate":      "ABC1D23",
		"password":   "SuperSecret123!",
		"resetToken": "tok_1234567890abcdef",
		"nested": map[string]any{
			"client_secret": "shhh-keep-quiet",
			"protocol":      "8b51ae9e",
		},
	}

	out := MaskSensitive(input)

	if out["plate"] != "ABC1D23" {
		t.Fatalf("plate should pass through, got %v", out["plate"])
	}
	if out["password"] != "****123!" {
		t.Fatalf("password not masked, got %v", out["password"])
	}
	if out["resetToken"] != "****cdef" {
		t.Fatalf("token not masked, got %v", out["resetToken"])
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested map missing: %v", out["nested"])
	}
	if nested["client_secret"] != "****uiet" {
		t.Fatalf("nested secret not masked, got %v", nested["client_secret"])
	}
	if nested["protocol"] != "8b51ae9e" {
		t.Fatalf("nested protocol should pass through, got %v", nested["protocol"])
	}
}

func TestMaskSecretShortValues(t *testing.T) {
	if got := MaskSecret("abc"); got != "****" {
		t.Fatalf("short secrets must be fully masked, got %q", got)
	}
	if got := MaskSecret("  "); got != "" {
		t.Fatalf("blank secrets stay empty, got %q", got)
	}
}

func TestMaskSensitiveEmptyInput(t *testing.T) {
	if out := MaskSensitive(nil); out != nil {
		t.Fatalf("nil input should return nil, got %v", out)
	}
	if out := MaskSensitive(map[string]any{}); out != nil {
		t.Fatalf("empty input should return nil, got %v", out)
	}
}
