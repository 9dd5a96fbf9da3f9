// Package masking redacts sensitive values before audit metadata is
// persisted.
package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a secret while keeping a short suffix so operators can
// still correlate entries.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

var sensitiveKeys = []string{
	"password",
	"senha",
	"token",
	"secret",
	"authorization",
	"cookie",
	"hash",
}

func isSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, marker := range sensitiveKeys {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// MaskSensitive returns a copy of the metadata with values under sensitive
// keys redacted. Non-sensitive values pass through untouched so audit
// entries keep their investigative value.
func MaskSensitive(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if isSensitiveKey(key) {
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		return MaskSensitive(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(key, item))
		}
		return out
	default:
		if isSensitiveKey(key) {
			return maskToken
		}
		return value
	}
}
