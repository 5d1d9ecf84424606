package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values may carry patient or payer
// details and must not be stored verbatim in the audit trail.
var sensitiveKeys = map[string]struct{}{
	"note":         {},
	"patient_name": {},
	"phone":        {},
	"email":        {},
	"card_number":  {},
}

// MaskSecret redacts a value while keeping its last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// MaskMetadata returns a copy of input with sensitive keys masked, recursing
// into nested maps.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
			if s, isString := value.(string); isString {
				out[key] = MaskSecret(s)
				continue
			}
		}
		if nested, ok := value.(map[string]any); ok {
			out[key] = MaskMetadata(nested)
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
