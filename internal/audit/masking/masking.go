package masking

import "strings"

const maskToken = "****"

// Secret redacts a credential while keeping the vendor prefix and a
// short suffix, enough for an operator to tell keys apart in the
// activity log. Prefixes end at the last underscore (xnd_development_*)
// or colon (Telegram bot tokens).
func Secret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// Map returns a copy of the input with every string value redacted.
// Nested maps and lists are walked; non-string values pass through.
func Map(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		if strings.TrimSpace(key) == "" {
			continue
		}
		masked[key] = maskValue(value)
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return Secret(cast)
	case map[string]any:
		return Map(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item))
		}
		return out
	default:
		return value
	}
}

func splitPrefix(value string) (string, string) {
	cut := strings.LastIndexAny(value, "_:")
	if cut == -1 || cut == len(value)-1 {
		return "", value
	}
	return value[:cut+1], value[cut+1:]
}
