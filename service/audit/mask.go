package audit

import "strings"

const masked = "***"

var sensitiveKeys = []string{"password", "pass", "token", "authorization", "secret", "api_key"}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// MaskSensitive returns a copy of data with credential-like values replaced, recursing into nested maps and slices.
func MaskSensitive(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if isSensitive(k) {
			out[k] = masked
			continue
		}
		out[k] = maskValue(v)
	}
	return out
}

func maskValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return MaskSensitive(val)
	case []interface{}:
		items := make([]interface{}, len(val))
		for i, item := range val {
			items[i] = maskValue(item)
		}
		return items
	default:
		return v
	}
}
