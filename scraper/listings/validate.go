package listings

import "encoding/json"

// IsComplete reports whether every required key is present in raw. Only
// presence is checked; an empty or zero value still counts.
func IsComplete(raw map[string]json.RawMessage, required []string) bool {
	for _, key := range required {
		if _, ok := raw[key]; !ok {
			return false
		}
	}
	return true
}
