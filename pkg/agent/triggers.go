package agent

import "strings"

// containsTrigger checks if the description contains the trigger phrase.
// It looks for the trigger as a word or phrase boundary match. Both inputs
// must be lowercased by the caller.
func containsTrigger(desc, trigger string) bool {
	if trigger == "" {
		return false
	}

	offset := 0
	for {
		idx := strings.Index(desc[offset:], trigger)
		if idx == -1 {
			return false
		}
		idx += offset

		boundaryBefore := idx == 0 || !isWordChar(desc[idx-1])
		endIdx := idx + len(trigger)
		boundaryAfter := endIdx >= len(desc) || !isWordChar(desc[endIdx])
		if boundaryBefore && boundaryAfter {
			return true
		}
		offset = idx + 1
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
