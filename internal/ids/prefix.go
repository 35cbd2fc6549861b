package ids

import "strings"

// UniquePrefixLengths returns the shortest unique prefix length for
// each id. Identifiers are case-sensitive.
func UniquePrefixLengths(ids []string) map[string]int {
	uniqueIDs := make([]string, 0, len(ids))
	seen := make(map[string]bool)
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniqueIDs = append(uniqueIDs, id)
	}

	lengths := make(map[string]int, len(uniqueIDs))
	for _, id := range uniqueIDs {
		lengths[id] = uniquePrefixLength(id, uniqueIDs)
	}

	return lengths
}

// MatchPrefix resolves a prefix against a set of ids. It returns the
// matched id, whether anything matched, and whether the prefix was
// ambiguous. An exact match wins even when it prefixes other ids.
func MatchPrefix(ids []string, prefix string) (match string, found, ambiguous bool) {
	if prefix == "" {
		return "", false, false
	}
	for _, id := range ids {
		if id == prefix {
			return id, true, false
		}
		if strings.HasPrefix(id, prefix) {
			if found {
				return "", true, true
			}
			match = id
			found = true
		}
	}
	return match, found, false
}

func uniquePrefixLength(id string, ids []string) int {
	for length := 1; length <= len(id); length++ {
		prefix := id[:length]
		unique := true
		for _, other := range ids {
			if other == id {
				continue
			}
			if strings.HasPrefix(other, prefix) {
				unique = false
				break
			}
		}
		if unique {
			return length
		}
	}

	return len(id)
}
