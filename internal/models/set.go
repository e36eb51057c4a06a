package models

// Sharing sets are stored as plain string slices. Order is not significant
// but is kept stable so rows serialize deterministically.

// InSet reports whether id is a member of set.
func InSet(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// AddToSet returns set with id appended unless already present.
func AddToSet(set []string, id string) []string {
	if InSet(set, id) {
		return set
	}
	return append(CloneSet(set), id)
}

// CloneSet copies a set. A nil set clones to an empty, non-nil one so JSON
// encodes it as [] rather than null.
func CloneSet(set []string) []string {
	out := make([]string, len(set))
	copy(out, set)
	return out
}
