package safelist

import "strings"

// Unhash returns a copy of entries with hash_key removed from every entry.
// Length, order and all other fields are preserved; the input is untouched.
func Unhash(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		c := e.Clone()
		c.HashKey = nil
		out[i] = c
	}
	return out
}

// Keys returns the identities of entries in order.
func Keys(entries []Entry) []Key {
	keys := make([]Key, len(entries))
	for i, e := range entries {
		keys[i] = e.Key()
	}
	return keys
}

// FilterByComment keeps the entries whose comment contains substr, ignoring
// case. An empty substr keeps everything.
func FilterByComment(entries []Entry, substr string) []Entry {
	if substr == "" {
		return entries
	}
	needle := strings.ToLower(substr)
	var out []Entry
	for _, e := range entries {
		if e.Comment != "" && strings.Contains(strings.ToLower(e.Comment), needle) {
			out = append(out, e)
		}
	}
	return out
}
