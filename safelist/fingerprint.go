package safelist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint computes a SHA-256 digest over the whole entry, hash_key and
// object id included. Two entries have the same fingerprint exactly when they
// encode to the same JSON, which is the equality safelist merging relies on.
func Fingerprint(e Entry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Dedupe returns entries with exact duplicates removed, keeping the first
// occurrence of each.
func Dedupe(entries []Entry) ([]Entry, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		fp, err := Fingerprint(e)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

// Missing returns the entries of want that have no exact copy in have.
func Missing(want, have []Entry) ([]Entry, error) {
	present := make(map[string]struct{}, len(have))
	for _, e := range have {
		fp, err := Fingerprint(e)
		if err != nil {
			return nil, err
		}
		present[fp] = struct{}{}
	}

	var out []Entry
	for _, e := range want {
		fp, err := Fingerprint(e)
		if err != nil {
			return nil, err
		}
		if _, ok := present[fp]; ok {
			continue
		}
		present[fp] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
