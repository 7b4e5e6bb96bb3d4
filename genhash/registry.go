package genhash

import (
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/safelist"
)

// Registered algorithm names.
const (
	AlgorithmFNV64a = "fnv64a"
	AlgorithmXXH64  = "xxh64"
)

var algorithms = map[string]HashFunc{
	AlgorithmFNV64a: FNV64a,
	AlgorithmXXH64:  XXH64,
}

// Lookup returns the hash function registered under name.
func Lookup(name string) (HashFunc, error) {
	fn, ok := algorithms[name]
	if !ok {
		return nil, errors.WithHintf(
			errors.NewInvalidRequestError("unknown hash algorithm %q", name),
			"available algorithms: %v", Algorithms(),
		)
	}
	return fn, nil
}

// Algorithms lists the registered algorithm names.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// XXH64 hashes the entry's content rather than its type-specific identity,
// so it detects drift in any field. hash_key, _id, comment and schema_version
// are excluded: the first is the output, the others are bookkeeping.
//
// Keys from XXH64 are not comparable with reference safelists.
func XXH64(e safelist.Entry) (safelist.HashKey, error) {
	if e.Type == "" || e.Name == "" {
		return safelist.HashKey{}, errors.NewMalformedEntryError("entry without type or name")
	}

	data, err := json.Marshal(e.WithoutBookkeeping())
	if err != nil {
		return safelist.HashKey{}, errors.Wrapf(err, "encode %s", e.Key())
	}
	return safelist.NewHashKey(int64(xxhash.Sum64(data))), nil
}
