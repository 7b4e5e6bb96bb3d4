package verify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/safelist"
)

// FailureKind classifies one verification failure.
type FailureKind int

const (
	// FailureLength: the lists differ in length, so they cannot correspond
	// one to one even if every lookup succeeds.
	FailureLength FailureKind = iota
	// FailureMissing: no candidate entry has the reference entry's key.
	FailureMissing
	// FailureDuplicate: more than one candidate entry has the key.
	FailureDuplicate
	// FailureReferenceDuplicate: the reference list itself repeats a key.
	FailureReferenceDuplicate
	// FailureHashMismatch: the matched candidate's hash_key differs or is absent.
	FailureHashMismatch
	// FailureUnexpectedHash: a candidate that should be unhashed carries a hash_key.
	FailureUnexpectedHash
)

func (k FailureKind) String() string {
	switch k {
	case FailureLength:
		return "length"
	case FailureMissing:
		return "missing"
	case FailureDuplicate:
		return "duplicate"
	case FailureReferenceDuplicate:
		return "reference-duplicate"
	case FailureHashMismatch:
		return "hash-mismatch"
	case FailureUnexpectedHash:
		return "unexpected-hash"
	default:
		return "unknown"
	}
}

// Failure is one itemized discrepancy. Index is the position of the entry in
// the list it was found in (reference for most kinds, candidate for
// FailureUnexpectedHash) and -1 for list-level failures.
type Failure struct {
	Kind     FailureKind
	Index    int
	Key      safelist.Key
	Expected string
	Actual   string
}

func (f Failure) String() string {
	switch f.Kind {
	case FailureLength:
		return fmt.Sprintf("length mismatch: expected %s entries, got %s", f.Expected, f.Actual)
	case FailureMissing:
		return fmt.Sprintf("%s (reference #%d): no candidate entry", f.Key, f.Index)
	case FailureDuplicate:
		return fmt.Sprintf("%s (reference #%d): %s candidate entries", f.Key, f.Index, f.Actual)
	case FailureReferenceDuplicate:
		return fmt.Sprintf("%s (reference #%d): repeats reference #%s", f.Key, f.Index, f.Expected)
	case FailureHashMismatch:
		return fmt.Sprintf("%s (reference #%d): hash_key expected %s, got %s", f.Key, f.Index, f.Expected, display(f.Actual))
	case FailureUnexpectedHash:
		return fmt.Sprintf("%s (candidate #%d): unexpected hash_key %s", f.Key, f.Index, f.Actual)
	default:
		return fmt.Sprintf("%s: %s", f.Kind, f.Key)
	}
}

func display(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// Report collects every failure of one or more checks.
type Report struct {
	Checks   []string
	Failures []Failure
}

// OK reports whether no check failed.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Count returns the number of failures of kind.
func (r Report) Count(kind FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Err returns nil for a passing report, otherwise an error wrapping
// errors.ErrVerificationFailed with one detail line per failure.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}

	var kinds []string
	for k := FailureLength; k <= FailureUnexpectedHash; k++ {
		if n := r.Count(k); n > 0 {
			kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
		}
	}

	err := errors.Wrapf(errors.ErrVerificationFailed, "%s check: %s",
		strings.Join(r.Checks, "+"), strings.Join(kinds, ", "))
	for _, f := range r.Failures {
		err = errors.WithDetail(err, f.String())
	}
	return err
}

// Rows renders the failures as table rows under Header.
func (r Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		idx := ""
		if f.Index >= 0 {
			idx = strconv.Itoa(f.Index)
		}
		rows = append(rows, []string{f.Kind.String(), idx, f.Key.Type, f.Key.Name, f.Expected, display(f.Actual)})
	}
	return rows
}

// Header is the column row matching Rows.
var Header = []string{"Failure", "#", "Type", "Name", "Expected", "Actual"}

func (r *Report) add(f Failure) {
	r.Failures = append(r.Failures, f)
}

func (r *Report) merge(other Report) {
	r.Checks = append(r.Checks, other.Checks...)
	r.Failures = append(r.Failures, other.Failures...)
}
