// Package verify checks a candidate safelist against a reference list.
//
// Entries correspond by (type, name). Structural equivalence asks whether
// every reference entry has a counterpart; value equivalence compares the
// counterparts' hash_key strings exactly. Every check is exhaustive: it
// reports all discrepancies instead of stopping at the first.
package verify

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/safelist"
)

// Policy decides how duplicate candidate keys are treated.
type Policy int

const (
	// MatchUnique requires exactly one candidate per reference key and
	// reports duplicates on either side.
	MatchUnique Policy = iota
	// MatchFirst takes the first candidate in list order and ignores any
	// later duplicates. Only the length check can expose them.
	MatchFirst
)

func (p Policy) String() string {
	if p == MatchFirst {
		return "first"
	}
	return "unique"
}

// ParsePolicy parses "unique" or "first".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unique", "":
		return MatchUnique, nil
	case "first":
		return MatchFirst, nil
	default:
		return MatchUnique, errors.WithHint(
			errors.NewInvalidRequestError("unknown match policy %q", s),
			"use \"unique\" or \"first\"",
		)
	}
}

// Verifier runs equivalence checks. The zero value uses MatchUnique.
type Verifier struct {
	Policy Policy
	Logger *zap.SugaredLogger
}

// New creates a verifier with the given policy.
func New(policy Policy, log *zap.SugaredLogger) *Verifier {
	return &Verifier{Policy: policy, Logger: log}
}

// Length checks that both lists hold the same number of entries.
func (v *Verifier) Length(ref, cand []safelist.Entry) Report {
	r := length(ref, cand)
	v.log(r)
	return r
}

// Structural checks that every reference entry has a candidate with the
// same (type, name).
func (v *Verifier) Structural(ref, cand []safelist.Entry) Report {
	_, r := v.match(ref, cand)
	v.log(r)
	return r
}

// Values compares hash_key strings of corresponding entries. Reference
// entries without a hash_key are skipped. A reference entry without a usable
// match cannot be compared and is reported with its structural failure.
func (v *Verifier) Values(ref, cand []safelist.Entry) Report {
	matches, structural := v.match(ref, cand)
	r := v.values(ref, cand, matches)
	r.Failures = append(structural.Failures, r.Failures...)
	v.log(r)
	return r
}

// Unhashed checks an unhashed list against its reference: equal length, one
// entry per reference key, and no candidate carrying a hash_key.
func (v *Verifier) Unhashed(ref, cand []safelist.Entry) Report {
	r := length(ref, cand)
	_, structural := v.match(ref, cand)
	r.merge(structural)

	unexpected := Report{Checks: []string{"unhashed"}}
	for i, e := range cand {
		if e.HashKey != nil {
			unexpected.add(Failure{
				Kind:   FailureUnexpectedHash,
				Index:  i,
				Key:    e.Key(),
				Actual: e.HashKey.String(),
			})
		}
	}
	r.merge(unexpected)
	v.log(r)
	return r
}

// All runs the length, structural and value checks.
func (v *Verifier) All(ref, cand []safelist.Entry) Report {
	r := length(ref, cand)
	matches, structural := v.match(ref, cand)
	r.merge(structural)
	r.merge(v.values(ref, cand, matches))
	v.log(r)
	return r
}

func length(ref, cand []safelist.Entry) Report {
	r := Report{Checks: []string{"length"}}
	if len(ref) != len(cand) {
		r.add(Failure{
			Kind:     FailureLength,
			Index:    -1,
			Expected: strconv.Itoa(len(ref)),
			Actual:   strconv.Itoa(len(cand)),
		})
	}
	return r
}

// match resolves each reference entry to a candidate index, or -1 when there
// is no usable match.
func (v *Verifier) match(ref, cand []safelist.Entry) ([]int, Report) {
	r := Report{Checks: []string{"structural"}}

	index := make(map[safelist.Key][]int, len(cand))
	for i, e := range cand {
		k := e.Key()
		index[k] = append(index[k], i)
	}

	firstRef := make(map[safelist.Key]int, len(ref))
	matches := make([]int, len(ref))

	for i, e := range ref {
		k := e.Key()
		matches[i] = -1

		if v.Policy == MatchUnique {
			if prev, seen := firstRef[k]; seen {
				r.add(Failure{Kind: FailureReferenceDuplicate, Index: i, Key: k, Expected: strconv.Itoa(prev)})
			} else {
				firstRef[k] = i
			}
		}

		found := index[k]
		switch {
		case len(found) == 0:
			r.add(Failure{Kind: FailureMissing, Index: i, Key: k})
		case len(found) > 1 && v.Policy == MatchUnique:
			r.add(Failure{Kind: FailureDuplicate, Index: i, Key: k, Expected: "1", Actual: strconv.Itoa(len(found))})
		default:
			matches[i] = found[0]
		}
	}
	return matches, r
}

func (v *Verifier) values(ref, cand []safelist.Entry, matches []int) Report {
	r := Report{Checks: []string{"values"}}
	for i, e := range ref {
		if e.HashKey == nil || matches[i] < 0 {
			continue
		}
		want := e.HashKey.String()
		c := cand[matches[i]]
		got := ""
		if c.HashKey != nil {
			got = c.HashKey.String()
		}
		if c.HashKey == nil || got != want {
			r.add(Failure{Kind: FailureHashMismatch, Index: i, Key: e.Key(), Expected: want, Actual: got})
		}
	}
	return r
}

func (v *Verifier) log(r Report) {
	if v.Logger == nil {
		return
	}
	for _, f := range r.Failures {
		v.Logger.Debugw("Verification failure", "kind", f.Kind.String(), "detail", f.String())
	}
}
