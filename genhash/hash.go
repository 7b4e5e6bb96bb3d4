// Package genhash computes hash_key values for safelist entries.
//
// The hash function is a strategy: Generator takes any HashFunc, and the
// reference algorithm (FNV64a) is one implementation among the registered
// ones. FNV64a reproduces the keys stored in existing safelists exactly, so
// its byte layout must not change.
package genhash

import (
	"encoding/binary"
	"hash/fnv"
	"strings"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/safelist"
)

// HashFunc computes the hash key of an entry from its content. It must be
// deterministic: no dependence on list position, time or environment.
type HashFunc func(safelist.Entry) (safelist.HashKey, error)

// FNV64a is the reference safelist hash. Each entry type hashes the fields
// that identify it with 64-bit FNV-1a; range lists are combined by summing
// per-range hashes so their order does not matter. The unsigned sum is
// reinterpreted as int64.
func FNV64a(e safelist.Entry) (safelist.HashKey, error) {
	switch payload := safelist.PayloadFor(e.Type); payload {
	case safelist.PayloadIPRanges:
		r := e.IPRanges
		if r == nil || r.Ranges == nil || r.NetworkID.Missing() {
			return missing(e, payload)
		}
		return sum64(be64(rangeSum(r.Ranges)), r.NetworkID.Data), nil

	case safelist.PayloadDomain:
		if e.Domain == "" {
			return missing(e, payload)
		}
		return sum64([]byte(e.Domain)), nil

	case safelist.PayloadDomainPair:
		d := e.DomainPair
		if d == nil || d.Src == nil || d.Src.IP == "" || d.Src.NetworkID.Missing() || d.FQDN == "" {
			return missing(e, payload)
		}
		return sum64([]byte(d.FQDN), []byte(d.Src.IP), d.Src.NetworkID.Data), nil

	case safelist.PayloadDomainPairRanges:
		d := e.DomainPairRanges
		if d == nil || d.Ranges == nil || d.NetworkID.Missing() || d.FQDN == "" {
			return missing(e, payload)
		}
		return sum64(be64(rangeSum(d.Ranges)), d.NetworkID.Data, []byte(d.FQDN)), nil

	case safelist.PayloadIP:
		ip := e.IP
		if ip == nil || ip.IP == "" || ip.NetworkID.Missing() {
			return missing(e, payload)
		}
		return sum64([]byte(ip.IP), ip.NetworkID.Data), nil

	case safelist.PayloadIPPair:
		p := e.IPPair
		if p == nil || p.SrcIP == "" || p.DstIP == "" || p.SrcNetworkUUID.Missing() || p.DstNetworkUUID.Missing() {
			return missing(e, payload)
		}
		return sum64([]byte(p.SrcIP), p.SrcNetworkUUID.Data, []byte(p.DstIP), p.DstNetworkUUID.Data), nil

	case safelist.PayloadIPPairRanges:
		p := e.IPPairRanges
		if p == nil || p.SrcRanges == nil || p.DstRanges == nil || p.SrcNetworkUUID.Missing() || p.DstNetworkUUID.Missing() {
			return missing(e, payload)
		}
		return sum64(be64(rangeSum(p.SrcRanges, p.DstRanges)), p.SrcNetworkUUID.Data, p.DstNetworkUUID.Data), nil

	case safelist.PayloadUseragent:
		if e.Useragent == "" {
			return missing(e, payload)
		}
		return sum64([]byte(e.Useragent)), nil

	default:
		return safelist.HashKey{}, errors.Wrapf(errors.ErrUnsupportedType, "type %q", strings.ToLower(e.Type))
	}
}

// rangeSum is order independent.
func rangeSum(lists ...[]safelist.IPRange) uint64 {
	var total uint64
	var buf [8]byte
	for _, ranges := range lists {
		for _, r := range ranges {
			binary.BigEndian.PutUint32(buf[0:4], r.Start)
			binary.BigEndian.PutUint32(buf[4:8], r.End)
			h := fnv.New64a()
			h.Write(buf[:])
			total += h.Sum64()
		}
	}
	return total
}

func sum64(parts ...[]byte) safelist.HashKey {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write(p)
	}
	return safelist.NewHashKey(int64(h.Sum64()))
}

func be64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func missing(e safelist.Entry, p safelist.Payload) (safelist.HashKey, error) {
	return safelist.HashKey{}, errors.WithHintf(
		errors.NewMalformedEntryError("%s: %s payload is incomplete", e.Key(), p),
		"a %q entry needs a complete %q object", e.Type, p.String(),
	)
}
