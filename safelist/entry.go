// Package safelist models safelist entries and the files that carry them.
//
// An entry is identified by its (type, name) pair. The typed payload fields
// follow the safelist export format: only the payload matching the entry's
// type is populated. Unknown keys survive a decode/encode round trip in
// Entry.Extra, so transforms that touch a single field leave the rest of the
// record exactly as it was read.
package safelist

import (
	"encoding/json"
	"fmt"
)

type (
	// Entry is one record of a safelist.
	Entry struct {
		ObjectID ObjectID `json:"_id,omitempty"`

		Name string `json:"name"`

		Type string `json:"type"`

		HashKey *HashKey `json:"hash_key,omitempty"` // derived; absent in the unhashed form

		Comment string `json:"comment,omitempty"`

		SchemaVersion int `json:"schema_version,omitempty"`

		IP *IPEntry `json:"ip,omitempty"`

		IPPair       *IPPairEntry       `json:"pair,omitempty"`
		IPPairRanges *IPPairRangesEntry `json:"pair_ranges,omitempty"`

		IPRanges *IPRangesEntry `json:"ranges,omitempty"`

		Domain           string                 `json:"domain,omitempty"`
		DomainPair       *DomainPairEntry       `json:"domain_pair,omitempty"`
		DomainPairRanges *DomainPairRangesEntry `json:"domain_pair_ranges,omitempty"`

		Useragent string `json:"useragent,omitempty"`

		// Extra holds keys this package does not model, verbatim.
		Extra map[string]json.RawMessage `json:"-"`

		// rawID is _id as it was read. It is written back while ObjectID
		// still matches it.
		rawID json.RawMessage
		// present marks optional keys the decoded record carried, so a zero
		// value read from input is written back instead of dropped.
		present keyMask
	}

	// IPRange is an inclusive range of IPv4 addresses in host byte order.
	IPRange struct {
		Start uint32 `json:"start"`
		End   uint32 `json:"end"`
	}

	IPEntry struct {
		IP        string    `json:"ip"`
		NetworkID NetworkID `json:"network_uuid"`
		Src       bool      `json:"src"`
		Dst       bool      `json:"dst"`
	}

	IPPairEntry struct {
		SrcIP          string    `json:"src"`
		SrcNetworkUUID NetworkID `json:"src_network_uuid"`
		DstIP          string    `json:"dst"`
		DstNetworkUUID NetworkID `json:"dst_network_uuid"`
	}

	IPPairRangesEntry struct {
		SrcRanges      []IPRange `json:"src_ranges"`
		SrcNetworkUUID NetworkID `json:"src_network_uuid"`
		DstRanges      []IPRange `json:"dst_ranges"`
		DstNetworkUUID NetworkID `json:"dst_network_uuid"`
	}

	IPRangesEntry struct {
		Ranges    []IPRange `json:"ranges"`
		NetworkID NetworkID `json:"network_uuid"`
		Src       bool      `json:"src"`
		Dst       bool      `json:"dst"`
	}

	DomainPairSrcEntry struct {
		IP        string    `json:"ip"`
		NetworkID NetworkID `json:"network_uuid"`
	}

	DomainPairEntry struct {
		Src  *DomainPairSrcEntry `json:"src"`
		FQDN string              `json:"fqdn"`
	}

	DomainPairRangesEntry struct {
		NetworkID NetworkID `json:"network_uuid"`
		FQDN      string    `json:"fqdn"`
		Ranges    []IPRange `json:"ranges"`
	}
)

// keyMask is a set of optional modelled keys.
type keyMask uint8

const (
	hasComment keyMask = 1 << iota
	hasSchemaVersion
)

// Key is the logical identity of an entry.
type Key struct {
	Type string
	Name string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.Name)
}

// Key returns the (type, name) identity of the entry.
func (e Entry) Key() Key {
	return Key{Type: e.Type, Name: e.Name}
}

// HasHash reports whether the entry carries a usable hash_key. A zero value
// counts as absent, as the exporter writes 0 for entries it never hashed.
func (e Entry) HasHash() bool {
	return e.HashKey != nil && !e.HashKey.IsZero()
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	if e.HashKey != nil {
		h := *e.HashKey
		c.HashKey = &h
	}
	if e.IP != nil {
		ip := *e.IP
		ip.NetworkID = ip.NetworkID.clone()
		c.IP = &ip
	}
	if e.IPPair != nil {
		p := *e.IPPair
		p.SrcNetworkUUID = p.SrcNetworkUUID.clone()
		p.DstNetworkUUID = p.DstNetworkUUID.clone()
		c.IPPair = &p
	}
	if e.IPPairRanges != nil {
		p := *e.IPPairRanges
		p.SrcRanges = cloneRanges(p.SrcRanges)
		p.DstRanges = cloneRanges(p.DstRanges)
		p.SrcNetworkUUID = p.SrcNetworkUUID.clone()
		p.DstNetworkUUID = p.DstNetworkUUID.clone()
		c.IPPairRanges = &p
	}
	if e.IPRanges != nil {
		r := *e.IPRanges
		r.Ranges = cloneRanges(r.Ranges)
		r.NetworkID = r.NetworkID.clone()
		c.IPRanges = &r
	}
	if e.DomainPair != nil {
		d := *e.DomainPair
		if d.Src != nil {
			src := *d.Src
			src.NetworkID = src.NetworkID.clone()
			d.Src = &src
		}
		c.DomainPair = &d
	}
	if e.DomainPairRanges != nil {
		d := *e.DomainPairRanges
		d.Ranges = cloneRanges(d.Ranges)
		d.NetworkID = d.NetworkID.clone()
		c.DomainPairRanges = &d
	}
	if e.rawID != nil {
		c.rawID = append(json.RawMessage(nil), e.rawID...)
	}
	if e.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// WithoutBookkeeping returns a copy with hash_key, _id, comment and
// schema_version cleared, as if they had never been read.
func (e Entry) WithoutBookkeeping() Entry {
	c := e.Clone()
	c.HashKey = nil
	c.ObjectID = ""
	c.rawID = nil
	c.Comment = ""
	c.SchemaVersion = 0
	c.present = 0
	return c
}

// cloneRanges keeps nil distinct from empty: a nil range list means the
// payload is incomplete.
func cloneRanges(rs []IPRange) []IPRange {
	if rs == nil {
		return nil
	}
	out := make([]IPRange, len(rs))
	copy(out, rs)
	return out
}

// knownKeys are the JSON keys bound to Entry fields.
var knownKeys = []string{
	"_id", "name", "type", "hash_key", "comment", "schema_version",
	"ip", "pair", "pair_ranges", "ranges",
	"domain", "domain_pair", "domain_pair_ranges", "useragent",
}

// entryFields has Entry's layout without its methods.
type entryFields Entry

// UnmarshalJSON decodes the modelled fields and keeps every other key in Extra.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields entryFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["_id"]; ok {
		fields.rawID = append(json.RawMessage(nil), id...)
	}
	if _, ok := raw["comment"]; ok {
		fields.present |= hasComment
	}
	if _, ok := raw["schema_version"]; ok {
		fields.present |= hasSchemaVersion
	}
	for _, k := range knownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		fields.Extra = raw
	}

	*e = Entry(fields)
	return nil
}

// MarshalJSON encodes the modelled fields followed by Extra. A modelled field
// always wins over an Extra key of the same name. Keys read from input are
// written back in the form they were read, zero values included.
func (e Entry) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(entryFields(e))
	if err != nil {
		return nil, err
	}

	rawID := e.originalID()
	if len(e.Extra) == 0 && e.present == 0 && rawID == nil {
		return data, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if rawID != nil {
		obj["_id"] = rawID
	}
	if e.present&hasComment != 0 {
		if obj["comment"], err = json.Marshal(e.Comment); err != nil {
			return nil, err
		}
	}
	if e.present&hasSchemaVersion != 0 {
		if obj["schema_version"], err = json.Marshal(e.SchemaVersion); err != nil {
			return nil, err
		}
	}
	for k, v := range e.Extra {
		if _, ok := obj[k]; !ok {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

// originalID returns the _id text as read, or nil once ObjectID no longer
// matches it.
func (e Entry) originalID() json.RawMessage {
	if e.rawID == nil {
		return nil
	}
	var id ObjectID
	if err := json.Unmarshal(e.rawID, &id); err != nil || id != e.ObjectID {
		return nil
	}
	return e.rawID
}
