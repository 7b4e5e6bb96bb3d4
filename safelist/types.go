package safelist

import "strings"

// Entry types written by the safelist exporter.
const (
	TypeASN    = "asn"
	TypeASNOrg = "asn_org"
	TypeCIDR   = "cidr"
	TypeRanges = "ranges"

	TypeDomainLiteral = "domain_literal"
	TypeDomainPattern = "domain_pattern"

	TypeDomainPairLiteral = "domain_pair_literal"
	TypeDomainPairPattern = "domain_pair_pattern"

	TypeDomainPairCIDRLiteral   = "domain_pair_cidr_literal"
	TypeDomainPairCIDRPattern   = "domain_pair_cidr_pattern"
	TypeDomainPairRangesLiteral = "domain_pair_ranges_literal"
	TypeDomainPairRangesPattern = "domain_pair_ranges_pattern"

	TypeIP = "ip"

	TypePair       = "pair"
	TypePairCIDR   = "pair_cidr"
	TypePairRanges = "pair_ranges"

	TypeUseragent = "useragent"
)

// Payload names which Entry field carries the data for a type.
type Payload int

const (
	PayloadUnknown Payload = iota
	PayloadIPRanges
	PayloadDomain
	PayloadDomainPair
	PayloadDomainPairRanges
	PayloadIP
	PayloadIPPair
	PayloadIPPairRanges
	PayloadUseragent
)

var payloadByType = map[string]Payload{
	TypeASN:    PayloadIPRanges,
	TypeASNOrg: PayloadIPRanges,
	TypeCIDR:   PayloadIPRanges,
	TypeRanges: PayloadIPRanges,

	TypeDomainLiteral: PayloadDomain,
	TypeDomainPattern: PayloadDomain,

	TypeDomainPairLiteral: PayloadDomainPair,
	TypeDomainPairPattern: PayloadDomainPair,

	TypeDomainPairCIDRLiteral:   PayloadDomainPairRanges,
	TypeDomainPairCIDRPattern:   PayloadDomainPairRanges,
	TypeDomainPairRangesLiteral: PayloadDomainPairRanges,
	TypeDomainPairRangesPattern: PayloadDomainPairRanges,

	TypeIP: PayloadIP,

	TypePair:       PayloadIPPair,
	TypePairCIDR:   PayloadIPPairRanges,
	TypePairRanges: PayloadIPPairRanges,

	TypeUseragent: PayloadUseragent,
}

// PayloadFor returns the payload kind of an entry type. Matching ignores case.
func PayloadFor(entryType string) Payload {
	return payloadByType[strings.ToLower(entryType)]
}

func (p Payload) String() string {
	switch p {
	case PayloadIPRanges:
		return "ranges"
	case PayloadDomain:
		return "domain"
	case PayloadDomainPair:
		return "domain_pair"
	case PayloadDomainPairRanges:
		return "domain_pair_ranges"
	case PayloadIP:
		return "ip"
	case PayloadIPPair:
		return "pair"
	case PayloadIPPairRanges:
		return "pair_ranges"
	case PayloadUseragent:
		return "useragent"
	default:
		return "unknown"
	}
}
