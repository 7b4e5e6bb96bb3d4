package genhash

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/safelist"
)

var (
	netA = safelist.NewNetworkID(uuid.MustParse("11223344-5566-7788-99aa-bbccddeeff00"))
	netB = safelist.NewNetworkID(uuid.MustParse("aabbccdd-eeff-0011-2233-445566778899"))

	rangeA  = []safelist.IPRange{{Start: 167772160, End: 184549375}}
	rangesB = []safelist.IPRange{{Start: 3232235776, End: 3232236031}, {Start: 2886729728, End: 2887778303}}
)

// Golden keys were computed independently of this package from the FNV-1a
// definition and the field layout of each entry type.
func TestFNV64a_Golden(t *testing.T) {
	tests := []struct {
		name  string
		entry safelist.Entry
		want  string
	}{
		{
			name:  "ip",
			entry: safelist.Entry{Type: "ip", Name: "gw", IP: &safelist.IPEntry{IP: "10.0.0.1", NetworkID: netA}},
			want:  "4383138119769288653",
		},
		{
			name:  "useragent",
			entry: safelist.Entry{Type: "useragent", Name: "curl", Useragent: "curl/7.68.0"},
			want:  "1204568891840365645",
		},
		{
			name:  "domain literal",
			entry: safelist.Entry{Type: "domain_literal", Name: "example", Domain: "example.com"},
			want:  "6298361471204529350",
		},
		{
			name:  "domain pattern shares the domain hash",
			entry: safelist.Entry{Type: "domain_pattern", Name: "example", Domain: "example.com"},
			want:  "6298361471204529350",
		},
		{
			name:  "cidr",
			entry: safelist.Entry{Type: "cidr", Name: "ten", IPRanges: &safelist.IPRangesEntry{Ranges: rangeA, NetworkID: netA}},
			want:  "-747377531390581480",
		},
		{
			name:  "asn with two ranges",
			entry: safelist.Entry{Type: "asn", Name: "as1", IPRanges: &safelist.IPRangesEntry{Ranges: rangesB, NetworkID: netA}},
			want:  "-3614924272508186943",
		},
		{
			name: "pair",
			entry: safelist.Entry{Type: "pair", Name: "p", IPPair: &safelist.IPPairEntry{
				SrcIP: "10.0.0.1", SrcNetworkUUID: netA, DstIP: "192.168.1.1", DstNetworkUUID: netB,
			}},
			want: "-4523217778391611380",
		},
		{
			name: "domain pair",
			entry: safelist.Entry{Type: "domain_pair_literal", Name: "dp", DomainPair: &safelist.DomainPairEntry{
				Src: &safelist.DomainPairSrcEntry{IP: "10.0.0.1", NetworkID: netA}, FQDN: "example.com",
			}},
			want: "-3281380658430711610",
		},
		{
			name: "domain pair ranges",
			entry: safelist.Entry{Type: "domain_pair_cidr_pattern", Name: "dpr", DomainPairRanges: &safelist.DomainPairRangesEntry{
				NetworkID: netA, FQDN: "example.com", Ranges: rangeA,
			}},
			want: "1920724630181540821",
		},
		{
			name: "pair ranges",
			entry: safelist.Entry{Type: "pair_cidr", Name: "pr", IPPairRanges: &safelist.IPPairRangesEntry{
				SrcRanges: rangeA, SrcNetworkUUID: netA, DstRanges: rangesB, DstNetworkUUID: netB,
			}},
			want: "4111934390994328495",
		},
		{
			name:  "type matching ignores case",
			entry: safelist.Entry{Type: "UserAgent", Name: "curl", Useragent: "curl/7.68.0"},
			want:  "1204568891840365645",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := FNV64a(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key.String())
		})
	}
}

func TestFNV64a_RangeOrderDoesNotMatter(t *testing.T) {
	reversed := []safelist.IPRange{rangesB[1], rangesB[0]}

	a, err := FNV64a(safelist.Entry{Type: "ranges", Name: "r", IPRanges: &safelist.IPRangesEntry{Ranges: rangesB, NetworkID: netA}})
	require.NoError(t, err)
	b, err := FNV64a(safelist.Entry{Type: "ranges", Name: "r", IPRanges: &safelist.IPRangesEntry{Ranges: reversed, NetworkID: netA}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestFNV64a_IgnoresNameAndComment(t *testing.T) {
	a, err := FNV64a(safelist.Entry{Type: "useragent", Name: "one", Comment: "x", Useragent: "curl/7.68.0"})
	require.NoError(t, err)
	b, err := FNV64a(safelist.Entry{Type: "useragent", Name: "two", Useragent: "curl/7.68.0"})
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestFNV64a_IncompletePayload(t *testing.T) {
	tests := []struct {
		name  string
		entry safelist.Entry
	}{
		{"ip without payload", safelist.Entry{Type: "ip", Name: "a"}},
		{"ip without network", safelist.Entry{Type: "ip", Name: "a", IP: &safelist.IPEntry{IP: "10.0.0.1"}}},
		{"ranges without list", safelist.Entry{Type: "cidr", Name: "a", IPRanges: &safelist.IPRangesEntry{NetworkID: netA}}},
		{"empty domain", safelist.Entry{Type: "domain_literal", Name: "a"}},
		{"domain pair without src", safelist.Entry{Type: "domain_pair_pattern", Name: "a", DomainPair: &safelist.DomainPairEntry{FQDN: "x"}}},
		{"pair missing dst", safelist.Entry{Type: "pair", Name: "a", IPPair: &safelist.IPPairEntry{SrcIP: "1", SrcNetworkUUID: netA}}},
		{"pair ranges missing dst", safelist.Entry{Type: "pair_ranges", Name: "a", IPPairRanges: &safelist.IPPairRangesEntry{
			SrcRanges: rangeA, SrcNetworkUUID: netA, DstNetworkUUID: netB,
		}}},
		{"domain pair ranges without fqdn", safelist.Entry{Type: "domain_pair_ranges_literal", Name: "a", DomainPairRanges: &safelist.DomainPairRangesEntry{
			NetworkID: netA, Ranges: rangeA,
		}}},
		{"empty useragent", safelist.Entry{Type: "useragent", Name: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FNV64a(tt.entry)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedEntry))
			assert.NotEmpty(t, errors.GetAllHints(err))
		})
	}
}

func TestFNV64a_EmptyRangeListIsHashed(t *testing.T) {
	key, err := FNV64a(safelist.Entry{Type: "ranges", Name: "r", IPRanges: &safelist.IPRangesEntry{
		Ranges: []safelist.IPRange{}, NetworkID: netA,
	}})
	require.NoError(t, err)
	assert.NotEmpty(t, key.String())
}

func TestFNV64a_UnsupportedType(t *testing.T) {
	_, err := FNV64a(safelist.Entry{Type: "script", Name: "analytics.js"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedType))
	assert.Contains(t, err.Error(), `"script"`)
}

func TestXXH64(t *testing.T) {
	e := safelist.Entry{Type: "useragent", Name: "curl", Useragent: "curl/7.68.0"}

	a, err := XXH64(e)
	require.NoError(t, err)
	b, err := XXH64(e)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	withBookkeeping := e.Clone()
	withBookkeeping.Comment = "added by soc"
	withBookkeeping.ObjectID = "5f1a2b3c4d5e6f7a8b9c0d1e"
	hk := safelist.NewHashKey(99)
	withBookkeeping.HashKey = &hk
	c, err := XXH64(withBookkeeping)
	require.NoError(t, err)
	assert.True(t, a.Equal(c), "bookkeeping fields must not change the key")

	decoded, err := safelist.Unmarshal([]byte(
		`[{"_id":{"$oid":"5f1a2b3c4d5e6f7a8b9c0d1e"},"name":"curl","type":"useragent","hash_key":3,"comment":"","schema_version":0,"useragent":"curl/7.68.0"}]`,
	), safelist.FormatJSON)
	require.NoError(t, err)
	f, err := XXH64(decoded[0])
	require.NoError(t, err)
	assert.True(t, a.Equal(f), "keys read as zero values are bookkeeping too")

	renamed := e.Clone()
	renamed.Name = "curl-2"
	d, err := XXH64(renamed)
	require.NoError(t, err)
	assert.False(t, a.Equal(d))

	_, err = XXH64(safelist.Entry{Type: "useragent"})
	assert.True(t, errors.Is(err, errors.ErrMalformedEntry))
}

func TestLookup(t *testing.T) {
	fn, err := Lookup(AlgorithmFNV64a)
	require.NoError(t, err)
	require.NotNil(t, fn)

	_, err = Lookup("md5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	assert.Equal(t, []string{"fnv64a", "xxh64"}, Algorithms())
}

func unhashedFixture() []safelist.Entry {
	return []safelist.Entry{
		{Type: "ip", Name: "gw", SchemaVersion: 5, IP: &safelist.IPEntry{IP: "10.0.0.1", NetworkID: netA}},
		{Type: "useragent", Name: "curl", SchemaVersion: 5, Useragent: "curl/7.68.0"},
		{Type: "domain_literal", Name: "example", SchemaVersion: 5, Domain: "example.com"},
	}
}

func TestGenerate_PopulatesEveryEntry(t *testing.T) {
	in := unhashedFixture()
	g := NewGenerator(FNV64a, zaptest.NewLogger(t).Sugar())

	out, err := g.Generate(in)
	require.NoError(t, err)

	require.Len(t, out, len(in))
	want := []string{"4383138119769288653", "1204568891840365645", "6298361471204529350"}
	for i := range out {
		assert.Equal(t, in[i].Key(), out[i].Key())
		require.NotNil(t, out[i].HashKey)
		assert.Equal(t, want[i], out[i].HashKey.String())
		assert.Nil(t, in[i].HashKey, "input must not be mutated")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := NewGenerator(FNV64a, nil)
	e := unhashedFixture()[0]

	first, err := g.Generate([]safelist.Entry{e})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := g.Generate([]safelist.Entry{e})
		require.NoError(t, err)
		assert.Equal(t, first[0].HashKey.String(), again[0].HashKey.String())
	}

	// Position in the list does not matter
	shifted, err := g.Generate(append(unhashedFixture()[1:], e))
	require.NoError(t, err)
	assert.Equal(t, first[0].HashKey.String(), shifted[2].HashKey.String())
}

func TestGenerate_RoundTripReproducesReference(t *testing.T) {
	g := NewGenerator(FNV64a, nil)
	reference, err := g.Generate(unhashedFixture())
	require.NoError(t, err)

	regenerated, err := g.Generate(safelist.Unhash(reference))
	require.NoError(t, err)

	require.Len(t, regenerated, len(reference))
	for i := range reference {
		assert.Equal(t, reference[i].Key(), regenerated[i].Key())
		assert.Equal(t, reference[i].HashKey.String(), regenerated[i].HashKey.String())
	}
}

func TestGenerate_MissingTypeOrName(t *testing.T) {
	g := NewGenerator(FNV64a, nil)
	in := unhashedFixture()
	in[1].Name = ""

	out, err := g.Generate(in)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, errors.ErrMalformedEntry))
	assert.Contains(t, err.Error(), "entry 1")
}

func TestGenerate_UnhashableEntryAbortsRun(t *testing.T) {
	g := NewGenerator(FNV64a, nil)
	in := append(unhashedFixture(), safelist.Entry{Type: "script", Name: "analytics.js"})

	out, err := g.Generate(in)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedType))
	assert.Contains(t, err.Error(), "entry 3")
}

func TestGenerate_KeepsExistingHashUnlessRehash(t *testing.T) {
	stored := safelist.NewHashKey(-99999)
	in := unhashedFixture()[:1]
	in[0].HashKey = &stored

	kept, err := NewGenerator(FNV64a, nil).Generate(in)
	require.NoError(t, err)
	assert.Equal(t, "-99999", kept[0].HashKey.String())

	g := NewGenerator(FNV64a, nil)
	g.Rehash = true
	rehashed, err := g.Generate(in)
	require.NoError(t, err)
	assert.Equal(t, "4383138119769288653", rehashed[0].HashKey.String())

	// A stored zero means "never hashed"
	zero := safelist.NewHashKey(0)
	in[0].HashKey = &zero
	fresh, err := NewGenerator(FNV64a, nil).Generate(in)
	require.NoError(t, err)
	assert.Equal(t, "4383138119769288653", fresh[0].HashKey.String())
}

func TestGenerate_DefaultsSchemaVersion(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := NewGenerator(FNV64a, zap.New(core).Sugar())

	in := unhashedFixture()
	in[0].SchemaVersion = 0

	out, err := g.Generate(in)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchemaVersion, out[0].SchemaVersion)
	assert.Equal(t, 0, in[0].SchemaVersion)

	require.Equal(t, 1, logs.FilterMessage("Schema version missing, using default").Len())

	g.DefaultSchemaVersion = 0
	out, err = g.Generate(in)
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].SchemaVersion)
}

func TestGenerate_KeptEntriesKeepSchemaVersion(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := NewGenerator(FNV64a, zap.New(core).Sugar())

	in := unhashedFixture()
	stored := safelist.NewHashKey(7)
	in[0].HashKey = &stored
	in[0].SchemaVersion = 0
	in[1].SchemaVersion = 0

	out, err := g.Generate(in)
	require.NoError(t, err)

	assert.Equal(t, "7", out[0].HashKey.String())
	assert.Equal(t, 0, out[0].SchemaVersion)
	assert.Equal(t, DefaultSchemaVersion, out[1].SchemaVersion)
	assert.Equal(t, 1, logs.FilterMessage("Schema version missing, using default").Len())
}

func TestGenerate_InjectedStrategy(t *testing.T) {
	var seen []string
	fake := func(e safelist.Entry) (safelist.HashKey, error) {
		seen = append(seen, e.Name)
		return safelist.NewStringHashKey("h-" + e.Name), nil
	}

	out, err := NewGenerator(fake, nil).Generate(unhashedFixture())
	require.NoError(t, err)

	assert.Equal(t, []string{"gw", "curl", "example"}, seen)
	assert.Equal(t, "h-curl", out[1].HashKey.String())
}

func TestGenerate_Empty(t *testing.T) {
	out, err := NewGenerator(FNV64a, nil).Generate(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
