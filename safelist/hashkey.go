package safelist

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/activecm/genhash/errors"
)

// HashKey is an entry's derived hash. It keeps the literal text it was read
// with so that comparisons never pass through a float64: the reference
// hashes are full 64-bit integers and lose digits as JSON doubles.
//
// Keys compare in string form. An integer-valued number written with an
// exponent or fraction (1e3, 1000.0) compares as its plain digits, so it
// equals the string "1000". Strings compare as written. Encoding always
// writes the literal text back.
type HashKey struct {
	text   string
	quoted bool
	// plain is the digit form of a non-plain integer literal.
	plain string
}

// NewHashKey returns the hash key for a signed 64-bit hash value.
func NewHashKey(v int64) HashKey {
	return HashKey{text: strconv.FormatInt(v, 10)}
}

// NewStringHashKey returns a hash key that serializes as a JSON string.
func NewStringHashKey(s string) HashKey {
	return HashKey{text: s, quoted: true}
}

// String returns the comparison form of the key.
func (h HashKey) String() string {
	if h.plain != "" {
		return h.plain
	}
	return h.text
}

// Equal compares two keys in string form.
func (h HashKey) Equal(other HashKey) bool {
	return h.String() == other.String()
}

// IsZero reports whether the key is empty or the numeric zero.
func (h HashKey) IsZero() bool {
	s := h.String()
	return s == "" || s == "0"
}

// Int64 returns the key as an integer when it is one.
func (h HashKey) Int64() (int64, bool) {
	v, err := strconv.ParseInt(h.String(), 10, 64)
	return v, err == nil
}

func (h HashKey) MarshalJSON() ([]byte, error) {
	if h.quoted {
		return json.Marshal(h.text)
	}
	if h.text == "" {
		return []byte("0"), nil
	}
	return []byte(h.text), nil
}

func (h *HashKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("hash_key: empty value")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "hash_key")
		}
		*h = HashKey{text: s, quoted: true}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Newf("hash_key: expected number or string, got %s", data)
	}
	*h = HashKey{text: n.String(), plain: integerDigits(n.String())}
	return nil
}

// integerDigits returns the plain digits of an integer-valued number literal
// that uses a fraction or exponent, and "" for anything else.
func integerDigits(lit string) string {
	if !strings.ContainsAny(lit, ".eE") {
		return ""
	}
	r, ok := new(big.Rat).SetString(lit)
	if !ok || !r.IsInt() {
		return ""
	}
	return r.Num().String()
}
