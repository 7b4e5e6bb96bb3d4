package safelist

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/activecm/genhash/errors"
)

// BinaryUUID is the BSON binary subtype carried by network ids.
const BinaryUUID byte = 0x04

// NetworkID is a BSON binary value as it appears in the safelist export:
// {"Kind": 4, "Data": "<base64>"}.
type NetworkID struct {
	Kind byte   `json:"Kind"`
	Data []byte `json:"Data"`
}

// NewNetworkID wraps a UUID as a network id.
func NewNetworkID(id uuid.UUID) NetworkID {
	data := make([]byte, len(id))
	copy(data, id[:])
	return NetworkID{Kind: BinaryUUID, Data: data}
}

// ParseNetworkID parses the textual UUID form.
func ParseNetworkID(s string) (NetworkID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NetworkID{}, errors.Wrapf(err, "invalid network uuid %q", s)
	}
	return NewNetworkID(id), nil
}

// Missing reports whether the id was never set. An empty but present Data
// still counts as set.
func (n NetworkID) Missing() bool {
	return n.Kind == 0 || n.Data == nil
}

// UUID returns the id as a UUID when Data holds exactly 16 bytes.
func (n NetworkID) UUID() (uuid.UUID, error) {
	return uuid.FromBytes(n.Data)
}

func (n NetworkID) String() string {
	if id, err := n.UUID(); err == nil {
		return id.String()
	}
	return hex.EncodeToString(n.Data)
}

func (n NetworkID) clone() NetworkID {
	if n.Data != nil {
		n.Data = append([]byte{}, n.Data...)
	}
	return n
}

// ObjectID is the hex form of a database object id.
type ObjectID string

func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts null, "hex" and {"$oid": "hex"}.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if len(data) > 0 && data[0] == '{' {
		var ext struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(data, &ext); err != nil {
			return errors.Wrap(err, "_id")
		}
		s = ext.OID
	} else if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "_id")
	}

	if s != "" {
		if b, err := hex.DecodeString(s); err != nil || len(b) != 12 {
			return errors.Newf("_id: invalid object id %q", s)
		}
	}
	*id = ObjectID(s)
	return nil
}
