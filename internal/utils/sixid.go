package utils

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// SixIDHookFunc defines the signature for the NewSixID test hook.
// It returns a SixID and a boolean indicating whether to override the default generation.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook is a package-level variable that tests can set to override NewSixID behavior.
var NewSixIDHook SixIDHookFunc

// sixIDBinarySubtype is the user-defined BSON binary subtype SixIDs are stored under.
const sixIDBinarySubtype byte = 0x80

// crockford is Crockford's Base32 alphabet (no I, L, O, U).
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

var crockfordConfusables = strings.NewReplacer("O", "0", "I", "1", "L", "1", "-", "", " ", "")

// SixID is a 6-byte random record identifier.
// It renders as 10 Crockford Base32 characters, is stored in MongoDB as BSON
// binary subtype 0x80 and in SQL as its string form.
type SixID [6]byte

// NewSixID creates a new 6-byte SixID using random data
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}

	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("sixid: crypto/rand failed: %v", err))
	}
	return id
}

// ParseSixID parses the Crockford Base32 representation of a SixID.
// Lowercase letters and the commonly confused O/I/L are accepted; hyphens and
// spaces are ignored. An empty string yields the zero SixID.
func ParseSixID(s string) (SixID, error) {
	if s == "" {
		return SixID{}, nil
	}
	s = crockfordConfusables.Replace(strings.ToUpper(s))
	if len(s) != 10 {
		return SixID{}, errors.New("invalid SixID: string length must be 10")
	}
	raw, err := crockford.DecodeString(s)
	if err != nil || len(raw) != 6 {
		return SixID{}, errors.New("invalid character in SixID")
	}
	var id SixID
	copy(id[:], raw)
	return id, nil
}

// MustParseSixID is ParseSixID for constants in tests and fixtures.
func MustParseSixID(s string) SixID {
	id, err := ParseSixID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the Crockford Base32 (uppercase) representation of the SixID.
func (u SixID) String() string {
	return crockford.EncodeToString(u[:])
}

// IsZero reports whether the SixID is unset.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// MarshalJSON marshals the SixID as a JSON string.
func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON unmarshals a SixID from a JSON string.
func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (u SixID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bsontype.Binary, bsoncore.AppendBinary(nil, sixIDBinarySubtype, u[:]), nil
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (u *SixID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*u = SixID{}
		return nil
	case bsontype.Binary:
		subtype, bin, _, ok := bsoncore.ReadBinary(data)
		if !ok || subtype != sixIDBinarySubtype || len(bin) != 6 {
			return errors.New("invalid BSON binary data for SixID: incorrect subtype or length")
		}
		copy(u[:], bin)
		return nil
	default:
		return fmt.Errorf("invalid BSON type for SixID: %s", t)
	}
}

// Value implements driver.Valuer.
func (u SixID) Value() (driver.Value, error) {
	return u.String(), nil
}

// Scan implements sql.Scanner.
func (u *SixID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*u = SixID{}
		return nil
	case string:
		id, err := ParseSixID(v)
		if err != nil {
			return err
		}
		*u = id
		return nil
	case []byte:
		return u.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SixID", src)
	}
}

// SixIDList is an unordered set of SixIDs. MongoDB stores it as an array;
// SQL stores it as a comma-separated column.
type SixIDList []SixID

// Contains reports whether id is in the list.
func (l SixIDList) Contains(id SixID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Dedup returns the list without repeated ids, keeping first occurrences.
func (l SixIDList) Dedup() SixIDList {
	out := make(SixIDList, 0, len(l))
	seen := make(map[SixID]struct{}, len(l))
	for _, v := range l {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Value implements driver.Valuer.
func (l SixIDList) Value() (driver.Value, error) {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner.
func (l *SixIDList) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into SixIDList", src)
	}
	if s == "" {
		*l = SixIDList{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(SixIDList, 0, len(parts))
	for _, p := range parts {
		id, err := ParseSixID(p)
		if err != nil {
			return err
		}
		out = append(out, id)
	}
	*l = out
	return nil
}
