package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressLength is the fixed width of an account identifier in bytes.
const AddressLength = 20

// Address identifies an account on the ledger.
// The zero value is the reserved sentinel meaning "no account": it is never
// a valid transfer recipient or approval spender.
type Address [AddressLength]byte

// ZeroAddress is the sentinel "no account" value.
var ZeroAddress Address

// IsZero reports whether a is the sentinel address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String renders the address as 0x-prefixed lowercase hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseAddress decodes a 0x-prefixed (or bare) hex string of exactly
// AddressLength bytes.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return AddressFromBytes(b)
}

// AddressFromBytes builds an Address from a raw byte slice.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return ZeroAddress, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MarshalJSON encodes the address as its hex string form. Used by the WAL
// journal and the HTTP API.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the hex string form.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
