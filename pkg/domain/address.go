package domain

import (
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"

	dErrors "clubdomains/pkg/domain-errors"
)

// Address identifies an account: a registrant, club admin, member or oracle.
// It is a 20-byte script hash and accepts both the 0x-prefixed big-endian hex
// form and the base58 Neo address form at parse time.
type Address util.Uint160

// ZeroAddress is the all-zero account; it is never a valid actor.
var ZeroAddress Address

// ParseAddress validates and returns an Address.
// Rejects empty input, malformed encodings and the zero address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	var (
		u   util.Uint160
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		u, err = util.Uint160DecodeStringBE(s[2:])
	} else {
		u, err = address.StringToUint160(s)
	}
	if err != nil {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	a := Address(u)
	if a.IsZero() {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "zero address is not allowed")
	}
	return a, nil
}

// MustAddress parses s and panics on failure. Intended for tests and fixtures.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the 0x-prefixed big-endian hex form.
func (a Address) String() string {
	return "0x" + util.Uint160(a).StringBE()
}

// NeoAddress returns the base58 Neo N3 address form.
func (a Address) NeoAddress() string {
	return address.Uint160ToString(util.Uint160(a))
}

// AddressFromBytes decodes the big-endian form produced by Bytes.
func AddressFromBytes(b []byte) (Address, error) {
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return ZeroAddress, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid address bytes")
	}
	return Address(u), nil
}

// Bytes returns the big-endian bytes of the address.
func (a Address) Bytes() []byte {
	return util.Uint160(a).BytesBE()
}

// MarshalText returns the hex form. It also keys JSON objects by address.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts what ParseAddress accepts plus the zero hex form, so
// unset address fields survive a stored round trip.
func (a *Address) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if strings.EqualFold(s, ZeroAddress.String()) {
		*a = ZeroAddress
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
