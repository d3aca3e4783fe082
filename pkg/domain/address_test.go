package domain

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clubdomains/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant:
// "addresses must be well-formed and never the zero account"
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero address", func(t *testing.T) {
		_, err := ParseAddress("0x" + strings.Repeat("0", 40))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects short hex", func(t *testing.T) {
		_, err := ParseAddress("0x1234")
		require.Error(t, err)
	})

	t.Run("accepts hex and round-trips", func(t *testing.T) {
		raw := "0x" + strings.Repeat("ab", 20)
		a, err := ParseAddress(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, a.String())
	})

	t.Run("neo form round-trips to same account", func(t *testing.T) {
		a := MustAddress("0x" + strings.Repeat("12", 20))
		b, err := ParseAddress(a.NeoAddress())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestParseAddress_AttackVectors(t *testing.T) {
	inputs := []string{
		"'; DROP TABLE clubs;--",
		"../../../etc/passwd",
		"0x" + strings.Repeat("g", 40),
		strings.Repeat("a", 1000),
		"   ",
	}
	for _, in := range inputs {
		_, err := ParseAddress(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestAmountHelpers(t *testing.T) {
	t.Run("helpers never mutate arguments", func(t *testing.T) {
		a := big.NewInt(10)
		b := big.NewInt(3)
		_ = Add(a, b)
		_ = Sub(a, b)
		_ = MulRatio(a, 1500, 1000)
		assert.Equal(t, int64(10), a.Int64())
		assert.Equal(t, int64(3), b.Int64())
	})

	t.Run("MulRatio rounds down", func(t *testing.T) {
		assert.Equal(t, int64(15), MulRatio(big.NewInt(10), 1500, 1000).Int64())
		assert.Equal(t, int64(3), MulRatio(big.NewInt(7), 1, 2).Int64())
	})

	t.Run("ParseAmount rejects negatives and garbage", func(t *testing.T) {
		_, err := ParseAmount("-1")
		assert.Error(t, err)
		_, err = ParseAmount("1e18")
		assert.Error(t, err)
		v, err := ParseAmount("10000000000000000")
		require.NoError(t, err)
		assert.Equal(t, "10000000000000000", v.String())
	})
}

func TestAddressBytesRoundTrip(t *testing.T) {
	a := MustAddress("0x00112233445566778899aabbccddeeff00112233")
	b, err := AddressFromBytes(a.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = AddressFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	a := MustAddress("0x00112233445566778899aabbccddeeff00112233")

	t.Run("values and map keys use the hex form", func(t *testing.T) {
		in := struct {
			Owner Address          `json:"owner"`
			Unset Address          `json:"unset"`
			Seen  map[Address]bool `json:"seen"`
		}{Owner: a, Seen: map[Address]bool{a: true}}

		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"owner":"`+a.String()+`"`)

		var out struct {
			Owner Address          `json:"owner"`
			Unset Address          `json:"unset"`
			Seen  map[Address]bool `json:"seen"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, a, out.Owner)
		assert.True(t, out.Unset.IsZero())
		assert.True(t, out.Seen[a])
	})

	t.Run("malformed address is rejected", func(t *testing.T) {
		var out Address
		assert.Error(t, json.Unmarshal([]byte(`"0x1234"`), &out))
	})
}
