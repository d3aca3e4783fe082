package registry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/testutil"
)

func keccak(parts ...[]byte) []byte {
	k := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		k.Write(p)
	}
	return k.Sum(nil)
}

func TestMakeCommitment(t *testing.T) {
	t.Run("hashes the name before binding owner and secret", func(t *testing.T) {
		owner := testutil.Addr(0x0A)
		secret := []byte("secret")
		want := keccak(keccak([]byte("alice")), owner.Bytes(), secret)

		got := MakeCommitment(names.MustParse("alice"), owner, secret)
		assert.Equal(t, want, got[:])
	})

	t.Run("shifting bytes across the name boundary changes the hash", func(t *testing.T) {
		first, err := id.AddressFromBytes(append([]byte("c"), bytes.Repeat([]byte("d"), 19)...))
		require.NoError(t, err)
		second, err := id.AddressFromBytes(append(bytes.Repeat([]byte("d"), 19), 'x'))
		require.NoError(t, err)

		a := MakeCommitment(names.MustParse("ab"), first, []byte("x"))
		b := MakeCommitment(names.MustParse("abc"), second, nil)
		assert.NotEqual(t, a, b)
	})

	t.Run("every input is bound", func(t *testing.T) {
		base := MakeCommitment(names.MustParse("alice"), testutil.Addr(0x0A), []byte("s"))
		assert.NotEqual(t, base, MakeCommitment(names.MustParse("alicf"), testutil.Addr(0x0A), []byte("s")))
		assert.NotEqual(t, base, MakeCommitment(names.MustParse("alice"), testutil.Addr(0x0B), []byte("s")))
		assert.NotEqual(t, base, MakeCommitment(names.MustParse("alice"), testutil.Addr(0x0A), []byte("t")))
	})
}
