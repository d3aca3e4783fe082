package names

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  Name
		valid bool
	}{
		{"plain name", "alice", "alice", true},
		{"digits and underscore", "club_42", "club_42", true},
		{"suffix stripped", "alice.club", "alice", true},
		{"suffix stripped once", "alice.club.club", "", false},
		{"empty", "", "", false},
		{"suffix only", ".club", "", false},
		{"uppercase is not lowercased", "Alice", "", false},
		{"leading space is not trimmed", " alice", "", false},
		{"hyphen", "my-club", "", false},
		{"unicode", "clüb", "", false},
		{"other suffix", "alice.eth", "", false},
		{"too long", strings.Repeat("a", MaxLength+1), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	_, err := Parse("Bad Name")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidName))

	n, err := Parse("chess.club")
	require.NoError(t, err)
	assert.Equal(t, "chess", n.String())
	assert.Equal(t, "chess.club", n.Display())
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"", "alice", "alice.club", "A", "a-b", "_", "x.club.club"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		n, ok := Normalize(raw)
		if !ok {
			return
		}
		again, ok := Normalize(string(n))
		if !ok || again != n {
			t.Fatalf("normalize not idempotent for %q: %q -> %q", raw, n, again)
		}
		if strings.ContainsFunc(string(n), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
		}) {
			t.Fatalf("canonical form %q contains disallowed characters", n)
		}
	})
}
