package registry

import (
	"encoding/hex"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

// Status is derived from timestamps, never stored.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusActive      Status = "active"
	StatusGrace       Status = "grace"
	StatusReclaimable Status = "reclaimable"
)

// Domain is one live registration. At most one exists per canonical name.
type Domain struct {
	Name         names.Name
	Owner        id.Address
	RegisteredAt time.Time
	Expiry       time.Time
	// TokenID identifies this registration; a re-registered name gets a new one.
	TokenID uint64
}

// StatusAt computes the lifecycle phase at now.
func (d *Domain) StatusAt(now time.Time, gracePeriod time.Duration) Status {
	switch {
	case !now.After(d.Expiry):
		return StatusActive
	case !now.After(d.Expiry.Add(gracePeriod)):
		return StatusGrace
	default:
		return StatusReclaimable
	}
}

// IsLive reports whether the domain is Active or in Grace.
func (d *Domain) IsLive(now time.Time, gracePeriod time.Duration) bool {
	s := d.StatusAt(now, gracePeriod)
	return s == StatusActive || s == StatusGrace
}

// Hash is a 32-byte commitment hash.
type Hash [32]byte

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

// ParseHash accepts 64 hex characters with an optional 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(b) != len(h) {
		return h, dErrors.New(dErrors.CodeInvalidInput, "commitment must be 32 hex-encoded bytes")
	}
	copy(h[:], b)
	return h, nil
}

// MakeCommitment binds name, owner and secret:
// keccak256(keccak256(name) || owner || secret). Hashing the name first fixes
// its width so no two inputs share a preimage.
func MakeCommitment(name names.Name, owner id.Address, secret []byte) Hash {
	label := sha3.NewLegacyKeccak256()
	label.Write([]byte(name))

	k := sha3.NewLegacyKeccak256()
	k.Write(label.Sum(nil))
	k.Write(owner.Bytes())
	k.Write(secret)
	var h Hash
	copy(h[:], k.Sum(nil))
	return h
}

// Commitment is a pending registration intent.
type Commitment struct {
	Hash      Hash
	Committer id.Address
	CreatedAt time.Time
	Deposit   *big.Int
}

// Age returns how long the commitment has been pending at now.
func (c *Commitment) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// Totals is the funds snapshot used for surplus accounting.
type Totals struct {
	Balance            *big.Int
	Deposits           *big.Int
	Escrows            *big.Int
	CommitmentDeposits *big.Int
}

// Earmarked is everything owed back to users.
func (t Totals) Earmarked() *big.Int {
	return id.Add(id.Add(t.Deposits, t.Escrows), t.CommitmentDeposits)
}

// Surplus is Balance minus Earmarked, floored at zero.
func (t Totals) Surplus() *big.Int {
	s := id.Sub(t.Balance, t.Earmarked())
	if s.Sign() < 0 {
		return id.Zero()
	}
	return s
}

// RegisterRequest carries the reveal step of commit-reveal.
type RegisterRequest struct {
	Name    string
	Owner   id.Address
	Secret  []byte
	Years   int
	Payment *big.Int
}

// DomainEvent describes a registration or release.
type DomainEvent struct {
	Name    names.Name
	Owner   id.Address
	TokenID uint64
	// Destroyed is set when the name token was burned (reclaim).
	Destroyed bool
}

// TransferEvent describes a change of registrant.
type TransferEvent struct {
	Name    names.Name
	From    id.Address
	To      id.Address
	TokenID uint64
}
