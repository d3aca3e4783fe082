package club

import (
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

var (
	ErrClubExists           = dErrors.New(dErrors.CodeConflict, "club already exists for this name")
	ErrClubNotFound         = dErrors.New(dErrors.CodeNotFound, "club not found")
	ErrNotDomainOwner       = dErrors.New(dErrors.CodeForbidden, "caller is not the registrant of the domain")
	ErrDomainNotActive      = dErrors.New(dErrors.CodeInvalidState, "domain is not active")
	ErrNotClubAdmin         = dErrors.New(dErrors.CodeForbidden, "caller is not the club admin or contract owner")
	ErrInvalidAdmin         = dErrors.New(dErrors.CodeInvalidInput, "admin must not be the zero address")
	ErrInvalidMember        = dErrors.New(dErrors.CodeInvalidInput, "member must not be the zero address")
	ErrInvalidMetadata      = dErrors.New(dErrors.CodeValidation, "invalid club metadata")
	ErrNoPendingInheritance = dErrors.New(dErrors.CodeInvalidState, "club has no pending inheritance")
	ErrSourceUpdateFailed   = dErrors.New(dErrors.CodeDependency, "membership sources could not be updated")
)

const (
	maxMetadataField = 256
	maxDescription   = 2048
)

// Metadata describes a club for display.
type Metadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Media       string `json:"media,omitempty"`
	BaseURI     string `json:"base_uri,omitempty"`
}

func (m Metadata) Validate() error {
	for field, v := range map[string]string{"name": m.Name, "symbol": m.Symbol, "media": m.Media, "base_uri": m.BaseURI} {
		if utf8.RuneCountInString(v) > maxMetadataField {
			return dErrors.Wrap(ErrInvalidMetadata, dErrors.CodeValidation, fmt.Sprintf("%s is too long", field))
		}
	}
	if utf8.RuneCountInString(m.Description) > maxDescription {
		return dErrors.Wrap(ErrInvalidMetadata, dErrors.CodeValidation, "description is too long")
	}
	return nil
}

// Transition records how a club lost its domain.
type Transition struct {
	PreviousOwner  id.Address `json:"previous_owner"`
	OldTokenID     uint64     `json:"old_token_id"`
	TokenDestroyed bool       `json:"token_destroyed"`
	At             time.Time  `json:"at"`
}

// AdminChange is one entry in the admin history.
type AdminChange struct {
	From   id.Address `json:"from"`
	To     id.Address `json:"to"`
	Reason string     `json:"reason"`
	At     time.Time  `json:"at"`
}

const (
	reasonExplicit       = "explicit"
	reasonDomainTransfer = "domain_transfer"
	reasonReregistration = "reregistration"
)

// Record is the club bound to a domain name. Members only grow.
type Record struct {
	Name       names.Name    `json:"name"`
	Admin      id.Address    `json:"admin"`
	Registrant id.Address    `json:"registrant"`
	TokenID    uint64        `json:"token_id"`
	Active     bool          `json:"active"`
	Metadata   Metadata      `json:"metadata"`
	Members    []id.Address  `json:"members"`
	History    []AdminChange `json:"history"`
	// PendingInheritance is set after a change of registrant until the new
	// owner confirms.
	PendingInheritance bool        `json:"pending_inheritance"`
	LastTransition     *Transition `json:"last_transition,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Members = slices.Clone(r.Members)
	out.History = slices.Clone(r.History)
	if r.LastTransition != nil {
		t := *r.LastTransition
		out.LastTransition = &t
	}
	return &out
}

// lapsed reports whether the club was deactivated by its domain expiring
// while the name token survived.
func (r *Record) lapsed() bool {
	return !r.Active && !r.PendingInheritance && r.LastTransition != nil && !r.LastTransition.TokenDestroyed
}

func (r *Record) HasMember(user id.Address) bool {
	return slices.Contains(r.Members, user)
}

// addMember appends user and reports whether the roster grew.
func (r *Record) addMember(user id.Address) bool {
	if r.HasMember(user) {
		return false
	}
	r.Members = append(r.Members, user)
	return true
}

func (r *Record) changeAdmin(to id.Address, reason string, at time.Time) {
	if r.Admin == to {
		return
	}
	r.History = append(r.History, AdminChange{From: r.Admin, To: to, Reason: reason, At: at})
	r.Admin = to
}

// Step names a membership source initialization step.
type Step string

const (
	StepPermanentPass Step = "permanent_pass"
	StepSubscription  Step = "temporary_subscription"
	StepTokenGate     Step = "token_gate"
)

// InitError reports the step at which club initialization failed.
// Rollback holds failures of the compensating uninitialize calls, if any.
type InitError struct {
	Step     Step
	Err      error
	Rollback error
}

func (e *InitError) Error() string {
	if e.Rollback != nil {
		return fmt.Sprintf("club initialization failed at %s: %v (rollback: %v)", e.Step, e.Err, e.Rollback)
	}
	return fmt.Sprintf("club initialization failed at %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
