package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryLedger covers value-moving or ownership-changing actions:
	// registrations, renewals, withdrawals, admin transfers.
	CategoryLedger EventCategory = "ledger"

	// CategorySecurity covers privileged or rejected actions worth alerting on:
	// pauses, oracle allow-list changes, ignored revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the canonical club or domain name the event concerns.
	Subject string
	Action  string
	// Actor is the address that performed the action.
	Actor string
	// Target is the address affected when different from Actor
	// (new owner, new admin, member).
	Target    string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	// Registry events
	EventDomainCommitted   AuditEvent = "domain_committed"
	EventDomainRegistered  AuditEvent = "domain_registered"
	EventDomainRenewed     AuditEvent = "domain_renewed"
	EventDomainAutoRenewed AuditEvent = "domain_auto_renewed"
	EventDomainTransferred AuditEvent = "domain_transferred"
	EventDomainReclaimed   AuditEvent = "domain_reclaimed"
	EventEscrowFunded      AuditEvent = "escrow_funded"
	EventEscrowWithdrawn   AuditEvent = "escrow_withdrawn"
	EventDepositWithdrawn  AuditEvent = "deposit_withdrawn"
	EventSurplusWithdrawn  AuditEvent = "surplus_withdrawn"
	EventListenerFailed    AuditEvent = "domain_listener_failed"
	EventContractPaused    AuditEvent = "contract_paused"
	EventContractUnpaused  AuditEvent = "contract_unpaused"

	// Club events
	EventClubCreated                 AuditEvent = "club_created"
	EventClubInitRolledBack          AuditEvent = "club_init_rolled_back"
	EventClubAdminTransferred        AuditEvent = "club_admin_transferred"
	EventClubInheritancePending      AuditEvent = "club_inheritance_pending"
	EventClubInheritanceConfirmed    AuditEvent = "club_inheritance_confirmed"
	EventClubDeactivated             AuditEvent = "club_deactivated"
	EventClubReactivated             AuditEvent = "club_reactivated"
	EventMemberAdded                 AuditEvent = "member_added"
	EventMembershipRevocationIgnored AuditEvent = "membership_revocation_ignored"

	// Membership source events
	EventPassMinted            AuditEvent = "pass_minted"
	EventPassPurchased         AuditEvent = "pass_purchased"
	EventPassTransferred       AuditEvent = "pass_transferred"
	EventSubscriptionPurchased AuditEvent = "subscription_purchased"
	EventGateAdded             AuditEvent = "gate_added"
	EventGateRemoved           AuditEvent = "gate_removed"
	EventVerificationRequested AuditEvent = "verification_requested"
	EventVerificationSubmitted AuditEvent = "verification_submitted"
	EventVerificationRevoked   AuditEvent = "verification_revoked"
	EventOracleAllowed         AuditEvent = "oracle_allowed"
	EventOracleRevoked         AuditEvent = "oracle_revoked"
	EventFeesWithdrawn         AuditEvent = "verification_fees_withdrawn"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDomainRegistered:      CategoryLedger,
	EventDomainRenewed:         CategoryLedger,
	EventDomainAutoRenewed:     CategoryLedger,
	EventDomainTransferred:     CategoryLedger,
	EventDomainReclaimed:       CategoryLedger,
	EventEscrowFunded:          CategoryLedger,
	EventEscrowWithdrawn:       CategoryLedger,
	EventDepositWithdrawn:      CategoryLedger,
	EventSurplusWithdrawn:      CategoryLedger,
	EventClubAdminTransferred:  CategoryLedger,
	EventPassPurchased:         CategoryLedger,
	EventPassTransferred:       CategoryLedger,
	EventSubscriptionPurchased: CategoryLedger,
	EventFeesWithdrawn:         CategoryLedger,

	EventContractPaused:              CategorySecurity,
	EventContractUnpaused:            CategorySecurity,
	EventOracleAllowed:               CategorySecurity,
	EventOracleRevoked:               CategorySecurity,
	EventMembershipRevocationIgnored: CategorySecurity,
	EventListenerFailed:              CategorySecurity,
	EventClubInitRolledBack:          CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher accepts audit events from services.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
