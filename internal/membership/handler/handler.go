// Package handler exposes the membership sources and the aggregated
// membership view over HTTP.
package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubdomains/internal/membership/aggregator"
	"clubdomains/internal/membership/crosschain"
	"clubdomains/internal/membership/subscription"
	"clubdomains/internal/membership/tokengate"
	"clubdomains/internal/oracle"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/httputil"
	"clubdomains/pkg/requestcontext"
)

type Classifier interface {
	Classify(ctx context.Context, name names.Name, user id.Address) aggregator.Classification
	Details(ctx context.Context, name names.Name, user id.Address) aggregator.Details
	IsMember(ctx context.Context, name names.Name, user id.Address) bool
}

type PassService interface {
	SetPrice(ctx context.Context, caller id.Address, name names.Name, price *big.Int) error
	SetTransferPolicy(ctx context.Context, caller id.Address, name names.Name, allowed bool) error
	SetWhitelisted(ctx context.Context, caller id.Address, name names.Name, addr id.Address, allowed bool) error
	Mint(ctx context.Context, caller id.Address, name names.Name, to id.Address) (uint64, error)
	Purchase(ctx context.Context, buyer id.Address, name names.Name, payment *big.Int) (uint64, error)
	Transfer(ctx context.Context, caller id.Address, name names.Name, tokenID uint64, to id.Address) error
	WithdrawProceeds(ctx context.Context, caller id.Address, name names.Name) (*big.Int, error)
	HolderOf(ctx context.Context, name names.Name, tokenID uint64) (id.Address, error)
}

type SubscriptionService interface {
	SetTierPrice(ctx context.Context, caller id.Address, name names.Name, tier subscription.Tier, price *big.Int) error
	SetReceiver(ctx context.Context, caller id.Address, name names.Name, receiver id.Address) error
	Purchase(ctx context.Context, buyer id.Address, name names.Name, tier subscription.Tier, payment *big.Int) (time.Time, error)
	WithdrawPayout(ctx context.Context, caller id.Address, name names.Name) (*big.Int, error)
	WithdrawPlatformFees(ctx context.Context, caller id.Address, name names.Name) (*big.Int, error)
	Expiry(ctx context.Context, name names.Name, user id.Address) (time.Time, bool, error)
}

type GateService interface {
	AddGate(ctx context.Context, caller id.Address, name names.Name, gate tokengate.Gate) (tokengate.Gate, error)
	RemoveGate(ctx context.Context, caller id.Address, name names.Name, gateID uuid.UUID) error
	Gates(ctx context.Context, name names.Name) ([]tokengate.Gate, error)
}

type CrossChainService interface {
	RequestVerification(ctx context.Context, caller id.Address, name names.Name, chainID uint64, tokenAddress string, fee *big.Int) (oracle.VerificationRequest, error)
	AllowOracle(ctx context.Context, caller, oracleAddr id.Address) error
	RevokeOracle(ctx context.Context, caller, oracleAddr id.Address) error
	WithdrawFees(ctx context.Context, caller id.Address) (*big.Int, error)
	VerificationFee() *big.Int
	Records(ctx context.Context, name names.Name, user id.Address) ([]*crosschain.Record, error)
}

// Handler wires the membership endpoints. Every service is required.
type Handler struct {
	members       Classifier
	passes        PassService
	subscriptions SubscriptionService
	gates         GateService
	crossChain    CrossChainService
	logger        *slog.Logger
}

func New(members Classifier, passes PassService, subscriptions SubscriptionService, gates GateService, crossChain CrossChainService, logger *slog.Logger) *Handler {
	return &Handler{
		members:       members,
		passes:        passes,
		subscriptions: subscriptions,
		gates:         gates,
		crossChain:    crossChain,
		logger:        logger,
	}
}

// Register mounts the public read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/clubs/{name}/members/{address}", h.HandleMembership)
	r.Get("/clubs/{name}/passes/{tokenID}", h.HandlePassHolder)
	r.Get("/clubs/{name}/subscriptions/{address}", h.HandleSubscription)
	r.Get("/clubs/{name}/gates", h.HandleGates)
	r.Get("/clubs/{name}/crosschain/{address}", h.HandleCrossChainRecords)
	r.Get("/crosschain/fee", h.HandleVerificationFee)
}

// RegisterAuthenticated mounts mutations. r must carry caller authentication.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Put("/clubs/{name}/passes/price", h.HandleSetPassPrice)
	r.Put("/clubs/{name}/passes/transfer-policy", h.HandleSetTransferPolicy)
	r.Put("/clubs/{name}/passes/whitelist", h.HandleSetWhitelisted)
	r.Post("/clubs/{name}/passes/mint", h.HandleMint)
	r.Post("/clubs/{name}/passes", h.HandlePurchasePass)
	r.Post("/clubs/{name}/passes/{tokenID}/transfer", h.HandleTransferPass)
	r.Post("/clubs/{name}/passes/withdraw", h.HandleWithdrawProceeds)

	r.Put("/clubs/{name}/subscriptions/prices", h.HandleSetTierPrice)
	r.Put("/clubs/{name}/subscriptions/receiver", h.HandleSetReceiver)
	r.Post("/clubs/{name}/subscriptions", h.HandleSubscribe)
	r.Post("/clubs/{name}/subscriptions/withdraw", h.HandleWithdrawPayout)
	r.Post("/clubs/{name}/subscriptions/platform-fees/withdraw", h.HandleWithdrawPlatformFees)

	r.Post("/clubs/{name}/gates", h.HandleAddGate)
	r.Delete("/clubs/{name}/gates/{gateID}", h.HandleRemoveGate)

	r.Post("/clubs/{name}/crosschain/verifications", h.HandleRequestVerification)
	r.Post("/crosschain/oracles", h.HandleAllowOracle)
	r.Delete("/crosschain/oracles/{address}", h.HandleRevokeOracle)
	r.Post("/crosschain/fees/withdraw", h.HandleWithdrawFees)
}

func (h *Handler) fail(w http.ResponseWriter, ctx context.Context, op string, err error, attrs ...any) {
	args := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, op+" failed", args...)
	} else {
		h.logger.WarnContext(ctx, op+" rejected", args...)
	}
	httputil.WriteError(w, err)
}

func nameParam(w http.ResponseWriter, r *http.Request) (names.Name, bool) {
	name, err := names.Parse(chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return name, true
}

func addressParam(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ZeroAddress, false
	}
	return addr, true
}

func tokenIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, "tokenID"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "token id must be an unsigned integer"))
		return 0, false
	}
	return n, true
}

// callerAndName resolves the authenticated caller and the club name, writing
// the error response when either is missing.
func callerAndName(w http.ResponseWriter, r *http.Request) (id.Address, names.Name, bool) {
	caller, ok := httputil.RequireCaller(w, r.Context())
	if !ok {
		return id.ZeroAddress, "", false
	}
	name, ok := nameParam(w, r)
	if !ok {
		return id.ZeroAddress, "", false
	}
	return caller, name, true
}

// -----------------------------------------------------------------------------
// Aggregated view
// -----------------------------------------------------------------------------

// HandleMembership handles GET /clubs/{name}/members/{address}. Failing
// sources count as non-membership, so this never errors on a valid request.
func (h *Handler) HandleMembership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	user, ok := addressParam(w, r)
	if !ok {
		return
	}
	c := h.members.Classify(ctx, name, user)
	httputil.WriteJSON(w, http.StatusOK, MembershipResponse{
		Name:           string(name),
		User:           user.String(),
		IsMember:       c.IsMember,
		Classification: c,
		Details:        h.members.Details(ctx, name, user),
	})
}

// -----------------------------------------------------------------------------
// Permanent passes
// -----------------------------------------------------------------------------

// HandlePassHolder handles GET /clubs/{name}/passes/{tokenID}.
func (h *Handler) HandlePassHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	tokenID, ok := tokenIDParam(w, r)
	if !ok {
		return
	}
	holder, err := h.passes.HolderOf(ctx, name, tokenID)
	if err != nil {
		h.fail(w, ctx, "pass holder", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PassResponse{Name: string(name), TokenID: tokenID, Holder: holder.String()})
}

// HandleSetPassPrice handles PUT /clubs/{name}/passes/price.
func (h *Handler) HandleSetPassPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PriceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.passes.SetPrice(ctx, caller, name, req.price); err != nil {
		h.fail(w, ctx, "set pass price", err, "name", string(name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetTransferPolicy handles PUT /clubs/{name}/passes/transfer-policy.
func (h *Handler) HandleSetTransferPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferPolicyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.passes.SetTransferPolicy(ctx, caller, name, req.Allowed); err != nil {
		h.fail(w, ctx, "set transfer policy", err, "name", string(name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetWhitelisted handles PUT /clubs/{name}/passes/whitelist.
func (h *Handler) HandleSetWhitelisted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[WhitelistRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.passes.SetWhitelisted(ctx, caller, name, req.address, req.Allowed); err != nil {
		h.fail(w, ctx, "set whitelist", err, "name", string(name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMint handles POST /clubs/{name}/passes/mint.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddressRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	tokenID, err := h.passes.Mint(ctx, caller, name, req.address)
	if err != nil {
		h.fail(w, ctx, "mint pass", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, PassResponse{Name: string(name), TokenID: tokenID, Holder: req.address.String()})
}

// HandlePurchasePass handles POST /clubs/{name}/passes.
func (h *Handler) HandlePurchasePass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PaymentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	tokenID, err := h.passes.Purchase(ctx, caller, name, req.payment)
	if err != nil {
		h.fail(w, ctx, "purchase pass", err, "name", string(name), "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, PassResponse{Name: string(name), TokenID: tokenID, Holder: caller.String()})
}

// HandleTransferPass handles POST /clubs/{name}/passes/{tokenID}/transfer.
func (h *Handler) HandleTransferPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	tokenID, ok := tokenIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddressRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.passes.Transfer(ctx, caller, name, tokenID, req.address); err != nil {
		h.fail(w, ctx, "transfer pass", err, "name", string(name), "token_id", tokenID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PassResponse{Name: string(name), TokenID: tokenID, Holder: req.address.String()})
}

// HandleWithdrawProceeds handles POST /clubs/{name}/passes/withdraw.
func (h *Handler) HandleWithdrawProceeds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	paid, err := h.passes.WithdrawProceeds(ctx, caller, name)
	if err != nil {
		h.fail(w, ctx, "withdraw pass proceeds", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// HandleSubscription handles GET /clubs/{name}/subscriptions/{address}.
func (h *Handler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	user, ok := addressParam(w, r)
	if !ok {
		return
	}
	expiry, known, err := h.subscriptions.Expiry(ctx, name, user)
	if err != nil {
		h.fail(w, ctx, "subscription lookup", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubscriptionResponse{
		Name:   string(name),
		User:   user.String(),
		Expiry: expiry,
		Active: known && requestcontext.Now(ctx).Before(expiry),
		Known:  known,
	})
}

// HandleSetTierPrice handles PUT /clubs/{name}/subscriptions/prices.
func (h *Handler) HandleSetTierPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TierPriceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.subscriptions.SetTierPrice(ctx, caller, name, req.tier, req.price); err != nil {
		h.fail(w, ctx, "set tier price", err, "name", string(name), "tier", string(req.tier))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetReceiver handles PUT /clubs/{name}/subscriptions/receiver.
func (h *Handler) HandleSetReceiver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddressRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.subscriptions.SetReceiver(ctx, caller, name, req.address); err != nil {
		h.fail(w, ctx, "set receiver", err, "name", string(name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubscribe handles POST /clubs/{name}/subscriptions.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubscribeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	expiry, err := h.subscriptions.Purchase(ctx, caller, name, req.tier, req.payment)
	if err != nil {
		h.fail(w, ctx, "subscribe", err, "name", string(name), "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubscriptionResponse{
		Name:   string(name),
		User:   caller.String(),
		Expiry: expiry,
		Active: true,
		Known:  true,
	})
}

// HandleWithdrawPayout handles POST /clubs/{name}/subscriptions/withdraw.
func (h *Handler) HandleWithdrawPayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	paid, err := h.subscriptions.WithdrawPayout(ctx, caller, name)
	if err != nil {
		h.fail(w, ctx, "withdraw subscription payout", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}

// HandleWithdrawPlatformFees handles POST /clubs/{name}/subscriptions/platform-fees/withdraw.
func (h *Handler) HandleWithdrawPlatformFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	paid, err := h.subscriptions.WithdrawPlatformFees(ctx, caller, name)
	if err != nil {
		h.fail(w, ctx, "withdraw platform fees", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}

// -----------------------------------------------------------------------------
// Token gates
// -----------------------------------------------------------------------------

// HandleGates handles GET /clubs/{name}/gates.
func (h *Handler) HandleGates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	gates, err := h.gates.Gates(ctx, name)
	if err != nil {
		h.fail(w, ctx, "list gates", err, "name", string(name))
		return
	}
	if gates == nil {
		gates = []tokengate.Gate{}
	}
	httputil.WriteJSON(w, http.StatusOK, GatesResponse{Name: string(name), Gates: gates})
}

// HandleAddGate handles POST /clubs/{name}/gates.
func (h *Handler) HandleAddGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	gate, err := h.gates.AddGate(ctx, caller, name, req.gate)
	if err != nil {
		h.fail(w, ctx, "add gate", err, "name", string(name), "kind", string(req.gate.Kind))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, gate)
}

// HandleRemoveGate handles DELETE /clubs/{name}/gates/{gateID}.
func (h *Handler) HandleRemoveGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	gateID, err := uuid.Parse(chi.URLParam(r, "gateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "gate id must be a uuid"))
		return
	}
	if err := h.gates.RemoveGate(ctx, caller, name, gateID); err != nil {
		h.fail(w, ctx, "remove gate", err, "name", string(name), "gate_id", gateID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Cross-chain verification
// -----------------------------------------------------------------------------

// HandleCrossChainRecords handles GET /clubs/{name}/crosschain/{address}.
func (h *Handler) HandleCrossChainRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	user, ok := addressParam(w, r)
	if !ok {
		return
	}
	records, err := h.crossChain.Records(ctx, name, user)
	if err != nil {
		h.fail(w, ctx, "cross-chain records", err, "name", string(name))
		return
	}
	if records == nil {
		records = []*crosschain.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, CrossChainResponse{Name: string(name), User: user.String(), Records: records})
}

// HandleVerificationFee handles GET /crosschain/fee.
func (h *Handler) HandleVerificationFee(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, amount(h.crossChain.VerificationFee()))
}

// HandleRequestVerification handles POST /clubs/{name}/crosschain/verifications.
func (h *Handler) HandleRequestVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, name, ok := callerAndName(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerificationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	published, err := h.crossChain.RequestVerification(ctx, caller, name, req.ChainID, req.TokenAddress, req.fee)
	if err != nil {
		h.fail(w, ctx, "request verification", err, "name", string(name), "chain_id", req.ChainID)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, VerificationResponse{ID: published.ID.String(), Sequence: published.Sequence})
}

// HandleAllowOracle handles POST /crosschain/oracles.
func (h *Handler) HandleAllowOracle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddressRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.crossChain.AllowOracle(ctx, caller, req.address); err != nil {
		h.fail(w, ctx, "allow oracle", err, "oracle", req.address.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeOracle handles DELETE /crosschain/oracles/{address}.
func (h *Handler) HandleRevokeOracle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	oracleAddr, ok := addressParam(w, r)
	if !ok {
		return
	}
	if err := h.crossChain.RevokeOracle(ctx, caller, oracleAddr); err != nil {
		h.fail(w, ctx, "revoke oracle", err, "oracle", oracleAddr.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWithdrawFees handles POST /crosschain/fees/withdraw.
func (h *Handler) HandleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	paid, err := h.crossChain.WithdrawFees(ctx, caller)
	if err != nil {
		h.fail(w, ctx, "withdraw verification fees", err, "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}
