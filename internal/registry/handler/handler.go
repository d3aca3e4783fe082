package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/platform/httputil"
	"clubdomains/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Commit(ctx context.Context, caller id.Address, hash registry.Hash, deposit *big.Int) error
	Register(ctx context.Context, caller id.Address, req registry.RegisterRequest) (*registry.Domain, error)
	Renew(ctx context.Context, caller id.Address, name string, years int, payment *big.Int) (*registry.Domain, error)
	FundAutoRenewal(ctx context.Context, caller id.Address, name string, amount *big.Int) (*big.Int, error)
	WithdrawAutoRenewal(ctx context.Context, caller id.Address, name string) (*big.Int, error)
	ExecuteAutoRenewal(ctx context.Context, name string) (*registry.Domain, error)
	Transfer(ctx context.Context, caller id.Address, name string, newOwner id.Address) (*registry.Domain, error)
	Reclaim(ctx context.Context, caller id.Address, name string) error
	Withdraw(ctx context.Context, caller id.Address) (*big.Int, error)
	Surplus(ctx context.Context) (*big.Int, error)
	WithdrawSurplus(ctx context.Context, caller id.Address) (*big.Int, error)
	Pause(ctx context.Context, caller id.Address) error
	Unpause(ctx context.Context, caller id.Address) error

	Get(ctx context.Context, name string) (*registry.Domain, error)
	Status(ctx context.Context, name string) (registry.Status, error)
	Deposit(ctx context.Context, owner id.Address) (*big.Int, error)
	Escrow(ctx context.Context, name string) (*big.Int, error)
	Price(name string, years int) (*big.Int, error)
	GracePeriod() time.Duration
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/domains/{name}", h.HandleGet)
	r.Get("/registry/domains/{name}/status", h.HandleStatus)
	r.Get("/registry/domains/{name}/price", h.HandlePrice)
	r.Get("/registry/domains/{name}/escrow", h.HandleEscrow)
	r.Get("/registry/deposits/{address}", h.HandleDeposit)
	r.Get("/registry/surplus", h.HandleSurplus)
	r.Post("/registry/commitments/compute", h.HandleMakeCommitment)
}

// RegisterAuthenticated mounts mutations. r must carry caller authentication.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/registry/commitments", h.HandleCommit)
	r.Post("/registry/domains", h.HandleRegister)
	r.Post("/registry/domains/{name}/renew", h.HandleRenew)
	r.Post("/registry/domains/{name}/escrow", h.HandleFundEscrow)
	r.Delete("/registry/domains/{name}/escrow", h.HandleWithdrawEscrow)
	r.Post("/registry/domains/{name}/auto-renew", h.HandleAutoRenew)
	r.Post("/registry/domains/{name}/transfer", h.HandleTransfer)
	r.Post("/registry/domains/{name}/reclaim", h.HandleReclaim)
	r.Post("/registry/withdrawals", h.HandleWithdraw)
	r.Post("/registry/surplus/withdraw", h.HandleWithdrawSurplus)
	r.Post("/registry/pause", h.HandlePause)
	r.Post("/registry/unpause", h.HandleUnpause)
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

// HandleCommit handles POST /registry/commitments.
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CommitRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.Commit(ctx, caller, req.hash, req.deposit); err != nil {
		h.fail(w, ctx, "commit", err, "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"commitment": req.hash.String()})
}

// HandleMakeCommitment handles POST /registry/commitments/compute. It only
// hashes its input; nothing is stored.
func (h *Handler) HandleMakeCommitment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[MakeCommitmentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hash := registry.MakeCommitment(req.name, req.owner, req.secret)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"commitment": hash.String()})
}

// HandleRegister handles POST /registry/domains.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	d, err := h.service.Register(ctx, caller, req.ToDomain())
	if err != nil {
		h.fail(w, ctx, "register", err, "name", req.Name, "caller", caller.String())
		return
	}
	h.logger.InfoContext(ctx, "domain registered",
		"request_id", requestcontext.RequestID(ctx),
		"name", string(d.Name),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDomain(d, registry.StatusActive))
}

// HandleRenew handles POST /registry/domains/{name}/renew.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RenewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	d, err := h.service.Renew(ctx, caller, name, req.Years, req.payment)
	if err != nil {
		h.fail(w, ctx, "renew", err, "name", name)
		return
	}
	h.writeDomain(w, ctx, d)
}

// HandleFundEscrow handles POST /registry/domains/{name}/escrow.
func (h *Handler) HandleFundEscrow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AmountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	escrow, err := h.service.FundAutoRenewal(ctx, caller, name, req.amount)
	if err != nil {
		h.fail(w, ctx, "fund escrow", err, "name", name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(escrow))
}

// HandleWithdrawEscrow handles DELETE /registry/domains/{name}/escrow.
func (h *Handler) HandleWithdrawEscrow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	paid, err := h.service.WithdrawAutoRenewal(ctx, caller, name)
	if err != nil {
		h.fail(w, ctx, "withdraw escrow", err, "name", name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}

// HandleAutoRenew handles POST /registry/domains/{name}/auto-renew. Any
// authenticated keeper may trigger it.
func (h *Handler) HandleAutoRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := httputil.RequireCaller(w, ctx); !ok {
		return
	}
	name := chi.URLParam(r, "name")
	d, err := h.service.ExecuteAutoRenewal(ctx, name)
	if err != nil {
		h.fail(w, ctx, "auto-renew", err, "name", name)
		return
	}
	h.writeDomain(w, ctx, d)
}

// HandleTransfer handles POST /registry/domains/{name}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	d, err := h.service.Transfer(ctx, caller, name, req.to)
	if err != nil {
		h.fail(w, ctx, "transfer", err, "name", name)
		return
	}
	h.writeDomain(w, ctx, d)
}

// HandleReclaim handles POST /registry/domains/{name}/reclaim.
func (h *Handler) HandleReclaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.service.Reclaim(ctx, caller, name); err != nil {
		h.fail(w, ctx, "reclaim", err, "name", name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWithdraw handles POST /registry/withdrawals.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	paid, err := h.service.Withdraw(ctx, caller)
	if err != nil {
		h.fail(w, ctx, "withdraw", err, "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}

// HandleWithdrawSurplus handles POST /registry/surplus/withdraw.
func (h *Handler) HandleWithdrawSurplus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	paid, err := h.service.WithdrawSurplus(ctx, caller)
	if err != nil {
		h.fail(w, ctx, "withdraw surplus", err, "caller", caller.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(paid))
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.Pause)
}

func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.Unpause)
}

func (h *Handler) togglePause(w http.ResponseWriter, r *http.Request, fn func(context.Context, id.Address) error) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	if err := fn(ctx, caller); err != nil {
		h.fail(w, ctx, "pause toggle", err, "caller", caller.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGet handles GET /registry/domains/{name}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	d, err := h.service.Get(ctx, name)
	if err != nil {
		h.fail(w, ctx, "get domain", err, "name", name)
		return
	}
	h.writeDomain(w, ctx, d)
}

// HandleStatus handles GET /registry/domains/{name}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	status, err := h.service.Status(ctx, name)
	if err != nil {
		h.fail(w, ctx, "domain status", err, "name", name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Name: name, Status: string(status)})
}

// HandlePrice handles GET /registry/domains/{name}/price?years=N.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	years := 1
	if raw := r.URL.Query().Get("years"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "years must be an integer"))
			return
		}
		years = n
	}
	price, err := h.service.Price(name, years)
	if err != nil {
		h.fail(w, ctx, "price", err, "name", name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(price))
}

// HandleEscrow handles GET /registry/domains/{name}/escrow.
func (h *Handler) HandleEscrow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	v, err := h.service.Escrow(ctx, name)
	if err != nil {
		h.fail(w, ctx, "escrow", err, "name", name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(v))
}

// HandleDeposit handles GET /registry/deposits/{address}.
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Deposit(ctx, owner)
	if err != nil {
		h.fail(w, ctx, "deposit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(v))
}

// HandleSurplus handles GET /registry/surplus.
func (h *Handler) HandleSurplus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := h.service.Surplus(ctx)
	if err != nil {
		h.fail(w, ctx, "surplus", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amount(v))
}

func (h *Handler) writeDomain(w http.ResponseWriter, ctx context.Context, d *registry.Domain) {
	status := d.StatusAt(requestcontext.Now(ctx), h.service.GracePeriod())
	httputil.WriteJSON(w, http.StatusOK, FromDomain(d, status))
}
