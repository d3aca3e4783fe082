// Package admin exposes operator endpoints: audit inspection, keeper triggers
// and the per-ledger pause switches.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/platform/httputil"
	"clubdomains/pkg/requestcontext"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
	defaultTokenTTL   = 24 * time.Hour
)

var ErrUnknownLedger = dErrors.New(dErrors.CodeNotFound, "unknown ledger")

// AuditReader is the read side of the audit store.
type AuditReader interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// TokenIssuer mints bearer tokens for a caller address.
type TokenIssuer interface {
	IssueCallerToken(caller id.Address, expiresIn time.Duration) (string, error)
}

// Job is a keeper pass that returns the number of records it changed.
type Job func(ctx context.Context) (int, error)

// Handler serves the operator API.
type Handler struct {
	audit    AuditReader
	jobs     map[string]Job
	switches map[string]*pause.Switch
	tokens   TokenIssuer
	logger   *slog.Logger
}

type Option func(*Handler)

// WithTokenIssuer enables POST /admin/tokens.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(h *Handler) { h.tokens = issuer }
}

// New builds the handler. jobs are keyed by the path segment used to trigger
// them; switches are keyed by their ledger name.
func New(auditReader AuditReader, jobs map[string]Job, switches []*pause.Switch, logger *slog.Logger, opts ...Option) *Handler {
	byName := make(map[string]*pause.Switch, len(switches))
	for _, sw := range switches {
		byName[sw.Name()] = sw
	}
	h := &Handler{audit: auditReader, jobs: jobs, switches: byName, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterOperator mounts endpoints guarded by the admin token.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Get("/admin/audit", h.HandleListAudit)
	r.Get("/admin/pause", h.HandleListPause)
	r.Post("/admin/keeper/{job}", h.HandleRunJob)
	if h.tokens != nil {
		r.Post("/admin/tokens", h.HandleIssueToken)
	}
}

// RegisterAuthenticated mounts the owner-only pause toggles. The contract owner
// is checked by the switch itself.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/pause/{ledger}", h.HandlePause)
	r.Delete("/pause/{ledger}", h.HandleUnpause)
}

// HandleListAudit handles GET /admin/audit?subject=&limit=.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if subject := r.URL.Query().Get("subject"); subject != "" {
		events, err := h.audit.ListBySubject(ctx, subject)
		if err != nil {
			h.fail(w, ctx, "list audit", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, fromEvents(events))
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}
	events, err := h.audit.ListRecent(ctx, limit)
	if err != nil {
		h.fail(w, ctx, "list audit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEvents(events))
}

// HandleRunJob handles POST /admin/keeper/{job}.
func (h *Handler) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "job")
	job, ok := h.jobs[name]
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown keeper job"))
		return
	}
	n, err := job(ctx)
	if err != nil {
		h.fail(w, ctx, "keeper "+name, err)
		return
	}
	h.logger.InfoContext(ctx, "keeper run",
		"request_id", requestcontext.RequestID(ctx),
		"job", name,
		"processed", n,
	)
	httputil.WriteJSON(w, http.StatusOK, KeeperResponse{Job: name, Processed: n})
}

// HandleIssueToken handles POST /admin/tokens. Operators use it to hand out
// caller credentials; there is no self-service login.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	ttl := defaultTokenTTL
	if req.ttl > 0 {
		ttl = req.ttl
	}
	token, err := h.tokens.IssueCallerToken(req.caller, ttl)
	if err != nil {
		h.fail(w, ctx, "issue token", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}
	h.logger.InfoContext(ctx, "caller token issued",
		"request_id", requestcontext.RequestID(ctx),
		"event", "token_issued",
		"log_type", "audit",
		"caller", req.caller.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}

// HandleListPause handles GET /admin/pause.
func (h *Handler) HandleListPause(w http.ResponseWriter, _ *http.Request) {
	out := make([]PauseResponse, 0, len(h.switches))
	for name, sw := range h.switches {
		out = append(out, PauseResponse{Ledger: name, Paused: sw.Paused()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ledger < out[j].Ledger })
	httputil.WriteJSON(w, http.StatusOK, PauseListResponse{Ledgers: out})
}

// HandlePause handles POST /pause/{ledger}.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// HandleUnpause handles DELETE /pause/{ledger}.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, paused bool) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name := chi.URLParam(r, "ledger")
	sw, ok := h.switches[name]
	if !ok {
		httputil.WriteError(w, ErrUnknownLedger)
		return
	}
	var err error
	if paused {
		err = sw.Pause(caller)
	} else {
		err = sw.Unpause(caller)
	}
	if err != nil {
		h.fail(w, ctx, "toggle pause", err, "ledger", name, "caller", caller.String())
		return
	}
	h.logger.InfoContext(ctx, "pause switch changed",
		"request_id", requestcontext.RequestID(ctx),
		"event", "pause_toggled",
		"log_type", "audit",
		"ledger", name,
		"paused", paused,
	)
	httputil.WriteJSON(w, http.StatusOK, PauseResponse{Ledger: name, Paused: sw.Paused()})
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
