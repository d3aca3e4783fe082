package oracle

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/httputil"
	"clubdomains/pkg/requestcontext"
)

const defaultPollLimit = 100

// RequestFeed lists published requests by sequence.
type RequestFeed interface {
	Since(after uint64, limit int) []VerificationRequest
}

// Handler exposes the polling feed and the oracle write-back endpoint.
type Handler struct {
	feed      RequestFeed
	submitter Submitter
	logger    *slog.Logger
}

func NewHandler(feed RequestFeed, submitter Submitter, logger *slog.Logger) *Handler {
	return &Handler{feed: feed, submitter: submitter, logger: logger}
}

// Register mounts the public request feed.
func (h *Handler) Register(r chi.Router) {
	r.Get("/oracle/requests", h.HandleListRequests)
}

// RegisterAuthenticated mounts the write-back endpoint. The caller is the oracle.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/oracle/verifications", h.HandleSubmit)
}

// HandleListRequests handles GET /oracle/requests?after=N&limit=M.
func (h *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	after, err := parseUint(r.URL.Query().Get("after"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "after must be a non-negative integer"))
		return
	}
	limit := defaultPollLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}
	requests := h.feed.Since(after, limit)
	if requests == nil {
		requests = []VerificationRequest{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// SubmitRequest is the body for POST /oracle/verifications.
type SubmitRequest struct {
	Name         string `json:"name"`
	User         string `json:"user"`
	ChainID      uint64 `json:"chain_id"`
	TokenAddress string `json:"token_address"`
	Balance      string `json:"balance"`

	name    names.Name
	user    id.Address
	balance *big.Int
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	name, err := names.Parse(r.Name)
	if err != nil {
		return err
	}
	user, err := id.ParseAddress(r.User)
	if err != nil {
		return err
	}
	if r.Balance == "" {
		return dErrors.New(dErrors.CodeValidation, "balance is required")
	}
	balance, err := id.ParseAmount(r.Balance)
	if err != nil {
		return err
	}
	r.name, r.user, r.balance = name, user, balance
	return nil
}

// HandleSubmit handles POST /oracle/verifications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	oracle, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	stored, err := h.submitter.SubmitVerification(ctx, oracle, req.user, req.name, req.ChainID, req.TokenAddress, req.balance)
	if err != nil {
		h.fail(ctx, w, err, "oracle", oracle.String(), "name", string(req.name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"stored": stored})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, attrs ...any) {
	args := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "verification write-back failed", args...)
	} else {
		h.logger.WarnContext(ctx, "verification write-back rejected", args...)
	}
	httputil.WriteError(w, err)
}

func parseUint(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
