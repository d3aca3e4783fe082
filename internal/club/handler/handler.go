package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clubdomains/internal/club"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/httputil"
	"clubdomains/pkg/requestcontext"
)

// Service defines the club operations exposed over HTTP.
type Service interface {
	CreateClub(ctx context.Context, caller id.Address, name names.Name, admin id.Address, meta club.Metadata) (*club.Record, error)
	TransferAdmin(ctx context.Context, caller id.Address, name names.Name, newAdmin id.Address) (*club.Record, error)
	ConfirmInheritance(ctx context.Context, caller id.Address, name names.Name) (*club.Record, error)
	UpdateMetadata(ctx context.Context, caller id.Address, name names.Name, meta club.Metadata) (*club.Record, error)
	HandleDomainExpiry(ctx context.Context, name names.Name) (bool, error)
	AddMember(ctx context.Context, caller id.Address, name names.Name, user id.Address) (bool, error)
	RemoveMember(ctx context.Context, caller id.Address, name names.Name, user id.Address) error

	Get(ctx context.Context, name names.Name) (*club.Record, error)
	Members(ctx context.Context, name names.Name) ([]id.Address, error)
	IsRosterMember(ctx context.Context, name names.Name, user id.Address) (bool, error)
}

// Handler wires club endpoints to the club registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/clubs/{name}", h.HandleGet)
	r.Get("/clubs/{name}/roster", h.HandleMembers)
	r.Get("/clubs/{name}/roster/{address}", h.HandleRosterMember)
}

// RegisterAuthenticated mounts mutations. r must carry caller authentication.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/clubs", h.HandleCreate)
	r.Post("/clubs/{name}/admin", h.HandleTransferAdmin)
	r.Post("/clubs/{name}/inheritance/confirm", h.HandleConfirmInheritance)
	r.Put("/clubs/{name}/metadata", h.HandleUpdateMetadata)
	r.Post("/clubs/{name}/expiry", h.HandleExpiry)
	r.Post("/clubs/{name}/roster", h.HandleAddMember)
	r.Delete("/clubs/{name}/roster/{address}", h.HandleRemoveMember)
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

// HandleCreate handles POST /clubs.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	admin := req.admin
	if admin.IsZero() {
		admin = caller
	}
	rec, err := h.service.CreateClub(ctx, caller, req.name, admin, req.Metadata)
	if err != nil {
		h.fail(w, ctx, "create club", err, "name", string(req.name), "caller", caller.String())
		return
	}
	h.logger.InfoContext(ctx, "club created",
		"request_id", requestcontext.RequestID(ctx),
		"name", string(rec.Name),
		"admin", rec.Admin.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleTransferAdmin handles POST /clubs/{name}/admin.
func (h *Handler) HandleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdminRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.service.TransferAdmin(ctx, caller, name, req.admin)
	if err != nil {
		h.fail(w, ctx, "transfer club admin", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleConfirmInheritance handles POST /clubs/{name}/inheritance/confirm.
func (h *Handler) HandleConfirmInheritance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	rec, err := h.service.ConfirmInheritance(ctx, caller, name)
	if err != nil {
		h.fail(w, ctx, "confirm inheritance", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleUpdateMetadata handles PUT /clubs/{name}/metadata.
func (h *Handler) HandleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MetadataRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.service.UpdateMetadata(ctx, caller, name, req.Metadata)
	if err != nil {
		h.fail(w, ctx, "update metadata", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleExpiry handles POST /clubs/{name}/expiry. Any authenticated keeper
// may trigger the sync with the domain's status.
func (h *Handler) HandleExpiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := httputil.RequireCaller(w, ctx); !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	changed, err := h.service.HandleDomainExpiry(ctx, name)
	if err != nil {
		h.fail(w, ctx, "domain expiry", err, "name", string(name))
		return
	}
	rec, err := h.service.Get(ctx, name)
	if err != nil {
		h.fail(w, ctx, "get club", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ExpiryResponse{Name: string(name), Changed: changed, Active: rec.Active})
}

// HandleAddMember handles POST /clubs/{name}/roster.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MemberRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	added, err := h.service.AddMember(ctx, caller, name, req.member)
	if err != nil {
		h.fail(w, ctx, "add member", err, "name", string(name))
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, RosterResponse{Name: string(name), User: req.member.String(), Member: true})
}

// HandleRemoveMember handles DELETE /clubs/{name}/roster/{address}. The
// roster never shrinks, so a permitted call still leaves the member listed.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := httputil.RequireCaller(w, ctx)
	if !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	user, ok := addressParam(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveMember(ctx, caller, name, user); err != nil {
		h.fail(w, ctx, "remove member", err, "name", string(name))
		return
	}
	h.writeRoster(w, ctx, name, user)
}

// HandleGet handles GET /clubs/{name}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(ctx, name)
	if err != nil {
		h.fail(w, ctx, "get club", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleMembers handles GET /clubs/{name}/roster.
func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	members, err := h.service.Members(ctx, name)
	if err != nil {
		h.fail(w, ctx, "list members", err, "name", string(name))
		return
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.String())
	}
	httputil.WriteJSON(w, http.StatusOK, MembersResponse{Name: string(name), Members: out})
}

// HandleRosterMember handles GET /clubs/{name}/roster/{address}.
func (h *Handler) HandleRosterMember(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	user, ok := addressParam(w, r)
	if !ok {
		return
	}
	h.writeRoster(w, r.Context(), name, user)
}

func (h *Handler) writeRoster(w http.ResponseWriter, ctx context.Context, name names.Name, user id.Address) {
	member, err := h.service.IsRosterMember(ctx, name, user)
	if err != nil {
		h.fail(w, ctx, "roster lookup", err, "name", string(name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RosterResponse{Name: string(name), User: user.String(), Member: member})
}
