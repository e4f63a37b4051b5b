// Package admin exposes account management to administrators.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "claimdesk/internal/auth/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/requestcontext"
)

// Service is the slice of the auth service administrators drive.
type Service interface {
	SetRole(ctx context.Context, actor domain.Principal, userID domain.UserID, role string) (*authmodels.User, error)
	Disable(ctx context.Context, actor domain.Principal, userID domain.UserID) error
	Enable(ctx context.Context, actor domain.Principal, userID domain.UserID) error
	ListUsers(ctx context.Context, actor domain.Principal) ([]*authmodels.User, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts admin endpoints. Routes expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/users", h.HandleListUsers)
	r.Post("/admin/users/{userId}/role", h.HandleSetRole)
	r.Post("/admin/users/{userId}/disable", h.HandleDisable)
	r.Post("/admin/users/{userId}/enable", h.HandleEnable)
}

// HandleListUsers handles GET /admin/users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.service.ListUsers(ctx, requestcontext.Principal(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleSetRole handles POST /admin/users/{userId}/role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := domain.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[authmodels.SetRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.SetRole(ctx, requestcontext.Principal(ctx), userID, req.Role)
	if err != nil {
		h.logger.WarnContext(ctx, "role change failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(u))
}

// HandleDisable handles POST /admin/users/{userId}/disable.
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Disable(ctx, requestcontext.Principal(ctx), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEnable handles POST /admin/users/{userId}/enable.
func (h *Handler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Enable(ctx, requestcontext.Principal(ctx), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
