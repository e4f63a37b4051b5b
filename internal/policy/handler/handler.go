package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/requestcontext"
)

// Service defines the policy operations the handler needs.
type Service interface {
	Create(ctx context.Context, actor domain.Principal, req *models.CreatePolicyRequest) (*models.Policy, error)
	List(ctx context.Context, actor domain.Principal) ([]*models.Policy, error)
	Update(ctx context.Context, actor domain.Principal, id domain.PolicyID, req *models.UpdatePolicyRequest) (*models.Policy, error)
}

// Handler wires policy endpoints to the policy service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts policy endpoints. Routes expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/policy/add", h.HandleCreate)
	r.Get("/policy/list", h.HandleList)
	r.Patch("/policy/{policyId}", h.HandleUpdate)
}

// HandleCreate handles POST /policy/add.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreatePolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Create(ctx, requestcontext.Principal(ctx), req)
	if err != nil {
		h.logger.WarnContext(ctx, "policy creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &CreateResponse{PolicyID: p.ID})
}

// HandleList handles GET /policy/list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policies, err := h.service.List(ctx, requestcontext.Principal(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicies(policies))
}

// HandleUpdate handles PATCH /policy/{policyId}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParsePolicyID(chi.URLParam(r, "policyId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdatePolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Update(ctx, requestcontext.Principal(ctx), id, req)
	if err != nil {
		h.logger.WarnContext(ctx, "policy update failed",
			"request_id", requestID,
			"policy_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(p))
}
