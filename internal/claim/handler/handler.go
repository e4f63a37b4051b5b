package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"claimdesk/internal/claim/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/httputil"
	platformstrings "claimdesk/pkg/platform/strings"
	"claimdesk/pkg/requestcontext"
)

// Service defines the claim operations the handler needs.
type Service interface {
	Submit(ctx context.Context, actor domain.Principal, req *models.SubmitClaimRequest) (*models.Claim, error)
	ListForUser(ctx context.Context, actor domain.Principal, userID domain.UserID) ([]*models.Claim, error)
	Get(ctx context.Context, actor domain.Principal, id domain.ClaimID) (*models.Detail, error)
	Transition(ctx context.Context, actor domain.Principal, id domain.ClaimID, req *models.TransitionRequest) (*models.Claim, error)
	Comment(ctx context.Context, actor domain.Principal, id domain.ClaimID, req *models.CommentRequest) (*models.Comment, error)
	Queue(ctx context.Context, actor domain.Principal, statuses []models.Status) ([]*models.Claim, error)
}

// Handler wires claim endpoints to the claim service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts claim endpoints. Routes expect RequireAuth upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claim/submit", h.HandleSubmit)
	r.Get("/claim/status/{userId}", h.HandleListForUser)
	r.Get("/claim/queue", h.HandleQueue)
	r.Get("/claim/{claimId}", h.HandleGet)
	r.Post("/claim/{claimId}/transition", h.HandleTransition)
	r.Post("/claim/{claimId}/comments", h.HandleComment)
}

// HandleSubmit handles POST /claim/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SubmitClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Submit(ctx, requestcontext.Principal(ctx), req)
	if err != nil {
		h.logger.WarnContext(ctx, "claim submission failed",
			"request_id", requestID,
			"user_id", req.UserID,
			"policy_id", req.PolicyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &SubmitResponse{ClaimID: c.ID, Status: c.Status})
}

// HandleListForUser handles GET /claim/status/{userId}.
func (h *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := domain.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.service.ListForUser(ctx, requestcontext.Principal(ctx), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaims(claims))
}

// HandleQueue handles GET /claim/queue. status may repeat or hold a comma-separated list.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses, err := parseStatuses(r.URL.Query()["status"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.service.Queue(ctx, requestcontext.Principal(ctx), statuses)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaims(claims))
}

func parseStatuses(values []string) ([]models.Status, error) {
	raw := platformstrings.SplitList(values)
	statuses := make([]models.Status, 0, len(raw))
	for _, v := range raw {
		s, err := models.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return platformstrings.Dedupe(statuses), nil
}

// HandleGet handles GET /claim/{claimId}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseClaimID(chi.URLParam(r, "claimId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Get(ctx, requestcontext.Principal(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDetail(detail))
}

// HandleTransition handles POST /claim/{claimId}/transition.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseClaimID(chi.URLParam(r, "claimId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Transition(ctx, requestcontext.Principal(ctx), id, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TransitionResponse{ID: c.ID, Status: c.Status})
}

// HandleComment handles POST /claim/{claimId}/comments.
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseClaimID(chi.URLParam(r, "claimId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CommentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	comment, err := h.service.Comment(ctx, requestcontext.Principal(ctx), id, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromComment(comment))
}
