package assist

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/api"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/auth"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/completion"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/metrics"
	mw "github.com/JuJa1021101/Vue3-notebook-AI/internal/middleware"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/prompt"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/quota"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/relay"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/settings"
)

// processRequest is the body of POST /ai/{action}.
type processRequest struct {
	Content string                  `json:"content"`
	Options settings.RequestOptions `json:"options"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Process runs one AI action, answering as JSON or as an SSE stream.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	req := Request{
		RequestID: mw.GetRequestID(r.Context()),
		UserID:    userID,
		Action:    prompt.Action(chi.URLParam(r, "action")),
	}

	var body processRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.HandleError(w, toAppError(h.svc.Reject(r.Context(), req, ErrMalformedBody)))
		return
	}
	req.Content = body.Content
	req.Options = body.Options

	inv, err := h.svc.Prepare(r.Context(), req)
	if err != nil {
		api.HandleError(w, toAppError(err))
		return
	}

	if !inv.Stream() {
		out, err := h.svc.Run(r.Context(), inv)
		if err != nil {
			api.HandleError(w, toAppError(err))
			return
		}
		api.JSON(w, http.StatusOK, out)
		return
	}

	sse, err := relay.New(w, r)
	if err != nil {
		slog.Error("assist: opening stream", "request_id", inv.Request.RequestID, "error", err)
		h.svc.Abandon(r.Context(), inv, err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	defer sse.Close()
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	if err := h.svc.RunStream(r.Context(), inv, sse); err != nil && errors.Is(err, relay.ErrClientGone) {
		slog.Info("assist: client disconnected mid-stream", "request_id", inv.Request.RequestID, "user_id", userID)
	}
}

// GetSettings returns the caller's stored AI settings, creating defaults on first access.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	s, err := h.svc.GetSettings(r.Context(), userID)
	if err != nil {
		slog.Error("assist: loading settings", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, s)
}

// UpdateSettings applies a partial update; absent fields are left untouched.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		api.HandleError(w, api.NewBadRequestError("请求格式错误"))
		return
	}

	if err := h.svc.UpdateSettings(r.Context(), userID, patch); err != nil {
		var ve *settings.ValidationError
		if errors.As(err, &ve) {
			api.HandleError(w, api.NewValidationError(ve.Message))
			return
		}
		slog.Error("assist: updating settings", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONMessage(w, http.StatusOK, "设置已更新")
}

// Stats returns today's and this month's usage alongside the quota position.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	api.JSON(w, http.StatusOK, h.svc.Stats(r.Context(), userID))
}

func toAppError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return api.NewValidationError(ve.Message)
	}
	var qe *quota.ExceededError
	if errors.As(err, &qe) {
		return api.NewTooManyRequestsError(qe.Error())
	}
	var ce *completion.Error
	if errors.As(err, &ce) {
		return api.NewUpstreamError(FailureMessage(err))
	}
	return api.ErrInternalServer
}
