// Package handler exposes the section service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/logger"
)

type Handler struct {
	service *sections.Service
	logger  *slog.Logger
}

func New(service *sections.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default().With("component", "section-handler"),
	}
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Grantbot Backend API",
		"status":  "running",
	})
}

// Generate handles POST /generate-section.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := validator.DecodeGenerateRequest(r.Body)
	if err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			log.Debug("rejected generate request", "error", err)
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": ve.Detail,
				"fields": ve.Fields,
			})
			return
		}
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := h.service.Generate(ctx, *req)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Warn("section generation failed", "error", err, "status_code", status)
		}
		h.writeError(w, status, apperrors.Message(err, apperrors.ErrInternal.Error()))
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// History handles GET /history/{company_id}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.History(r.PathValue("company_id")))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}
