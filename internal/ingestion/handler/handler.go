// Package handler exposes page submission over HTTP for crawlers that do not
// write to Kafka directly.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/logger"
)

const maxRequestBytes = 6 << 20

type Handler struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(pub *publisher.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// SubmitPage handles POST /api/v1/pages.
func (h *Handler) SubmitPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingestion.SubmitPageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateSubmitRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.publisher.SubmitPage(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("page submission failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "page submission failed")
		return
	}
	log.Info("page queued",
		"page_id", resp.PageID,
		"event_id", resp.EventID,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
