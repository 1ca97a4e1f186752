package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/models"
	"github.com/markdave123-py/vectordb/internal/services"
)

type SearchHandler struct {
	docs   *services.DocumentService
	logger *zap.Logger
}

func NewSearchHandler(docs *services.DocumentService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{docs: docs, logger: logging.OrNop(logger)}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	hits, err := h.docs.Search(r.Context(), req.Query, req.Limit)
	if errors.Is(err, services.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}
