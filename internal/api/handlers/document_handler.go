package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/core/ingestion_engine"
	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/models"
	"github.com/markdave123-py/vectordb/internal/services"
)

// JobQueue is the part of the background queue the API needs.
type JobQueue interface {
	Enqueue(path string) (string, error)
	Status(id string) (ingestion_engine.Job, bool)
}

type DocumentHandler struct {
	docs   *services.DocumentService
	jobs   JobQueue
	logger *zap.Logger
}

func NewDocumentHandler(docs *services.DocumentService, jobs JobQueue, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, jobs: jobs, logger: logging.OrNop(logger)}
}

type ingestRequest struct {
	Path string `json:"path"`
}

// IngestPath queues a server-side file or directory for ingestion.
func (h *DocumentHandler) IngestPath(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	id, err := h.jobs.Enqueue(req.Path)
	if errors.Is(err, ingestion_engine.ErrQueueFull) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("enqueue failed", zap.String("path", req.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not queue ingestion")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Status(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", 50)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	offset, ok := intParam(r, "offset", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	docs, err := h.docs.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list documents failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	if docs == nil {
		docs = []models.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument returns a stored document without its vectors.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "hash"))
	if errors.Is(err, services.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get document failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load document")
		return
	}

	out := *doc
	out.Chunks = make([]models.DocumentChunk, len(doc.Chunks))
	for i, c := range doc.Chunks {
		c.Embedding = nil
		out.Chunks[i] = c
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	n, err := h.docs.Delete(r.Context(), chi.URLParam(r, "hash"))
	if errors.Is(err, services.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("delete document failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_chunks": n})
}
