package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/vectordb/internal/core/coretest"
	"github.com/markdave123-py/vectordb/internal/core/ingestion_engine"
	"github.com/markdave123-py/vectordb/internal/models"
	"github.com/markdave123-py/vectordb/internal/services"
)

type fakeQueue struct {
	full bool
	jobs map[string]ingestion_engine.Job
}

func (q *fakeQueue) Enqueue(path string) (string, error) {
	if q.full {
		return "", ingestion_engine.ErrQueueFull
	}
	id := "job-1"
	q.jobs[id] = ingestion_engine.Job{ID: id, Path: path, Status: ingestion_engine.JobQueued}
	return id, nil
}

func (q *fakeQueue) Status(id string) (ingestion_engine.Job, bool) {
	j, ok := q.jobs[id]
	return j, ok
}

type fixedHealth models.HealthStatus

func (f fixedHealth) HealthCheck(context.Context) models.HealthStatus { return models.HealthStatus(f) }

func newRouter(t *testing.T) (http.Handler, *fakeQueue, *coretest.Store) {
	t.Helper()
	store := coretest.NewStore()
	store.Put(&models.Document{
		ID:          "doc-1",
		Filename:    "a.txt",
		ContentHash: "h1",
		Chunks: []models.DocumentChunk{
			{Content: "alpha beta", ChunkIndex: 0, Embedding: coretest.Vector("alpha beta", 4)},
		},
	})
	svc := services.NewDocumentService(store, coretest.NewEmbedder(4), nil)
	q := &fakeQueue{jobs: map[string]ingestion_engine.Job{}}

	docs := NewDocumentHandler(svc, q, nil)
	search := NewSearchHandler(svc, nil)

	r := chi.NewRouter()
	r.Get("/healthz", Health(fixedHealth{Embedding: true, Storage: true, Overall: true}))
	r.Post("/api/ingest", docs.IngestPath)
	r.Get("/api/jobs/{id}", docs.GetJob)
	r.Get("/api/documents", docs.ListDocuments)
	r.Get("/api/documents/{hash}", docs.GetDocument)
	r.Delete("/api/documents/{hash}", docs.DeleteDocument)
	r.Post("/api/search", search.Search)
	return r, q, store
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIngestAndJobStatus(t *testing.T) {
	h, q, _ := newRouter(t)

	rec := do(h, http.MethodPost, "/api/ingest", `{"path":"/data/docs"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["job_id"])

	rec = do(h, http.MethodGet, "/api/jobs/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job ingestion_engine.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "/data/docs", job.Path)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/jobs/nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/ingest", `{"path":" "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/ingest", `not json`).Code)

	q.full = true
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/api/ingest", `{"path":"/x"}`).Code)
}

func TestDocuments(t *testing.T) {
	h, _, store := newRouter(t)

	rec := do(h, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.DocumentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "h1", list[0].ContentHash)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/documents?limit=-1", "").Code)

	rec = do(h, http.MethodGet, "/api/documents/h1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Chunks, 1)
	assert.Nil(t, doc.Chunks[0].Embedding, "vectors are not returned")

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/documents/zzz", "").Code)

	rec = do(h, http.MethodDelete, "/api/documents/h1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted_chunks":1}`, rec.Body.String())
	assert.Zero(t, store.Len())
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/documents/h1", "").Code)
}

func TestSearchHandler(t *testing.T) {
	h, _, _ := newRouter(t)

	rec := do(h, http.MethodPost, "/api/search", `{"query":"alpha beta","limit":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []models.SearchHit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.txt", resp.Results[0].Filename)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/search", `{"query":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/search", `{`).Code)
}

func TestHealth(t *testing.T) {
	h, _, _ := newRouter(t)
	rec := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"embedding":true,"storage":true,"overall":true}`, rec.Body.String())

	down := Health(fixedHealth{Embedding: true})
	rec = httptest.NewRecorder()
	down(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
