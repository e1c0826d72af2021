package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// KnowledgeService is the slice of the knowledge base the admin API needs.
type KnowledgeService interface {
	Ingest(ctx context.Context, docID, text string) (int, error)
	Summaries() map[string]string
}

// KnowledgeHandler manages the clinic knowledge base documents.
type KnowledgeHandler struct {
	svc    KnowledgeService
	logger *logging.Logger
}

// NewKnowledgeHandler creates the knowledge admin handler. Returns nil when
// the knowledge base is not configured.
func NewKnowledgeHandler(svc KnowledgeService, logger *logging.Logger) *KnowledgeHandler {
	if svc == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &KnowledgeHandler{svc: svc, logger: logger}
}

type ingestRequest struct {
	DocID   string `json:"doc_id"`
	Content string `json:"content"`
}

// IngestDocument handles POST /admin/knowledge/documents. Re-ingesting an
// existing doc_id replaces its chunks.
func (h *KnowledgeHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DocID = strings.TrimSpace(req.DocID)
	if req.DocID == "" {
		writeError(w, http.StatusBadRequest, "doc_id is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	chunks, err := h.svc.Ingest(r.Context(), req.DocID, req.Content)
	if err != nil {
		h.logger.Error("failed to ingest document", "doc_id", req.DocID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to ingest document")
		return
	}

	h.logger.Info("knowledge document ingested", "doc_id", req.DocID, "chunks", chunks)
	writeJSON(w, http.StatusCreated, map[string]any{
		"doc_id": req.DocID,
		"chunks": chunks,
	})
}

type documentSummary struct {
	DocID   string `json:"doc_id"`
	Summary string `json:"summary"`
}

// ListDocuments handles GET /admin/knowledge/documents.
func (h *KnowledgeHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	summaries := h.svc.Summaries()

	docs := make([]documentSummary, 0, len(summaries))
	for id, summary := range summaries {
		docs = append(docs, documentSummary{DocID: id, Summary: summary})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}
