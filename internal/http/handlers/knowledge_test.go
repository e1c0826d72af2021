package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

type fakeKnowledge struct {
	ingested  map[string]string
	summaries map[string]string
	fail      bool
}

func (f *fakeKnowledge) Ingest(_ context.Context, docID, text string) (int, error) {
	if f.fail {
		return 0, errors.New("embedding provider down")
	}
	if f.ingested == nil {
		f.ingested = map[string]string{}
	}
	f.ingested[docID] = text
	return 3, nil
}

func (f *fakeKnowledge) Summaries() map[string]string {
	return f.summaries
}

func TestIngestDocument(t *testing.T) {
	fk := &fakeKnowledge{}
	h := NewKnowledgeHandler(fk, logging.New("error"))

	body := bytes.NewBufferString(`{"doc_id":"pricing","content":"A checkup costs $50."}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/knowledge/documents", body)
	rec := httptest.NewRecorder()
	h.IngestDocument(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fk.ingested["pricing"] != "A checkup costs $50." {
		t.Errorf("document not ingested: %+v", fk.ingested)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["chunks"].(float64) != 3 {
		t.Errorf("chunks = %v, want 3", resp["chunks"])
	}
}

func TestIngestDocumentValidation(t *testing.T) {
	h := NewKnowledgeHandler(&fakeKnowledge{}, logging.New("error"))

	cases := []struct {
		name string
		body string
	}{
		{"missing doc id", `{"content":"text"}`},
		{"missing content", `{"doc_id":"pricing"}`},
		{"blank content", `{"doc_id":"pricing","content":"   "}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/knowledge/documents", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			h.IngestDocument(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIngestDocumentUpstreamFailure(t *testing.T) {
	h := NewKnowledgeHandler(&fakeKnowledge{fail: true}, logging.New("error"))

	body := bytes.NewBufferString(`{"doc_id":"pricing","content":"text"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/knowledge/documents", body)
	rec := httptest.NewRecorder()
	h.IngestDocument(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestListDocumentsSorted(t *testing.T) {
	fk := &fakeKnowledge{summaries: map[string]string{
		"pricing": "A checkup costs $50.",
		"hours":   "Open weekdays 8am to 6pm.",
	}}
	h := NewKnowledgeHandler(fk, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/admin/knowledge/documents", nil)
	rec := httptest.NewRecorder()
	h.ListDocuments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Documents []documentSummary `json:"documents"`
		Count     int               `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Documents[0].DocID != "hours" || resp.Documents[1].DocID != "pricing" {
		t.Errorf("documents not sorted: %+v", resp.Documents)
	}
}

func TestNewKnowledgeHandlerNilService(t *testing.T) {
	if h := NewKnowledgeHandler(nil, nil); h != nil {
		t.Error("expected nil handler without service")
	}
}
