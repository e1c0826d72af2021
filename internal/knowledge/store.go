package knowledge

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Chunk is a scored retrieval result.
type Chunk struct {
	DocID   string
	Content string
	Score   float64
}

// Store keeps chunk embeddings in memory and answers cosine-similarity
// queries. Raw chunks are persisted separately in Redis; on restart the
// service re-embeds from there.
type Store struct {
	client embeddingClient
	model  string
	logger *logging.Logger

	mu     sync.RWMutex
	chunks []storedChunk
}

type storedChunk struct {
	docID     string
	content   string
	embedding []float32
}

func NewStore(client embeddingClient, model string, logger *logging.Logger) *Store {
	if client == nil {
		panic("knowledge: embedding client cannot be nil")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, model: model, logger: logger}
}

// Add embeds and indexes the chunks of one document.
func (s *Store) Add(ctx context.Context, docID string, contents []string) error {
	if len(contents) == 0 {
		return nil
	}

	req := &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: contents,
	}
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Data) != len(contents) {
		return errors.New("knowledge: embedding response size mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range resp.Data {
		s.chunks = append(s.chunks, storedChunk{
			docID:     docID,
			content:   contents[i],
			embedding: item.Embedding,
		})
	}
	return nil
}

// Remove drops every chunk of the given document.
func (s *Store) Remove(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.docID != docID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
}

// Reset clears the index, ahead of a reload from the persisted chunks.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}

// Len reports how many chunks are indexed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Query returns up to topK chunks scoring at least minScore against the
// query, best first.
func (s *Store) Query(ctx context.Context, query string, topK int, minScore float64) ([]Chunk, error) {
	if topK <= 0 {
		topK = 8
	}
	req := &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: []string{query},
	}
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		score := cosine(queryVec, c.embedding)
		if score < minScore {
			continue
		}
		scored = append(scored, Chunk{DocID: c.docID, Content: c.content, Score: score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
