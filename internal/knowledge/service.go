package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

const (
	defaultTopK     = 8
	defaultMinScore = 0.25
	summaryChunks   = 3
	summaryMaxLen   = 600

	// Conversation ids arrive from the widget, so the follow-up memory must
	// be capped or anonymous visitors could grow it forever.
	maxFollowUpConversations = 512
)

// Service ties the splitter, the embedding index and the Redis persistence
// together. It also remembers the last retrieval context per conversation so
// short follow-ups ("what about the price?") still land on the same document.
type Service struct {
	splitter *Splitter
	store    *Store
	repo     Repository
	logger   *logging.Logger
	topK     int
	minScore float64

	mu           sync.RWMutex
	summaries    map[string]string
	lastContext  map[string][]Chunk // keyed by conversation id
	contextOrder []string           // insertion order, oldest first
}

func NewService(splitter *Splitter, store *Store, repo Repository, logger *logging.Logger) *Service {
	if splitter == nil {
		splitter = NewSplitter(0, 0)
	}
	if store == nil {
		panic("knowledge: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		splitter:    splitter,
		store:       store,
		repo:        repo,
		logger:      logger,
		topK:        defaultTopK,
		minScore:    defaultMinScore,
		summaries:   make(map[string]string),
		lastContext: make(map[string][]Chunk),
	}
}

// Ingest splits, embeds and persists one document, replacing any previous
// version of it. It returns the number of chunks indexed.
func (s *Service) Ingest(ctx context.Context, docID, text string) (int, error) {
	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("knowledge: document %q has no content", docID)
	}

	s.store.Remove(docID)
	if err := s.store.Add(ctx, docID, chunks); err != nil {
		return 0, fmt.Errorf("knowledge: embed %q: %w", docID, err)
	}
	if s.repo != nil {
		if err := s.repo.ReplaceChunks(ctx, docID, chunks); err != nil {
			return 0, err
		}
		if _, err := s.repo.BumpVersion(ctx); err != nil {
			s.logger.Warn("knowledge version bump failed", "doc", docID, "error", err)
		}
	}
	s.rememberSummary(docID, chunks)

	s.logger.Info("document ingested", "doc", docID, "chunks", len(chunks))
	return len(chunks), nil
}

// Reload rebuilds the embedding index from the persisted chunks.
func (s *Service) Reload(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	all, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	s.store.Reset()
	for docID, chunks := range all {
		if len(chunks) == 0 {
			continue
		}
		if err := s.store.Add(ctx, docID, chunks); err != nil {
			return fmt.Errorf("knowledge: re-embed %q: %w", docID, err)
		}
		s.rememberSummary(docID, chunks)
	}
	s.logger.Info("knowledge index rebuilt", "documents", len(all), "chunks", s.store.Len())
	return nil
}

// The opening chunks almost always hold the document's own introduction, so
// they stand in as its summary.
func (s *Service) rememberSummary(docID string, chunks []string) {
	n := summaryChunks
	if len(chunks) < n {
		n = len(chunks)
	}
	summary := strings.Join(chunks[:n], " ")
	if len(summary) > summaryMaxLen {
		summary = summary[:summaryMaxLen] + "..."
	}
	s.mu.Lock()
	s.summaries[docID] = summary
	s.mu.Unlock()
}

// Summaries returns a per-document overview, for "what do you know about"
// style questions.
func (s *Service) Summaries() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.summaries))
	for k, v := range s.summaries {
		out[k] = v
	}
	return out
}

// Context retrieves the chunks relevant to the question and formats them as a
// context block for the LLM prompt. When nothing clears the relevance bar but
// the conversation retrieved something recently, that previous context is
// reused, which is what makes terse follow-up questions work.
func (s *Service) Context(ctx context.Context, conversationID, question string) (string, error) {
	chunks, err := s.store.Query(ctx, question, s.topK, s.minScore)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if len(chunks) == 0 {
		chunks = s.lastContext[conversationID]
	} else {
		if _, ok := s.lastContext[conversationID]; !ok {
			s.contextOrder = append(s.contextOrder, conversationID)
			if len(s.contextOrder) > maxFollowUpConversations {
				delete(s.lastContext, s.contextOrder[0])
				s.contextOrder = s.contextOrder[1:]
			}
		}
		s.lastContext[conversationID] = chunks
	}
	s.mu.Unlock()

	if len(chunks) == 0 {
		return "", nil
	}
	return formatContext(chunks), nil
}

// Forget drops the follow-up memory for a conversation.
func (s *Service) Forget(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lastContext[conversationID]; !ok {
		return
	}
	delete(s.lastContext, conversationID)
	for i, id := range s.contextOrder {
		if id == conversationID {
			s.contextOrder = append(s.contextOrder[:i], s.contextOrder[i+1:]...)
			break
		}
	}
}

func formatContext(chunks []Chunk) string {
	byDoc := make(map[string][]string)
	var docs []string
	for _, c := range chunks {
		if _, ok := byDoc[c.DocID]; !ok {
			docs = append(docs, c.DocID)
		}
		byDoc[c.DocID] = append(byDoc[c.DocID], c.Content)
	}
	sort.Strings(docs)

	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "[Source: %s]\n", doc)
		for _, content := range byDoc[doc] {
			b.WriteString(content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
