package knowledge

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps texts onto three fixed axes by keyword so cosine scores
// are deterministic: pricing, hours and anything else.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	req := request.Convert()
	inputs, _ := req.Input.([]string)

	resp := openai.EmbeddingResponse{}
	for i, text := range inputs {
		lower := strings.ToLower(text)
		vec := []float32{0.1, 0.1, 1}
		switch {
		case strings.Contains(lower, "price") || strings.Contains(lower, "cost") || strings.Contains(lower, "$"):
			vec = []float32{1, 0, 0}
		case strings.Contains(lower, "hour") || strings.Contains(lower, "open"):
			vec = []float32{0, 1, 0}
		}
		resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: vec})
	}
	return resp, nil
}

func TestStoreQueryRanksByRelevance(t *testing.T) {
	store := NewStore(&fakeEmbedder{}, "", nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "faq", []string{
		"A checkup costs $75 and lab tests cost $120.",
		"We are open from 8am, hours vary on weekends.",
		"Parking is available behind the building.",
	}))

	chunks, err := store.Query(ctx, "how much does a visit cost?", 8, 0.25)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "$75")
	assert.Equal(t, "faq", chunks[0].DocID)
	assert.InDelta(t, 1.0, chunks[0].Score, 0.01)
}

func TestStoreQueryMinScoreFiltersNoise(t *testing.T) {
	store := NewStore(&fakeEmbedder{}, "", nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "faq", []string{
		"Parking is available behind the building.",
	}))

	// The parking chunk sits on the "other" axis, nearly orthogonal to a
	// pricing query.
	chunks, err := store.Query(ctx, "how much does it cost?", 8, 0.25)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStoreQueryTopK(t *testing.T) {
	store := NewStore(&fakeEmbedder{}, "", nil)
	ctx := context.Background()

	contents := make([]string, 10)
	for i := range contents {
		contents[i] = "price list item"
	}
	require.NoError(t, store.Add(ctx, "prices", contents))

	chunks, err := store.Query(ctx, "cost", 3, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(&fakeEmbedder{}, "", nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "a", []string{"price one"}))
	require.NoError(t, store.Add(ctx, "b", []string{"price two"}))
	require.Equal(t, 2, store.Len())

	store.Remove("a")
	assert.Equal(t, 1, store.Len())

	chunks, err := store.Query(ctx, "cost", 8, 0)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.NotEqual(t, "a", c.DocID)
	}
}
