package knowledge

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *RedisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisRepository(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisRepositoryAppendAndLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendChunks(ctx, "faq", []string{"chunk one", "chunk two"}))
	require.NoError(t, repo.AppendChunks(ctx, "policies", []string{"policy chunk"}))

	chunks, err := repo.Chunks(ctx, "faq")
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk one", "chunk two"}, chunks)

	docs, err := repo.Documents(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"faq", "policies"}, docs)

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, []string{"policy chunk"}, all["policies"])
}

func TestRedisRepositoryReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendChunks(ctx, "faq", []string{"old"}))
	require.NoError(t, repo.ReplaceChunks(ctx, "faq", []string{"new one", "new two"}))

	chunks, err := repo.Chunks(ctx, "faq")
	require.NoError(t, err)
	assert.Equal(t, []string{"new one", "new two"}, chunks)

	// Replacing with nothing removes the document entirely.
	require.NoError(t, repo.ReplaceChunks(ctx, "faq", nil))
	docs, err := repo.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRedisRepositoryVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = repo.BumpVersion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	_, err = repo.BumpVersion(ctx)
	require.NoError(t, err)

	v, err = repo.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}
