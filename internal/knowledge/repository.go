package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	chunkKeyPrefix = "kb:chunks:"
	docSetKey      = "kb:docs"
	versionKey     = "kb:version"
)

// Repository persists raw document chunks so the in-memory index can be
// rebuilt after a restart.
type Repository interface {
	AppendChunks(ctx context.Context, docID string, chunks []string) error
	ReplaceChunks(ctx context.Context, docID string, chunks []string) error
	Chunks(ctx context.Context, docID string) ([]string, error)
	Documents(ctx context.Context) ([]string, error)
	LoadAll(ctx context.Context) (map[string][]string, error)
	BumpVersion(ctx context.Context) (int64, error)
	Version(ctx context.Context) (int64, error)
}

// RedisRepository stores chunks in Redis lists, one list per document.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	if client == nil {
		panic("knowledge: redis client cannot be nil")
	}
	return &RedisRepository{client: client}
}

func chunkKey(docID string) string { return chunkKeyPrefix + docID }

// AppendChunks pushes new chunks onto the document's list.
func (r *RedisRepository) AppendChunks(ctx context.Context, docID string, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}
	args := make([]interface{}, len(chunks))
	for i, c := range chunks {
		args[i] = c
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, chunkKey(docID), args...)
	pipe.SAdd(ctx, docSetKey, docID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("knowledge: failed to push chunks: %w", err)
	}
	return nil
}

// ReplaceChunks overwrites the document's chunks.
func (r *RedisRepository) ReplaceChunks(ctx context.Context, docID string, chunks []string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, chunkKey(docID))
	if len(chunks) > 0 {
		args := make([]interface{}, len(chunks))
		for i, c := range chunks {
			args[i] = c
		}
		pipe.RPush(ctx, chunkKey(docID), args...)
		pipe.SAdd(ctx, docSetKey, docID)
	} else {
		pipe.SRem(ctx, docSetKey, docID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("knowledge: failed to replace chunks: %w", err)
	}
	return nil
}

// Chunks retrieves all chunks for the document.
func (r *RedisRepository) Chunks(ctx context.Context, docID string) ([]string, error) {
	return r.client.LRange(ctx, chunkKey(docID), 0, -1).Result()
}

// Documents lists the ingested document ids.
func (r *RedisRepository) Documents(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, docSetKey).Result()
}

// LoadAll returns every document's chunks, for index rebuilds.
func (r *RedisRepository) LoadAll(ctx context.Context) (map[string][]string, error) {
	docs, err := r.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("knowledge: failed to list documents: %w", err)
	}
	out := make(map[string][]string, len(docs))
	for _, docID := range docs {
		chunks, err := r.Chunks(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("knowledge: failed to load %s: %w", docID, err)
		}
		out[docID] = chunks
	}
	return out, nil
}

// BumpVersion increments the knowledge version counter.
func (r *RedisRepository) BumpVersion(ctx context.Context) (int64, error) {
	return r.client.Incr(ctx, versionKey).Result()
}

// Version reads the current knowledge version, zero when unset.
func (r *RedisRepository) Version(ctx context.Context) (int64, error) {
	val, err := r.client.Get(ctx, versionKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("knowledge: failed to read version: %w", err)
	}
	return strconv.ParseInt(val, 10, 64)
}
