package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"doc-vault-server/config"
	"doc-vault-server/internal/model"
	"doc-vault-server/internal/util"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const reconcileQueueKey = "reconcile:candidates"

// cachedDocument : в отличие от model.Document хранит ключ объекта, который скрыт в HTTP-ответах
type cachedDocument struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"user_id"`
	Title      string    `json:"title"`
	StorageKey string    `json:"storage_key"`
	MimeType   string    `json:"mime_type"`
	Language   string    `json:"language"`
	SizeBytes  int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

type CacheRepository struct {
	client *config.RedisClient
	ttl    time.Duration
}

func NewCacheRepository(rdb *config.RedisClient, ttl time.Duration) *CacheRepository {
	return &CacheRepository{rdb, ttl}
}

func (r *CacheRepository) SetSharedDocument(ctx context.Context, shareID string, document *model.Document) error {
	data, err := json.Marshal(cachedDocument(*document))
	if err != nil {
		return util.LogError("[CacheRepo] ошибка сериализации документа", err)
	}

	cmd := r.client.Client.Set(ctx, r.key(shareID), data, r.ttl)
	if err = cmd.Err(); err != nil {
		return util.LogError("[CacheRepo] ошибка сохранения в Redis", err)
	}
	if cmd.Val() != "OK" {
		return fmt.Errorf("неожиданный ответ Redis: %s", cmd.Val())
	}

	return nil
}

// GetSharedDocument : nil без ошибки, если в кэше ничего нет
func (r *CacheRepository) GetSharedDocument(ctx context.Context, shareID string) (*model.Document, error) {
	val, err := r.client.Client.Get(ctx, r.key(shareID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, util.LogError("[CacheRepo] ошибка получения документа из Redis", err)
	}

	var cached cachedDocument
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, util.LogError("[CacheRepo] ошибка десериализации документа из кэша", err)
	}

	document := model.Document(cached)
	return &document, nil
}

func (r *CacheRepository) DeleteSharedDocument(ctx context.Context, shareID string) error {
	if err := r.client.Client.Del(ctx, r.key(shareID)).Err(); err != nil {
		return util.LogError("[CacheRepo] ошибка удаления документа из Redis", err)
	}
	return nil
}

// Enqueue : кандидаты складываются в список, новые слева
func (r *CacheRepository) Enqueue(ctx context.Context, candidate model.ReconcileCandidate) error {
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return util.LogError("[CacheRepo] ошибка сериализации кандидата", err)
	}

	if err := r.client.Client.LPush(ctx, reconcileQueueKey, data).Err(); err != nil {
		return util.LogError("[CacheRepo] ошибка постановки кандидата в очередь", err)
	}
	return nil
}

// Dequeue : забирает до limit самых старых кандидатов
func (r *CacheRepository) Dequeue(ctx context.Context, limit int) ([]model.ReconcileCandidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	values, err := r.client.Client.RPopCount(ctx, reconcileQueueKey, limit).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, util.LogError("[CacheRepo] ошибка чтения очереди кандидатов", err)
	}

	candidates := make([]model.ReconcileCandidate, 0, len(values))
	for _, v := range values {
		var candidate model.ReconcileCandidate
		if err := json.Unmarshal([]byte(v), &candidate); err != nil {
			log.Error().Err(err).Str("entry", v).Msg("[CacheRepo] повреждённая запись в очереди кандидатов пропущена")
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (r *CacheRepository) key(shareID string) string {
	return fmt.Sprintf("share:%s", shareID)
}
