package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
)

const revisionTTL = time.Hour

func revisionKey(id string) string {
	return "revision:" + id
}

// RevisionCache caches revision infos by ID. A retroactive change invalidates
// every affected revision after the transaction commits.
type RevisionCache interface {
	GetRevision(ctx context.Context, id string) (*model.RevisionInfo, error)
	SetRevision(ctx context.Context, info *model.RevisionInfo) error
	Invalidate(ctx context.Context, ids []string) error
}

var _ RevisionCache = (*RedisRevisionCache)(nil)

type RedisRevisionCache struct {
	client *redis.Client
}

func NewRedisRevisionCache(addr string) *RedisRevisionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
	})

	return &RedisRevisionCache{client: client}
}

func (r *RedisRevisionCache) GetRevision(ctx context.Context, id string) (*model.RevisionInfo, error) {
	res := r.client.Get(ctx, revisionKey(id))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	info := &model.RevisionInfo{}
	if err := json.Unmarshal(buf, info); err != nil {
		return nil, err
	}

	return info, nil
}

func (r *RedisRevisionCache) SetRevision(ctx context.Context, info *model.RevisionInfo) error {
	return r.client.Set(ctx, revisionKey(info.ID), info, revisionTTL).Err()
}

func (r *RedisRevisionCache) Invalidate(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = revisionKey(id)
	}

	return r.client.Del(ctx, keys...).Err()
}
