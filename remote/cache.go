package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"fluxo-board/domain"
)

type backend interface {
	List(ctx context.Context, scope domain.Scope) ([]domain.Task, error)
	Create(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteMany(ctx context.Context, ids []int64) error
	Move(ctx context.Context, id, stepID int64) error
	GetByID(ctx context.Context, id int64) (domain.Task, error)
}

// Cache wraps a Client with Redis-backed caching for task listings. List
// may be called with any scope, so the cache remembers every key it has
// stored and every mutating call evicts them all; the next List observes
// the remote state. Cache failures fall through to the backend silently.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewCache creates a caching wrapper. The given scope seeds the eviction
// set so mutations issued before any List still clear the default listing.
func NewCache(base backend, client *redis.Client, scope domain.Scope, ttl time.Duration) *Cache {
	if base == nil {
		panic("remote.NewCache: base client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
		keys:  map[string]struct{}{listCacheKey(scope): {}},
	}
}

func (c *Cache) List(ctx context.Context, scope domain.Scope) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx, scope); ok {
		return tasks, nil
	}

	tasks, err := c.base.List(ctx, scope)
	if err != nil {
		return nil, err
	}

	c.store(ctx, scope, tasks)
	return tasks, nil
}

func (c *Cache) Create(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	created, err := c.base.Create(ctx, draft)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return created, nil
}

func (c *Cache) Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	updated, err := c.base.Update(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return updated, nil
}

func (c *Cache) DeleteMany(ctx context.Context, ids []int64) error {
	if err := c.base.DeleteMany(ctx, ids); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) Move(ctx context.Context, id, stepID int64) error {
	if err := c.base.Move(ctx, id, stepID); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) GetByID(ctx context.Context, id int64) (domain.Task, error) {
	return c.base.GetByID(ctx, id)
}

func (c *Cache) loadFromCache(ctx context.Context, scope domain.Scope) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listCacheKey(scope)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backend without failing.
			_ = c.redis.Del(ctx, listCacheKey(scope)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.ConfigStd.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, listCacheKey(scope)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, scope domain.Scope, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.ConfigStd.Marshal(tasks)
	if err != nil {
		return
	}
	key := listCacheKey(scope)
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	c.mu.Lock()
	keys := make([]string, 0, len(c.keys))
	for key := range c.keys {
		keys = append(keys, key)
	}
	c.mu.Unlock()
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func listCacheKey(scope domain.Scope) string {
	if scope.SprintID != nil {
		return fmt.Sprintf("board:%d:%d", scope.WorkspaceID, *scope.SprintID)
	}
	return fmt.Sprintf("board:%d:backlog", scope.WorkspaceID)
}
