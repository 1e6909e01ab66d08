package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

var _ domain.RuleRepository = (*CachedRuleRepository)(nil)

// CachedRuleRepository keeps the per-user rule list in Redis. Rule lists are
// read on every schedule view but change rarely, so a short TTL plus
// write-through invalidation covers them. Batch and per-session reads always
// go to the source.
type CachedRuleRepository struct {
	next  domain.RuleRepository
	cache *redis.Client
}

func NewCachedRuleRepository(next domain.RuleRepository, cache *redis.Client) *CachedRuleRepository {
	return &CachedRuleRepository{
		next:  next,
		cache: cache,
	}
}

func (r *CachedRuleRepository) cacheKey(userID string) string {
	return fmt.Sprintf("rules:%s", userID)
}

func (r *CachedRuleRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate for user %s: %v", userID, err)
	}
}

func (r *CachedRuleRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RecurrenceRule, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var rules []*domain.RecurrenceRule
		if err := json.Unmarshal([]byte(val), &rules); err == nil {
			return rules, nil
		}

		log.Printf("[CACHE] Corrupted data for user %s, cleaning up key", userID)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	rules, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		if setErr := r.cache.Set(ctx, key, data, 30*time.Minute).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return rules, nil
}

func (r *CachedRuleRepository) GetByID(ctx context.Context, id string) (*domain.RecurrenceRule, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedRuleRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*domain.RecurrenceRule, error) {
	return r.next.ListBySessionID(ctx, sessionID)
}

func (r *CachedRuleRepository) ListEnabledForBatch(ctx context.Context) ([]*domain.RecurrenceRule, error) {
	return r.next.ListEnabledForBatch(ctx)
}

func (r *CachedRuleRepository) Create(ctx context.Context, rule *domain.RecurrenceRule) error {
	if err := r.next.Create(ctx, rule); err != nil {
		return err
	}
	r.invalidate(ctx, rule.UserID)
	return nil
}

func (r *CachedRuleRepository) Update(ctx context.Context, rule *domain.RecurrenceRule) error {
	if err := r.next.Update(ctx, rule); err != nil {
		return err
	}
	r.invalidate(ctx, rule.UserID)
	return nil
}

func (r *CachedRuleRepository) Delete(ctx context.Context, id string) error {
	rule, err := r.next.GetByID(ctx, id)
	if err == nil && rule != nil {
		defer r.invalidate(ctx, rule.UserID)
	}

	return r.next.Delete(ctx, id)
}
