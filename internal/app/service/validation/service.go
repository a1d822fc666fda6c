package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/logctx"
	"github.com/prepnest/billing/pkg/types"
)

// Service answers entitlement checks. It is read-only and safe to call
// on every request; results are cached in Redis with a short TTL so
// multiple instances observe the same state.
type Service struct {
	db    *gorm.DB
	cache *redis.Client
	cfg   *config.Config
	log   *zap.SugaredLogger
}

func NewService(db *gorm.DB, cache *redis.Client, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cache: cache, cfg: cfg, log: log}
}

// ValidateSubscription is the single entitlement check consumed by all
// other services. contentCategory may be empty to check any access.
func (s *Service) ValidateSubscription(ctx context.Context, userID, contentCategory string) (*Result, error) {
	if cached := s.fromCache(ctx, userID, contentCategory); cached != nil {
		return cached, nil
	}

	sub, err := s.fetchSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := evaluate(sub, contentCategory, time.Now())
	s.toCache(ctx, userID, contentCategory, res)
	return res, nil
}

// IsSubscriptionActive is the narrow convenience used by the demo gate
// and by services that only need a yes/no.
func (s *Service) IsSubscriptionActive(ctx context.Context, userID string) (bool, error) {
	res, err := s.ValidateSubscription(ctx, userID, "")
	if err != nil {
		return false, err
	}
	return res.IsValid, nil
}

// InvalidateUser drops cached decisions after a lifecycle mutation.
func (s *Service) InvalidateUser(ctx context.Context, userID string) {
	pattern := cacheKey(userID, "*")
	iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			logctx.FromCtx(ctx, s.log).Warnw("validation_cache_del_failed", "key", iter.Val(), "err", err)
		}
	}
	if err := iter.Err(); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("validation_cache_scan_failed", "user_id", userID, "err", err)
	}
}

// fetchSubscription picks the subscription the decision is based on:
// the active record with the latest EndDate. The data model does not
// guarantee a single active row per user, so latest-EndDate wins. When
// no active record exists the most recent record of any status is
// returned so cancellation can be reported.
func (s *Service) fetchSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, types.SubscriptionStatusActive).
		Order("end_date desc").
		First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query active subscription: %w", err)
	}

	err = s.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &sub, nil
}

func cacheKey(userID, category string) string {
	if category == "" {
		category = "_any"
	}
	return fmt.Sprintf("billing:validation:%s:%s", userID, category)
}

func (s *Service) fromCache(ctx context.Context, userID, category string) *Result {
	raw, err := s.cache.Get(ctx, cacheKey(userID, category)).Bytes()
	if err != nil {
		return nil
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}
	return &res
}

func (s *Service) toCache(ctx context.Context, userID, category string, res *Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	ttl := time.Duration(s.cfg.Billing.ValidationCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(userID, category), raw, ttl).Err(); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("validation_cache_set_failed", "user_id", userID, "err", err)
	}
}
