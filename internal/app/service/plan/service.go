package plan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/models"
)

// ErrPlanNotFound is returned when a plan id is unknown or the plan has
// been deactivated. Inactive plans are not purchasable.
var ErrPlanNotFound = errors.New("plan not found")

// Service is the read model over purchasable plans. The settlement
// engine consumes plans, it never mutates them.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// GetPlan loads an active plan by id.
func (s *Service) GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", planID, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return &p, nil
}

// ListPlans returns all active plans in display order for the purchase UI.
func (s *Service) ListPlans(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	var plans []*models.SubscriptionPlan
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order asc, price asc").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
