package demoaccess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepnest/billing/internal/app/service/validation"
	"github.com/prepnest/billing/internal/models"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/logctx"
	"github.com/prepnest/billing/pkg/tool"
)

// Result is the demo-gate decision. IsEligible says whether trial
// allowance remains; CanProceed says whether the request may be served
// at all (a paid user proceeds without being "eligible" for a demo).
type Result struct {
	IsEligible         bool   `json:"is_eligible"`
	CanProceed         bool   `json:"can_proceed"`
	RemainingQuestions int    `json:"remaining_questions"`
	MaxQuestions       int    `json:"max_questions"`
	Message            string `json:"message,omitempty"`
}

// SessionContext is free-form device/request metadata stored with a log row.
type SessionContext map[string]string

type Service struct {
	db     *gorm.DB
	cfg    *config.Config
	valSvc *validation.Service
	log    *zap.SugaredLogger
}

func NewService(db *gorm.DB, cfg *config.Config, valSvc *validation.Service, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, valSvc: valSvc, log: log}
}

// CheckEligibility rates a (user, content category) pair against the
// trial cap. Allowance is computed from the most recent log row only,
// not a sum across rows; LogAccess therefore stores running totals.
func (s *Service) CheckEligibility(ctx context.Context, userID, contentCategory string) (*Result, error) {
	if userID == "" || contentCategory == "" {
		return nil, fmt.Errorf("user id and content category are required")
	}

	active, err := s.valSvc.IsSubscriptionActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	maxQuestions := s.cfg.Billing.MaxDemoQuestions
	if active {
		// Paid access already covers the content; no demo needed.
		return &Result{
			IsEligible:   false,
			CanProceed:   true,
			MaxQuestions: maxQuestions,
			Message:      "active subscription grants full access",
		}, nil
	}

	last, err := s.latestLog(ctx, userID, contentCategory)
	if err != nil {
		return nil, err
	}
	return decide(maxQuestions, last), nil
}

// decide computes the remaining allowance from the most recent log row.
// A fresh pair gets the full cap; remaining is clamped at zero.
func decide(maxQuestions int, last *models.DemoAccessLog) *Result {
	if last == nil {
		return &Result{
			IsEligible:         true,
			CanProceed:         true,
			RemainingQuestions: maxQuestions,
			MaxQuestions:       maxQuestions,
		}
	}

	remaining := maxQuestions - last.QuestionsAttempted
	if remaining < 0 {
		remaining = 0
	}
	if remaining == 0 {
		return &Result{
			IsEligible:         false,
			CanProceed:         false,
			RemainingQuestions: 0,
			MaxQuestions:       maxQuestions,
			Message:            "demo limit exceeded",
		}
	}
	return &Result{
		IsEligible:         true,
		CanProceed:         true,
		RemainingQuestions: remaining,
		MaxQuestions:       maxQuestions,
	}
}

// LogAccess appends a trial-session row. questionsAttempted is the
// session's running total for the pair; rows are never merged.
func (s *Service) LogAccess(ctx context.Context, userID, contentCategory string, questionsAttempted, timeSpentMinutes int, sctx SessionContext) (*models.DemoAccessLog, error) {
	if userID == "" || contentCategory == "" {
		return nil, fmt.Errorf("user id and content category are required")
	}
	if questionsAttempted < 0 || timeSpentMinutes < 0 {
		return nil, fmt.Errorf("attempted count and time spent must be non-negative")
	}

	deviceCtx := datatypes.JSON(`{}`)
	if len(sctx) > 0 {
		if raw, err := json.Marshal(sctx); err == nil {
			deviceCtx = raw
		}
	}

	maxQuestions := s.cfg.Billing.MaxDemoQuestions
	row := &models.DemoAccessLog{
		ID:                 tool.GenerateUUIDV7(),
		UserID:             userID,
		ContentCategory:    contentCategory,
		AccessDate:         time.Now(),
		QuestionsAttempted: questionsAttempted,
		TimeSpentMinutes:   timeSpentMinutes,
		DeviceContext:      deviceCtx,
		Completed:          questionsAttempted >= maxQuestions,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to log demo access: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("demo_access_logged",
		"user_id", userID, "category", contentCategory, "attempted", questionsAttempted)
	return row, nil
}

func (s *Service) latestLog(ctx context.Context, userID, contentCategory string) (*models.DemoAccessLog, error) {
	var row models.DemoAccessLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND content_category = ?", userID, contentCategory).
		Order("access_date desc").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load demo access log: %w", err)
	}
	return &row, nil
}
