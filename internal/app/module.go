package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/prepnest/billing/internal/app/api/server"
	"github.com/prepnest/billing/internal/app/service/demoaccess"
	"github.com/prepnest/billing/internal/app/service/invoice"
	"github.com/prepnest/billing/internal/app/service/lifecycle"
	"github.com/prepnest/billing/internal/app/service/plan"
	"github.com/prepnest/billing/internal/app/service/refund"
	"github.com/prepnest/billing/internal/app/service/transaction"
	"github.com/prepnest/billing/internal/app/service/validation"
	"github.com/prepnest/billing/internal/app/service/webhook"
	"github.com/prepnest/billing/internal/platform/cache"
	"github.com/prepnest/billing/internal/platform/db"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/config"
	"github.com/prepnest/billing/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	cache.Module,
	razorpay.Module,
	server.Module,
	plan.Module,
	invoice.Module,
	validation.Module,
	demoaccess.Module,
	lifecycle.Module,
	refund.Module,
	transaction.Module,
	webhook.Module,
)
