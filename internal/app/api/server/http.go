package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/prepnest/billing/docs"
	"github.com/prepnest/billing/internal/app/api/handlers"
	mw "github.com/prepnest/billing/internal/app/api/middleware"
	"github.com/prepnest/billing/internal/app/service/demoaccess"
	"github.com/prepnest/billing/internal/app/service/invoice"
	"github.com/prepnest/billing/internal/app/service/lifecycle"
	"github.com/prepnest/billing/internal/app/service/plan"
	"github.com/prepnest/billing/internal/app/service/refund"
	"github.com/prepnest/billing/internal/app/service/transaction"
	"github.com/prepnest/billing/internal/app/service/validation"
	"github.com/prepnest/billing/internal/app/service/webhook"
	cfgpkg "github.com/prepnest/billing/pkg/config"
	metrics "github.com/prepnest/billing/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request tracing only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log       *zap.SugaredLogger
	Cfg       *cfgpkg.Config
	Lifecycle *lifecycle.Service
	Plans     *plan.Service
	Invoices  *invoice.Service
	Validate  *validation.Service
	Demo      *demoaccess.Service
	Refunds   *refund.Service
	Txns      *transaction.Service
	Webhooks  *webhook.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())

	handlers.RegisterPlanRoutes(apiV1, d.Plans)
	handlers.RegisterEntitlementRoutes(apiV1, d.Validate, d.Demo)
	handlers.RegisterInvoiceRoutes(apiV1, d.Invoices)

	billing := apiV1.Group("/billing")
	handlers.RegisterBillingRoutes(billing, d.Lifecycle, d.Txns)
	handlers.RegisterWebhookRoutes(billing, d.Webhooks)

	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), d.Refunds, d.Txns)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
