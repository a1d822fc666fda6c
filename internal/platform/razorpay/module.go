package razorpay

import (
	"go.uber.org/fx"

	cfgpkg "github.com/prepnest/billing/pkg/config"
)

func newFromConfig(cfg *cfgpkg.Config) (*Client, error) {
	return NewClient(&Options{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
	})
}

// Module exposes the gateway client via Fx.
var Module = fx.Options(
	fx.Provide(newFromConfig),
)
