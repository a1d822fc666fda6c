package refund

import (
	"go.uber.org/fx"

	"github.com/prepnest/billing/internal/platform/razorpay"
)

// Module exposes the refund processor via Fx.
var Module = fx.Options(
	fx.Provide(func(c *razorpay.Client) Gateway { return c }),
	fx.Provide(NewService),
)
