package lifecycle

import (
	"go.uber.org/fx"

	"github.com/prepnest/billing/internal/platform/razorpay"
)

// Module exposes the lifecycle manager via Fx. The gateway client is
// bound to the Gateway interface here so tests can substitute a stub.
var Module = fx.Options(
	fx.Provide(func(c *razorpay.Client) Gateway { return c }),
	fx.Provide(NewService),
)
