package webhook

import "go.uber.org/fx"

// Module exposes the webhook intake service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
