package validation

import "go.uber.org/fx"

// Module exposes the validation service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
