package demoaccess

import "go.uber.org/fx"

// Module exposes the demo access gate via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
