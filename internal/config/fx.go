package config

import "go.uber.org/fx"

// Module wires the process config and the hot-reloadable billing config.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewBillingConfigHolder,
	),
)
