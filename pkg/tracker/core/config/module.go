package config

import "go.uber.org/fx"

// Module provides *Config and the data store settings to Fx.
// The application supplies LoadOptions.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewDatabaseConfigProvider),
)
