package sql

import (
	"go.uber.org/fx"
)

// Module provides the gorm-backed MetadataStore to Fx.
var Module = fx.Options(
	fx.Provide(NewSQLMetadataStore),
)
