package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `mapstructure:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds the metadata store connection settings.
type DatabaseConfig struct {
	Type     string     `mapstructure:"type"`     // Store type ("postgres", "mysql", "sqlite").
	Host     string     `mapstructure:"host"`     // Database host address.
	Port     int        `mapstructure:"port"`     // Database port number.
	Database string     `mapstructure:"name"`     // Database name, or file path for sqlite.
	User     string     `mapstructure:"username"` // Database user.
	Password string     `mapstructure:"password"` // Database password.
	Schema   string     `mapstructure:"schema"`   // Schema holding the tracker tables (postgres, mysql).
	Sslmode  string     `mapstructure:"sslmode"`  // SSL mode for postgres connections.
	Pool     PoolConfig `mapstructure:"pool"`     // Connection pool settings.
}

// TablePrefix returns the qualifier prepended to every tracker table name.
// Only postgres places the tables in a dedicated schema; mysql and sqlite
// keep them in the connected database.
func (c DatabaseConfig) TablePrefix() string {
	if c.Type != "postgres" || c.Schema == "" {
		return ""
	}
	return c.Schema + "."
}
