package gorm

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database"
	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory for the specified database type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// NamingStrategy returns the table naming used for the tracker tables:
// singular snake_case names qualified by the configured schema.
func NamingStrategy(cfg dbconfig.DatabaseConfig) schema.NamingStrategy {
	return schema.NamingStrategy{
		TablePrefix:   cfg.TablePrefix(),
		SingularTable: true,
	}
}

// BaseProvider opens gorm connections for one database configuration and caches them by name.
type BaseProvider struct {
	cfg         dbconfig.DatabaseConfig
	connections map[string]*GormDBAdapter
	mu          sync.RWMutex
}

// NewBaseProvider creates a new BaseProvider.
func NewBaseProvider(cfg dbconfig.DatabaseConfig) *BaseProvider {
	return &BaseProvider{
		cfg:         cfg,
		connections: make(map[string]*GormDBAdapter),
	}
}

var _ database.DBProvider = (*BaseProvider)(nil)

// Type returns the database type.
func (p *BaseProvider) Type() string {
	return p.cfg.Type
}

// GetConnection implements database.DBProvider.
func (p *BaseProvider) GetConnection(name string) (database.DBConnection, error) {
	return p.GetGormConnection(name)
}

// GetGormConnection returns the named connection, opening it on first use.
func (p *BaseProvider) GetGormConnection(name string) (*GormDBAdapter, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	db, err := Open(p.cfg)
	if err != nil {
		return nil, err
	}
	conn, err = NewGormDBAdapter(db, p.cfg, name)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Established new DB connection: %s (%s)", name, p.cfg.Type)
	return conn, nil
}

// Open establishes a gorm connection for cfg using the registered dialector.
func Open(cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	dialectorFactory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to get dialector factory for %s: %w", cfg.Type, err)
	}
	dialector, err := dialectorFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}
	return OpenDialector(dialector, cfg)
}

// OpenDialector opens dialector with the tracker's gorm settings and applies pool limits.
func OpenDialector(dialector gorm.Dialector, cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(gormLevelFor(logger.GetLogLevel())),
		NamingStrategy: NamingStrategy(cfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// CloseAll closes every connection opened by this provider.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			result = multierror.Append(result, fmt.Errorf("close %s: %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}
