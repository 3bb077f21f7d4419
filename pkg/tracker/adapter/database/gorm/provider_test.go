package gorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/mysql"
	"github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm/sqlite"
)

func TestNamingStrategy(t *testing.T) {
	pg := gormadapter.NamingStrategy(dbconfig.DatabaseConfig{Type: "postgres", Schema: "process_tracker"})
	assert.Equal(t, "process_tracker.process_tracking", pg.TableName("ProcessTracking"))

	lite := gormadapter.NamingStrategy(dbconfig.DatabaseConfig{Type: "sqlite", Schema: "process_tracker"})
	assert.Equal(t, "extract_dependency", lite.TableName("ExtractDependency"))
}

func TestConnectionStrings(t *testing.T) {
	cfg := dbconfig.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "tracking"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tracking sslmode=prefer", postgres.ConnectionString(cfg))

	cfg.Port = 3306
	assert.Equal(t, "u:p@tcp(db:3306)/tracking?parseTime=true", mysql.ConnectionString(cfg))
}

func TestBaseProvider_SQLiteConnectionIsCached(t *testing.T) {
	p := gormadapter.NewBaseProvider(dbconfig.DatabaseConfig{Type: "sqlite", Database: "file::memory:?cache=private"})

	first, err := p.GetConnection("metadata")
	require.NoError(t, err)
	second, err := p.GetConnection("metadata")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "sqlite", first.Type())
	assert.NoError(t, p.CloseAll())
}

func TestGetDialectorFactory_Unknown(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("oracle")
	assert.Error(t, err)
}
