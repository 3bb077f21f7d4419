// Package mysql registers the MySQL dialector.
package mysql

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
	gormadapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for MySQL connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dsn.DBName = c.Database
	dsn.ParseTime = true
	return dsn.FormatDSN()
}
