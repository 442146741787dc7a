package governance

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database types.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
	DatabaseMySQL    = "mysql"
)

// OpenDatabase opens a gorm connection for dbType. An empty dbType means
// sqlite; an empty sqlite dsn means a private in-memory database.
func OpenDatabase(dbType, dsn string, opts ...gorm.Option) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case DatabaseSQLite, "":
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	case DatabasePostgres, "postgresql":
		if dsn == "" {
			return nil, fmt.Errorf("database dsn is required for %s", DatabasePostgres)
		}
		dialector = postgres.Open(dsn)
	case DatabaseMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("database dsn is required for %s", DatabaseMySQL)
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q (expected sqlite, postgres or mysql)", dbType)
	}

	if len(opts) == 0 {
		opts = []gorm.Option{&gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}}
	}
	db, err := gorm.Open(dialector, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialector.Name(), err)
	}
	if dialector.Name() == "sqlite" && dsn == ":memory:" {
		// Each connection to :memory: is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
