package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mbolis/quick-forms/config"
)

// Open connects to the configured database and brings its schema up to
// date.
func Open(cfg config.Config) (db *sql.DB, err error) {
	dsn := cfg.DBUrl
	if cfg.DBDriver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err = sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		return
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db, cfg.DBDriver)
	if err != nil {
		db.Close()
		return
	}

	return
}

// foreign keys are a per-connection pragma in SQLite, so they go in the DSN
// to reach every pooled connection
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}
