package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDB opens the Postgres pool and verifies connectivity. Snapshot
// loads hold a connection for the whole read, so the pool allows a few
// concurrent report runs plus the request handlers.
func InitDB(connStr string) error {
	if connStr == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(30 * time.Minute)

	return DB.Ping()
}

func GetDB() *sql.DB {
	return DB
}
