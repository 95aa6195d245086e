package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// DB is the shared connection pool, set by InitDB.
var DB *sql.DB

// InitDB opens the Postgres pool and verifies connectivity.
func InitDB(url string) error {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return err
	}
	DB = db
	log.Info().Msg("database connection established")
	return nil
}

// CloseDB closes the pool. Called on shutdown.
func CloseDB() {
	if DB != nil {
		DB.Close()
	}
}
