// internal/db/db.go
package db

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/outboundhq/outreach-backend/internal/config"
)

// Open connects to Postgres and verifies the connection.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
