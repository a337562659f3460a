// Package database handles MySQL database connections backing the row
// source that feeds the render pipeline.
package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"rowpage/config"
)

var db *sqlx.DB

// connectRetryDelay is the fixed backoff between connection attempts at
// startup, matching the upstream connection pool's retry behavior so a
// database that comes up a few seconds after the web server doesn't take
// the whole process down with it.
const connectRetryDelay = 5 * time.Second

// Init initializes the database connection pool, making up to
// cfg.ConnectRetries connection attempts (at least one) before giving up.
func Init(cfg *config.DatabaseConfig) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.Charset,
	)

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var conn *sqlx.DB
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		conn, err = sqlx.Connect("mysql", dsn)
		if err == nil {
			if err = conn.Ping(); err == nil {
				break
			}
			conn.Close()
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", retries).
			Msg("database connection attempt failed")

		if attempt < retries {
			time.Sleep(connectRetryDelay)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database after %d attempts: %w", retries, err)
	}
	db = conn

	maxConns := cfg.PoolSize
	if maxConns < 50 {
		maxConns = 50
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("pool_size", cfg.PoolSize).
		Msg("database connection established")

	return nil
}

// GetDB returns the database connection
func GetDB() *sqlx.DB {
	return db
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// FetchOne fetches a single row
func FetchOne(dest interface{}, query string, args ...interface{}) error {
	return db.Get(dest, query, args...)
}

// FetchAll fetches multiple rows
func FetchAll(dest interface{}, query string, args ...interface{}) error {
	return db.Select(dest, query, args...)
}

// Execute executes a query without returning results
func Execute(query string, args ...interface{}) error {
	_, err := db.Exec(query, args...)
	return err
}

// Insert inserts a record and returns the last insert ID
func Insert(table string, data map[string]interface{}) (int64, error) {
	columns := ""
	placeholders := ""
	values := make([]interface{}, 0, len(data))

	for col, val := range data {
		if columns != "" {
			columns += ", "
			placeholders += ", "
		}
		columns += col
		placeholders += "?"
		values = append(values, val)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, placeholders)
	result, err := db.Exec(query, values...)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}
