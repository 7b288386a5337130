// Package database opens the sqlx handles backing the SQL document drivers.
package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Pool bounds the connections a handle keeps.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Open connects with driver, applies the pool limits and pings once.
// Errors name the driver so the failing backend is obvious in logs.
func Open(driver, dsn string, pool Pool) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if pool.MaxOpen > 0 {
		db.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		db.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxLifetime)
	}
	if pool.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.MaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}
