package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/campus-timetable-api/pkg/config"
)

// PostgresDSN returns cfg.URL when set, otherwise a keyword/value DSN with
// every value quoted so passwords may contain spaces or quotes.
func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	pairs := []struct{ key, value string }{
		{"host", cfg.Host},
		{"port", fmt.Sprint(cfg.Port)},
		{"user", cfg.User},
		{"password", cfg.Password},
		{"dbname", cfg.Name},
		{"sslmode", sslMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" || (p.key == "port" && cfg.Port == 0) {
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// NewPostgres opens the PostgreSQL handle.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return Open("postgres", PostgresDSN(cfg), Pool{
		MaxOpen:     cfg.MaxOpenConns,
		MaxIdle:     cfg.MaxIdleConns,
		MaxLifetime: time.Hour,
		MaxIdleTime: 30 * time.Minute,
	})
}
