package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a *sql.DB.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseURL maps a DATABASE_URL onto a database/sql driver name and DSN.
func ParseURL(databaseURL string) (Dialect, string, string, error) {
	u := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(u)
	switch {
	case u == "":
		return "", "", "", fmt.Errorf("empty database url")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres, "pgx", u, nil
	case strings.HasPrefix(lower, "mysql://"):
		cfg, err := mysql.ParseDSN(u[len("mysql://"):])
		if err != nil {
			return "", "", "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		if cfg.Loc == nil {
			cfg.Loc = time.UTC
		}
		return MySQL, "mysql", cfg.FormatDSN(), nil
	case strings.HasPrefix(lower, "sqlite://"):
		return SQLite, "sqlite", u[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "sqlite:"):
		return SQLite, "sqlite", u[len("sqlite:"):], nil
	case strings.HasPrefix(lower, "file:"):
		return SQLite, "sqlite", strings.TrimPrefix(strings.SplitN(u[len("file:"):], "?", 2)[0], "//"), nil
	case !strings.Contains(u, "://"):
		return SQLite, "sqlite", u, nil
	}
	return "", "", "", fmt.Errorf("unsupported database url scheme")
}

// Open connects to the database named by databaseURL and verifies it with a ping.
func Open(databaseURL string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, Dialect, error) {
	dialect, driver, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, "", err
	}
	if dialect == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, "", fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}
