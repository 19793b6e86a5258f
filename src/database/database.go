package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DB represents the database connection
type DB struct {
	*sql.DB
	logger *logrus.Logger
}

// Config represents database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewDB creates a new database connection
func NewDB(config *Config, logger *logrus.Logger) (*DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 接続プールの設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.WithFields(logrus.Fields{
		"host":   config.Host,
		"dbname": config.DBName,
	}).Info("データベースに接続しました")

	return Wrap(db, logger), nil
}

// Wrap wraps an existing *sql.DB (used with sqlmock in tests)
func Wrap(db *sql.DB, logger *logrus.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

const schema = `
CREATE TABLE IF NOT EXISTS memos (
	id         UUID PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT 'personal',
	tags       TEXT[] NOT NULL DEFAULT '{}',
	summary    TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_memos_created_at ON memos (created_at DESC);`

// EnsureSchema creates the memos table when it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	db.logger.Debug("スキーマを確認しました")
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("データベース接続を閉じています")
	return db.DB.Close()
}

// Health checks database health
func (db *DB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}
