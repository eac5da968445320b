// Package cache persists the local copy of the sync document in SQLite so
// the dashboard keeps working while the server is unreachable.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/dbx"
	"github.com/dmitrijs2005/linkdeck/internal/models"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	deviceIDKey = "deviceId"
	syncMetaKey = "syncMeta"
)

// Cache stores a single local document plus small metadata entries.
type Cache struct {
	db *sql.DB
}

func New(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Open opens the SQLite database at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Cache, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return New(db), db, nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// LoadLocal returns the cached document, or (nil, nil) when the cache is
// empty or the stored body does not parse. A broken cache is treated the
// same as an empty one, the server copy is authoritative.
func (c *Cache) LoadLocal(ctx context.Context) (*models.SyncDocument, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx, `SELECT body FROM document WHERE id = 1`).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load local document: %w", err)
	}

	var doc models.SyncDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil
	}
	return &doc, nil
}

func (c *Cache) SaveLocal(ctx context.Context, doc *models.SyncDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode local document: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO document (id, body) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body
	`, body)
	if err != nil {
		return fmt.Errorf("failed to save local document: %w", err)
	}
	return nil
}

func (c *Cache) GetMeta(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (c *Cache) SetMeta(ctx context.Context, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// LoadLocalMeta returns the sync metadata of the last state known to
// match the server, or (nil, nil) when none was recorded yet. An
// unreadable record is treated the same as a missing one.
func (c *Cache) LoadLocalMeta(ctx context.Context) (*models.SyncMetadata, error) {
	value, err := c.GetMeta(ctx, syncMetaKey)
	if err != nil || value == nil {
		return nil, err
	}

	var meta models.SyncMetadata
	if err := json.Unmarshal(value, &meta); err != nil {
		return nil, nil
	}
	return &meta, nil
}

// SaveLocalMeta records the version belief after a successful exchange
// with the server.
func (c *Cache) SaveLocalMeta(ctx context.Context, meta *models.SyncMetadata) error {
	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode sync metadata: %w", err)
	}
	return c.SetMeta(ctx, syncMetaKey, value)
}

// DeviceID returns this installation's stable identifier, generating and
// persisting one on first use.
func (c *Cache) DeviceID(ctx context.Context) (string, error) {
	value, err := c.GetMeta(ctx, deviceIDKey)
	if err != nil {
		return "", err
	}
	if len(value) > 0 {
		return string(value), nil
	}

	id, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate device id: %w", err)
	}
	if err := c.SetMeta(ctx, deviceIDKey, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// Clear drops the cached document and all metadata, device identity
// included. The two deletes run in a single transaction.
func (c *Cache) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document`); err != nil {
			return fmt.Errorf("failed to clear local document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}
		return nil
	})
}
