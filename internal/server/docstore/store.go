// Package docstore layers optimistic versioning on top of the opaque
// key-value store: conditional writes (compare-and-swap on the document
// version), timestamped backups with a retention window, and restore with
// an automatic rollback point.
//
// The store never merges. A conditional write either lands, bumping the
// version by exactly 1, or is rejected wholesale and the caller receives
// the untouched canonical document to reconcile against.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/models"
	"github.com/dmitrijs2005/linkdeck/internal/server/kv"
)

// BackupInfo describes one stored backup. Meta is nil when the backup blob
// could not be read or parsed; the listing itself still succeeds.
type BackupInfo struct {
	Key           string               `json:"key"`
	Timestamp     string               `json:"timestamp"`
	ExpiresAt     int64                `json:"expiresAt,omitempty"`
	SchemaVersion int                  `json:"schemaVersion,omitempty"`
	Meta          *models.SyncMetadata `json:"meta"`
}

// Store is the versioned document store. A single mutex serializes the
// read-modify-write cycle of conditional writes: there is exactly one
// logical document, and the KV backends offer no transactions.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	logger logging.Logger
	now    func() time.Time
}

func New(backend kv.Store, logger logging.Logger) *Store {
	return &Store{
		kv:     backend,
		logger: logger.With("module", "docstore"),
		now:    time.Now,
	}
}

// SetClock replaces the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// LoadCurrent reads the canonical document, falling back to the legacy
// unversioned key when the versioned key is absent. Returns (nil, nil)
// when no document exists yet. No side effects.
func (s *Store) LoadCurrent(ctx context.Context) (*models.SyncDocument, error) {
	for _, key := range []string{DataKey, LegacyDataKey} {
		raw, err := s.kv.Get(ctx, key)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load current: %w", err)
		}

		var doc models.SyncDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("load current: decode %s: %w", key, err)
		}
		return &doc, nil
	}
	return nil, nil
}

// SaveCurrent attempts a conditional write of candidate.
//
// When expectedVersion is non-nil and a canonical document exists, the
// write is accepted only if *expectedVersion equals the canonical version;
// otherwise the untouched canonical document is returned together with
// common.ErrVersionConflict. When expectedVersion is nil the write always
// lands (force mode, the human said local wins).
//
// On acceptance the stored document carries version canonical+1 (or 1 when
// none existed) and a fresh updatedAt; the saved document is returned.
func (s *Store) SaveCurrent(ctx context.Context, candidate *models.SyncDocument, expectedVersion *int64) (*models.SyncDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.LoadCurrent(ctx)
	if err != nil {
		return nil, err
	}

	var currentVersion int64
	if current != nil {
		currentVersion = current.Meta.Version
	}

	if current != nil && expectedVersion != nil && *expectedVersion != currentVersion {
		s.logger.Info(ctx, "conflicting write rejected",
			"expected", *expectedVersion, "canonical", currentVersion)
		return current, common.ErrVersionConflict
	}

	saved, err := candidate.Clone()
	if err != nil {
		return nil, fmt.Errorf("save current: %w", err)
	}
	saved.Meta.Version = currentVersion + 1
	saved.Meta.UpdatedAt = s.now().UnixMilli()

	if err := s.putDocument(ctx, DataKey, saved, 0); err != nil {
		return nil, err
	}

	return saved, nil
}

// CreateBackup snapshots doc under a timestamped key with the standard
// retention TTL. The canonical document and its version are untouched.
func (s *Store) CreateBackup(ctx context.Context, doc *models.SyncDocument) (string, error) {
	key := backupKey(s.now(), "")
	if err := s.putDocument(ctx, key, doc, BackupRetention); err != nil {
		return "", err
	}
	return key, nil
}

// ListBackups returns every stored backup, newest first. Keys are gathered
// under both the current and legacy prefixes; since the legacy prefix is a
// string prefix of the current one, keys seen under both are counted once.
// Reading an individual backup is best-effort: a failure degrades that
// entry to Meta == nil instead of failing the listing.
func (s *Store) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	seen := make(map[string]struct{})
	var keys []string

	for _, prefix := range []string{BackupPrefix, LegacyBackupPrefix} {
		listed, err := s.kv.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, k := range listed {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	infos := make([]BackupInfo, 0, len(keys))
	for _, key := range keys {
		info := BackupInfo{Key: key, Timestamp: timestampFromKey(key)}

		// retention runs from backup creation, which the key records
		if created, ok := parseBackupTimestamp(info.Timestamp); ok {
			info.ExpiresAt = created.Add(BackupRetention).UnixMilli()
		}

		raw, err := s.kv.Get(ctx, key)
		if err == nil {
			var doc models.SyncDocument
			if err := json.Unmarshal(raw, &doc); err == nil {
				meta := doc.Meta
				info.Meta = &meta
				info.SchemaVersion = doc.SchemaVersion
			} else {
				s.logger.Warn(ctx, "unreadable backup in listing", "key", key, "error", err)
			}
		} else {
			s.logger.Warn(ctx, "unreadable backup in listing", "key", key, "error", err)
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// GetBackup reads a single backup document.
func (s *Store) GetBackup(ctx context.Context, key string) (*models.SyncDocument, error) {
	if !validBackupKey(key) {
		return nil, common.ErrMalformedBackupKey
	}

	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", key, err)
	}

	var doc models.SyncDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("get backup %s: decode: %w", key, err)
	}
	return &doc, nil
}

// RestoreFromBackup makes the named backup the canonical document.
//
// If a canonical document exists it is first snapshotted under a
// rollback-qualified backup key (same retention as normal backups), so a
// bad restore can itself be undone. The restored document is written with
// version canonical+1 and a fresh updatedAt; deviceID, when non-empty,
// stamps the restoring device, otherwise the backup's device is preserved.
// Returns the restored document and the rollback key ("" when there was
// nothing to roll back).
func (s *Store) RestoreFromBackup(ctx context.Context, key string, deviceID string) (*models.SyncDocument, string, error) {
	if !validBackupKey(key) {
		return nil, "", common.ErrMalformedBackupKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.GetBackup(ctx, key)
	if err != nil {
		return nil, "", err
	}

	current, err := s.LoadCurrent(ctx)
	if err != nil {
		return nil, "", err
	}

	rollbackKey := ""
	var currentVersion int64
	if current != nil {
		currentVersion = current.Meta.Version
		rollbackKey = backupKey(s.now(), RollbackQualifier)
		if err := s.putDocument(ctx, rollbackKey, current, BackupRetention); err != nil {
			return nil, "", fmt.Errorf("rollback point: %w", err)
		}
	}

	restored, err := backup.Clone()
	if err != nil {
		return nil, "", fmt.Errorf("restore: %w", err)
	}
	restored.Meta.Version = currentVersion + 1
	restored.Meta.UpdatedAt = s.now().UnixMilli()
	if deviceID != "" {
		restored.Meta.DeviceID = deviceID
	}

	if err := s.putDocument(ctx, DataKey, restored, 0); err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "restored from backup",
		"backup", key, "rollback", rollbackKey, "version", restored.Meta.Version)

	return restored, rollbackKey, nil
}

// DeleteBackup removes a single backup. The key must belong to a backup
// namespace and resolve to stored data; otherwise ErrMalformedBackupKey or
// ErrNotFound respectively.
func (s *Store) DeleteBackup(ctx context.Context, key string) error {
	if !validBackupKey(key) {
		return common.ErrMalformedBackupKey
	}

	if _, err := s.kv.Get(ctx, key); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("delete backup %s: %w", key, err)
	}

	return s.kv.Delete(ctx, key)
}

func (s *Store) putDocument(ctx context.Context, key string, doc *models.SyncDocument, ttl time.Duration) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func timestampFromKey(key string) string {
	for _, prefix := range []string{BackupPrefix, LegacyBackupPrefix} {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			rest := key[len(prefix):]
			if len(rest) > len(RollbackQualifier) && rest[:len(RollbackQualifier)] == RollbackQualifier {
				return rest[len(RollbackQualifier):]
			}
			return rest
		}
	}
	return key
}
