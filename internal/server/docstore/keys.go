package docstore

import (
	"strings"
	"time"
)

// Storage keys are namespaced under a schema version so upgrades do not
// strand older deployments: reads fall back to the legacy, pre-versioning
// keys. Note BackupPrefix starts with LegacyBackupPrefix, so a listing by
// the legacy prefix also matches every current-prefix key; ListBackups
// dedupes accordingly.
const (
	DataKey       = "linkdeck:data:v1"
	LegacyDataKey = "linkdeck:data"

	BackupPrefix       = "linkdeck:backup:v1:"
	LegacyBackupPrefix = "linkdeck:backup:"

	// RollbackQualifier marks system-generated pre-restore snapshots.
	RollbackQualifier = "rollback-"

	// BackupRetention is how long a backup stays readable unless deleted.
	BackupRetention = 30 * 24 * time.Hour
)

// backupTimestamp renders t as an ISO-8601-like stamp with colons and dots
// replaced, so it is safe inside a storage key.
func backupTimestamp(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.ReplaceAll(stamp, ":", "-")
	stamp = strings.ReplaceAll(stamp, ".", "-")
	return stamp
}

// backupKey builds a backup storage key. qualifier is empty for user
// backups and RollbackQualifier for automatic pre-restore snapshots.
func backupKey(t time.Time, qualifier string) string {
	return BackupPrefix + qualifier + backupTimestamp(t)
}

// parseBackupTimestamp inverts backupTimestamp. The stamp has fixed
// width, so the substituted separators sit at known offsets.
func parseBackupTimestamp(stamp string) (time.Time, bool) {
	if len(stamp) != 24 {
		return time.Time{}, false
	}
	b := []byte(stamp)
	if b[13] != '-' || b[16] != '-' || b[19] != '-' {
		return time.Time{}, false
	}
	b[13], b[16], b[19] = ':', ':', '.'

	t, err := time.Parse("2006-01-02T15:04:05.000Z", string(b))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// validBackupKey reports whether key belongs to a recognized backup
// namespace. Anything else is rejected before storage is touched, so a
// crafted key cannot reach unrelated namespaces.
func validBackupKey(key string) bool {
	if !strings.HasPrefix(key, LegacyBackupPrefix) {
		return false
	}
	rest := strings.TrimPrefix(key, LegacyBackupPrefix)
	rest = strings.TrimPrefix(rest, "v1:")
	return rest != ""
}
