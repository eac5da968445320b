package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/client/api"
	"github.com/dmitrijs2005/linkdeck/internal/client/cache"
	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeClient mimics the server's compare-and-swap behaviour in memory.
type fakeClient struct {
	mu        sync.Mutex
	canonical *models.SyncDocument
	pushCount int
	pullErr   error
	pushErr   error
}

func (f *fakeClient) Pull(ctx context.Context) (*models.SyncDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	if f.canonical == nil {
		return nil, nil
	}
	return mustClone(f.canonical), nil
}

func mustClone(d *models.SyncDocument) *models.SyncDocument {
	c, err := d.Clone()
	if err != nil {
		panic(err)
	}
	return c
}

func (f *fakeClient) Push(ctx context.Context, doc *models.SyncDocument, expectedVersion *int64) (*models.SyncDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCount++

	if f.pushErr != nil {
		return nil, f.pushErr
	}

	var canonicalVersion int64
	if f.canonical != nil {
		canonicalVersion = f.canonical.Meta.Version
	}
	if expectedVersion != nil && *expectedVersion != canonicalVersion {
		return mustClone(f.canonical), common.ErrVersionConflict
	}

	saved := mustClone(doc)
	saved.Meta.Version = canonicalVersion + 1
	saved.Meta.UpdatedAt = time.Now().UnixMilli()
	f.canonical = saved
	return mustClone(saved), nil
}

func (f *fakeClient) CreateBackup(ctx context.Context, doc *models.SyncDocument) (string, error) {
	return "", nil
}

func (f *fakeClient) ListBackups(ctx context.Context) ([]api.BackupInfo, error) { return nil, nil }

func (f *fakeClient) Restore(ctx context.Context, backupKey, deviceID string) (*models.SyncDocument, string, error) {
	return nil, "", nil
}

func (f *fakeClient) DeleteBackup(ctx context.Context, backupKey string) error { return nil }

func (f *fakeClient) pushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushCount
}

func setupEngine(t *testing.T, client api.Client, debounce time.Duration) *Engine {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, cache.RunMigrations(context.Background(), db))

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewEngine(client, cache.New(db), logger, debounce)
}

func waitForStatus(t *testing.T, e *Engine, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never reached %q, still %q", want, e.Status())
}

func addLink(id string) func(*models.SyncDocument) {
	return func(d *models.SyncDocument) {
		d.Links = append(d.Links, models.Link{
			ID: id, Title: id, URL: "https://example.com/" + id, CategoryID: "common",
		})
	}
}

func TestInitialLoadBothEmpty(t *testing.T) {
	e := setupEngine(t, &fakeClient{}, time.Hour)

	require.NoError(t, e.InitialLoad(context.Background()))
	assert.Equal(t, StatusSynced, e.Status())

	doc := e.Document()
	require.NotNil(t, doc)
	assert.Empty(t, doc.Links)
	assert.Equal(t, int64(0), doc.Meta.Version)
}

func TestInitialLoadAdoptsRemote(t *testing.T) {
	remote := &models.SyncDocument{
		Links: []models.Link{{ID: "l1", Title: "Docs", URL: "https://go.dev", CategoryID: "common"}},
		Meta:  models.SyncMetadata{Version: 7},
	}
	e := setupEngine(t, &fakeClient{canonical: remote}, time.Hour)

	require.NoError(t, e.InitialLoad(context.Background()))
	assert.Equal(t, StatusSynced, e.Status())
	assert.Equal(t, int64(7), e.Document().Meta.Version)
}

func TestInitialLoadVersionMismatchIsConflict(t *testing.T) {
	client := &fakeClient{canonical: &models.SyncDocument{Meta: models.SyncMetadata{Version: 9}}}
	e := setupEngine(t, client, time.Hour)

	local := &models.SyncDocument{Meta: models.SyncMetadata{Version: 4}}
	require.NoError(t, e.cache.SaveLocal(context.Background(), local))

	var got *Conflict
	e.OnConflict(func(c Conflict) { got = &c })

	require.NoError(t, e.InitialLoad(context.Background()))
	assert.Equal(t, StatusConflict, e.Status())
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.Local.Meta.Version)
	assert.Equal(t, int64(9), got.Remote.Meta.Version)
}

func TestInitialLoadOfflineFallsBackToCache(t *testing.T) {
	client := &fakeClient{pullErr: api.ErrUnavailable}
	e := setupEngine(t, client, time.Hour)

	local := &models.SyncDocument{
		Links: []models.Link{{ID: "l1", Title: "Cached", URL: "https://example.com", CategoryID: "common"}},
		Meta:  models.SyncMetadata{Version: 2},
	}
	require.NoError(t, e.cache.SaveLocal(context.Background(), local))

	require.NoError(t, e.InitialLoad(context.Background()))
	assert.Equal(t, StatusIdle, e.Status())
	require.Len(t, e.Document().Links, 1)
}

func TestDebounceCoalescesMutations(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, e.Update(ctx, addLink(id)))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, StatusPending, e.Status())

	waitForStatus(t, e, StatusSynced)

	assert.Equal(t, 1, client.pushes())
	doc := e.Document()
	assert.Len(t, doc.Links, 5)
	assert.Equal(t, int64(1), doc.Meta.Version)

	// the new version belief is persisted alongside the document
	meta, err := e.cache.LoadLocalMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, int64(1), meta.Version)
}

func TestUpdateNoChangeDoesNotSchedule(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, func(d *models.SyncDocument) {}))

	assert.Equal(t, StatusSynced, e.Status())
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, client.pushes())
}

func TestCancelPendingSync(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, 30*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, addLink("a")))
	e.CancelPendingSync()

	assert.Equal(t, StatusIdle, e.Status())
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, client.pushes())

	require.Len(t, e.Document().Links, 1)
}

func TestConflictSurfacedNotMerged(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, addLink("mine")))

	// another device wins the race
	other := &models.SyncDocument{
		Links: []models.Link{{ID: "theirs", Title: "Theirs", URL: "https://example.org", CategoryID: "common"}},
		Meta:  models.SyncMetadata{Version: 0},
	}
	_, err := client.Push(ctx, other, nil)
	require.NoError(t, err)

	var got *Conflict
	e.OnConflict(func(c Conflict) { got = &c })

	e.SyncNow(ctx)

	assert.Equal(t, StatusConflict, e.Status())
	require.NotNil(t, got)
	require.Len(t, got.Local.Links, 1)
	assert.Equal(t, "mine", got.Local.Links[0].ID)
	require.Len(t, got.Remote.Links, 1)
	assert.Equal(t, "theirs", got.Remote.Links[0].ID)

	// local copy untouched until the user decides
	assert.Equal(t, "mine", e.Document().Links[0].ID)
}

func TestResolveLocalForcePushes(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, addLink("mine")))
	_, err := client.Push(ctx, &models.SyncDocument{Meta: models.SyncMetadata{}}, nil)
	require.NoError(t, err)

	e.SyncNow(ctx)
	require.Equal(t, StatusConflict, e.Status())

	require.NoError(t, e.Resolve(ctx, ChoiceLocal))
	assert.Equal(t, StatusSynced, e.Status())

	remote, err := client.Pull(ctx)
	require.NoError(t, err)
	require.Len(t, remote.Links, 1)
	assert.Equal(t, "mine", remote.Links[0].ID)
	assert.Equal(t, int64(2), remote.Meta.Version)
}

func TestResolveRemoteAdoptsAndKeepsOpaqueSettings(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, func(d *models.SyncDocument) {
		addLink("mine")(d)
		d.SearchConfig = json.RawMessage(`{"engine":"duckduckgo"}`)
	}))

	remote := &models.SyncDocument{
		Links: []models.Link{{ID: "theirs", Title: "Theirs", URL: "https://example.org", CategoryID: "common"}},
	}
	_, err := client.Push(ctx, remote, nil)
	require.NoError(t, err)

	e.SyncNow(ctx)
	require.Equal(t, StatusConflict, e.Status())

	require.NoError(t, e.Resolve(ctx, ChoiceRemote))
	assert.Equal(t, StatusSynced, e.Status())

	doc := e.Document()
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "theirs", doc.Links[0].ID)
	assert.JSONEq(t, `{"engine":"duckduckgo"}`, string(doc.SearchConfig))
}

func TestResolveRemoteKeepsLocalVaultCiphertext(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, func(d *models.SyncDocument) {
		addLink("mine")(d)
		d.PrivateVault = "ciphertext-from-this-device"
	}))

	// the winning remote document never had a vault
	remote := &models.SyncDocument{
		Links: []models.Link{{ID: "theirs", Title: "Theirs", URL: "https://example.org", CategoryID: "common"}},
	}
	_, err := client.Push(ctx, remote, nil)
	require.NoError(t, err)

	e.SyncNow(ctx)
	require.Equal(t, StatusConflict, e.Status())

	require.NoError(t, e.Resolve(ctx, ChoiceRemote))
	assert.Equal(t, StatusSynced, e.Status())

	doc := e.Document()
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "theirs", doc.Links[0].ID)
	assert.Equal(t, "ciphertext-from-this-device", doc.PrivateVault)
}

func TestSyncErrorNoRetry(t *testing.T) {
	client := &fakeClient{pushErr: errors.New("boom")}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))

	var reported error
	e.OnError(func(err error) { reported = err })

	require.NoError(t, e.Update(ctx, addLink("a")))
	e.SyncNow(ctx)

	assert.Equal(t, StatusError, e.Status())
	require.Error(t, reported)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, client.pushes())
}

func TestPullVersionMismatchIsConflict(t *testing.T) {
	client := &fakeClient{}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Update(ctx, addLink("a")))
	e.SyncNow(ctx)
	waitForStatus(t, e, StatusSynced)

	_, err := client.Push(ctx, &models.SyncDocument{Meta: models.SyncMetadata{}}, nil)
	require.NoError(t, err)

	require.NoError(t, e.Pull(ctx))
	assert.Equal(t, StatusConflict, e.Status())
}

func TestPullCleanAdopts(t *testing.T) {
	client := &fakeClient{canonical: &models.SyncDocument{
		Links: []models.Link{{ID: "l1", Title: "Docs", URL: "https://go.dev", CategoryID: "common"}},
		Meta:  models.SyncMetadata{Version: 3},
	}}
	e := setupEngine(t, client, time.Hour)
	ctx := context.Background()

	require.NoError(t, e.InitialLoad(ctx))
	require.NoError(t, e.Pull(ctx))

	assert.Equal(t, StatusSynced, e.Status())
	assert.Equal(t, int64(3), e.Document().Meta.Version)
}
