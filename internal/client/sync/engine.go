// Package sync keeps the local document and the server copy in agreement.
//
// The engine never merges. Every push is conditional on the version the
// client believes the server holds, a mismatch surfaces as a conflict that
// the user resolves by picking one side whole. Failed syncs are not
// retried automatically, the next local change or a manual sync tries
// again.
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/client/api"
	"github.com/dmitrijs2005/linkdeck/internal/client/cache"
	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/models"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusPending  Status = "pending"
	StatusSyncing  Status = "syncing"
	StatusSynced   Status = "synced"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

// Choice selects which side of a conflict survives.
type Choice string

const (
	ChoiceLocal  Choice = "local"
	ChoiceRemote Choice = "remote"
)

// Conflict carries both full documents so the user can inspect them
// before choosing.
type Conflict struct {
	Local  *models.SyncDocument
	Remote *models.SyncDocument
}

type Engine struct {
	mu       sync.Mutex
	client   api.Client
	cache    *cache.Cache
	logger   logging.Logger
	debounce time.Duration

	deviceID string
	doc      *models.SyncDocument
	// snapshot of the last state known to match the server
	cleanSnapshot string
	status        Status
	conflict      *Conflict
	timer         *time.Timer

	onStatus   func(Status)
	onConflict func(Conflict)
	onError    func(error)
}

func NewEngine(client api.Client, c *cache.Cache, logger logging.Logger, debounce time.Duration) *Engine {
	return &Engine{
		client:   client,
		cache:    c,
		logger:   logger.With("module", "sync"),
		debounce: debounce,
		status:   StatusIdle,
	}
}

func (e *Engine) OnStatusChange(fn func(Status)) { e.mu.Lock(); e.onStatus = fn; e.mu.Unlock() }
func (e *Engine) OnConflict(fn func(Conflict))   { e.mu.Lock(); e.onConflict = fn; e.mu.Unlock() }
func (e *Engine) OnError(fn func(error))         { e.mu.Lock(); e.onError = fn; e.mu.Unlock() }

// setStatusLocked changes the status and returns the callback to run after
// the caller releases the mutex.
func (e *Engine) setStatusLocked(s Status) func() {
	if e.status == s {
		return func() {}
	}
	e.status = s
	fn := e.onStatus
	if fn == nil {
		return func() {}
	}
	return func() { fn(s) }
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Document returns an independent copy of the working document.
func (e *Engine) Document() *models.SyncDocument {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil
	}
	return cloneDoc(e.doc)
}

// CurrentConflict returns the unresolved conflict, if any.
func (e *Engine) CurrentConflict() *Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conflict
}

// InitialLoad brings the engine up from the cache and the server. When
// both sides hold a document and their versions disagree, the engine does
// not guess which side wins and raises a conflict instead.
func (e *Engine) InitialLoad(ctx context.Context) error {
	deviceID, err := e.cache.DeviceID(ctx)
	if err != nil {
		return err
	}

	local, err := e.cache.LoadLocal(ctx)
	if err != nil {
		return err
	}

	remote, err := e.client.Pull(ctx)
	if err != nil {
		// offline start, keep working from the cache
		e.logger.Info(ctx, "starting from local cache", "error", err.Error())
		e.mu.Lock()
		e.deviceID = deviceID
		e.doc = local
		if e.doc == nil {
			e.doc = emptyDocument()
		}
		e.cleanSnapshot = mustSnapshot(e.doc)
		notify := e.setStatusLocked(StatusIdle)
		e.mu.Unlock()
		notify()
		return nil
	}

	e.mu.Lock()
	e.deviceID = deviceID

	switch {
	case remote == nil && local == nil:
		e.doc = emptyDocument()
	case remote == nil:
		e.doc = local
	case local == nil:
		e.doc = remote
	case local.Meta.Version != remote.Meta.Version:
		e.doc = local
		e.cleanSnapshot = mustSnapshot(e.doc)
		e.conflict = &Conflict{Local: cloneDoc(local), Remote: remote}
		notify := e.setStatusLocked(StatusConflict)
		fn, c := e.onConflict, *e.conflict
		e.mu.Unlock()
		notify()
		if fn != nil {
			fn(c)
		}
		return nil
	default:
		e.doc = remote
	}

	e.cleanSnapshot = mustSnapshot(e.doc)
	notify := e.setStatusLocked(StatusSynced)
	doc := cloneDoc(e.doc)
	e.mu.Unlock()
	notify()

	if err := e.cache.SaveLocal(ctx, doc); err != nil {
		return err
	}
	return e.cache.SaveLocalMeta(ctx, &doc.Meta)
}

// Update applies a mutation to the working document. If the mutation
// actually changed anything a sync is scheduled after the debounce
// interval, counted from the most recent change.
func (e *Engine) Update(ctx context.Context, mutate func(*models.SyncDocument)) error {
	e.mu.Lock()

	if e.doc == nil {
		e.doc = emptyDocument()
	}
	mutate(e.doc)

	if mustSnapshot(e.doc) == e.cleanSnapshot {
		e.mu.Unlock()
		return nil
	}

	e.doc.Meta.UpdatedAt = time.Now().UnixMilli()
	e.doc.Meta.DeviceID = e.deviceID

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() { e.syncNow(context.Background()) })
	notify := e.setStatusLocked(StatusPending)
	doc := cloneDoc(e.doc)
	e.mu.Unlock()
	notify()

	return e.cache.SaveLocal(ctx, doc)
}

// CancelPendingSync stops a scheduled sync without discarding the local
// changes.
func (e *Engine) CancelPendingSync() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	var notify func()
	if e.status == StatusPending {
		notify = e.setStatusLocked(StatusIdle)
	} else {
		notify = func() {}
	}
	e.mu.Unlock()
	notify()
}

// SyncNow pushes immediately, skipping the debounce window.
func (e *Engine) SyncNow(ctx context.Context) {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	e.syncNow(ctx)
}

func (e *Engine) syncNow(ctx context.Context) {
	e.mu.Lock()
	if e.status == StatusConflict || e.doc == nil {
		e.mu.Unlock()
		return
	}
	notify := e.setStatusLocked(StatusSyncing)
	candidate := cloneDoc(e.doc)
	expected := candidate.Meta.Version
	e.mu.Unlock()
	notify()

	saved, err := e.client.Push(ctx, candidate, &expected)

	switch {
	case err == nil:
		e.adopt(ctx, saved, StatusSynced)
	case isConflict(err):
		e.mu.Lock()
		e.conflict = &Conflict{Local: cloneDoc(e.doc), Remote: saved}
		notify := e.setStatusLocked(StatusConflict)
		fn := e.onConflict
		c := *e.conflict
		e.mu.Unlock()
		notify()
		if fn != nil {
			fn(c)
		}
	default:
		e.logger.Error(ctx, "sync failed", "error", err.Error())
		e.mu.Lock()
		notify := e.setStatusLocked(StatusError)
		fn := e.onError
		e.mu.Unlock()
		notify()
		if fn != nil {
			fn(err)
		}
	}
}

// Pull refreshes from the server on user request. A version the engine
// did not expect is reported as a conflict rather than silently adopted.
func (e *Engine) Pull(ctx context.Context) error {
	remote, err := e.client.Pull(ctx)
	if err != nil {
		return err
	}
	if remote == nil {
		return common.ErrNotFound
	}

	e.mu.Lock()
	if e.doc != nil && e.doc.Meta.Version != remote.Meta.Version {
		e.conflict = &Conflict{Local: cloneDoc(e.doc), Remote: remote}
		notify := e.setStatusLocked(StatusConflict)
		fn, c := e.onConflict, *e.conflict
		e.mu.Unlock()
		notify()
		if fn != nil {
			fn(c)
		}
		return nil
	}
	e.mu.Unlock()

	return e.adopt(ctx, remote, StatusSynced)
}

// ForcePush overwrites the server copy with the local document. Only the
// user triggers this, conflict resolution included.
func (e *Engine) ForcePush(ctx context.Context) error {
	e.mu.Lock()
	if e.doc == nil {
		e.doc = emptyDocument()
	}
	candidate := cloneDoc(e.doc)
	e.mu.Unlock()

	saved, err := e.client.Push(ctx, candidate, nil)
	if err != nil {
		return err
	}
	return e.adopt(ctx, saved, StatusSynced)
}

// Resolve ends a conflict by keeping one side whole. Local wins by force
// pushing, remote wins by adopting the server copy.
func (e *Engine) Resolve(ctx context.Context, choice Choice) error {
	e.mu.Lock()
	c := e.conflict
	e.mu.Unlock()
	if c == nil {
		return common.ErrNotFound
	}

	switch choice {
	case ChoiceRemote:
		adopted := e.mergeOpaque(c.Remote)
		e.mu.Lock()
		e.conflict = nil
		e.mu.Unlock()
		return e.adopt(ctx, adopted, StatusSynced)
	default:
		e.mu.Lock()
		e.conflict = nil
		e.mu.Unlock()
		return e.ForcePush(ctx)
	}
}

// mergeOpaque keeps local opaque blobs, the vault ciphertext included,
// when the remote document does not carry them. Absence means the other
// device never touched the subsystem, not that it was cleared.
func (e *Engine) mergeOpaque(remote *models.SyncDocument) *models.SyncDocument {
	adopted := cloneDoc(remote)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return adopted
	}
	if adopted.SearchConfig == nil {
		adopted.SearchConfig = e.doc.SearchConfig
	}
	if adopted.AIConfig == nil {
		adopted.AIConfig = e.doc.AIConfig
	}
	if adopted.SiteSettings == nil {
		adopted.SiteSettings = e.doc.SiteSettings
	}
	if adopted.PrivateVault == "" {
		adopted.PrivateVault = e.doc.PrivateVault
	}
	return adopted
}

func (e *Engine) adopt(ctx context.Context, doc *models.SyncDocument, status Status) error {
	e.mu.Lock()
	e.doc = cloneDoc(doc)
	e.cleanSnapshot = mustSnapshot(e.doc)
	notify := e.setStatusLocked(status)
	saved := cloneDoc(e.doc)
	e.mu.Unlock()
	notify()

	if err := e.cache.SaveLocal(ctx, saved); err != nil {
		return err
	}
	return e.cache.SaveLocalMeta(ctx, &saved.Meta)
}

func isConflict(err error) bool {
	return errors.Is(err, common.ErrVersionConflict)
}

func emptyDocument() *models.SyncDocument {
	return &models.SyncDocument{
		Links:         []models.Link{},
		Categories:    []models.Category{},
		SchemaVersion: models.CurrentSchemaVersion,
	}
}

// cloneDoc deep-copies a document, returning the original pointer when
// serialization fails.
func cloneDoc(d *models.SyncDocument) *models.SyncDocument {
	c, err := d.Clone()
	if err != nil {
		return d
	}
	return c
}

func mustSnapshot(doc *models.SyncDocument) string {
	s, err := doc.Snapshot()
	if err != nil {
		return ""
	}
	return s
}
