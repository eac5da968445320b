package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/models"
	"github.com/dmitrijs2005/linkdeck/internal/server/auth"
	"github.com/dmitrijs2005/linkdeck/internal/server/docstore"
	"github.com/dmitrijs2005/linkdeck/internal/server/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, password string) (*Server, *docstore.Store) {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store := docstore.New(kv.NewMemoryStore(), logger)
	a := auth.New(password, time.Minute)
	return NewServer(":0", logger, store, a, "*"), store
}

func request(t *testing.T, handler http.Handler, method, target, secret string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(common.SyncSecretHeaderName, secret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func testDoc(device string, version int64, linkIDs ...string) *models.SyncDocument {
	links := make([]models.Link, 0, len(linkIDs))
	for _, id := range linkIDs {
		links = append(links, models.Link{ID: id, Title: id, URL: "https://" + id, CategoryID: "common"})
	}
	return &models.SyncDocument{
		Links:      links,
		Categories: []models.Category{{ID: "common", Name: "Common"}},
		Meta:       models.SyncMetadata{DeviceID: device, Version: version},
	}
}

func TestGet_EmptyStoreReturnsNull(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := request(t, srv.routes(), http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "v1", body["apiVersion"])
	assert.Nil(t, body["data"])
}

func TestScenario_FirstPushThenConditionalPush(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	// client 1: first push, no expected version
	rec := request(t, h, http.MethodPost, "/", "", pushRequest{Data: testDoc("dev-a", 0, "a")})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	data := body["data"].(map[string]any)
	meta := data["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["version"])

	// client 2 pulls and sees version 1
	rec = request(t, h, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	meta = body["data"].(map[string]any)["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["version"])

	// client 2 pushes with expectedVersion=1 after adding a link
	expected := int64(1)
	rec = request(t, h, http.MethodPost, "/", "", pushRequest{
		Data:            testDoc("dev-b", 1, "a", "b"),
		ExpectedVersion: &expected,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	meta = body["data"].(map[string]any)["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["version"])
}

func TestScenario_ConflictingPushReturns409WithCanonical(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	// drive canonical to version 2
	rec := request(t, h, http.MethodPost, "/", "", pushRequest{Data: testDoc("dev-a", 0, "a")})
	require.Equal(t, http.StatusOK, rec.Code)
	v1 := int64(1)
	rec = request(t, h, http.MethodPost, "/", "", pushRequest{Data: testDoc("dev-a", 1, "a", "b"), ExpectedVersion: &v1})
	require.Equal(t, http.StatusOK, rec.Code)

	// client A wins the race
	v2 := int64(2)
	rec = request(t, h, http.MethodPost, "/", "", pushRequest{Data: testDoc("dev-a", 2, "a", "b", "c"), ExpectedVersion: &v2})
	require.Equal(t, http.StatusOK, rec.Code)

	// client B pushes with the stale expectedVersion=2
	rec = request(t, h, http.MethodPost, "/", "", pushRequest{Data: testDoc("dev-b", 2, "a", "x"), ExpectedVersion: &v2})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["conflict"])

	// response carries the version-3 canonical document
	meta := body["data"].(map[string]any)["meta"].(map[string]any)
	assert.Equal(t, float64(3), meta["version"])
	assert.Equal(t, "dev-a", meta["deviceId"])
}

func TestBackupLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	rec := request(t, h, http.MethodPost, "/", "", pushRequest{Data: testDoc("dev-a", 0, "a")})
	require.Equal(t, http.StatusOK, rec.Code)

	// snapshot
	rec = request(t, h, http.MethodPost, "/?action=backup", "", backupRequest{Data: testDoc("dev-a", 1, "a")})
	require.Equal(t, http.StatusOK, rec.Code)
	backupKey := decode(t, rec)["backupKey"].(string)
	require.NotEmpty(t, backupKey)

	// list
	rec = request(t, h, http.MethodGet, "/?action=backups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	backups := decode(t, rec)["backups"].([]any)
	require.Len(t, backups, 1)
	assert.Equal(t, backupKey, backups[0].(map[string]any)["key"])

	// restore produces a rollback point
	rec = request(t, h, http.MethodPost, "/?action=restore", "", restoreRequest{BackupKey: backupKey, DeviceID: "dev-b"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body["rollbackKey"])
	meta := body["data"].(map[string]any)["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["version"])

	// delete
	rec = request(t, h, http.MethodDelete, "/?action=backup", "", deleteBackupRequest{BackupKey: backupKey})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, h, http.MethodDelete, "/?action=backup", "", deleteBackupRequest{BackupKey: backupKey})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestore_BadKeys(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	// malformed key is rejected before storage access
	rec := request(t, h, http.MethodPost, "/?action=restore", "", restoreRequest{BackupKey: "evil:key"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// well-formed but absent key
	rec = request(t, h, http.MethodPost, "/?action=restore", "", restoreRequest{BackupKey: docstore.BackupPrefix + "2024-01-01T00-00-00-000Z"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// missing key field
	rec = request(t, h, http.MethodPost, "/?action=restore", "", restoreRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidation_RejectsMalformedDocument(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	bad := testDoc("dev-a", 0, "a")
	bad.Links[0].URL = ""
	rec := request(t, h, http.MethodPost, "/", "", pushRequest{Data: bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h, http.MethodPost, "/", "", pushRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestUnknownActions(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	assert.Equal(t, http.StatusMethodNotAllowed, request(t, h, http.MethodGet, "/?action=bogus", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, request(t, h, http.MethodPost, "/?action=bogus", "", envelope{}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, request(t, h, http.MethodDelete, "/", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, request(t, h, http.MethodPut, "/", "", envelope{}).Code)
}

func TestAuth_SecretHeader(t *testing.T) {
	srv, _ := newTestServer(t, "hunter2")
	h := srv.routes()

	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/", "wrong", nil).Code)
	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/", "hunter2", nil).Code)
}

func TestAuth_BearerToken(t *testing.T) {
	srv, _ := newTestServer(t, "hunter2")
	h := srv.routes()

	// token endpoint requires the secret itself
	rec := request(t, h, http.MethodPost, "/?action=token", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(t, h, http.MethodPost, "/?action=token", "hunter2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec2 = httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestAuth_DisabledWhenNoPassword(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.routes()

	assert.Equal(t, http.StatusOK, request(t, h, http.MethodGet, "/", "", nil).Code)
	// token issuance is pointless without a configured password
	assert.Equal(t, http.StatusMethodNotAllowed, request(t, h, http.MethodPost, "/?action=token", "", nil).Code)
}
