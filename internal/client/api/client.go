// Package api is the client-side gateway to the sync server's HTTP
// resource. It maps status codes back onto the shared sentinel errors, so
// the sync engine reasons about conflicts and auth without touching HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/models"
)

// BackupInfo mirrors the server's backup listing entry.
type BackupInfo struct {
	Key           string               `json:"key"`
	Timestamp     string               `json:"timestamp"`
	ExpiresAt     int64                `json:"expiresAt,omitempty"`
	SchemaVersion int                  `json:"schemaVersion,omitempty"`
	Meta          *models.SyncMetadata `json:"meta"`
}

// Client is the remote store as the sync engine sees it.
type Client interface {
	Pull(ctx context.Context) (*models.SyncDocument, error)
	Push(ctx context.Context, doc *models.SyncDocument, expectedVersion *int64) (*models.SyncDocument, error)
	CreateBackup(ctx context.Context, doc *models.SyncDocument) (string, error)
	ListBackups(ctx context.Context) ([]BackupInfo, error)
	Restore(ctx context.Context, backupKey, deviceID string) (*models.SyncDocument, string, error)
	DeleteBackup(ctx context.Context, backupKey string) error
}

// HTTPClient talks to the single sync resource over HTTP JSON.
type HTTPClient struct {
	baseURL  string
	password string
	http     *http.Client
}

func NewHTTPClient(baseURL, password string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		password: password,
		http:     &http.Client{Timeout: timeout},
	}
}

type wireResponse struct {
	Success     bool                 `json:"success"`
	APIVersion  string               `json:"apiVersion"`
	Error       string               `json:"error"`
	Conflict    bool                 `json:"conflict"`
	Data        *models.SyncDocument `json:"data"`
	Backups     []BackupInfo         `json:"backups"`
	BackupKey   string               `json:"backupKey"`
	RollbackKey *string              `json:"rollbackKey"`
	Token       string               `json:"token"`
}

func (c *HTTPClient) do(ctx context.Context, method, query string, body any) (*wireResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	url := c.baseURL + "/"
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.password != "" {
		req.Header.Set(common.SyncSecretHeaderName, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// non-JSON body counts as a transport failure
		return nil, fmt.Errorf("%w: non-JSON response (status %d)", ErrUnavailable, resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &out, nil
	case http.StatusConflict:
		return &out, common.ErrVersionConflict
	case http.StatusUnauthorized:
		return &out, common.ErrUnauthorized
	case http.StatusNotFound:
		return &out, common.ErrNotFound
	case http.StatusBadRequest:
		return &out, fmt.Errorf("%w: %s", common.ErrInvalidDocument, out.Error)
	default:
		return &out, fmt.Errorf("server error (status %d): %s", resp.StatusCode, out.Error)
	}
}

// Pull reads the canonical document; nil means no document exists yet.
func (c *HTTPClient) Pull(ctx context.Context) (*models.SyncDocument, error) {
	resp, err := c.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Push performs a conditional write. A nil expectedVersion forces the
// write. On a version conflict the canonical document is returned together
// with common.ErrVersionConflict.
func (c *HTTPClient) Push(ctx context.Context, doc *models.SyncDocument, expectedVersion *int64) (*models.SyncDocument, error) {
	body := map[string]any{"data": doc}
	if expectedVersion != nil {
		body["expectedVersion"] = *expectedVersion
	}

	resp, err := c.do(ctx, http.MethodPost, "", body)
	if resp != nil && (err == nil || resp.Conflict) {
		return resp.Data, err
	}
	return nil, err
}

func (c *HTTPClient) CreateBackup(ctx context.Context, doc *models.SyncDocument) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "action=backup", map[string]any{"data": doc})
	if err != nil {
		return "", err
	}
	return resp.BackupKey, nil
}

func (c *HTTPClient) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "action=backups", nil)
	if err != nil {
		return nil, err
	}
	return resp.Backups, nil
}

func (c *HTTPClient) Restore(ctx context.Context, backupKey, deviceID string) (*models.SyncDocument, string, error) {
	body := map[string]any{"backupKey": backupKey}
	if deviceID != "" {
		body["deviceId"] = deviceID
	}

	resp, err := c.do(ctx, http.MethodPost, "action=restore", body)
	if err != nil {
		return nil, "", err
	}

	rollbackKey := ""
	if resp.RollbackKey != nil {
		rollbackKey = *resp.RollbackKey
	}
	return resp.Data, rollbackKey, nil
}

func (c *HTTPClient) DeleteBackup(ctx context.Context, backupKey string) error {
	_, err := c.do(ctx, http.MethodDelete, "action=backup", map[string]any{"backupKey": backupKey})
	return err
}

// Token exchanges the configured password for a short-lived session token.
func (c *HTTPClient) Token(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "action=token", nil)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}
