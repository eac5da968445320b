package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/models"
)

type pushRequest struct {
	Data            *models.SyncDocument `json:"data"`
	ExpectedVersion *int64               `json:"expectedVersion"`
}

type backupRequest struct {
	Data *models.SyncDocument `json:"data"`
}

type restoreRequest struct {
	BackupKey string `json:"backupKey"`
	DeviceID  string `json:"deviceId"`
}

type deleteBackupRequest struct {
	BackupKey string `json:"backupKey"`
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "":
		s.readCurrent(w, r)
	case "backups":
		s.listBackups(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unknown action")
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "":
		s.saveCurrent(w, r)
	case "backup":
		s.createBackup(w, r)
	case "restore":
		s.restoreBackup(w, r)
	case "token":
		s.issueToken(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unknown action")
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "backup":
		s.deleteBackup(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unknown action")
	}
}

func (s *Server) readCurrent(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.LoadCurrent(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := newEnvelope(true)
	body["data"] = doc // null when no document exists yet
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) saveCurrent(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Data == nil {
		writeError(w, http.StatusBadRequest, "missing data")
		return
	}
	if err := req.Data.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.store.SaveCurrent(r.Context(), req.Data, req.ExpectedVersion)
	if errors.Is(err, common.ErrVersionConflict) {
		// not a failure: the canonical document rides along so the client
		// can reconcile
		body := newEnvelope(false)
		body["conflict"] = true
		body["data"] = saved
		writeJSON(w, http.StatusConflict, body)
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := newEnvelope(true)
	body["data"] = saved
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.store.ListBackups(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := newEnvelope(true)
	body["backups"] = backups
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) createBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Data == nil {
		writeError(w, http.StatusBadRequest, "missing data")
		return
	}
	if err := req.Data.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := s.store.CreateBackup(r.Context(), req.Data)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := newEnvelope(true)
	body["backupKey"] = key
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) restoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BackupKey == "" {
		writeError(w, http.StatusBadRequest, "missing backupKey")
		return
	}

	restored, rollbackKey, err := s.store.RestoreFromBackup(r.Context(), req.BackupKey, req.DeviceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := newEnvelope(true)
	body["data"] = restored
	if rollbackKey != "" {
		body["rollbackKey"] = rollbackKey
	} else {
		body["rollbackKey"] = nil
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) deleteBackup(w http.ResponseWriter, r *http.Request) {
	var req deleteBackupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BackupKey == "" {
		writeError(w, http.StatusBadRequest, "missing backupKey")
		return
	}

	if err := s.store.DeleteBackup(r.Context(), req.BackupKey); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newEnvelope(true))
}

// issueToken exchanges the sync password for a short-lived session token.
// Unlike the other operations it insists on the shared secret itself; a
// token cannot mint another token.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		writeError(w, http.StatusMethodNotAllowed, "authentication not configured")
		return
	}

	if err := s.auth.CheckSecret(r.Header.Get(common.SyncSecretHeaderName)); err != nil {
		writeError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
		return
	}

	token, err := s.auth.IssueToken()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := newEnvelope(true)
	body["token"] = token
	writeJSON(w, http.StatusOK, body)
}
