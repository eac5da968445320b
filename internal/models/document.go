// Package models defines the synced bookmark document and its metadata.
//
// A deployment has exactly one logical SyncDocument: the user's whole
// bookmark set. The canonical copy lives in the server-side store; clients
// hold a mirror plus a belief about its version.
package models

import "encoding/json"

// Link is a single bookmark entry.
type Link struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"categoryId"`
	CreatedAt   int64  `json:"createdAt"`
	Pinned      bool   `json:"pinned,omitempty"`
	PinnedOrder *int   `json:"pinnedOrder,omitempty"`
	Order       *int   `json:"order,omitempty"`
}

// Category groups links on the dashboard.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// SyncMetadata carries the versioning state of a document copy.
//
// Version is assigned by the canonical store: it increases by exactly 1 on
// every accepted write, starting from 1 on first push. Zero means "no
// document yet". A client's copy of Version is a belief and may be stale.
type SyncMetadata struct {
	UpdatedAt int64  `json:"updatedAt"`
	DeviceID  string `json:"deviceId"`
	Version   int64  `json:"version"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
}

// SyncDocument is the single logical record exchanged between clients and
// the canonical store.
//
// SearchConfig, AIConfig and SiteSettings are opaque sub-documents owned by
// other subsystems; the sync layer passes them through unmodified.
// PrivateVault is an opaque ciphertext string; the sync layer never inspects
// its plaintext.
type SyncDocument struct {
	Links         []Link          `json:"links"`
	Categories    []Category      `json:"categories"`
	SearchConfig  json.RawMessage `json:"searchConfig,omitempty"`
	AIConfig      json.RawMessage `json:"aiConfig,omitempty"`
	SiteSettings  json.RawMessage `json:"siteSettings,omitempty"`
	PrivateVault  string          `json:"privateVault,omitempty"`
	SchemaVersion int             `json:"schemaVersion,omitempty"`
	Meta          SyncMetadata    `json:"meta"`
}

// Clone returns a deep copy of the document via a JSON round-trip.
func (d *SyncDocument) Clone() (*SyncDocument, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out SyncDocument
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot serializes the payload fields of the document, excluding Meta.
// Two documents with equal snapshots carry the same user data, regardless of
// version bookkeeping. The sync engine uses this for dirty detection.
func (d *SyncDocument) Snapshot() (string, error) {
	shadow := *d
	shadow.Meta = SyncMetadata{}
	b, err := json.Marshal(&shadow)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *SyncDocument) LinkCount() int { return len(d.Links) }

func (d *SyncDocument) CategoryCount() int { return len(d.Categories) }

// FallbackCategoryID is where links land when their category is deleted.
const FallbackCategoryID = "common"

// CurrentSchemaVersion is stamped on documents this build produces.
const CurrentSchemaVersion = 1

// DeleteCategory removes the category with the given id and reassigns its
// links to the "common" category if one exists, otherwise to the first
// remaining category. Deleting an absent category is a no-op, so concurrent
// deletion of the same category from two devices converges. Returns false
// when the category was not present.
func (d *SyncDocument) DeleteCategory(id string) bool {
	idx := -1
	for i, c := range d.Categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	d.Categories = append(d.Categories[:idx], d.Categories[idx+1:]...)

	fallback := ""
	for _, c := range d.Categories {
		if c.ID == FallbackCategoryID {
			fallback = c.ID
			break
		}
	}
	if fallback == "" && len(d.Categories) > 0 {
		fallback = d.Categories[0].ID
	}

	for i := range d.Links {
		if d.Links[i].CategoryID == id {
			d.Links[i].CategoryID = fallback
		}
	}
	return true
}
