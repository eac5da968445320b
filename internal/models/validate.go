package models

import (
	"fmt"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

// Validate checks the structural invariants of a document arriving over the
// wire: required fields present, ids unique within the document. It is run
// at the HTTP boundary so malformed payloads never reach the store layer.
// All failures wrap common.ErrInvalidDocument.
func (d *SyncDocument) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: missing document", common.ErrInvalidDocument)
	}
	if d.Meta.Version < 0 {
		return fmt.Errorf("%w: negative version", common.ErrInvalidDocument)
	}

	linkIDs := make(map[string]struct{}, len(d.Links))
	for i, l := range d.Links {
		if l.ID == "" {
			return fmt.Errorf("%w: link %d has no id", common.ErrInvalidDocument, i)
		}
		if l.URL == "" {
			return fmt.Errorf("%w: link %q has no url", common.ErrInvalidDocument, l.ID)
		}
		if l.CategoryID == "" {
			return fmt.Errorf("%w: link %q has no categoryId", common.ErrInvalidDocument, l.ID)
		}
		if _, dup := linkIDs[l.ID]; dup {
			return fmt.Errorf("%w: duplicate link id %q", common.ErrInvalidDocument, l.ID)
		}
		linkIDs[l.ID] = struct{}{}
	}

	catIDs := make(map[string]struct{}, len(d.Categories))
	for i, c := range d.Categories {
		if c.ID == "" {
			return fmt.Errorf("%w: category %d has no id", common.ErrInvalidDocument, i)
		}
		if c.Name == "" {
			return fmt.Errorf("%w: category %q has no name", common.ErrInvalidDocument, c.ID)
		}
		if _, dup := catIDs[c.ID]; dup {
			return fmt.Errorf("%w: duplicate category id %q", common.ErrInvalidDocument, c.ID)
		}
		catIDs[c.ID] = struct{}{}
	}

	return nil
}
