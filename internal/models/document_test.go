package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *SyncDocument {
	return &SyncDocument{
		Links: []Link{
			{ID: "l1", Title: "Example", URL: "https://example.com", CategoryID: "common", CreatedAt: 1700000000000},
			{ID: "l2", Title: "Docs", URL: "https://docs.example.com", CategoryID: "work"},
		},
		Categories: []Category{
			{ID: "common", Name: "Common"},
			{ID: "work", Name: "Work"},
		},
		Meta: SyncMetadata{UpdatedAt: 1700000000000, DeviceID: "dev-a", Version: 3},
	}
}

func TestClone_Independent(t *testing.T) {
	doc := sampleDoc()
	clone, err := doc.Clone()
	require.NoError(t, err)

	clone.Links[0].Title = "changed"
	clone.Meta.Version = 99

	assert.Equal(t, "Example", doc.Links[0].Title)
	assert.Equal(t, int64(3), doc.Meta.Version)
}

func TestSnapshot_IgnoresMeta(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()
	b.Meta.Version = 42
	b.Meta.DeviceID = "dev-b"

	sa, err := a.Snapshot()
	require.NoError(t, err)
	sb, err := b.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, sa, sb)

	b.Links[0].Title = "changed"
	sb2, err := b.Snapshot()
	require.NoError(t, err)
	assert.NotEqual(t, sa, sb2)
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, sampleDoc().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *SyncDocument)
	}{
		{"missing link id", func(d *SyncDocument) { d.Links[0].ID = "" }},
		{"missing link url", func(d *SyncDocument) { d.Links[0].URL = "" }},
		{"missing link category", func(d *SyncDocument) { d.Links[0].CategoryID = "" }},
		{"duplicate link id", func(d *SyncDocument) { d.Links[1].ID = d.Links[0].ID }},
		{"missing category id", func(d *SyncDocument) { d.Categories[0].ID = "" }},
		{"missing category name", func(d *SyncDocument) { d.Categories[0].Name = "" }},
		{"duplicate category id", func(d *SyncDocument) { d.Categories[1].ID = d.Categories[0].ID }},
		{"negative version", func(d *SyncDocument) { d.Meta.Version = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDoc()
			tt.mutate(doc)
			err := doc.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidDocument))
		})
	}
}

func TestDeleteCategory_ReassignsToCommon(t *testing.T) {
	doc := sampleDoc()
	require.True(t, doc.DeleteCategory("work"))

	assert.Equal(t, 1, doc.CategoryCount())
	assert.Equal(t, "common", doc.Links[1].CategoryID)
}

func TestDeleteCategory_FallsBackToFirstRemaining(t *testing.T) {
	doc := &SyncDocument{
		Links: []Link{
			{ID: "l1", URL: "https://a", CategoryID: "b"},
		},
		Categories: []Category{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
		},
	}
	require.True(t, doc.DeleteCategory("b"))
	assert.Equal(t, "a", doc.Links[0].CategoryID)
}

func TestDeleteCategory_AbsentIsNoop(t *testing.T) {
	doc := sampleDoc()
	assert.False(t, doc.DeleteCategory("nope"))
	assert.Equal(t, 2, doc.CategoryCount())
}
