package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeMetadata_NewRecordGetsDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := MergeMetadata(nil, "uno_jpg", MetadataPatch{Title: String("Arduino Uno")}, now)

	assert.Equal(t, "uno_jpg", rec.StorageKey)
	assert.Equal(t, "Arduino Uno", rec.Title)
	assert.Equal(t, DefaultCurrency, rec.Currency)
	assert.True(t, rec.InStock)
	assert.False(t, rec.Featured)
	assert.Nil(t, rec.Price)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestMergeMetadata_FieldLevelMerge(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := MergeMetadata(nil, "k", MetadataPatch{Title: String("A"), Category: String("B")}, created)

	later := created.Add(time.Hour)
	merged := MergeMetadata(existing, "k", MetadataPatch{Price: Float(10)}, later)

	assert.Equal(t, "A", merged.Title)
	assert.Equal(t, "B", merged.Category)
	require.NotNil(t, merged.Price)
	assert.Equal(t, 10.0, *merged.Price)
	assert.Equal(t, created, merged.CreatedAt)
	assert.Equal(t, later, merged.UpdatedAt)

	// The input record is not mutated.
	assert.Nil(t, existing.Price)
}

func TestMergeMetadata_ClearPrice(t *testing.T) {
	now := time.Now()
	existing := MergeMetadata(nil, "k", MetadataPatch{Price: Float(650)}, now)

	merged := MergeMetadata(existing, "k", MetadataPatch{ClearPrice: true}, now)

	assert.Nil(t, merged.Price)
}

func TestMetadataPatch_DirtyFields(t *testing.T) {
	p := MetadataPatch{Title: String(""), Price: Float(1), Tags: Strings("a", "b")}

	assert.Equal(t, []string{FieldTitle, FieldPrice, FieldTags}, p.DirtyFields())
	assert.True(t, p.HasChanges())
	assert.False(t, MetadataPatch{}.HasChanges())
}

func TestMetadataPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   MetadataPatch
		wantErr bool
	}{
		{"empty", MetadataPatch{}, false},
		{"zero price", MetadataPatch{Price: Float(0)}, false},
		{"negative price", MetadataPatch{Price: Float(-1)}, true},
		{"nan price", MetadataPatch{Price: Float(math.NaN())}, true},
		{"set and clear", MetadataPatch{Price: Float(1), ClearPrice: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMetadataPatch_UnmarshalJSON(t *testing.T) {
	t.Run("absent fields stay nil", func(t *testing.T) {
		var p MetadataPatch
		require.NoError(t, json.Unmarshal([]byte(`{"title":"Arduino Uno","price":650}`), &p))

		require.NotNil(t, p.Title)
		assert.Equal(t, "Arduino Uno", *p.Title)
		require.NotNil(t, p.Price)
		assert.Equal(t, 650.0, *p.Price)
		assert.Nil(t, p.Category)
		assert.False(t, p.ClearPrice)
	})

	t.Run("null price clears", func(t *testing.T) {
		var p MetadataPatch
		require.NoError(t, json.Unmarshal([]byte(`{"price":null}`), &p))

		assert.True(t, p.ClearPrice)
		assert.Nil(t, p.Price)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		var p MetadataPatch
		err := json.Unmarshal([]byte(`{"titel":"typo"}`), &p)
		assert.ErrorIs(t, err, ErrInvalidPatch)
	})

	t.Run("wrong type rejected", func(t *testing.T) {
		var p MetadataPatch
		err := json.Unmarshal([]byte(`{"in_stock":"yes"}`), &p)
		assert.ErrorIs(t, err, ErrInvalidPatch)
	})
}
