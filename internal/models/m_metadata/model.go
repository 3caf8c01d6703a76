package m_metadata

import (
	"sort"

	"cloud.google.com/go/spanner"
)

// Model builds mutations for the asset_metadata table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// UpsertMut writes the full row. The metadata store merges in memory and
// always persists the whole merged record.
func (m *Model) UpsertMut(data *Data) *spanner.Mutation {
	return spanner.InsertOrUpdate(TableName, Columns, []interface{}{
		data.StorageKey,
		data.Name,
		data.Title,
		data.Description,
		data.Category,
		data.Price,
		data.Currency,
		data.InStock,
		data.Featured,
		data.Tags,
		data.VideoURL,
		data.PublicURL,
		data.CreatedAt,
		data.UpdatedAt,
	})
}

// UpdateMut writes only the given columns of an existing row, in column
// name order so identical patches produce identical mutations.
func (m *Model) UpdateMut(key string, updates map[string]interface{}) *spanner.Mutation {
	if len(updates) == 0 {
		return nil
	}

	dirty := make([]string, 0, len(updates))
	for col := range updates {
		dirty = append(dirty, col)
	}
	sort.Strings(dirty)

	columns := append([]string{StorageKey}, dirty...)
	values := []interface{}{key}
	for _, col := range dirty {
		values = append(values, updates[col])
	}
	return spanner.Update(TableName, columns, values)
}

// DeleteMut deletes one row. Deleting an absent key is a no-op in Spanner.
func (m *Model) DeleteMut(key string) *spanner.Mutation {
	return spanner.Delete(TableName, spanner.Key{key})
}
