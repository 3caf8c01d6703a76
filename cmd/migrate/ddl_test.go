package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabasePath(t *testing.T) {
	db, err := parseDatabasePath("projects/test-project/instances/dev-instance/databases/storefront-catalog-db")
	require.NoError(t, err)
	assert.Equal(t, databasePath{Project: "test-project", Instance: "dev-instance", Database: "storefront-catalog-db"}, db)
	assert.Equal(t, "projects/test-project/instances/dev-instance", db.instancePath())
	assert.Equal(t, "projects/test-project/instances/dev-instance/databases/storefront-catalog-db", db.path())

	for _, bad := range []string{"", "storefront-catalog-db", "projects/p/instances/i", "projects//instances/i/databases/d", "project/p/instances/i/databases/d"} {
		_, err := parseDatabasePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitDDLStatements(t *testing.T) {
	stmts := splitDDLStatements(`
-- comment
CREATE TABLE a (
  id STRING(36) NOT NULL,
) PRIMARY KEY (id);

-- another
CREATE INDEX a_by_id ON a(id);
`)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Equal(t, "CREATE INDEX a_by_id ON a(id)", stmts[1])
}

func TestSplitDDLStatements_RepoMigrations(t *testing.T) {
	content, err := os.ReadFile("../../migrations/001_asset_metadata.sql")
	require.NoError(t, err)

	stmts := splitDDLStatements(string(content))
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE asset_metadata")
	assert.Contains(t, stmts[0], "PRIMARY KEY (storage_key)")
	assert.Contains(t, stmts[1], "asset_metadata_by_category")
}
