package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropsync/internal/models"
)

func TestNew_SQLiteBootstrap(t *testing.T) {
	db, err := New("sqlite://" + filepath.Join(t.TempDir(), "dev.db"))
	require.NoError(t, err)
	defer db.Close()

	supplier := models.Supplier{Name: "Acme Wholesale", Type: models.SupplierTypeCustom}
	require.NoError(t, db.DB.Create(&supplier).Error)
	assert.NotEmpty(t, supplier.ID) // assigned by the hook, not the column default

	product := models.Product{SupplierID: supplier.ID, ExternalID: "SKU-1", Title: "Walnut Desk"}
	require.NoError(t, db.DB.Create(&product).Error)

	// The rewritten schema must keep the dedup constraint.
	dup := models.Product{SupplierID: supplier.ID, ExternalID: "SKU-1", Title: "Walnut Desk"}
	assert.Error(t, db.DB.Create(&dup).Error)
}

func TestNew_SQLiteBootstrapIdempotent(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "dev.db")

	first, err := New(url)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(url)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSQLiteDDLRewrite(t *testing.T) {
	out := sqliteDDL.Replace(`
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	supplier_id UUID NOT NULL,
	price DECIMAL(10,2),
	last_sync TIMESTAMPTZ,
	created_at TIMESTAMPTZ DEFAULT NOW()`)

	assert.NotContains(t, out, "UUID")
	assert.NotContains(t, out, "NOW()")
	assert.NotContains(t, out, "gen_random_uuid")
	assert.Contains(t, out, "id TEXT PRIMARY KEY,")
	assert.Contains(t, out, "created_at DATETIME DEFAULT CURRENT_TIMESTAMP")
	assert.Contains(t, out, "price REAL,")
}
