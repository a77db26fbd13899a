package handlers

import (
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dropsync/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestDB opens a throwaway sqlite database with the schema the
// handlers touch. Tables are created with portable SQL because the
// production schema is managed outside the ORM.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "handlers.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE suppliers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT DEFAULT 'active',
			connection_status TEXT DEFAULT 'untested',
			connection_error TEXT,
			last_connection_test DATETIME,
			total_products INTEGER DEFAULT 0,
			credentials TEXT,
			config TEXT,
			last_sync DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE products (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			merchant_id TEXT,
			sku TEXT,
			title TEXT NOT NULL,
			description TEXT,
			category TEXT,
			category_id TEXT,
			tags TEXT,
			images TEXT,
			variants TEXT,
			supplier_sku TEXT,
			supplier_price REAL,
			price REAL,
			currency TEXT DEFAULT 'USD',
			inventory_quantity INTEGER DEFAULT 0,
			available BOOLEAN DEFAULT TRUE,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (supplier_id, external_id)
		)`,
		`CREATE TABLE categories (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			name TEXT NOT NULL,
			keywords TEXT,
			exclude_keywords TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func testLogger() *logger.Logger {
	return logger.New("error")
}
