package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production, via lib/pq
		var sqlDB *sql.DB
		sqlDB, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// sqliteDDL rewrites the postgres schema into what sqlite can parse.
// The dev database keeps the same shape; ids come from the models'
// BeforeCreate hooks instead of gen_random_uuid().
var sqliteDDL = strings.NewReplacer(
	"UUID PRIMARY KEY DEFAULT gen_random_uuid()", "TEXT PRIMARY KEY",
	"UUID", "TEXT",
	"TIMESTAMPTZ DEFAULT NOW()", "DATETIME DEFAULT CURRENT_TIMESTAMP",
	"TIMESTAMPTZ", "DATETIME",
	"DECIMAL(10,2)", "REAL",
)

func createTables(db *gorm.DB) error {
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS suppliers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT DEFAULT 'active',
		connection_status TEXT DEFAULT 'untested',
		connection_error TEXT,
		last_connection_test TIMESTAMPTZ,
		total_products INTEGER DEFAULT 0,
		credentials TEXT,
		config TEXT,
		last_sync TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		supplier_id UUID NOT NULL,
		external_id TEXT NOT NULL,
		merchant_id UUID,
		sku TEXT,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		category_id TEXT,
		tags TEXT,
		images TEXT,
		variants TEXT,
		supplier_sku TEXT,
		supplier_price DECIMAL(10,2),
		price DECIMAL(10,2),
		currency TEXT DEFAULT 'USD',
		inventory_quantity INTEGER DEFAULT 0,
		available BOOLEAN DEFAULT true,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		CONSTRAINT idx_products_supplier_external UNIQUE (supplier_id, external_id)
	);

	CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		supplier_id UUID NOT NULL,
		name TEXT NOT NULL,
		keywords TEXT,
		exclude_keywords TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS merchants (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		low_stock_threshold INTEGER,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		supplier_id UUID NOT NULL,
		status TEXT DEFAULT 'running',
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		products_total INTEGER DEFAULT 0,
		products_processed INTEGER DEFAULT 0,
		products_created INTEGER DEFAULT 0,
		products_updated INTEGER DEFAULT 0,
		products_failed INTEGER DEFAULT 0,
		errors TEXT,
		duration_ms BIGINT DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);
	`

	if db.Dialector.Name() == "sqlite" {
		createTablesSQL = sqliteDDL.Replace(createTablesSQL)
	}

	if err := db.Exec(createTablesSQL).Error; err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
