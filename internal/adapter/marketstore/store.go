// Package marketstore persists provider data: the latest price per symbol and historical candles.
// It runs on PostgreSQL or on an embedded SQLite file through gorm.
package marketstore

import (
	"github.com/glebarez/sqlite"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sqlitePragmas tune the embedded store for a single writer
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
}

// Store owns the gorm connection of the market data tables
type Store struct {
	db *gorm.DB
}

// Open connects to the market store and creates its tables
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported market store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s market store", driver)
	}

	if driver == DriverSQLite {
		// One connection keeps SQLite writes serialized
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		for _, pragma := range sqlitePragmas {
			if err := db.Exec(pragma).Error; err != nil {
				return nil, errors.Wrapf(err, "set pragma %s", pragma)
			}
		}
	}

	if err := db.AutoMigrate(&priceRow{}, &candleRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate market store")
	}

	return &Store{db: db}, nil
}

// Prices returns the price cache backed by this store
func (s *Store) Prices() *PriceRepository {
	return &PriceRepository{db: s.db}
}

// Candles returns the candle store backed by this store
func (s *Store) Candles() *CandleRepository {
	return &CandleRepository{db: s.db}
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
