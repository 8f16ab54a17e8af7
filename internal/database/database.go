package database

import (
	"fmt"

	"binance-futures-backtest/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the SQLite file at dsn and migrates the result tables.
// Feature tables written by the ETL job are left untouched.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the tables that hold stored runs.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.BacktestRun{}, &models.Trade{}, &models.EquityPoint{}, &models.MonthlyStat{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
