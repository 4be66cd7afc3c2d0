package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// NewTest opens a private in-memory SQLite database. Each call gets its own
// database so tests do not share rows.
func NewTest(models ...any) (*gorm.DB, error) {
	name := fmt.Sprintf("file:bell24h_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(0)", testDBSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps the shared-cache database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		if err := conn.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("migrate test schema: %w", err)
		}
	}
	return conn, nil
}
