package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Storage = (*SQLiteStorage)(nil)

// Entry is a single persisted key/value pair.
type Entry struct {
	Key       string `gorm:"column:storage_key;primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName overrides the gorm table name.
func (Entry) TableName() string {
	return "storage_entries"
}

// SQLiteStorage persists values in a sqlite database file, so they survive restarts.
type SQLiteStorage struct {
	db    *gorm.DB
	quota int64
}

// NewSQLiteStorage opens (and migrates) the database at path.
func NewSQLiteStorage(path string, quota int64) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStorage{db: db, quota: quota}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var e Entry
	if err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	if err := checkQuota(key, value, s.quota); err != nil {
		return err
	}
	e := Entry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
