package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// record is the row shape shared by every gorm-backed collection: the entity
// id plus its full JSON payload.
type record struct {
	ID        string `gorm:"primaryKey;size:191"`
	Payload   []byte
	UpdatedAt time.Time
}

// OpenDatabase opens a gorm connection for the configured driver.
// Supported drivers: "sqlite" (embedded, the usual choice for a single
// bot process) and "postgres".
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// GormStore persists one collection as a table of (id, payload) rows. It
// satisfies the same contract as FileStore; scans stay in-process since
// payloads are opaque JSON to the database.
type GormStore[T Entity] struct {
	db    *gorm.DB
	table string
	now   func() time.Time
}

// NewGormStore returns a gorm-backed store over the given table.
func NewGormStore[T Entity](db *gorm.DB, table string) *GormStore[T] {
	return &GormStore[T]{db: db, table: table, now: time.Now}
}

// Init creates the backing table if it does not exist.
func (s *GormStore[T]) Init(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migrating %s table: %w", s.table, err)
	}
	return nil
}

func (s *GormStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	var row record
	err := s.db.WithContext(ctx).Table(s.table).First(&row, "id = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	value, err := s.decode(row)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (s *GormStore[T]) Set(ctx context.Context, key string, value T) error {
	value.Touch(s.now())
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", s.table, err)
	}
	row := record{ID: key, Payload: payload, UpdatedAt: s.now()}
	return s.db.WithContext(ctx).Table(s.table).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&row).Error
}

func (s *GormStore[T]) Delete(ctx context.Context, key string) (bool, error) {
	res := s.db.WithContext(ctx).Table(s.table).Delete(&record{}, "id = ?", key)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore[T]) Values(ctx context.Context) ([]T, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(entries))
	for _, v := range entries {
		values = append(values, v)
	}
	return values, nil
}

func (s *GormStore[T]) Entries(ctx context.Context) (map[string]T, error) {
	var rows []record
	if err := s.db.WithContext(ctx).Table(s.table).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make(map[string]T, len(rows))
	for _, row := range rows {
		value, err := s.decode(row)
		if err != nil {
			return nil, err
		}
		entries[row.ID] = value
	}
	return entries, nil
}

func (s *GormStore[T]) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Table(s.table).Pluck("id", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *GormStore[T]) Size(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Table(s.table).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *GormStore[T]) Find(ctx context.Context, predicate func(T) bool) (T, bool, error) {
	var zero T
	values, err := s.Values(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, v := range values {
		if predicate(v) {
			return v, true, nil
		}
	}
	return zero, false, nil
}

func (s *GormStore[T]) Filter(ctx context.Context, predicate func(T) bool) ([]T, error) {
	values, err := s.Values(ctx)
	if err != nil {
		return nil, err
	}
	var matches []T
	for _, v := range values {
		if predicate(v) {
			matches = append(matches, v)
		}
	}
	return matches, nil
}

func (s *GormStore[T]) decode(row record) (T, error) {
	var value T
	if err := json.Unmarshal(row.Payload, &value); err != nil {
		return value, fmt.Errorf("decoding %s record %s: %w", s.table, row.ID, err)
	}
	return value, nil
}
