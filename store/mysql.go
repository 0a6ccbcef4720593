package store

import (
	"context"
	"errors"
	"time"

	"github.com/campuscommunity/synckit/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvEntry is the row layout of the mysql backend
type kvEntry struct {
	Key       string    `gorm:"column:k;primaryKey;size:191"`
	Value     string    `gorm:"column:v;type:longtext;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for kvEntry
func (kvEntry) TableName() string {
	return "campus_kv"
}

type mysqlStore struct {
	database db.Database
	gdb      *gorm.DB
}

// NewMySQL returns a Store backed by the campus_kv table of database,
// creating the table when missing.
func NewMySQL(ctx context.Context, database db.Database) (Store, error) {
	if database == nil {
		return nil, ErrInvalidConfig("database is required")
	}
	gdb, err := database.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := database.Migrate(ctx, &kvEntry{}); err != nil {
		return nil, ErrConnection(err)
	}
	return &mysqlStore{database: database, gdb: gdb}, nil
}

func (m *mysqlStore) GetString(ctx context.Context, key string) (string, bool, error) {
	var entry kvEntry
	err := m.gdb.WithContext(ctx).Where("k = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, ErrRead(key, err)
	}
	return entry.Value, true, nil
}

func (m *mysqlStore) SetString(ctx context.Context, key, value string) error {
	entry := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := m.gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return ErrWrite(key, err)
	}
	return nil
}

func (m *mysqlStore) Remove(ctx context.Context, key string) error {
	if err := m.gdb.WithContext(ctx).Where("k = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return ErrRemove(key, err)
	}
	return nil
}

func (m *mysqlStore) Close() error {
	return m.database.Close()
}
