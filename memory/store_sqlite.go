package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// snapshotRow 快照表行。每次 Save 追加一代,旧代按保留数清理。
type snapshotRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Version   int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"index;not null"`
	Data      []byte    `gorm:"not null"`
}

func (snapshotRow) TableName() string { return "memory_snapshots" }

// SQLiteStoreConfig 快照 SQLite 存储配置
type SQLiteStoreConfig struct {
	// Path is the database file, or ":memory:" for tests.
	Path string `yaml:"path" json:"path"`

	// KeepGenerations bounds how many historical snapshots stay in the
	// table (default 5; the newest is always kept).
	KeepGenerations int `yaml:"keep_generations" json:"keep_generations"`
}

// DefaultSQLiteStoreConfig 返回默认配置
func DefaultSQLiteStoreConfig() SQLiteStoreConfig {
	return SQLiteStoreConfig{
		Path:            "synthmind.db",
		KeepGenerations: 5,
	}
}

// SQLiteStore persists snapshot generations in a SQLite table through gorm.
type SQLiteStore struct {
	db     *gorm.DB
	keep   int
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database and migrates the snapshot table.
func NewSQLiteStore(config SQLiteStoreConfig, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultSQLiteStoreConfig()
	if config.Path == "" {
		config.Path = def.Path
	}
	if config.KeepGenerations <= 0 {
		config.KeepGenerations = def.KeepGenerations
	}

	db, err := gorm.Open(sqlite.Open(config.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// 自动迁移
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		keep:   config.KeepGenerations,
		logger: logger.With(zap.String("component", "sqlite_store")),
	}, nil
}

// Save appends a snapshot generation and prunes old ones past the retention
// bound.
func (s *SQLiteStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return types.NewValidationError("snapshot is nil")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	row := snapshotRow{
		Version:   snapshot.Version,
		CreatedAt: snapshot.CreatedAt,
		Data:      data,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		var stale []uint
		err := tx.Model(&snapshotRow{}).
			Order("id DESC").
			Offset(s.keep).
			Pluck("id", &stale).Error
		if err != nil {
			return fmt.Errorf("list stale snapshots: %w", err)
		}
		if len(stale) > 0 {
			if err := tx.Delete(&snapshotRow{}, stale).Error; err != nil {
				return fmt.Errorf("prune snapshots: %w", err)
			}
		}
		return nil
	})
}

// Load returns the newest snapshot generation, or NOT_FOUND on an empty
// table.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError("snapshot", "latest")
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(row.Data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
