// Package results persists classification outcomes and renders them as CSV
// reports.
package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no classification exists for a video.
var ErrNotFound = errors.New("classification not found")

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// Config contains database configuration.
type Config struct {
	Type DatabaseType

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN  string
	MaxOpenConns int
	MaxIdleConns int
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypePostgres {
		if c.MaxOpenConns == 0 {
			c.MaxOpenConns = 10
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = 2
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// Classification is the stored outcome for one video. Re-classifying a
// video replaces its row.
type Classification struct {
	ID          uint   `gorm:"primaryKey"`
	VideoPath   string `gorm:"uniqueIndex;not null"`
	RunID       string `gorm:"index;size:36"`
	CameraType  string `gorm:"index"`
	CameraName  string
	HasChild    bool
	Frames      int
	ProcessedAt time.Time `gorm:"index"`
}

// CameraStats aggregates classifications per camera.
type CameraStats struct {
	CameraType string
	CameraName string
	Total      int
	WithChild  int
}

// Filter narrows List and Stats. Zero fields match everything.
type Filter struct {
	RunID      string
	CameraType string
	HasChild   *bool
}

// GORMStore stores classifications in SQLite or PostgreSQL.
type GORMStore struct {
	db     *gorm.DB
	config *Config
}

// New opens the database and migrates the schema.
func New(config *Config) (*GORMStore, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid results configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets workers write while a report is being read.
		dsn := config.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.PostgresDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}

	if err := db.AutoMigrate(&Classification{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &GORMStore{db: db, config: config}, nil
}

// Save inserts c or replaces the existing row for the same video.
func (s *GORMStore) Save(ctx context.Context, c *Classification) error {
	if c.ProcessedAt.IsZero() {
		c.ProcessedAt = time.Now()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "video_path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "camera_type", "camera_name", "has_child", "frames", "processed_at",
		}),
	}).Create(c).Error
}

// Get returns the classification for videoPath.
func (s *GORMStore) Get(ctx context.Context, videoPath string) (*Classification, error) {
	var c Classification
	err := s.db.WithContext(ctx).Where("video_path = ?", videoPath).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GORMStore) filtered(ctx context.Context, f Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Classification{})
	if f.RunID != "" {
		q = q.Where("run_id = ?", f.RunID)
	}
	if f.CameraType != "" {
		q = q.Where("camera_type = ?", f.CameraType)
	}
	if f.HasChild != nil {
		q = q.Where("has_child = ?", *f.HasChild)
	}
	return q
}

// List returns matching classifications ordered by video path.
func (s *GORMStore) List(ctx context.Context, f Filter) ([]Classification, error) {
	var out []Classification
	if err := s.filtered(ctx, f).Order("video_path").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns per-camera totals ordered by camera type.
func (s *GORMStore) Stats(ctx context.Context, f Filter) ([]CameraStats, error) {
	var out []CameraStats
	err := s.filtered(ctx, f).
		Select("camera_type, camera_name, count(*) AS total, " +
			"sum(CASE WHEN has_child THEN 1 ELSE 0 END) AS with_child").
		Group("camera_type, camera_name").
		Order("camera_type").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Healthcheck pings the database.
func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
