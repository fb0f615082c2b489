package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

type savedURL struct {
	Key       string `gorm:"column:slot_key;primaryKey;size:32"`
	URL       string `gorm:"column:url;not null"`
	UpdatedAt time.Time
}

func (savedURL) TableName() string { return "saved_urls" }

// GormStore shares the saved URLs between operator stations through a
// database table.
type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects with dsn and migrates the saved_urls table.
func OpenPostgres(ctx context.Context, dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormStore(ctx, db)
}

func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&savedURL{}); err != nil {
		return nil, fmt.Errorf("migrate saved_urls: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) Load(ctx context.Context) (SavedURLs, error) {
	var rows []savedURL
	if err := g.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return SavedURLs{}, fmt.Errorf("load saved urls: %w", err)
	}
	var urls SavedURLs
	for _, r := range rows {
		urls.set(r.Key, r.URL)
	}
	return urls, nil
}

func (g *GormStore) Save(ctx context.Context, slot telemetry.SlotName, url string) error {
	row := savedURL{Key: KeyFor(slot), URL: url}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", row.Key, err)
	}
	return nil
}

func (g *GormStore) Clear(ctx context.Context) error {
	err := g.db.WithContext(ctx).Where("slot_key IN ?", []string{KeyURL1, KeyURL2}).Delete(&savedURL{}).Error
	if err != nil {
		return fmt.Errorf("clear saved urls: %w", err)
	}
	return nil
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
