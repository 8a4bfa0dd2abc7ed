// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the bot_config
// key/value table.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// GetConfigValue returns the value stored under key, or "" with ErrNotFound.
func GetConfigValue(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var row domain.BotConfig
	if err := db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return "", err
	}
	return row.Value, nil
}

// SetConfigValue upserts a key/value pair. The sensitive flag is written on
// insert and refreshed on update so a key cannot silently lose its masking.
func SetConfigValue(ctx context.Context, db *gorm.DB, key, value string, sensitive bool) error {
	row := &domain.BotConfig{Key: key, Value: value, Sensitive: sensitive}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "sensitive", "updated_at"}),
		}).
		Create(row).Error
}

// SeedConfigDefaults writes default rows for any missing keys. Existing rows
// are left untouched so operator changes survive restarts.
func SeedConfigDefaults(ctx context.Context, db *gorm.DB, defaults []domain.BotConfig) error {
	for i := range defaults {
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&defaults[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ListConfig returns every config row with sensitive values masked.
func ListConfig(ctx context.Context, db *gorm.DB) ([]domain.BotConfig, error) {
	var rows []domain.BotConfig
	if err := db.WithContext(ctx).Order("key asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Sensitive && rows[i].Value != "" {
			rows[i].Value = "********"
		}
	}
	return rows, nil
}

// IsMissing reports whether err is the package's not-found sentinel.
func IsMissing(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
