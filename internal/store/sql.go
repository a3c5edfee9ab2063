package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// profileRecord is the database row for a Profile.
type profileRecord struct {
	PlayerID    string `gorm:"primaryKey;size:128"`
	DisplayName string `gorm:"size:128"`
	Chips       int    `gorm:"not null;default:0"`
	HandsPlayed int    `gorm:"not null;default:0"`
	HandsWon    int    `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

func (profileRecord) TableName() string { return "player_profiles" }

// SQLStore keeps profiles in Postgres through gorm.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens dsn, pings it and migrates the profile table.
func NewSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Error),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		return nil, fmt.Errorf("migrate profiles: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(ctx context.Context, playerID string) (Profile, error) {
	var rec profileRecord
	err := s.db.WithContext(ctx).First(&rec, "player_id = ?", playerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("load profile %s: %w", playerID, err)
	}
	return Profile{
		PlayerID:    rec.PlayerID,
		DisplayName: rec.DisplayName,
		Chips:       rec.Chips,
		HandsPlayed: rec.HandsPlayed,
		HandsWon:    rec.HandsWon,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

func (s *SQLStore) Save(ctx context.Context, p Profile) error {
	rec := profileRecord{
		PlayerID:    p.PlayerID,
		DisplayName: p.DisplayName,
		Chips:       p.Chips,
		HandsPlayed: p.HandsPlayed,
		HandsWon:    p.HandsWon,
		UpdatedAt:   p.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "chips", "hands_played", "hands_won", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.PlayerID, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
