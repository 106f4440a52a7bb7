// Package store ist die Postgres-Anbindung über gorm. Audit-pflichtige
// Änderungen laufen entweder über gespeicherte Prozeduren oder schreiben
// Änderung und ActivityLog in einer gorm-Transaktion.
package store

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"papertrail/config"
	"papertrail/lifecycle"
	"papertrail/models"
)

//go:embed procedures.sql
var proceduresSQL string

// Store implementiert lifecycle.Store.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

var _ lifecycle.Store = (*Store)(nil)

// New verwendet eine bestehende gorm-Verbindung.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Open verbindet sich mit DATABASE_URL und setzt die Pool-Grenzen.
func Open(cfg *config.Config, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	log.Info("Successfully connected to papers database.",
		zap.Int("max_open_conns", cfg.DBMaxOpenConns),
		zap.Int("max_idle_conns", cfg.DBMaxIdleConns))
	return New(db, log), nil
}

// DB liefert die zugrunde liegende gorm-Verbindung.
func (s *Store) DB() *gorm.DB { return s.db }

// Close schließt den Verbindungspool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate legt Tabellen an, installiert die Prozeduren und seedet die Standardrollen.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	s.log.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Venue{},
		&models.Topic{},
		&models.Paper{},
		&models.Authorship{},
		&models.Grant{},
		&models.PaperGrant{},
		&models.Revision{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := db.Exec(proceduresSQL).Error; err != nil {
		return fmt.Errorf("install stored procedures: %w", err)
	}
	s.seedDefaultRoles(ctx)
	return nil
}

func (s *Store) seedDefaultRoles(ctx context.Context) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Role{}).Count(&count).Error; err != nil {
		s.log.Warn("Failed to count roles, skipping seed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}
	roles := []models.Role{
		{RoleName: "Research Admin"},
		{RoleName: "Principal Investigator"},
		{RoleName: "Contributor"},
		{RoleName: "Viewer"},
	}
	if err := db.Create(&roles).Error; err != nil {
		s.log.Warn("Failed to seed default roles", zap.Error(err))
	} else {
		s.log.Info("Default roles seeded.")
	}
}
