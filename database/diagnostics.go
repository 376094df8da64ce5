package database

import (
	"errdash/models"
	"errors"

	"gorm.io/gorm"
)

// DiagnosticStore persists diagnostic log entries.
type DiagnosticStore struct {
	db *gorm.DB
}

// NewDiagnosticStore wraps an opened database.
func NewDiagnosticStore(db *gorm.DB) *DiagnosticStore {
	return &DiagnosticStore{db: db}
}

// Save inserts an entry. The entry ID is assigned by SQLite.
func (s *DiagnosticStore) Save(entry *models.DiagnosticLog) error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}
	row := *entry
	row.ID = 0
	return s.db.Create(&row).Error
}

// Recent returns up to limit entries, newest first.
func (s *DiagnosticStore) Recent(limit int) ([]models.DiagnosticLog, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	var logs []models.DiagnosticLog
	err := s.db.Order("timestamp desc").Order("id desc").Limit(limit).Find(&logs).Error
	return logs, err
}

// Clear deletes every stored entry.
func (s *DiagnosticStore) Clear() error {
	if s == nil || s.db == nil {
		return errors.New("database not initialized")
	}
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.DiagnosticLog{}).Error
}
