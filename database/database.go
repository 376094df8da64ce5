package database

import (
	"errdash/config"
	"errdash/models"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the diagnostics database described by config.Settings and
// assigns it to the package-level DB.
func InitDB() error {
	db, err := Open(config.Settings.DatabaseURL, config.Settings)
	if err != nil {
		return err
	}
	DB = db
	log.Println("Database initialized successfully")
	return nil
}

// Open opens a GORM SQLite database at path, applies the pool limits and
// PRAGMAs from settings, and migrates the diagnostics table.
func Open(path string, settings *config.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if settings.LogLevel == "DEBUG" {
		logLevel = logger.Info
	}

	pragmas := sqlitePragmas(settings)
	dsn := buildSQLiteDSN(path, pragmas)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: countingLogger{Interface: logger.New(
			log.New(log.Writer(), "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel: logLevel,
			},
		)},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	pool := poolFromSettings(settings)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetConnMaxIdleTime(pool.idleTimeout)
	sqlDB.SetConnMaxLifetime(pool.lifetime)

	// Existing DB files keep their old journal mode until told otherwise.
	for _, p := range pragmas {
		if err := db.Exec(p.statement()).Error; err != nil {
			log.Printf("SQLite %s failed: %v", p.statement(), err)
		}
	}

	if err := db.AutoMigrate(&models.DiagnosticLog{}); err != nil {
		return nil, err
	}
	return db, nil
}

// CloseDB closes the database connection and releases resources
func CloseDB() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	log.Println("Closing database connection...")
	return sqlDB.Close()
}
