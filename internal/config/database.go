package config

import (
	"fmt"

	"github.com/glebarez/sqlite"
	gormlogrus "github.com/onrik/gorm-logrus"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"talentflow/interview-grader/internal/models"
)

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dialector, err := openDialector(cfg.Database.Driver, cfg.GetDatabaseDSN())
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogrus.New(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Debug() {
		db.Logger = logger.Default.LogMode(logger.Info)
	}

	log.WithField("driver", cfg.Database.Driver).Info("✅ Database connected successfully")

	if cfg.Database.Migrate() {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Info("✅ Database migration completed")
	}

	return db, nil
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Recruiter{},
		&models.Interview{},
		&models.Candidate{},
		&models.Answer{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
