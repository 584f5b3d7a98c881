package utils

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/models"
)

// InitDB opens the postgres connection and migrates the schema.
// TranslateError is on so duplicate-key violations surface as
// gorm.ErrDuplicatedKey (the certificate issuer relies on it).
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := MigrateModels(db); err != nil {
		return nil, err
	}

	return db, nil
}

// MigrateModels is shared between the server and the test harnesses.
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.CourseAccessSettings{},
		&models.CourseComment{},
		&models.CourseCommentReply{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAccessSettings{},
		&models.QuizAttempt{},
		&models.WatchProgress{},
		&models.UserCourseProgress{},
		&models.Certificate{},
	)
}
