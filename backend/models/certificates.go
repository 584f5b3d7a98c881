package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is issued at most once per (user, course); the composite
// unique index makes a concurrent double-issue a duplicate-key error
// instead of two rows. StudentName, CourseName and InstructorName are
// frozen at issuance time and never resynced to the live records.
type Certificate struct {
	gorm.Model
	CredentialID   string `gorm:"uniqueIndex;not null"`
	UserID         uint   `gorm:"uniqueIndex:idx_cert_user_course;not null"`
	CourseID       uint   `gorm:"uniqueIndex:idx_cert_user_course;not null"`
	StudentName    string
	CourseName     string
	InstructorName string
	Tier           string // BASIC, PREMIUM
	IssuedAt       time.Time
	ImageURL       string // backfilled by the renderer, may stay empty
	PDFURL         string
}
