package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	gorm.Model
	CourseID       uint
	Title          string
	ShortDesc      string
	Description    string
	AuthorID       uint
	Questions      []QuizQuestion
	AccessSettings QuizAccessSettings
}

type QuizQuestion struct {
	gorm.Model
	QuizID        uint
	Title         string
	Question      string
	Options       string // JSON array of options
	CorrectAnswer int
	SequenceOrder int
}

type QuizAccessSettings struct {
	gorm.Model
	QuizID          uint
	AccessLevel     string  // public, private, restricted
	AttemptsAllowed int     `gorm:"default:3"`  // 0 = unlimited
	PassScore       float64 `gorm:"default:60"` // percent required to pass
}

// QuizAttempt is one graded submission. The certificate issuer only asks
// whether a passing attempt exists; attempt history is kept for analytics.
type QuizAttempt struct {
	gorm.Model
	UserID            uint `gorm:"index:idx_quiz_attempt_user"`
	QuizID            uint `gorm:"index:idx_quiz_attempt_user"`
	QuestionsAnswered int
	CorrectAnswers    int
	Score             float64
	Passed            bool
	AttemptedAt       time.Time
}
