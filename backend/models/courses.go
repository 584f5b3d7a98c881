package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title          string
	ShortDesc      string
	Description    string
	Difficulty     string // beginner, intermediate, advanced
	RecommendedFor string // group
	University     string
	Topic          string
	AuthorID       uint
	InstructorName string // printed on certificates
	LogoURL        string
	FinalQuizID    *uint // optional final assessment gating certificate issuance
	Lessons        []Lesson
	Comments       []CourseComment
	AccessSettings CourseAccessSettings
}

type Lesson struct {
	gorm.Model
	CourseID        uint
	Title           string
	Description     string
	Content         string
	VideoURL        string
	DurationSeconds int // 0 until the video has been probed
	SequenceOrder   int
}

type CourseAccessSettings struct {
	gorm.Model
	CourseID    uint
	AccessLevel string // public, private, restricted
	StartDate   string
	EndDate     string
	Admins      string // comma-separated IDs
}
