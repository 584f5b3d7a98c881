package models

import "gorm.io/gorm"

// WatchProgress is the persisted watched-percentage of one lesson for one
// user. Percent never decreases and Completed never flips back to false;
// both are enforced by the progress store, not by triggers.
type WatchProgress struct {
	gorm.Model
	UserID    uint `gorm:"uniqueIndex:idx_watch_user_lesson"`
	CourseID  uint `gorm:"index"`
	LessonID  uint `gorm:"uniqueIndex:idx_watch_user_lesson"`
	Percent   int  // 0-100, floor of accumulated/duration
	Completed bool `gorm:"default:false"`
}

// UserCourseProgress is the course-level aggregate, recomputed whenever a
// lesson's completion flag flips.
type UserCourseProgress struct {
	gorm.Model
	UserID           uint `gorm:"uniqueIndex:idx_course_progress_user"`
	CourseID         uint `gorm:"uniqueIndex:idx_course_progress_user"`
	LessonsCompleted int
	CompletionRate   float64 // round(completed/total*100)
	LastAccessed     string
}
