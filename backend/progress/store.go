package progress

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"elyra/backend/models"
)

// Store is what the sampling service needs from persistence.
type Store interface {
	// Load returns the last persisted percent and completion flag for the
	// lesson; a missing row is (0, false, nil).
	Load(userID, courseID, lessonID uint) (percent int, completed bool, err error)
	// Save writes the lesson progress. Implementations must keep the
	// persisted percent monotonic and never clear a completion flag.
	Save(userID, courseID, lessonID uint, percent int, completed bool) error
	// RecalcCourse recomputes the course-level aggregate after a lesson
	// completion flip.
	RecalcCourse(userID, courseID uint) error
}

// GormStore persists watch progress through GORM.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (gs *GormStore) Load(userID, courseID, lessonID uint) (int, bool, error) {
	var wp models.WatchProgress
	err := gs.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&wp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return wp.Percent, wp.Completed, nil
}

func (gs *GormStore) Save(userID, courseID, lessonID uint, percent int, completed bool) error {
	var wp models.WatchProgress
	err := gs.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&wp).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		wp = models.WatchProgress{
			UserID:   userID,
			CourseID: courseID,
			LessonID: lessonID,
		}
	}

	// Monotonicity lives here: stale or lower writes never win.
	if percent > wp.Percent {
		wp.Percent = percent
	}
	if completed {
		wp.Completed = true
	}

	return gs.DB.Save(&wp).Error
}

func (gs *GormStore) RecalcCourse(userID, courseID uint) error {
	var totalLessons int64
	if err := gs.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&totalLessons).Error; err != nil {
		return err
	}

	var completedLessons int64
	if err := gs.DB.Model(&models.WatchProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&completedLessons).Error; err != nil {
		return err
	}

	var ucp models.UserCourseProgress
	err := gs.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&ucp).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		ucp = models.UserCourseProgress{UserID: userID, CourseID: courseID}
	}

	ucp.LessonsCompleted = int(completedLessons)
	if totalLessons > 0 {
		ucp.CompletionRate = math.Round(float64(completedLessons) / float64(totalLessons) * 100)
	}
	ucp.LastAccessed = time.Now().Format(time.RFC3339)

	return gs.DB.Save(&ucp).Error
}
