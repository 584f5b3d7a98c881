package controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elyra/backend/models"
)

func (env *testEnv) startLesson(t *testing.T, lessonID uint) string {
	t.Helper()
	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/start", lessonID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	return result["session_id"].(string)
}

func (env *testEnv) sample(t *testing.T, lessonID uint, sessionID string, position float64) map[string]interface{} {
	t.Helper()
	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/sample", lessonID), env.userToken, map[string]interface{}{
		"session_id": sessionID,
		"position":   position,
	})
	require.Equal(t, fiber.StatusOK, status)
	return result
}

func TestPlaybackWatchThrough(t *testing.T) {
	env := setupEnv(t)
	courseID, lessonID := env.createCourse(t, 100)

	sessionID := env.startLesson(t, lessonID)

	// Play the video straight through one second at a time
	var last map[string]interface{}
	for pos := 0.0; pos <= 70; pos++ {
		last = env.sample(t, lessonID, sessionID, pos)
	}

	assert.Equal(t, float64(70), last["percent"])
	assert.Equal(t, true, last["lesson_completed"])

	// Completion is persisted in the background and rolls up into the
	// course aggregate
	assert.Eventually(t, func() bool {
		var wp models.WatchProgress
		if err := env.db.Where("user_id = ? AND lesson_id = ?", env.userID, lessonID).First(&wp).Error; err != nil {
			return false
		}
		if !wp.Completed || wp.Percent != 70 {
			return false
		}
		var ucp models.UserCourseProgress
		if err := env.db.Where("user_id = ? AND course_id = ?", env.userID, courseID).First(&ucp).Error; err != nil {
			return false
		}
		return ucp.CompletionRate == 100 && ucp.LessonsCompleted == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlaybackSeekingEarnsNothing(t *testing.T) {
	env := setupEnv(t)
	_, lessonID := env.createCourse(t, 100)

	sessionID := env.startLesson(t, lessonID)

	// Jump around the timeline: none of the jumps are under 5 seconds,
	// so no watch time is credited
	positions := []float64{0, 20, 40, 90, 10, 60}
	var last map[string]interface{}
	for _, pos := range positions {
		last = env.sample(t, lessonID, sessionID, pos)
	}

	assert.Equal(t, float64(0), last["percent"])
	assert.Equal(t, false, last["lesson_completed"])
}

func TestPlaybackResume(t *testing.T) {
	env := setupEnv(t)
	courseID, lessonID := env.createCourse(t, 100)

	// Previously persisted 40%
	require.NoError(t, env.db.Create(&models.WatchProgress{
		UserID:   env.userID,
		CourseID: courseID,
		LessonID: lessonID,
		Percent:  40,
	}).Error)

	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/start", lessonID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(40), result["percent"])
	assert.Equal(t, false, result["completed"])
}

func TestPlaybackUnknownSession(t *testing.T) {
	env := setupEnv(t)
	_, lessonID := env.createCourse(t, 100)

	status, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/sample", lessonID), env.userToken, map[string]interface{}{
		"session_id": "not-a-session",
		"position":   1,
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPlaybackStop(t *testing.T) {
	env := setupEnv(t)
	_, lessonID := env.createCourse(t, 100)

	sessionID := env.startLesson(t, lessonID)
	for pos := 0.0; pos <= 3; pos++ {
		env.sample(t, lessonID, sessionID, pos)
	}

	status, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/stop", lessonID), env.userToken, map[string]interface{}{
		"session_id": sessionID,
	})
	require.Equal(t, fiber.StatusOK, status)

	// The final sub-threshold state was flushed on stop
	assert.Eventually(t, func() bool {
		var wp models.WatchProgress
		if err := env.db.Where("user_id = ? AND lesson_id = ?", env.userID, lessonID).First(&wp).Error; err != nil {
			return false
		}
		return wp.Percent == 3 && !wp.Completed
	}, 2*time.Second, 10*time.Millisecond)
}
