package controllers_test

import (
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elyra/backend/models"
)

// completeCourse marks every lesson of the course watched for the user,
// the way the background persister would have.
func (env *testEnv) completeCourse(t *testing.T, courseID uint) {
	t.Helper()

	var lessons []models.Lesson
	require.NoError(t, env.db.Where("course_id = ?", courseID).Find(&lessons).Error)
	for _, lesson := range lessons {
		require.NoError(t, env.db.Create(&models.WatchProgress{
			UserID:    env.userID,
			CourseID:  courseID,
			LessonID:  lesson.ID,
			Percent:   100,
			Completed: true,
		}).Error)
	}
	require.NoError(t, env.db.Create(&models.UserCourseProgress{
		UserID:           env.userID,
		CourseID:         courseID,
		LessonsCompleted: len(lessons),
		CompletionRate:   100,
	}).Error)
}

func TestCertificateIssuanceAndVerification(t *testing.T) {
	env := setupEnv(t)
	courseID, _ := env.createCourse(t, 100)
	env.completeCourse(t, courseID)

	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	cert := result["certificate"].(map[string]interface{})
	credentialID := cert["credential_id"].(string)
	assert.Regexp(t, regexp.MustCompile(`^ELY-BAS-\d{4}-[A-Z0-9]{6}$`), credentialID)
	assert.Equal(t, "Lena Learner", cert["student_name"])
	assert.Equal(t, "Dr. Test", cert["instructor_name"])
	assert.Equal(t, "http://localhost:8080/verify/"+credentialID, cert["verification_url"])

	// Requesting again returns the same credential, not a second one
	status, result = env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, credentialID, result["certificate"].(map[string]interface{})["credential_id"])

	var count int64
	env.db.Model(&models.Certificate{}).Count(&count)
	assert.EqualValues(t, 1, count)

	// Public verification needs no token
	status, result = env.request(t, http.MethodGet, "/verify/"+credentialID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["valid"])
	assert.Equal(t, "Lena Learner", result["student_name"])
	assert.Equal(t, "Test Course", result["course_name"])

	// Snapshot survives a later rename of the course
	require.NoError(t, env.db.Model(&models.Course{}).Where("id = ?", courseID).
		Update("title", "Renamed Course").Error)
	status, result = env.request(t, http.MethodGet, "/verify/"+credentialID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Test Course", result["course_name"])
}

func TestCertificateRequiresCompletedCourse(t *testing.T) {
	env := setupEnv(t)
	courseID, _ := env.createCourse(t, 100)

	status, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	var count int64
	env.db.Model(&models.Certificate{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestCertificateFinalQuizGating(t *testing.T) {
	env := setupEnv(t)
	courseID, _ := env.createCourse(t, 100)
	env.completeCourse(t, courseID)

	// Attach a final quiz to the course
	quiz := models.Quiz{CourseID: courseID, Title: "Final Exam", AuthorID: env.adminID}
	require.NoError(t, env.db.Create(&quiz).Error)
	require.NoError(t, env.db.Model(&models.Course{}).Where("id = ?", courseID).
		Update("final_quiz_id", quiz.ID).Error)

	// Blocked without a passing attempt
	status, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// A passing attempt unlocks the premium certificate
	require.NoError(t, env.db.Create(&models.QuizAttempt{
		UserID: env.userID,
		QuizID: quiz.ID,
		Score:  90,
		Passed: true,
	}).Error)

	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	cert := result["certificate"].(map[string]interface{})
	assert.Equal(t, "PREMIUM", cert["tier"])
	assert.Contains(t, cert["credential_id"].(string), "-PRM-")
}

func TestVerifyUnknownCredential(t *testing.T) {
	env := setupEnv(t)

	status, _ := env.request(t, http.MethodGet, "/verify/ELY-BAS-2026-ZZZZZZ", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUserCertificateList(t *testing.T) {
	env := setupEnv(t)
	courseID, _ := env.createCourse(t, 100)
	env.completeCourse(t, courseID)

	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	credentialID := result["certificate"].(map[string]interface{})["credential_id"].(string)

	status, result = env.request(t, http.MethodGet, "/api/user/certificates", env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	data := result["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, credentialID, data[0].(map[string]interface{})["credential_id"])
}

func TestAdminAssetBackfill(t *testing.T) {
	env := setupEnv(t)
	courseID, _ := env.createCourse(t, 100)
	env.completeCourse(t, courseID)

	status, result := env.request(t, http.MethodPost, fmt.Sprintf("/api/courses/%d/certificate", courseID), env.userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	credentialID := result["certificate"].(map[string]interface{})["credential_id"].(string)

	status, _ = env.request(t, http.MethodPut, "/api/admin/certificates/"+credentialID+"/assets", env.adminToken, map[string]interface{}{
		"image_url": "https://cdn.example/cert.png",
		"pdf_url":   "https://cdn.example/cert.pdf",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, result = env.request(t, http.MethodGet, "/verify/"+credentialID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "https://cdn.example/cert.png", result["image_url"])
	assert.Equal(t, "Lena Learner", result["student_name"])
}
