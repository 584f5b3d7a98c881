package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/routes"
	"elyra/backend/utils"
)

type testEnv struct {
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	adminToken string
	userToken  string
	adminID    uint
	userID     uint
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:    "testsecret",
		BaseURL:      "http://localhost:8080",
		CertIDPrefix: "ELY",
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, utils.MigrateModels(db))

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg, utils.InitLogger())

	env := &testEnv{app: app, db: db, cfg: cfg}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	admin := models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Site Admin",
		Role:         "admin",
	}
	require.NoError(t, db.Create(&admin).Error)
	env.adminID = admin.ID
	env.adminToken, err = utils.GenerateJWTToken(admin.ID, cfg)
	require.NoError(t, err)

	user := models.User{
		Username:     "learner",
		Email:        "learner@example.com",
		PasswordHash: string(hash),
		FullName:     "Lena Learner",
		Role:         "user",
	}
	require.NoError(t, db.Create(&user).Error)
	env.userID = user.ID
	env.userToken, err = utils.GenerateJWTToken(user.ID, cfg)
	require.NoError(t, err)

	return env
}

// request runs a JSON request against the in-process app and decodes the
// response body into a generic map.
func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

// createCourse provisions a course with one lesson through the admin API
// and returns (courseID, lessonID).
func (env *testEnv) createCourse(t *testing.T, durationSeconds int) (uint, uint) {
	t.Helper()

	status, result := env.request(t, http.MethodPost, "/api/admin/courses", env.adminToken, map[string]interface{}{
		"title":           "Test Course",
		"short_desc":      "Short description",
		"instructor_name": "Dr. Test",
	})
	require.Equal(t, fiber.StatusOK, status)
	courseID := uint(result["course"].(map[string]interface{})["ID"].(float64))

	status, result = env.request(t, http.MethodPost, fmt.Sprintf("/api/admin/courses/%d/lessons", courseID), env.adminToken, map[string]interface{}{
		"title":            "Lesson 1",
		"video_url":        "https://cdn.example/lesson1.mp4",
		"duration_seconds": durationSeconds,
	})
	require.Equal(t, fiber.StatusOK, status)
	lessonID := uint(result["lesson"].(map[string]interface{})["ID"].(float64))

	return courseID, lessonID
}
