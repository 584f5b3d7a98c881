package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/progress"
	"elyra/backend/utils"
)

// PlaybackController is the HTTP surface of the watch-progress tracker.
// The player calls start once, then sample roughly once per second while
// the video is actually playing.
type PlaybackController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Tracker *progress.Service
}

func NewPlaybackController(db *gorm.DB, cfg *config.Config, tracker *progress.Service) *PlaybackController {
	return &PlaybackController{DB: db, Cfg: cfg, Tracker: tracker}
}

// StartLesson godoc
// @Summary Start lesson playback
// @Description Opens a playback session, returning earned progress for resume
// @Tags playback
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/start [post]
func (pc *PlaybackController) StartLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var lesson models.Lesson
	if err := pc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Lesson not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	sessionID, sess, err := pc.Tracker.Start(userID, lesson.CourseID, lesson.ID, lesson.DurationSeconds)
	if err != nil {
		return utils.InternalServerError(c, "Could not start playback session")
	}

	return c.JSON(fiber.Map{
		"session_id":       sessionID,
		"percent":          sess.Percent(),
		"completed":        sess.Completed(),
		"duration_seconds": lesson.DurationSeconds,
	})
}

// SampleLesson godoc
// @Summary Report playback position
// @Description Feeds one playback-position sample into the watch tracker
// @Tags playback
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/sample [post]
func (pc *PlaybackController) SampleLesson(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, pc.Cfg); err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		SessionID string  `json:"session_id"`
		Position  float64 `json:"position"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	res, err := pc.Tracker.Sample(input.SessionID, input.Position)
	if err != nil {
		if errors.Is(err, progress.ErrSessionNotFound) {
			return utils.NotFound(c, "Playback session not found")
		}
		return utils.InternalServerError(c, "Could not record sample")
	}

	// lesson_completed drives the player's completion toast
	return c.JSON(fiber.Map{
		"percent":          res.Percent,
		"lesson_completed": res.Completed,
		"completed_now":    res.CompletedNow,
	})
}

// StopLesson closes the playback session and flushes its final state.
func (pc *PlaybackController) StopLesson(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, pc.Cfg); err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	pc.Tracker.Stop(input.SessionID)

	return c.JSON(fiber.Map{
		"message": "Playback session closed",
	})
}
