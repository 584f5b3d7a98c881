package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/utils"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

func (cc *CoursesController) GetUserCourses(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var courses []models.Course
	cc.DB.Joins("JOIN user_course_progresses ON user_course_progresses.course_id = courses.id").
		Where("user_course_progresses.user_id = ?", userID).
		Find(&courses)

	var result []fiber.Map
	for _, course := range courses {
		var progress models.UserCourseProgress
		cc.DB.Where("user_id = ? AND course_id = ?", userID, course.ID).First(&progress)

		var lessonCount int64
		cc.DB.Model(&models.Lesson{}).Where("course_id = ?", course.ID).Count(&lessonCount)

		result = append(result, fiber.Map{
			"id":            course.ID,
			"title":         course.Title,
			"progress":      progress.CompletionRate,
			"group":         course.RecommendedFor,
			"lessons":       lessonCount,
			"completed":     progress.LessonsCompleted,
			"last_accessed": progress.LastAccessed,
		})
	}

	return c.JSON(result)
}

func (cc *CoursesController) GetAvailableCourses(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	search := c.Query("search")
	topic := c.Query("topic")
	university := c.Query("university")

	query := cc.DB.Model(&models.Course{}).
		Joins("JOIN course_access_settings ON course_access_settings.course_id = courses.id").
		Where("course_access_settings.access_level = 'public'")

	if search != "" {
		query = query.Where("title LIKE ? OR short_desc LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if topic != "" {
		query = query.Where("topic LIKE ?", "%"+topic+"%")
	}
	if university != "" {
		query = query.Where("university LIKE ?", "%"+university+"%")
	}

	var courses []models.Course
	query.Find(&courses)

	var result []fiber.Map
	for _, course := range courses {
		var progress models.UserCourseProgress
		cc.DB.Where("user_id = ? AND course_id = ?", userID, course.ID).First(&progress)

		result = append(result, fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"progress":    progress.CompletionRate,
			"group":       course.RecommendedFor,
			"description": course.ShortDesc,
			"difficulty":  course.Difficulty,
			"university":  course.University,
			"topic":       course.Topic,
			"instructor":  course.InstructorName,
			"logo_url":    course.LogoURL,
		})
	}

	return c.JSON(result)
}

func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.Preload("Lessons").Preload("Comments").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var progress models.UserCourseProgress
	cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress)

	// Per-lesson watched percentage, so the player can render resume bars
	var watched []models.WatchProgress
	cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&watched)
	watchedByLesson := make(map[uint]models.WatchProgress, len(watched))
	for _, wp := range watched {
		watchedByLesson[wp.LessonID] = wp
	}

	var lessons []fiber.Map
	for _, lesson := range course.Lessons {
		wp := watchedByLesson[lesson.ID]
		lessons = append(lessons, fiber.Map{
			"id":               lesson.ID,
			"title":            lesson.Title,
			"description":      lesson.Description,
			"video_url":        lesson.VideoURL,
			"duration_seconds": lesson.DurationSeconds,
			"order":            lesson.SequenceOrder,
			"percent":          wp.Percent,
			"completed":        wp.Completed,
		})
	}

	return c.JSON(fiber.Map{
		"course": fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"description": course.Description,
			"short_desc":  course.ShortDesc,
			"difficulty":  course.Difficulty,
			"recommended": course.RecommendedFor,
			"university":  course.University,
			"topic":       course.Topic,
			"logo_url":    course.LogoURL,
			"author":      course.AuthorID,
			"instructor":  course.InstructorName,
			"final_quiz":  course.FinalQuizID,
			"lessons":     lessons,
			"comments":    course.Comments,
		},
		"progress": progress,
	})
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Title          string `json:"title" validate:"required,min=3"`
		ShortDesc      string `json:"short_desc"`
		Description    string `json:"description"`
		Difficulty     string `json:"difficulty"`
		RecommendedFor string `json:"recommended_for"`
		University     string `json:"university"`
		Topic          string `json:"topic"`
		InstructorName string `json:"instructor_name" validate:"required"`
		LogoURL        string `json:"logo_url"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	course := models.Course{
		Title:          input.Title,
		ShortDesc:      input.ShortDesc,
		Description:    input.Description,
		Difficulty:     input.Difficulty,
		RecommendedFor: input.RecommendedFor,
		University:     input.University,
		Topic:          input.Topic,
		InstructorName: input.InstructorName,
		LogoURL:        input.LogoURL,
		AuthorID:       userID,
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	// Default access settings
	accessSettings := models.CourseAccessSettings{
		CourseID:    course.ID,
		AccessLevel: "private",
		Admins:      strconv.Itoa(int(userID)),
	}

	if err := cc.DB.Create(&accessSettings).Error; err != nil {
		return utils.InternalServerError(c, "Could not create access settings")
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Title           string `json:"title" validate:"required"`
		Description     string `json:"description"`
		Content         string `json:"content"`
		VideoURL        string `json:"video_url"`
		DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	course, errResp := cc.editableCourse(c, uint(courseID), userID)
	if course == nil {
		return errResp
	}

	var lessonCount int64
	cc.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&lessonCount)

	lesson := models.Lesson{
		CourseID:        uint(courseID),
		Title:           input.Title,
		Description:     input.Description,
		Content:         input.Content,
		VideoURL:        input.VideoURL,
		DurationSeconds: input.DurationSeconds,
		SequenceOrder:   int(lessonCount) + 1,
	}

	if err := cc.DB.Create(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not create lesson")
	}

	return c.JSON(fiber.Map{
		"message": "Lesson added",
		"lesson":  lesson,
	})
}

func (cc *CoursesController) UpdateLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Content         string `json:"content"`
		VideoURL        string `json:"video_url"`
		DurationSeconds int    `json:"duration_seconds"`
		SequenceOrder   int    `json:"sequence_order"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, errResp := cc.editableCourse(c, uint(courseID), userID)
	if course == nil {
		return errResp
	}

	var lesson models.Lesson
	if err := cc.DB.Where("id = ? AND course_id = ?", lessonID, courseID).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Lesson not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != "" {
		lesson.Title = input.Title
	}
	if input.Description != "" {
		lesson.Description = input.Description
	}
	if input.Content != "" {
		lesson.Content = input.Content
	}
	if input.VideoURL != "" {
		lesson.VideoURL = input.VideoURL
	}
	if input.DurationSeconds > 0 {
		lesson.DurationSeconds = input.DurationSeconds
	}
	if input.SequenceOrder != 0 {
		lesson.SequenceOrder = input.SequenceOrder
	}

	if err := cc.DB.Save(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not update lesson")
	}

	return c.JSON(fiber.Map{
		"message": "Lesson updated",
		"lesson":  lesson,
	})
}

func (cc *CoursesController) UpdateCourseSettings(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		AccessLevel string `json:"access_level"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Admins      string `json:"admins"`
		FinalQuizID *uint  `json:"final_quiz_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	course, errResp := cc.editableCourse(c, uint(courseID), userID)
	if course == nil {
		return errResp
	}

	if input.AccessLevel != "" {
		course.AccessSettings.AccessLevel = input.AccessLevel
	}
	if input.StartDate != "" {
		course.AccessSettings.StartDate = input.StartDate
	}
	if input.EndDate != "" {
		course.AccessSettings.EndDate = input.EndDate
	}
	if input.Admins != "" {
		course.AccessSettings.Admins = input.Admins
	}

	if input.FinalQuizID != nil {
		var quiz models.Quiz
		if err := cc.DB.Where("id = ? AND course_id = ?", *input.FinalQuizID, courseID).First(&quiz).Error; err != nil {
			return utils.BadRequest(c, "Final quiz does not belong to this course")
		}
		course.FinalQuizID = input.FinalQuizID
		if err := cc.DB.Save(course).Error; err != nil {
			return utils.InternalServerError(c, "Could not update course")
		}
	}

	if err := cc.DB.Save(&course.AccessSettings).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course settings")
	}

	return c.JSON(fiber.Map{
		"message":  "Course settings updated",
		"settings": course.AccessSettings,
	})
}

// GetCourseAnalytics returns per-user completion stats for course authors.
func (cc *CoursesController) GetCourseAnalytics(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	if course.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to view this analytics")
	}

	var progresses []models.UserCourseProgress
	if err := cc.DB.Where("course_id = ?", courseID).Find(&progresses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var completed int64
	var sumRate float64
	var users []fiber.Map
	for _, progress := range progresses {
		var user models.User
		if err := cc.DB.First(&user, progress.UserID).Error; err != nil {
			continue
		}

		if progress.CompletionRate >= 100 {
			completed++
		}
		sumRate += progress.CompletionRate

		users = append(users, fiber.Map{
			"user_id":           user.ID,
			"username":          user.Username,
			"lessons_completed": progress.LessonsCompleted,
			"completion_rate":   progress.CompletionRate,
			"last_accessed":     progress.LastAccessed,
		})
	}

	avgRate := 0.0
	if len(progresses) > 0 {
		avgRate = sumRate / float64(len(progresses))
	}

	return c.JSON(fiber.Map{
		"total_enrollments":   len(progresses),
		"completed":           completed,
		"avg_completion_rate": avgRate,
		"users":               users,
	})
}

// editableCourse loads the course and checks the caller is its author or
// listed in the access-settings admins. On failure the second value is the
// response already written.
func (cc *CoursesController) editableCourse(c *fiber.Ctx, courseID, userID uint) (*models.Course, error) {
	var course models.Course
	if err := cc.DB.Preload("AccessSettings").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Course not found")
		}
		return nil, utils.InternalServerError(c, "Could not query database")
	}

	if course.AuthorID != userID && !strings.Contains(course.AccessSettings.Admins, strconv.Itoa(int(userID))) {
		return nil, utils.Forbidden(c, "You don't have permission to edit this course")
	}

	return &course, nil
}
