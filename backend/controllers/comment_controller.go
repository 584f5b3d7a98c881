package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/utils"
)

type CommentsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCommentsController(db *gorm.DB, cfg *config.Config) *CommentsController {
	return &CommentsController{DB: db, Cfg: cfg}
}

// AddCourseComment adds a comment with rating to a course.
func (cc *CommentsController) AddCourseComment(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input struct {
		Text   string `json:"text" validate:"required"`
		Rating int    `json:"rating" validate:"gte=0,lte=5"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	var user models.User
	if err := cc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	comment := models.CourseComment{
		CourseID: uint(courseID),
		UserID:   userID,
		UserName: user.Username,
		Text:     input.Text,
		Rating:   input.Rating,
	}

	if err := cc.DB.Create(&comment).Error; err != nil {
		return utils.InternalServerError(c, "Could not create comment")
	}

	return c.JSON(comment)
}

// GetCourseComments returns all comments for a course.
func (cc *CommentsController) GetCourseComments(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var comments []models.CourseComment
	if err := cc.DB.Preload("Replies").Where("course_id = ?", courseID).Find(&comments).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch comments")
	}

	return c.JSON(comments)
}
