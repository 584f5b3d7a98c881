package controllers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"elyra/backend/certificates"
	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/utils"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile data
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	// Active courses for the dashboard
	var activeCourses []models.UserCourseProgress
	uc.DB.Where("user_id = ? AND completion_rate < 100", userID).
		Order("updated_at DESC").
		Limit(3).
		Find(&activeCourses)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":             user.ID,
		"username":       user.Username,
		"email":          user.Email,
		"full_name":      user.FullName,
		"role":           user.Role,
		"group":          user.Group,
		"university":     user.University,
		"created_at":     user.CreatedAt,
		"active_courses": activeCourses,
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates authenticated user's profile data
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		FullName    string `json:"full_name"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
		Group       string `json:"group"`
		University  string `json:"university"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.Username != "" && input.Username != user.Username {
		var existing models.User
		if err := uc.DB.Where("username = ?", input.Username).First(&existing).Error; err == nil && existing.ID != user.ID {
			return utils.BadRequest(c, "Username already taken")
		}
		user.Username = input.Username
	}

	if input.Email != "" && input.Email != user.Email {
		var existing models.User
		if err := uc.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil && existing.ID != user.ID {
			return utils.BadRequest(c, "Email already taken")
		}
		user.Email = input.Email
	}

	if input.NewPassword != "" {
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Invalid old password")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashedPassword)
	}

	// Changing the name does not rewrite already-issued certificates;
	// their snapshots are frozen.
	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Group != "" {
		user.Group = input.Group
	}
	if input.University != "" {
		user.University = input.University
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
	})
}

// GetCertificates godoc
// @Summary List user certificates
// @Description Returns the authenticated user's certificates, newest first
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/certificates [get]
func (uc *UserController) GetCertificates(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	issuer := certificates.NewIssuer(uc.DB, uc.Cfg.CertIDPrefix)
	certs, err := issuer.ListForUser(userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not fetch certificates")
	}

	result := make([]fiber.Map, 0, len(certs))
	for _, cert := range certs {
		result = append(result, fiber.Map{
			"credential_id":    cert.CredentialID,
			"course_id":        cert.CourseID,
			"course_name":      cert.CourseName,
			"tier":             cert.Tier,
			"issued_at":        cert.IssuedAt,
			"image_url":        cert.ImageURL,
			"pdf_url":          cert.PDFURL,
			"verification_url": certificates.VerificationURL(uc.Cfg.BaseURL, cert.CredentialID),
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}
