package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"elyra/backend/certificates"
	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/utils"
)

type CertificatesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Issuer *certificates.Issuer
}

func NewCertificatesController(db *gorm.DB, cfg *config.Config) *CertificatesController {
	return &CertificatesController{
		DB:     db,
		Cfg:    cfg,
		Issuer: certificates.NewIssuer(db, cfg.CertIDPrefix),
	}
}

// RequestCertificate godoc
// @Summary Request a course certificate
// @Description Issues the certificate once the course is fully watched (and the final quiz, if any, passed)
// @Tags certificates
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/certificate [post]
func (cc *CertificatesController) RequestCertificate(c *fiber.Ctx) error {
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
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var user models.User
	if err := cc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	// Eligibility: every lesson completed
	var progress models.UserCourseProgress
	if err := cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error; err != nil || progress.CompletionRate < 100 {
		return utils.BadRequest(c, "Course is not fully completed yet")
	}

	// Courses with a final assessment award the premium template
	tier := certificates.TierBasic
	if course.FinalQuizID != nil {
		tier = certificates.TierPremium
	}

	studentName := user.FullName
	if studentName == "" {
		studentName = user.Username
	}

	snap := certificates.Snapshot{
		StudentName:    studentName,
		CourseName:     course.Title,
		InstructorName: course.InstructorName,
	}

	cert, err := cc.Issuer.Issue(userID, uint(courseID), snap, tier)
	if err != nil {
		switch {
		case errors.Is(err, certificates.ErrPrerequisiteNotMet):
			return utils.BadRequest(c, "The final quiz has to be passed before a certificate can be issued")
		case errors.Is(err, certificates.ErrIDSpaceExhausted):
			return utils.InternalServerError(c, "Could not generate a unique credential ID")
		default:
			return utils.InternalServerError(c, "Could not issue certificate")
		}
	}

	return c.JSON(fiber.Map{
		"message": "Certificate issued",
		"certificate": fiber.Map{
			"credential_id":    cert.CredentialID,
			"student_name":     cert.StudentName,
			"course_name":      cert.CourseName,
			"instructor_name":  cert.InstructorName,
			"tier":             cert.Tier,
			"issued_at":        cert.IssuedAt,
			"verification_url": certificates.VerificationURL(cc.Cfg.BaseURL, cert.CredentialID),
		},
	})
}

// AttachAssets backfills rendered image/pdf URLs onto an issued
// certificate. The renderer is an external job; it only gets to touch the
// asset columns.
func (cc *CertificatesController) AttachAssets(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, cc.Cfg); err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	credentialID := c.Params("credentialId")

	var input struct {
		ImageURL string `json:"image_url"`
		PDFURL   string `json:"pdf_url"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if _, err := cc.Issuer.GetByCredentialID(credentialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Certificate not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := cc.Issuer.SetAssetURLs(credentialID, input.ImageURL, input.PDFURL); err != nil {
		return utils.InternalServerError(c, "Could not update certificate assets")
	}

	return c.JSON(fiber.Map{
		"message": "Certificate assets updated",
	})
}

// Verify godoc
// @Summary Verify a certificate
// @Description Public, unauthenticated certificate lookup by credential ID
// @Tags certificates
// @Produce json
// @Param credentialId path string true "Credential ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Router /verify/{credentialId} [get]
func (cc *CertificatesController) Verify(c *fiber.Ctx) error {
	credentialID := c.Params("credentialId")

	cert, err := cc.Issuer.GetByCredentialID(credentialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Certificate not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return c.JSON(fiber.Map{
		"valid":           true,
		"credential_id":   cert.CredentialID,
		"student_name":    cert.StudentName,
		"course_name":     cert.CourseName,
		"instructor_name": cert.InstructorName,
		"tier":            cert.Tier,
		"issued_at":       cert.IssuedAt,
		"image_url":       cert.ImageURL,
		"pdf_url":         cert.PDFURL,
	})
}
