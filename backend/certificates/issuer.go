package certificates

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"elyra/backend/models"
)

var (
	// ErrPrerequisiteNotMet means the course has a final assessment the
	// user has not passed.
	ErrPrerequisiteNotMet = errors.New("final assessment has not been passed")

	// ErrIDSpaceExhausted means credential id generation collided three
	// times in a row, which signals a systemic problem rather than bad
	// luck with a 6-character token.
	ErrIDSpaceExhausted = errors.New("credential id space exhausted")

	ErrUnknownTier = errors.New("unknown certificate tier")
)

// maxMintAttempts bounds the collision-retry loop of id generation.
const maxMintAttempts = 3

// Snapshot carries the fields frozen onto a certificate at issuance time.
// They are intentionally decoupled from the live user and course records.
type Snapshot struct {
	StudentName    string
	CourseName     string
	InstructorName string
}

// Issuer mints and resolves certificates. Issuance is idempotent per
// (user, course): repeated calls return the original certificate.
type Issuer struct {
	DB     *gorm.DB
	Prefix string

	// now and genID are swappable in tests
	now   func() time.Time
	genID func(prefix string, tier Tier, now time.Time) (string, error)
}

func NewIssuer(db *gorm.DB, prefix string) *Issuer {
	return &Issuer{DB: db, Prefix: prefix, now: time.Now, genID: newCredentialID}
}

// Issue creates the certificate for a completed course, or returns the
// existing one unchanged. When the course has a final quiz, a passing
// attempt is required first.
func (is *Issuer) Issue(userID, courseID uint, snap Snapshot, tier Tier) (*models.Certificate, error) {
	if !tier.Valid() {
		return nil, ErrUnknownTier
	}

	// Idempotency: never duplicate, never overwrite a snapshot.
	var existing models.Certificate
	err := is.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := is.checkPrerequisite(userID, courseID); err != nil {
		return nil, err
	}

	credentialID, err := is.mintCredentialID(tier)
	if err != nil {
		return nil, err
	}

	cert := models.Certificate{
		CredentialID:   credentialID,
		UserID:         userID,
		CourseID:       courseID,
		StudentName:    snap.StudentName,
		CourseName:     snap.CourseName,
		InstructorName: snap.InstructorName,
		Tier:           string(tier),
		IssuedAt:       is.now(),
	}

	if err := is.DB.Create(&cert).Error; err != nil {
		// A concurrent Issue won the (user, course) unique index; theirs
		// is the certificate, return it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var won models.Certificate
			if lookupErr := is.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&won).Error; lookupErr == nil {
				return &won, nil
			}
		}
		return nil, err
	}

	return &cert, nil
}

// checkPrerequisite fails when the course's final quiz exists but no
// passing attempt does. A course without a final quiz has no prerequisite.
func (is *Issuer) checkPrerequisite(userID, courseID uint) error {
	var course models.Course
	if err := is.DB.First(&course, courseID).Error; err != nil {
		return err
	}
	if course.FinalQuizID == nil {
		return nil
	}

	var passed int64
	err := is.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND passed = ?", userID, *course.FinalQuizID, true).
		Count(&passed).Error
	if err != nil {
		return err
	}
	if passed == 0 {
		return ErrPrerequisiteNotMet
	}
	return nil
}

func (is *Issuer) mintCredentialID(tier Tier) (string, error) {
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		candidate, err := is.genID(is.Prefix, tier, is.now())
		if err != nil {
			return "", err
		}

		var taken int64
		if err := is.DB.Model(&models.Certificate{}).
			Where("credential_id = ?", candidate).
			Count(&taken).Error; err != nil {
			return "", err
		}
		if taken == 0 {
			return candidate, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// GetByCredentialID resolves a certificate for public verification. No
// authentication; the credential id alone is the capability.
func (is *Issuer) GetByCredentialID(credentialID string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := is.DB.Where("credential_id = ?", credentialID).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListForUser returns a user's certificates, most recent first.
func (is *Issuer) ListForUser(userID uint) ([]models.Certificate, error) {
	var certs []models.Certificate
	if err := is.DB.Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

// SetAssetURLs backfills the rendered image/pdf locations. Snapshot fields
// stay frozen; only the asset columns are touched.
func (is *Issuer) SetAssetURLs(credentialID, imageURL, pdfURL string) error {
	updates := map[string]interface{}{}
	if imageURL != "" {
		updates["image_url"] = imageURL
	}
	if pdfURL != "" {
		updates["pdf_url"] = pdfURL
	}
	if len(updates) == 0 {
		return nil
	}

	return is.DB.Model(&models.Certificate{}).
		Where("credential_id = ?", credentialID).
		Updates(updates).Error
}
