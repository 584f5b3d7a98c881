package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/models"
	"elyra/backend/utils"
)

type QuizzesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg}
}

func (qc *QuizzesController) GetQuizDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions").Preload("AccessSettings").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var attemptsUsed int64
	qc.DB.Model(&models.QuizAttempt{}).Where("user_id = ? AND quiz_id = ?", userID, quizID).Count(&attemptsUsed)

	// Options decode from JSON; correct answers are not exposed here
	var questions []map[string]interface{}
	for _, q := range quiz.Questions {
		var options []string
		json.Unmarshal([]byte(q.Options), &options)

		questions = append(questions, map[string]interface{}{
			"id":       q.ID,
			"title":    q.Title,
			"question": q.Question,
			"options":  options,
			"order":    q.SequenceOrder,
		})
	}

	return c.JSON(fiber.Map{
		"quiz": fiber.Map{
			"id":          quiz.ID,
			"course_id":   quiz.CourseID,
			"title":       quiz.Title,
			"description": quiz.Description,
			"short_desc":  quiz.ShortDesc,
			"questions":   questions,
			"pass_score":  quiz.AccessSettings.PassScore,
		},
		"attempts_used":    attemptsUsed,
		"attempts_allowed": quiz.AccessSettings.AttemptsAllowed,
	})
}

func (qc *QuizzesController) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	type AnswerInput struct {
		QuestionID uint `json:"question_id"`
		Answer     int  `json:"answer"`
	}

	var input struct {
		Answers []AnswerInput `json:"answers"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions").Preload("AccessSettings").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	// Attempts budget
	var attemptsUsed int64
	qc.DB.Model(&models.QuizAttempt{}).Where("user_id = ? AND quiz_id = ?", userID, quizID).Count(&attemptsUsed)
	if quiz.AccessSettings.AttemptsAllowed > 0 && attemptsUsed >= int64(quiz.AccessSettings.AttemptsAllowed) {
		return utils.Forbidden(c, "No attempts left")
	}

	if len(quiz.Questions) == 0 {
		return utils.BadRequest(c, "Quiz has no questions")
	}

	questionsByID := make(map[uint]models.QuizQuestion, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questionsByID[q.ID] = q
	}

	correctAnswers := 0
	for _, answer := range input.Answers {
		q, ok := questionsByID[answer.QuestionID]
		if !ok {
			continue
		}
		if answer.Answer == q.CorrectAnswer {
			correctAnswers++
		}
	}

	score := float64(correctAnswers) / float64(len(quiz.Questions)) * 100

	attempt := models.QuizAttempt{
		UserID:            userID,
		QuizID:            uint(quizID),
		QuestionsAnswered: len(input.Answers),
		CorrectAnswers:    correctAnswers,
		Score:             score,
		Passed:            score >= quiz.AccessSettings.PassScore,
		AttemptedAt:       time.Now(),
	}

	if err := qc.DB.Create(&attempt).Error; err != nil {
		return utils.InternalServerError(c, "Could not save attempt")
	}

	attemptsLeft := -1
	if quiz.AccessSettings.AttemptsAllowed > 0 {
		attemptsLeft = quiz.AccessSettings.AttemptsAllowed - int(attemptsUsed) - 1
	}

	return c.JSON(fiber.Map{
		"message": "Attempt recorded",
		"result": fiber.Map{
			"questions_answered": attempt.QuestionsAnswered,
			"correct_answers":    attempt.CorrectAnswers,
			"score":              attempt.Score,
			"passed":             attempt.Passed,
			"attempts_left":      attemptsLeft,
		},
	})
}

func (qc *QuizzesController) GetQuizResult(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var attempts []models.QuizAttempt
	if err := qc.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempted_at DESC").
		Find(&attempts).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	if len(attempts) == 0 {
		return utils.NotFound(c, "Quiz not attempted")
	}

	best := attempts[0]
	for _, a := range attempts {
		if a.Score > best.Score {
			best = a
		}
	}

	return c.JSON(fiber.Map{
		"latest": attempts[0],
		"best":   best,
		"passed": best.Passed,
	})
}

func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		CourseID        uint    `json:"course_id" validate:"required"`
		Title           string  `json:"title" validate:"required,min=3"`
		ShortDesc       string  `json:"short_desc"`
		Description     string  `json:"description"`
		AttemptsAllowed int     `json:"attempts_allowed"`
		PassScore       float64 `json:"pass_score" validate:"gte=0,lte=100"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	var course models.Course
	if err := qc.DB.First(&course, input.CourseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	quiz := models.Quiz{
		CourseID:    input.CourseID,
		Title:       input.Title,
		ShortDesc:   input.ShortDesc,
		Description: input.Description,
		AuthorID:    userID,
	}

	if err := qc.DB.Create(&quiz).Error; err != nil {
		return utils.InternalServerError(c, "Could not create quiz")
	}

	settings := models.QuizAccessSettings{
		QuizID:          quiz.ID,
		AccessLevel:     "private",
		AttemptsAllowed: input.AttemptsAllowed,
		PassScore:       input.PassScore,
	}
	if settings.PassScore == 0 {
		settings.PassScore = 60
	}

	if err := qc.DB.Create(&settings).Error; err != nil {
		return utils.InternalServerError(c, "Could not create access settings")
	}

	return c.JSON(fiber.Map{
		"message": "Quiz created",
		"quiz":    quiz,
	})
}

func (qc *QuizzesController) AddQuestion(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz ID")
	}

	var input struct {
		Title         string   `json:"title"`
		Question      string   `json:"question" validate:"required"`
		Options       []string `json:"options" validate:"required,min=2"`
		CorrectAnswer int      `json:"correct_answer"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if quiz.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to add questions to this quiz")
	}

	if input.CorrectAnswer < 0 || input.CorrectAnswer >= len(input.Options) {
		return utils.BadRequest(c, "Invalid correct answer index")
	}

	optionsJSON, err := json.Marshal(input.Options)
	if err != nil {
		return utils.InternalServerError(c, "Could not encode options")
	}

	var questionCount int64
	qc.DB.Model(&models.QuizQuestion{}).Where("quiz_id = ?", quizID).Count(&questionCount)

	question := models.QuizQuestion{
		QuizID:        uint(quizID),
		Title:         input.Title,
		Question:      input.Question,
		Options:       string(optionsJSON),
		CorrectAnswer: input.CorrectAnswer,
		SequenceOrder: int(questionCount) + 1,
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}

	return c.JSON(fiber.Map{
		"message":  "Question added",
		"question": question,
	})
}
