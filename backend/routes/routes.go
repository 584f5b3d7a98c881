package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"elyra/backend/config"
	"elyra/backend/controllers"
	"elyra/backend/middleware"
	"elyra/backend/progress"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)
	app.Get("/api/user/certificates", authMiddleware, userController.GetCertificates)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetUserCourses)
	courses.Get("/available", coursesController.GetAvailableCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Get("/:id/analytics", coursesController.GetCourseAnalytics)

	// Comments
	commentsController := controllers.NewCommentsController(db, cfg)
	courses.Get("/:id/comments", commentsController.GetCourseComments)
	courses.Post("/:id/comments", commentsController.AddCourseComment)

	// Playback / watch progress routes
	tracker := progress.NewService(progress.NewGormStore(db), logger)
	playbackController := controllers.NewPlaybackController(db, cfg, tracker)
	lessons := app.Group("/api/lessons", authMiddleware)
	lessons.Post("/:id/start", playbackController.StartLesson)
	lessons.Post("/:id/sample", playbackController.SampleLesson)
	lessons.Post("/:id/stop", playbackController.StopLesson)

	// Quizzes routes
	quizzesController := controllers.NewQuizzesController(db, cfg)
	quizzes := app.Group("/api/quizzes", authMiddleware)
	quizzes.Get("/:id", quizzesController.GetQuizDetails)
	quizzes.Post("/:id/attempts", quizzesController.SubmitAttempt)
	quizzes.Get("/:id/result", quizzesController.GetQuizResult)

	// Certificates
	certificatesController := controllers.NewCertificatesController(db, cfg)
	courses.Post("/:id/certificate", certificatesController.RequestCertificate)

	// Public verification endpoint: no auth, just a sanity rate limit
	app.Get("/verify/:credentialId", limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}), certificatesController.Verify)

	// Admin routes for courses
	adminCourses := app.Group("/api/admin/courses", authMiddleware, adminMiddleware)
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Post("/:id/lessons", coursesController.AddLesson)
	adminCourses.Put("/:id/lessons/:lessonId", coursesController.UpdateLesson)
	adminCourses.Put("/:id/settings", coursesController.UpdateCourseSettings)

	// Admin routes for quizzes
	adminQuizzes := app.Group("/api/admin/quizzes", authMiddleware, adminMiddleware)
	adminQuizzes.Post("/", quizzesController.CreateQuiz)
	adminQuizzes.Post("/:id/questions", quizzesController.AddQuestion)

	// Admin backfill of rendered certificate assets
	adminCertificates := app.Group("/api/admin/certificates", authMiddleware, adminMiddleware)
	adminCertificates.Put("/:credentialId/assets", certificatesController.AttachAssets)
}
