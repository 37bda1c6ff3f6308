package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all user-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Course listing and details (published courses, no auth required)
	courseGroup.Get("/list", controllers.GetCourseList)
	courseGroup.Get("/:courseId", middleware.OptionalJWTMiddleware, validators.CourseIDParam(), controllers.GetCourseDetail)

	// Enrollment
	courseGroup.Post("/:courseId/enroll", middleware.JWTMiddleware, validators.CourseIDParam(), controllers.EnrollInCourse)

	// Lesson completion
	courseGroup.Post("/:courseId/lesson/:lessonId/complete", middleware.JWTMiddleware, validators.CourseIDParam(), validators.LessonIDParam(), controllers.MarkLessonComplete)
	courseGroup.Post("/:courseId/complete-all", middleware.JWTMiddleware, validators.CourseIDParam(), controllers.MarkAllComplete)

	// Progress tracking
	courseGroup.Get("/:courseId/progress", middleware.JWTMiddleware, validators.CourseIDParam(), controllers.GetUserProgress)

	// Reviews
	courseGroup.Get("/:courseId/reviews", validators.CourseIDParam(), controllers.GetCourseReviews)
	courseGroup.Post("/:courseId/review", middleware.JWTMiddleware, validators.CourseIDParam(), validators.ReviewBody(), controllers.AddReview)

	// User enrollments and certificates
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, controllers.GetUserEnrollmentsList)
	userGroup.Get("/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)

	// Public certificate verification for third parties
	app.Get("/certificate/verify/:number", controllers.VerifyCertificate)
}
