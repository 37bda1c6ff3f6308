package paymentRoutes

import (
	paymentController "lms/controllers/payment"
	"lms/middleware"
	courseValidators "lms/validators/course"
	paymentValidators "lms/validators/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up payment initialization, verification and the
// gateway webhook. The webhook is signature-authenticated, not JWT.
func SetupPaymentRoutes(app *fiber.App) {
	paymentGroup := app.Group("/payment")

	paymentGroup.Post("/course/:courseId/init", middleware.JWTMiddleware, courseValidators.CourseIDParam(), paymentController.InitCoursePayment)
	paymentGroup.Post("/verify", middleware.JWTMiddleware, paymentValidators.VerifyBody(), paymentController.VerifyCoursePayment)
	paymentGroup.Post("/webhook/paystack", paymentController.PaystackWebhook)

	// Admin audit trail
	paymentGroup.Get("/list", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"), paymentController.ListPayments)
}
