package controllers

import (
	"github.com/gofiber/fiber/v2"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"
)

// EnrollInCourse enrolls the caller in a course. The paid/free decision is
// made once, here, from the course's effective price: free courses enroll
// immediately, paid courses are directed to the payment flow and only the
// reconciliation engine may create their enrollment.
func EnrollInCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	if !crs.IsFree() {
		return middleware.JsonResponse(c, fiber.StatusPaymentRequired, false, "Please complete payment to access this course!", fiber.Map{
			"amount_kobo": crs.AmountKobo(),
			"public_key":  "", // filled by the payment init endpoint
		})
	}

	enrollment, created, err := utils.GetOrCreateEnrollment(db, userID, crs.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in course!", nil)
	}

	message := "Enrolled in course successfully!"
	if !created {
		message = "User already enrolled in this course!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, fiber.Map{
		"enrollment":   enrollment,
		"first_lesson": firstLesson(crs.ID),
	})
}

// GetUserEnrollmentsList gets all enrollments for the current user
func GetUserEnrollmentsList(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	type EnrollmentWithCourse struct {
		courseModels.Enrollment
		CourseTitle string `json:"course_title"`
		Instructor  string `json:"instructor"`
		Progress    int    `json:"progress"`
	}

	var enrollments []courseModels.Enrollment
	if err := db.Where("user_id = ? AND is_deleted = ?", userID, false).Order("created_at desc").Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	result := make([]EnrollmentWithCourse, len(enrollments))
	for i, e := range enrollments {
		var crs courseModels.Course
		db.Where("id = ?", e.CourseID).First(&crs)
		result[i] = EnrollmentWithCourse{
			Enrollment:  e,
			CourseTitle: crs.Title,
			Instructor:  crs.Instructor,
			Progress:    ComputeProgress(db, e.ID, e.CourseID),
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": result,
		"total":       len(result),
	})
}
