package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	courseValidators "lms/validators/course"
)

// AddReview creates or updates the caller's review of a course they are
// enrolled in. One review per user per course.
func AddReview(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	body := c.Locals("validatedReview").(*courseValidators.ReviewRequest)

	db := database.Database.Db

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, crs.ID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You must be enrolled to review this course!", nil)
	}

	review := courseModels.Review{
		UserID:   userID,
		CourseID: crs.ID,
		Rating:   body.Rating,
		Comment:  body.Comment,
	}

	// Second review from the same user overwrites the first.
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(&review).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save review!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Review saved successfully!", fiber.Map{
		"review": review,
	})
}

// GetCourseReviews lists reviews for a course, newest first.
func GetCourseReviews(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(int)

	db := database.Database.Db

	var reviews []courseModels.Review
	if err := db.Where("course_id = ? AND is_deleted = ?", courseID, false).Order("created_at desc").Find(&reviews).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch reviews!", nil)
	}

	var avg float64
	db.Model(&courseModels.Review{}).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Select("COALESCE(AVG(rating), 0)").Scan(&avg)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Reviews fetched successfully!", fiber.Map{
		"reviews":        reviews,
		"total":          len(reviews),
		"average_rating": avg,
	})
}
