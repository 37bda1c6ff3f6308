package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"
)

// RecordLessonCompletion idempotently marks a lesson complete under an
// enrollment. The insert races against the (enrollment_id, lesson_id) unique
// index; calling it twice, or from two browser tabs at once, yields the same
// single row. Completions are never deleted or un-completed.
func RecordLessonCompletion(db *gorm.DB, enrollmentID, lessonID uint) (courseModels.LessonCompletion, bool, error) {
	completion := courseModels.LessonCompletion{
		EnrollmentID: enrollmentID,
		LessonID:     lessonID,
		IsCompleted:  true,
		CompletedAt:  time.Now().UTC(),
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
		DoNothing: true,
	}).Create(&completion)
	if res.Error != nil {
		return courseModels.LessonCompletion{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing courseModels.LessonCompletion
		err := db.Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).First(&existing).Error
		return existing, false, err
	}
	return completion, true, nil
}

// ComputeProgress recomputes percentage completion from the course's live
// lesson set. Nothing is cached: lessons added or removed after enrollment
// change the result on the next call. Completions pointing at lessons that
// no longer exist are not counted. A course with zero lessons is 0%, never
// 100% and never an error; the result is truncated and clamped to [0, 100].
func ComputeProgress(db *gorm.DB, enrollmentID, courseID uint) int {
	var totalLessons int64
	db.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Count(&totalLessons)
	if totalLessons == 0 {
		return 0
	}

	var completed int64
	db.Model(&courseModels.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Where("lesson_completions.enrollment_id = ?", enrollmentID).
		Where("lessons.is_deleted = ? AND lessons.is_published = ?", false, true).
		Count(&completed)

	progress := int(completed * 100 / totalLessons)
	if progress > 100 {
		progress = 100
	}
	return progress
}

// ReevaluateCompletion runs the enrollment state machine after a completion
// write. ACTIVE -> COMPLETED fires when progress reaches 100; the transition
// is terminal and won exactly once via the conditional update, so only the
// winning request issues the certificate and sends the notification.
// Certificate or mail failures are logged, never rolled back: a student's
// completion must not hinge on the renderer or the email provider being up.
func ReevaluateCompletion(db *gorm.DB, enrollment *courseModels.Enrollment, crs courseModels.Course) bool {
	if enrollment.IsCompleted {
		return false
	}
	if ComputeProgress(db, enrollment.ID, crs.ID) < 100 {
		return false
	}

	now := time.Now().UTC()
	res := db.Model(&courseModels.Enrollment{}).
		Where("id = ? AND is_completed = ?", enrollment.ID, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": now})
	if res.Error != nil {
		log.Printf("[COMPLETION] enrollment %d: %v", enrollment.ID, res.Error)
		return false
	}
	if res.RowsAffected == 0 {
		// another request won the transition
		return false
	}
	enrollment.IsCompleted = true
	enrollment.CompletedAt = &now

	if crs.HasCertificate {
		cert, created, err := utils.IssueCertificateIfAbsent(db, enrollment.UserID, crs.ID)
		if err != nil {
			log.Printf("[COMPLETION] certificate for enrollment %d: %v", enrollment.ID, err)
			return true
		}
		if created {
			var user models.User
			if err := db.First(&user, enrollment.UserID).Error; err == nil {
				settings := courseModels.LoadCertificateSettings(db)
				utils.LogMailError("certificate email", utils.SendCertificateEmail(user, crs, cert, settings))
			}
		}
	}
	return true
}

// MarkLessonComplete handles the lesson completion click
func MarkLessonComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)

	db := database.Database.Db

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND course_id = ? AND is_deleted = ? AND is_published = ?", lessonID, courseID, false, true).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	completion, _, err := RecordLessonCompletion(db, enrollment.ID, lesson.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to mark lesson as completed!", nil)
	}

	completedNow := ReevaluateCompletion(db, &enrollment, crs)
	progress := ComputeProgress(db, enrollment.ID, crs.ID)

	message := "Lesson marked as complete!"
	if completedNow {
		message = "Congratulations! You have completed the course."
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, fiber.Map{
		"completion":   completion,
		"progress":     progress,
		"is_completed": enrollment.IsCompleted,
	})
}

// MarkAllComplete bulk-completes every published lesson of a course
func MarkAllComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	db := database.Database.Db

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	var lessons []courseModels.Lesson
	if err := db.Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).Find(&lessons).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch lessons!", nil)
	}

	for _, lesson := range lessons {
		if _, _, err := RecordLessonCompletion(db, enrollment.ID, lesson.ID); err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to mark lessons as completed!", nil)
		}
	}

	completedNow := ReevaluateCompletion(db, &enrollment, crs)
	progress := ComputeProgress(db, enrollment.ID, crs.ID)

	message := "All lessons marked as complete!"
	if completedNow && crs.HasCertificate {
		message = "Congratulations! You have completed the course and earned a certificate."
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, fiber.Map{
		"progress":     progress,
		"is_completed": enrollment.IsCompleted,
	})
}

// GetUserProgress returns recomputed progress with a per-module breakdown
func GetUserProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	db := database.Database.Db

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	var completedIDs []uint
	db.Model(&courseModels.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Where("lesson_completions.enrollment_id = ?", enrollment.ID).
		Where("lessons.is_deleted = ? AND lessons.is_published = ?", false, true).
		Pluck("lesson_completions.lesson_id", &completedIDs)

	var modules []courseModels.Module
	db.Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index asc, id asc").Find(&modules)

	type moduleProgress struct {
		ModuleID         uint   `json:"module_id"`
		Title            string `json:"title"`
		TotalLessons     int    `json:"total_lessons"`
		CompletedLessons int    `json:"completed_lessons"`
	}

	completedSet := make(map[uint]bool, len(completedIDs))
	for _, id := range completedIDs {
		completedSet[id] = true
	}

	breakdown := make([]moduleProgress, 0, len(modules))
	for _, module := range modules {
		var lessons []courseModels.Lesson
		db.Where("module_id = ? AND is_deleted = ? AND is_published = ?", module.ID, false, true).
			Order("order_index asc, id asc").Find(&lessons)

		mp := moduleProgress{ModuleID: module.ID, Title: module.Title, TotalLessons: len(lessons)}
		for _, lesson := range lessons {
			if completedSet[lesson.ID] {
				mp.CompletedLessons++
			}
		}
		breakdown = append(breakdown, mp)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"enrollment":      enrollment,
		"progress":        ComputeProgress(db, enrollment.ID, uint(courseID)),
		"completed_ids":   completedIDs,
		"module_progress": breakdown,
	})
}
