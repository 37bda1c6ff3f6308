package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
)

// firstLesson returns the first published lesson of a course in module
// order then lesson order, or nil when the course has no lessons yet.
func firstLesson(courseID uint) *courseModels.Lesson {
	db := database.Database.Db

	var lesson courseModels.Lesson
	err := db.
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lessons.course_id = ? AND lessons.is_published = ? AND lessons.is_deleted = ?", courseID, true, false).
		Where("modules.is_deleted = ?", false).
		Order("modules.order_index asc, lessons.order_index asc").
		First(&lesson).Error
	if err != nil {
		return nil
	}
	return &lesson
}

// resumeLesson picks the lesson the learner should continue from: the
// first published lesson they have not completed, or the first lesson of
// the course when everything is done.
func resumeLesson(db *gorm.DB, enrollmentID, courseID uint) *courseModels.Lesson {
	var completedIDs []uint
	db.Model(&courseModels.LessonCompletion{}).
		Where("enrollment_id = ?", enrollmentID).
		Pluck("lesson_id", &completedIDs)

	query := db.
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lessons.course_id = ? AND lessons.is_published = ? AND lessons.is_deleted = ?", courseID, true, false).
		Where("modules.is_deleted = ?", false).
		Order("modules.order_index asc, lessons.order_index asc")

	if len(completedIDs) > 0 {
		query = query.Where("lessons.id NOT IN ?", completedIDs)
	}

	var lesson courseModels.Lesson
	if err := query.First(&lesson).Error; err != nil {
		return firstLesson(courseID)
	}
	return &lesson
}

// GetCourseList gets all published courses with pagination
func GetCourseList(c *fiber.Ctx) error {
	db := database.Database.Db

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := db.Model(&courseModels.Course{}).Where("is_published = ? AND is_deleted = ?", true, false)

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR instructor LIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	var courses []courseModels.Course
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	type CourseSummary struct {
		courseModels.Course
		EffectivePrice float64 `json:"effective_price"`
		IsFree         bool    `json:"is_free"`
		LessonCount    int64   `json:"lesson_count"`
	}

	summaries := make([]CourseSummary, len(courses))
	for i, crs := range courses {
		var lessonCount int64
		db.Model(&courseModels.Lesson{}).
			Where("course_id = ? AND is_published = ? AND is_deleted = ?", crs.ID, true, false).
			Count(&lessonCount)
		summaries[i] = CourseSummary{
			Course:         crs,
			EffectivePrice: crs.CurrentPrice(),
			IsFree:         crs.IsFree(),
			LessonCount:    lessonCount,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": summaries,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetCourseDetail gets a course with its full module and lesson tree,
// plus the caller's enrollment state when authenticated.
func GetCourseDetail(c *fiber.Ctx) error {
	db := database.Database.Db

	courseID := c.Locals("courseID").(int)

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_published = ? AND is_deleted = ?", courseID, true, false).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	type LessonItem struct {
		courseModels.Lesson
		IsCompleted bool `json:"is_completed_by_user"`
	}
	type ModuleItem struct {
		courseModels.Module
		Lessons []LessonItem `json:"lessons"`
	}

	// Enrollment state is optional: the detail page is public, but an
	// enrolled caller gets their progress folded into the tree.
	var enrollment *courseModels.Enrollment
	completedSet := map[uint]bool{}
	if userID, ok := c.Locals("userId").(uint); ok {
		var e courseModels.Enrollment
		if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, crs.ID, false).First(&e).Error; err == nil {
			enrollment = &e
			var ids []uint
			db.Model(&courseModels.LessonCompletion{}).Where("enrollment_id = ?", e.ID).Pluck("lesson_id", &ids)
			for _, id := range ids {
				completedSet[id] = true
			}
		}
	}

	var modules []courseModels.Module
	db.Where("course_id = ? AND is_deleted = ?", crs.ID, false).Order("order_index asc").Find(&modules)

	tree := make([]ModuleItem, len(modules))
	for i, m := range modules {
		var lessons []courseModels.Lesson
		db.Where("module_id = ? AND is_published = ? AND is_deleted = ?", m.ID, true, false).
			Order("order_index asc").Find(&lessons)

		items := make([]LessonItem, len(lessons))
		for j, l := range lessons {
			// Content URLs are withheld for paid lessons until enrolled.
			if enrollment == nil && !l.IsFree && !crs.IsFree() {
				l.TextContent = ""
				l.VideoURL = ""
			}
			items[j] = LessonItem{Lesson: l, IsCompleted: completedSet[l.ID]}
		}
		tree[i] = ModuleItem{Module: m, Lessons: items}
	}

	data := fiber.Map{
		"course":          crs,
		"effective_price": crs.CurrentPrice(),
		"is_free":         crs.IsFree(),
		"modules":         tree,
	}

	var reviews []courseModels.Review
	db.Where("course_id = ? AND is_deleted = ?", crs.ID, false).Order("created_at desc").Limit(20).Find(&reviews)
	data["reviews"] = reviews

	if enrollment != nil {
		data["enrollment"] = enrollment
		data["progress"] = ComputeProgress(db, enrollment.ID, crs.ID)
		data["resume_lesson"] = resumeLesson(db, enrollment.ID, crs.ID)

		var cert courseModels.Certificate
		if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", enrollment.UserID, crs.ID, false).First(&cert).Error; err == nil {
			data["certificate"] = cert
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", data)
}
