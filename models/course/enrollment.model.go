package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment tracks a user's enrollment in a course. The (user_id, course_id)
// unique index makes enrollment creation an atomic get-or-create: concurrent
// payment confirmations for the same pair converge on a single row.
//
// IsCompleted is monotonic. It flips false -> true exactly once and never
// reverts, even if course content changes afterwards. Progress is never
// stored here; it is recomputed from lesson completions on demand.
type Enrollment struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID    uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	IsDeleted   bool       `gorm:"default:false"`
}

// LessonCompletion records that a lesson was completed under an enrollment.
// Rows are immutable once created; the (enrollment_id, lesson_id) unique
// index gives marking a lesson complete its get-or-create semantics.
type LessonCompletion struct {
	gorm.Model
	EnrollmentID uint      `json:"enrollment_id" gorm:"not null;uniqueIndex:idx_completion_enrollment_lesson"`
	LessonID     uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_completion_enrollment_lesson"`
	IsCompleted  bool      `json:"is_completed" gorm:"default:true"`
	CompletedAt  time.Time `json:"completed_at"`
}
