package course

import "gorm.io/gorm"

// Review is a course review by an enrolled user, one per (user, course)
type Review struct {
	gorm.Model
	UserID    uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_review_user_course"`
	CourseID  uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_review_user_course"`
	Rating    int    `json:"rating" gorm:"default:5"` // 1-5
	Comment   string `json:"comment" gorm:"type:text"`
	IsDeleted bool   `gorm:"default:false"`
}
