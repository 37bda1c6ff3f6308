package course

import "gorm.io/gorm"

const (
	ContentTypeText  = "TEXT"
	ContentTypeVideo = "VIDEO"
)

// Lesson represents a single lesson within a module
type Lesson struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"` // denormalized for progress counts
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Slug        string `json:"slug" gorm:"index"`
	ContentType string `json:"content_type" gorm:"default:'TEXT'"` // TEXT, VIDEO
	TextContent string `json:"text_content" gorm:"type:text"`
	VideoURL    string `json:"video_url"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"` // Order within module, ties broken by id
	IsFree      bool   `json:"is_free" gorm:"default:false"` // previewable without enrollment on free courses
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `gorm:"default:false"`
}
