package utils

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	courseModels "lms/models/course"
)

// IssueCertificateIfAbsent creates the one certificate a (user, course) pair
// may ever hold. Duplicate completion triggers racing each other resolve at
// the unique index: exactly one insert lands, the other caller receives the
// winning row with created=false and must not send a second notification.
func IssueCertificateIfAbsent(db *gorm.DB, userID, courseID uint) (courseModels.Certificate, bool, error) {
	cert := courseModels.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: uuid.New().String(),
		IssuedAt:          time.Now().UTC(),
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&cert)
	if res.Error != nil {
		return courseModels.Certificate{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing courseModels.Certificate
		err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
		return existing, false, err
	}
	return cert, true, nil
}
