package utils

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	courseModels "lms/models/course"
)

// GetOrCreateEnrollment atomically enrolls a user in a course. The insert is
// a conditional ON CONFLICT DO NOTHING against the (user_id, course_id)
// unique index, not a read-then-write, so two racing requests cannot create
// two rows: the loser reads back the winner's enrollment and gets
// created=false.
func GetOrCreateEnrollment(db *gorm.DB, userID, courseID uint) (courseModels.Enrollment, bool, error) {
	enrollment := courseModels.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&enrollment)
	if res.Error != nil {
		return courseModels.Enrollment{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing courseModels.Enrollment
		err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
		return existing, false, err
	}
	return enrollment, true, nil
}

// GetOrCreatePayment records a gateway payment keyed by its reference.
// An existing row is never touched: the reference is the idempotency key and
// whichever reconciliation path wrote first owns the row's status forever.
func GetOrCreatePayment(db *gorm.DB, payment courseModels.Payment) (courseModels.Payment, bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(&payment)
	if res.Error != nil {
		return courseModels.Payment{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing courseModels.Payment
		err := db.Where("reference = ?", payment.Reference).First(&existing).Error
		return existing, false, err
	}
	return payment, true, nil
}
