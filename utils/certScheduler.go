package utils

import (
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
)

// logScheduler logs scheduler events with timestamp
func logScheduler(message string) {
	log.Printf("[CERT-SCHEDULER %s] %s", time.Now().Format(time.RFC3339), message)
}

// IssueMissingCertificates sweeps completed enrollments of certificate-enabled
// courses that have no certificate row yet and re-applies issuance. A course
// completion is never rolled back when issuing or mailing fails at completion
// time, so this sweep is what eventually heals a renderer or mail outage.
// Returns the number of certificates issued.
func IssueMissingCertificates(db *gorm.DB) int {
	type pending struct {
		UserID   uint
		CourseID uint
	}

	var rows []pending
	err := db.Model(&courseModels.Enrollment{}).
		Select("enrollments.user_id, enrollments.course_id").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Joins("LEFT JOIN certificates ON certificates.user_id = enrollments.user_id AND certificates.course_id = enrollments.course_id").
		Where("enrollments.is_completed = ? AND enrollments.is_deleted = ?", true, false).
		Where("courses.has_certificate = ? AND courses.is_deleted = ?", true, false).
		Where("certificates.id IS NULL").
		Scan(&rows).Error
	if err != nil {
		logScheduler("Error fetching uncertified completions: " + err.Error())
		return 0
	}

	issued := 0
	settings := courseModels.LoadCertificateSettings(db)
	for _, row := range rows {
		cert, created, err := IssueCertificateIfAbsent(db, row.UserID, row.CourseID)
		if err != nil {
			logScheduler("Error issuing certificate: " + err.Error())
			continue
		}
		if !created {
			continue
		}
		issued++

		var user models.User
		var crs courseModels.Course
		if db.First(&user, row.UserID).Error == nil && db.First(&crs, row.CourseID).Error == nil {
			LogMailError("certificate sweep", SendCertificateEmail(user, crs, cert, settings))
		}
	}

	return issued
}

// StartCertificateScheduler runs the issuance sweep every 15 minutes
func StartCertificateScheduler() *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("*/15 * * * *", func() {
		issued := IssueMissingCertificates(database.Database.Db)
		if issued > 0 {
			logScheduler("Certificate sweep issued " + strconv.Itoa(issued) + " certificate(s)")
		}
	})
	if err != nil {
		log.Fatalf("Failed to register certificate scheduler: %v", err)
	}

	c.Start()
	logScheduler("Certificate scheduler started (every 15 minutes)")
	return c
}
