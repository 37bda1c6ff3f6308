package controllers

import (
	"github.com/gofiber/fiber/v2"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
)

// GetUserCertificates gets all certificates earned by the current user
func GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	var certs []courseModels.Certificate
	if err := db.Where("user_id = ? AND is_deleted = ?", userID, false).Order("issued_at desc").Find(&certs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	type CertificateWithCourse struct {
		courseModels.Certificate
		CourseTitle string `json:"course_title"`
		Instructor  string `json:"instructor"`
	}

	result := make([]CertificateWithCourse, len(certs))
	for i, cert := range certs {
		var crs courseModels.Course
		db.Where("id = ?", cert.CourseID).First(&crs)
		result[i] = CertificateWithCourse{
			Certificate: cert,
			CourseTitle: crs.Title,
			Instructor:  crs.Instructor,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": result,
		"total":        len(result),
	})
}

// VerifyCertificate is a public lookup by certificate number, for
// employers checking a certificate's authenticity. No auth required.
func VerifyCertificate(c *fiber.Ctx) error {
	number := c.Params("number")
	if number == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Certificate number is required!", nil)
	}

	db := database.Database.Db

	var cert courseModels.Certificate
	if err := db.Where("certificate_number = ? AND is_deleted = ?", number, false).First(&cert).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", fiber.Map{
			"valid": false,
		})
	}

	var crs courseModels.Course
	db.Where("id = ?", cert.CourseID).First(&crs)

	var holderName string
	db.Table("users").Where("id = ?", cert.UserID).Select("name").Scan(&holderName)

	settings := courseModels.LoadCertificateSettings(db)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate verified successfully!", fiber.Map{
		"valid":              true,
		"certificate_number": cert.CertificateNumber,
		"issued_at":          cert.IssuedAt,
		"holder_name":        holderName,
		"course_title":       crs.Title,
		"instructor":         crs.Instructor,
		"signer_name":        settings.SignerName,
		"signer_title":       settings.SignerTitle,
	})
}
