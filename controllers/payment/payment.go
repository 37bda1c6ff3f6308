package paymentController

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"
)

// ProcessSuccessfulPayment is the single settlement path shared by the
// synchronous verify endpoint and the webhook. Both may fire for the same
// transaction in either order; the unique reference and unique
// (user, course) enrollment make the second arrival a no-op, and the
// receipt email is sent only by whichever caller actually created the
// enrollment.
func ProcessSuccessfulPayment(db *gorm.DB, userID, courseID uint, reference string, amountKobo int64, raw []byte) (courseModels.Enrollment, error) {
	payment := courseModels.Payment{
		Reference: reference,
		UserID:    userID,
		CourseID:  courseID,
		Amount:    amountKobo,
		Status:    courseModels.PaymentStatusSuccess,
		Raw:       datatypes.JSON(raw),
	}
	if _, _, err := utils.GetOrCreatePayment(db, payment); err != nil {
		return courseModels.Enrollment{}, err
	}

	enrollment, created, err := utils.GetOrCreateEnrollment(db, userID, courseID)
	if err != nil {
		return courseModels.Enrollment{}, err
	}

	if created {
		var user models.User
		var crs courseModels.Course
		if db.Where("id = ?", userID).First(&user).Error == nil &&
			db.Where("id = ?", courseID).First(&crs).Error == nil {
			if mailErr := utils.SendPaymentReceiptEmail(user, crs, reference, amountKobo, ""); mailErr != nil {
				utils.LogMailError("payment receipt", mailErr)
			}
		}
	}

	return enrollment, nil
}

// InitCoursePayment starts a Paystack checkout session for a paid course
func InitCoursePayment(c *fiber.Ctx) error {
	if !config.AppConfig.PaymentConfigured() {
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Payments are not configured!", nil)
	}

	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	if crs.IsFree() {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "This course is free, enroll directly!", nil)
	}

	// Already enrolled means already paid (or granted); don't charge twice.
	var existing courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, crs.ID, false).First(&existing).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "You are already enrolled in this course!", nil)
	}

	// The amount is validated before any network call so a mispriced
	// course can never reach the gateway.
	amountKobo := crs.AmountKobo()
	if amountKobo <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course price!", nil)
	}

	client := utils.NewPaystackClient()
	data, err := client.InitializeTransaction(utils.InitializeRequest{
		Email:       user.Email,
		Amount:      amountKobo,
		Currency:    "NGN",
		CallbackURL: config.AppConfig.AppBaseURL + "/payment/callback",
		Metadata: utils.PaymentMetadata{
			CourseID: crs.ID,
			UserID:   user.ID,
			Email:    user.Email,
		},
	})
	if err != nil {
		log.Println("paystack initialize failed:", err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to initialize payment, please try again!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment initialized successfully!", fiber.Map{
		"authorization_url": data.AuthorizationURL,
		"access_code":       data.AccessCode,
		"reference":         data.Reference,
		"amount_kobo":       amountKobo,
		"public_key":        config.AppConfig.PaystackPublicKey,
	})
}

// VerifyCoursePayment confirms a transaction by reference and settles it.
// The gateway can lag behind the charge, so verification polls with
// backoff before giving up.
func VerifyCoursePayment(c *fiber.Ctx) error {
	if !config.AppConfig.PaymentConfigured() {
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Payments are not configured!", nil)
	}

	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reference := c.Locals("paymentReference").(string)
	courseID := c.Locals("courseID").(int)

	db := database.Database.Db

	var crs courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&crs).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	client := utils.NewPaystackClient()
	policy := utils.DefaultRetryPolicy(config.AppConfig.PaystackVerifyAttempts)

	data, lastErrMsg := client.VerifyWithRetry(reference, policy)
	if data != nil {
		enrollment, err := ProcessSuccessfulPayment(db, userID, crs.ID, data.Reference, data.Amount, data.Raw)
		if err != nil {
			log.Println("payment settlement failed:", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Payment verified but enrollment failed, please contact support!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment verified successfully!", fiber.Map{
			"enrollment": enrollment,
			"reference":  data.Reference,
		})
	}

	// The webhook may have settled this transaction while we were polling.
	// Check our own record before reporting failure to the user.
	var settled courseModels.Payment
	if err := db.Where("reference = ? AND is_deleted = ?", reference, false).First(&settled).Error; err == nil &&
		courseModels.IsSuccessStatus(settled.Status) {
		enrollment, err := ProcessSuccessfulPayment(db, userID, crs.ID, settled.Reference, settled.Amount, settled.Raw)
		if err != nil {
			log.Println("payment settlement failed:", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Payment verified but enrollment failed, please contact support!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment verified successfully!", fiber.Map{
			"enrollment": enrollment,
			"reference":  settled.Reference,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusBadRequest, false, lastErrMsg, nil)
}

// ListPayments is the admin audit view over recorded transactions.
// Role enforcement happens in the router via middleware.RequireRole.
func ListPayments(c *fiber.Ctx) error {
	db := database.Database.Db

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := db.Model(&courseModels.Payment{}).Where("is_deleted = ?", false)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if reference := c.Query("reference"); reference != "" {
		query = query.Where("reference = ?", reference)
	}

	var total int64
	query.Count(&total)

	var payments []courseModels.Payment
	if err := query.Order("created_at desc").Limit(limit).Offset((page - 1) * limit).Find(&payments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch payments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payments fetched successfully!", fiber.Map{
		"payments": payments,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}
