package paymentController

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"lms/config"
	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/utils"
)

type webhookEvent struct {
	Event string           `json:"event"`
	Data  utils.VerifyData `json:"data"`
}

// PaystackWebhook receives gateway event notifications. The request is
// unauthenticated, so the HMAC signature over the raw body is the only
// thing standing between the internet and a free enrollment; it is checked
// before the body is even parsed. Status codes drive gateway redelivery:
// 2xx means handled or terminally unusable, 5xx means retry later.
func PaystackWebhook(c *fiber.Ctx) error {
	body := c.Body()

	signature := c.Get("X-Paystack-Signature")
	if signature == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing signature header!", nil)
	}
	if !utils.ValidWebhookSignature(body, signature, config.AppConfig.PaystackSecretKey) {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid signature!", nil)
	}

	// A signed but malformed body will never parse better on redelivery.
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Println("webhook: unparseable body:", err)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored!", nil)
	}

	if event.Event != "charge.success" && event.Event != "charge.failed" {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored!", nil)
	}

	data := event.Data
	if data.Reference == "" || data.Metadata.UserID == 0 || data.Metadata.CourseID == 0 {
		log.Println("webhook: event missing reference or metadata identifiers, reference:", data.Reference)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored!", nil)
	}

	db := database.Database.Db
	raw, _ := json.Marshal(data)

	if courseModels.IsSuccessStatus(data.Status) {
		if _, err := ProcessSuccessfulPayment(db, data.Metadata.UserID, data.Metadata.CourseID, data.Reference, data.Amount, raw); err != nil {
			log.Println("webhook: settlement failed:", err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed successfully!", nil)
	}

	// Failed charges are recorded for the audit trail only; they grant
	// nothing and never overwrite an already-successful record.
	failed := courseModels.Payment{
		Reference: data.Reference,
		UserID:    data.Metadata.UserID,
		CourseID:  data.Metadata.CourseID,
		Amount:    data.Amount,
		Status:    courseModels.PaymentStatusFailed,
		Raw:       datatypes.JSON(raw),
	}
	if _, _, err := utils.GetOrCreatePayment(db, failed); err != nil {
		log.Println("webhook: failed-charge record error:", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed successfully!", nil)
}
