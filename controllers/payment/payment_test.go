package paymentController_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lms/config"
	paymentController "lms/controllers/payment"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	paymentRoutes "lms/routers/paymentRoutes"
	"lms/utils"
)

const testWebhookSecret = "sk_test_webhook_secret"

type recorderMailer struct {
	mu   sync.Mutex
	sent int
}

func (r *recorderMailer) Send(toEmail, toName, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent++
	return nil
}

func (r *recorderMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

func setupTest(t *testing.T) (*gorm.DB, *recorderMailer) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	database.RunMigrations(db)
	database.Database.Db = db

	config.AppConfig = &config.Config{
		JWTKey:                 "test-jwt-key",
		AppBaseURL:             "http://localhost:3000",
		PaystackSecretKey:      testWebhookSecret,
		PaystackBaseURL:        "http://127.0.0.1:1", // overridden per test
		PaystackVerifyAttempts: 1,
		PaystackTimeoutSeconds: 2,
	}

	mailer := &recorderMailer{}
	utils.Mail = mailer
	return db, mailer
}

func buildApp() *fiber.App {
	app := fiber.New()
	paymentRoutes.SetupPaymentRoutes(app)
	return app
}

func seedUserAndCourse(t *testing.T, db *gorm.DB, price float64) (models.User, courseModels.Course) {
	t.Helper()

	user := models.User{
		Name:  "Ada Obi",
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Role:  "USER",
	}
	require.NoError(t, db.Create(&user).Error)

	crs := courseModels.Course{
		Title:       "Advanced Go",
		Slug:        "advanced-go-" + uuid.NewString()[:8],
		Instructor:  "T. Okafor",
		Price:       price,
		IsPublished: true,
	}
	require.NoError(t, db.Create(&crs).Error)
	return user, crs
}

func authHeader(t *testing.T, user models.User) string {
	t.Helper()
	token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
	require.NoError(t, err)
	return "Bearer " + token
}

func webhookBody(t *testing.T, event, status, reference string, amount int64, userID, courseID uint) []byte {
	t.Helper()
	body, err := json.Marshal(fiber.Map{
		"event": event,
		"data": fiber.Map{
			"status":           status,
			"reference":        reference,
			"amount":           amount,
			"gateway_response": "Approved",
			"metadata": fiber.Map{
				"user_id":   userID,
				"course_id": courseID,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Paystack-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestProcessSuccessfulPaymentIdempotent(t *testing.T) {
	db, mailer := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)

	raw := []byte(`{"status":"success"}`)
	first, err := paymentController.ProcessSuccessfulPayment(db, user.ID, crs.ID, "ref-dup", 500000, raw)
	require.NoError(t, err)

	second, err := paymentController.ProcessSuccessfulPayment(db, user.ID, crs.ID, "ref-dup", 500000, raw)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var paymentCount, enrollmentCount int64
	db.Model(&courseModels.Payment{}).Where("reference = ?", "ref-dup").Count(&paymentCount)
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, crs.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), paymentCount)
	assert.Equal(t, int64(1), enrollmentCount)
	assert.Equal(t, 1, mailer.count())
}

func TestWebhookMissingSignature(t *testing.T) {
	setupTest(t)
	app := buildApp()

	resp := postWebhook(t, app, []byte(`{}`), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookInvalidSignature(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	body := webhookBody(t, "charge.success", "success", "ref-forged", 500000, user.ID, crs.ID)
	resp := postWebhook(t, app, body, utils.WebhookSignature(body, "attacker-secret"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Count(&enrollmentCount)
	assert.Equal(t, int64(0), enrollmentCount)
}

func TestWebhookChargeSuccessEnrolls(t *testing.T) {
	db, mailer := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	body := webhookBody(t, "charge.success", "success", "ref-wh-1", 500000, user.ID, crs.ID)
	resp := postWebhook(t, app, body, utils.WebhookSignature(body, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payment courseModels.Payment
	require.NoError(t, db.Where("reference = ?", "ref-wh-1").First(&payment).Error)
	assert.Equal(t, courseModels.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, int64(500000), payment.Amount)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, crs.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), enrollmentCount)
	assert.Equal(t, 1, mailer.count())
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	db, mailer := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	body := webhookBody(t, "charge.success", "success", "ref-wh-2", 500000, user.ID, crs.ID)
	signature := utils.WebhookSignature(body, testWebhookSecret)

	for i := 0; i < 3; i++ {
		resp := postWebhook(t, app, body, signature)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var paymentCount, enrollmentCount int64
	db.Model(&courseModels.Payment{}).Where("reference = ?", "ref-wh-2").Count(&paymentCount)
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, crs.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), paymentCount)
	assert.Equal(t, int64(1), enrollmentCount)
	assert.Equal(t, 1, mailer.count())
}

func TestWebhookChargeFailedRecordsAuditOnly(t *testing.T) {
	db, mailer := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	body := webhookBody(t, "charge.failed", "failed", "ref-declined", 500000, user.ID, crs.ID)
	resp := postWebhook(t, app, body, utils.WebhookSignature(body, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payment courseModels.Payment
	require.NoError(t, db.Where("reference = ?", "ref-declined").First(&payment).Error)
	assert.Equal(t, courseModels.PaymentStatusFailed, payment.Status)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Count(&enrollmentCount)
	assert.Equal(t, int64(0), enrollmentCount)
	assert.Equal(t, 0, mailer.count())
}

func TestWebhookFailedNeverOverwritesSuccess(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	success := webhookBody(t, "charge.success", "success", "ref-race", 500000, user.ID, crs.ID)
	resp := postWebhook(t, app, success, utils.WebhookSignature(success, testWebhookSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A stale failed event for the same reference arrives afterwards.
	failed := webhookBody(t, "charge.failed", "failed", "ref-race", 500000, user.ID, crs.ID)
	resp = postWebhook(t, app, failed, utils.WebhookSignature(failed, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payment courseModels.Payment
	require.NoError(t, db.Where("reference = ?", "ref-race").First(&payment).Error)
	assert.Equal(t, courseModels.PaymentStatusSuccess, payment.Status)
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	db, _ := setupTest(t)
	app := buildApp()

	body := []byte(`{"event":"transfer.success","data":{"reference":"ref-transfer"}}`)
	resp := postWebhook(t, app, body, utils.WebhookSignature(body, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var paymentCount int64
	db.Model(&courseModels.Payment{}).Count(&paymentCount)
	assert.Equal(t, int64(0), paymentCount)
}

func TestWebhookIgnoresEventWithoutIdentifiers(t *testing.T) {
	db, _ := setupTest(t)
	app := buildApp()

	body := webhookBody(t, "charge.success", "success", "ref-anon", 500000, 0, 0)
	resp := postWebhook(t, app, body, utils.WebhookSignature(body, testWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Count(&enrollmentCount)
	assert.Equal(t, int64(0), enrollmentCount)
}

// gatewayStub serves verify responses for the synchronous endpoint tests
func gatewayStub(t *testing.T, status, gatewayResponse string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":{"status":%q,"reference":"ref-sync","amount":500000,"gateway_response":%q,"metadata":{}}}`,
			status, gatewayResponse)
	}))
}

func TestVerifyEndpointSettlesPayment(t *testing.T) {
	db, mailer := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	server := gatewayStub(t, "success", "Approved")
	defer server.Close()
	config.AppConfig.PaystackBaseURL = server.URL

	payload, _ := json.Marshal(fiber.Map{"reference": "ref-sync", "courseId": crs.ID})
	req := httptest.NewRequest(http.MethodPost, "/payment/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, crs.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), enrollmentCount)
	assert.Equal(t, 1, mailer.count())

	var payment courseModels.Payment
	require.NoError(t, db.Where("reference = ?", "ref-sync").First(&payment).Error)
	assert.Equal(t, courseModels.PaymentStatusSuccess, payment.Status)
}

func TestVerifyEndpointFallsBackToWebhookSettledRow(t *testing.T) {
	db, mailer := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	// The gateway still reports pending, but the webhook already settled
	// this reference.
	server := gatewayStub(t, "pending", "Transaction is processing")
	defer server.Close()
	config.AppConfig.PaystackBaseURL = server.URL

	_, err := paymentController.ProcessSuccessfulPayment(db, user.ID, crs.ID, "ref-sync", 500000, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, 1, mailer.count())

	payload, _ := json.Marshal(fiber.Map{"reference": "ref-sync", "courseId": crs.ID})
	req := httptest.NewRequest(http.MethodPost, "/payment/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, crs.ID).Count(&enrollmentCount)
	assert.Equal(t, int64(1), enrollmentCount)
	// The receipt was already sent by the first settlement.
	assert.Equal(t, 1, mailer.count())
}

func TestVerifyEndpointReportsGatewayMessage(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	server := gatewayStub(t, "failed", "Insufficient funds")
	defer server.Close()
	config.AppConfig.PaystackBaseURL = server.URL

	payload, _ := json.Marshal(fiber.Map{"reference": "ref-sync", "courseId": crs.ID})
	req := httptest.NewRequest(http.MethodPost, "/payment/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Insufficient funds")

	var enrollmentCount int64
	db.Model(&courseModels.Enrollment{}).Count(&enrollmentCount)
	assert.Equal(t, int64(0), enrollmentCount)
}

func TestInitEndpointRejectsFreeCourse(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 0)
	app := buildApp()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/payment/course/%d/init", crs.ID), nil)
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInitEndpointStartsCheckout(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)

		var body utils.InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, user.Email, body.Email)
		assert.Equal(t, int64(500000), body.Amount) // 5000 naira in kobo
		assert.Equal(t, crs.ID, body.Metadata.CourseID)
		assert.Equal(t, user.ID, body.Metadata.UserID)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example/xyz","access_code":"xyz","reference":"ref-new"}}`)
	}))
	defer server.Close()
	config.AppConfig.PaystackBaseURL = server.URL

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/payment/course/%d/init", crs.ID), nil)
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "https://checkout.example/xyz")
	assert.Contains(t, string(raw), "ref-new")
}

func TestInitEndpointRejectsAlreadyEnrolled(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	_, _, err := utils.GetOrCreateEnrollment(db, user.ID, crs.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/payment/course/%d/init", crs.ID), nil)
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPaymentListRequiresAdmin(t *testing.T) {
	db, _ := setupTest(t)
	user, _ := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	req := httptest.NewRequest(http.MethodGet, "/payment/list", nil)
	req.Header.Set("Authorization", authHeader(t, user))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPaymentListFiltersByStatus(t *testing.T) {
	db, _ := setupTest(t)
	user, crs := seedUserAndCourse(t, db, 5000)
	app := buildApp()

	admin := models.User{Name: "Admin", Email: "admin@example.com", Role: "ADMIN"}
	require.NoError(t, db.Create(&admin).Error)

	_, err := paymentController.ProcessSuccessfulPayment(db, user.ID, crs.ID, "ref-ok", 500000, []byte(`{}`))
	require.NoError(t, err)
	_, _, err = utils.GetOrCreatePayment(db, courseModels.Payment{
		Reference: "ref-bad",
		UserID:    user.ID,
		CourseID:  crs.ID,
		Amount:    500000,
		Status:    courseModels.PaymentStatusFailed,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/payment/list?status=failed", nil)
	req.Header.Set("Authorization", authHeader(t, admin))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ref-bad")
	assert.NotContains(t, string(raw), "ref-ok")
}
