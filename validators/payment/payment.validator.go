package paymentValidator

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"lms/middleware"
)

// Gateway references are opaque but always short URL-safe tokens.
var referencePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)

// VerifyBody validates a payment verification request
func VerifyBody() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Reference string `json:"reference"`
			CourseID  int    `json:"courseId"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		reqData.Reference = strings.TrimSpace(reqData.Reference)
		if reqData.Reference == "" {
			errors["reference"] = "Payment reference is required!"
		} else if !referencePattern.MatchString(reqData.Reference) {
			errors["reference"] = "Invalid payment reference format!"
		}

		if reqData.CourseID < 1 {
			errors["courseId"] = "Course ID must be a positive number!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("paymentReference", reqData.Reference)
		c.Locals("courseID", reqData.CourseID)
		return c.Next()
	}
}
