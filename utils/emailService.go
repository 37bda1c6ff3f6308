package utils

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"lms/config"
	"lms/models"
	courseModels "lms/models/course"
)

// Mailer sends a single HTML email. The SendGrid implementation is the
// default; tests swap in a recorder.
type Mailer interface {
	Send(toEmail, toName, subject, htmlBody string) error
}

// Mail is the active mailer
var Mail Mailer = &sendGridMailer{}

type sendGridMailer struct{}

func (m *sendGridMailer) Send(toEmail, toName, subject, htmlBody string) error {
	cfg := config.AppConfig
	from := sgmail.NewEmail(cfg.EmailFromName, cfg.EmailSender)
	to := sgmail.NewEmail(toName, toEmail)
	message := sgmail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(cfg.SendGridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: HTTP %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// HTML wrapper shared by all outgoing mail
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #19375A; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #19375A; line-height: 1.6; }
			.content h2 { color: #19375A; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #64B4FF; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #64B4FF; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>%s</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 %s. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, config.AppConfig.EmailFromName, title, bodyContent, config.AppConfig.EmailFromName)
}

// --- Triggers ---

// SendPaymentReceiptEmail is sent once, on the request that actually created
// the enrollment; the losing reconciliation path must not call it.
func SendPaymentReceiptEmail(user models.User, c courseModels.Course, reference string, amountKobo int64, paidAt string) error {
	subject := "Payment Receipt - " + c.Title
	startURL := fmt.Sprintf("%s/course/%d", config.AppConfig.AppBaseURL, c.ID)
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>We have received your payment for <strong>%s</strong>.</p>
		<div class="info-box">
			<ul style="list-style: none; padding: 0; margin: 0;">
				<li style="margin-bottom: 8px;"><strong>Reference:</strong> %s</li>
				<li style="margin-bottom: 8px;"><strong>Amount:</strong> NGN %.2f</li>
				<li><strong>Paid At:</strong> %s</li>
			</ul>
		</div>
		<p>You are now enrolled. Happy learning!</p>
		<a href="%s" class="btn">Start Course</a>
	`, user.Name, c.Title, reference, float64(amountKobo)/100.0, paidAt, startURL)

	return Mail.Send(user.Email, user.Name, subject, getEmailTemplate("Payment Successful", body))
}

// SendCertificateEmail notifies a student of a newly issued certificate.
// Settings are loaded by the caller and passed in; this function never reads
// configuration rows itself.
func SendCertificateEmail(user models.User, c courseModels.Course, cert courseModels.Certificate, settings courseModels.CertificateSettings) error {
	subject := "Your Certificate - " + c.Title
	verifyURL := fmt.Sprintf("%s/certificates/verify/%s", config.AppConfig.AppBaseURL, cert.CertificateNumber)

	signer := settings.SignerName
	if signer == "" {
		signer = c.Instructor
	}

	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations! You have completed <strong>%s</strong>.</p>
		<div class="info-box">
			<ul style="list-style: none; padding: 0; margin: 0;">
				<li style="margin-bottom: 8px;"><strong>Certificate No:</strong> %s</li>
				<li style="margin-bottom: 8px;"><strong>Issued:</strong> %s</li>
				<li><strong>Instructor:</strong> %s</li>
			</ul>
		</div>
		<p>Anyone can confirm this certificate's authenticity using the link below.</p>
		<a href="%s" class="btn">Verify Certificate</a>
	`, user.Name, c.Title, cert.CertificateNumber, cert.IssuedAt.Format("January 2, 2006"), signer, verifyURL)

	return Mail.Send(user.Email, user.Name, subject, getEmailTemplate("Course Completed!", body))
}

// LogMailError keeps the no-propagation rule in one place: notification
// failures never fail the operation that triggered them.
func LogMailError(context string, err error) {
	if err != nil {
		log.Printf("[MAIL] %s: %v", context, err)
	}
}
