package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents an issued certificate for course completion.
// At most one row exists per (user_id, course_id); the unique index decides
// the winner when duplicate completion triggers race, and the loser reads
// the winner's row instead of creating a second certificate.
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_certificate_user_course"`
	CourseID          uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_certificate_user_course"`
	CertificateNumber string    `json:"certificate_number" gorm:"unique;not null"` // opaque public token
	IssuedAt          time.Time `json:"issued_at"`
	IsDeleted         bool      `gorm:"default:false"`
}

// CertificateSettings is the single styling/signer configuration row for
// issued certificates. It is loaded explicitly per operation and passed by
// parameter; nothing reads it as ambient state.
type CertificateSettings struct {
	gorm.Model
	SignerName     string `json:"signer_name"`
	SignerTitle    string `json:"signer_title"`
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color" gorm:"default:'#19375A'"`
	SecondaryColor string `json:"secondary_color" gorm:"default:'#19375A'"`
	AccentColor    string `json:"accent_color" gorm:"default:'#64B4FF'"`
}

// LoadCertificateSettings returns the configuration row, or defaults when
// none has been saved yet.
func LoadCertificateSettings(db *gorm.DB) CertificateSettings {
	var settings CertificateSettings
	if err := db.First(&settings).Error; err != nil {
		return CertificateSettings{
			PrimaryColor:   "#19375A",
			SecondaryColor: "#19375A",
			AccentColor:    "#64B4FF",
		}
	}
	return settings
}
