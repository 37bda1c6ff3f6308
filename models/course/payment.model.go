package course

import (
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment is the ledger row for one gateway payment attempt. The idempotency
// key is the gateway-assigned reference, not (user, course): a user may retry
// checkout and produce several references, of which at most one succeeds.
// A row's status is written once and never overwritten; whichever
// reconciliation path (verify poll or webhook) lands first wins and the
// other becomes a no-op.
type Payment struct {
	gorm.Model
	Reference string         `json:"reference" gorm:"unique;not null"`
	UserID    uint           `json:"user_id" gorm:"index"`
	CourseID  uint           `json:"course_id" gorm:"index"`
	Amount    int64          `json:"amount"` // minor currency units (kobo)
	Status    string         `json:"status" gorm:"default:'pending'"`
	Raw       datatypes.JSON `json:"raw"` // gateway payload retained for audit
	IsDeleted bool           `gorm:"default:false"`
}

// IsSuccessStatus reports whether a gateway status string counts as a
// confirmed success. Paystack has used both spellings.
func IsSuccessStatus(status string) bool {
	s := strings.ToLower(status)
	return s == "success" || s == "successful"
}
