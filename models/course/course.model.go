package course

import "gorm.io/gorm"

// Course represents a learning course
type Course struct {
	gorm.Model
	Title          string  `json:"title"`
	Slug           string  `json:"slug" gorm:"unique;not null"`
	Description    string  `json:"description" gorm:"type:text"`
	Instructor     string  `json:"instructor"`
	Price          float64 `json:"price" gorm:"default:0"`          // major currency units (naira)
	DiscountPrice  float64 `json:"discount_price" gorm:"default:0"` // optional promotional price
	HasCertificate bool    `json:"has_certificate" gorm:"default:false"`
	ThumbnailURL   string  `json:"thumbnail_url"`
	IsPublished    bool    `json:"is_published" gorm:"default:false"`
	IsDeleted      bool    `gorm:"default:false"`
}

// CurrentPrice returns the effective price, honoring an active discount
func (c *Course) CurrentPrice() float64 {
	if c.DiscountPrice > 0 && c.DiscountPrice < c.Price {
		return c.DiscountPrice
	}
	return c.Price
}

// IsFree reports whether enrollment requires no payment. The paid/free
// decision is made here, once, and nowhere else.
func (c *Course) IsFree() bool {
	return c.CurrentPrice() <= 0
}

// AmountKobo returns the payable amount in minor currency units (kobo).
// Zero or negative results must be rejected before any gateway call.
func (c *Course) AmountKobo() int64 {
	return int64(c.CurrentPrice() * 100)
}
