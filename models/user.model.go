package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name            string     `gorm:"default:''"`
	Email           string     `gorm:"unique;not null"`
	Role            string     `gorm:"default:'USER'"` // USER, ADMIN
	Password        string     `gorm:"not null" json:"-"`
	IsEmailVerified bool       `gorm:"default:false"`
	LastLogin       *time.Time `json:"last_login"`
	IsDeleted       bool       `gorm:"default:false"`
}

// SetPassword hashes and stores the given plain-text password
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword compares a plain-text password against the stored hash
func (u *User) CheckPassword(plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain))
}

func (u *User) IsAdmin() bool {
	return u.Role == "ADMIN"
}
