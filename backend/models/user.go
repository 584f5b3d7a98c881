package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string // printed on certificates
	Role         string `gorm:"default:user"` // user, admin
	Group        string
	University   string
}
