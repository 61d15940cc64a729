package model

import (
	"strings"

	"gorm.io/gorm"
)

const (
	RolePatient      = "patient"
	RoleNutritionist = "nutritionist"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Name     string `json:"name" gorm:"not null"`
	Handle   string `json:"handle" gorm:"uniqueIndex;not null"`
	Role     string `json:"role" gorm:"not null;default:'patient'"`

	// Optional profile fields
	PhoneNumber string `json:"phone_number"`
	Bio         string `json:"bio"`

	// Set once a patient pairs with a nutritionist via a patient key
	NutritionistID *uint `json:"nutritionist_id"`

	Subscriptions []Subscription `json:"-"`
	Nutritionist  *User          `json:"-" gorm:"foreignKey:NutritionistID"`
}

func (u *User) IsPatient() bool {
	return u.Role == RolePatient
}

func (u *User) IsNutritionist() bool {
	return u.Role == RoleNutritionist
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":           u.ID,
		"name":         strings.TrimSpace(u.Name),
		"handle":       u.Handle,
		"role":         u.Role,
		"phone_number": u.PhoneNumber,
		"bio":          u.Bio,
	}
}
