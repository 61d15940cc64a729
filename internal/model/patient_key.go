package model

import (
	"time"

	"gorm.io/gorm"
)

// PatientKey is a single-use pairing token. A nutritionist generates it,
// a patient consumes it exactly once to bind to that nutritionist.
type PatientKey struct {
	gorm.Model
	NutritionistID uint       `json:"nutritionist_id" gorm:"index;not null"`
	Token          string     `json:"token" gorm:"uniqueIndex;not null"`
	Used           bool       `json:"used" gorm:"default:false"`
	UsedAt         *time.Time `json:"used_at"`
	PatientID      *uint      `json:"patient_id"`

	Nutritionist User  `json:"-" gorm:"foreignKey:NutritionistID"`
	Patient      *User `json:"-" gorm:"foreignKey:PatientID"`
}
