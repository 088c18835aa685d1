package model

import "time"

// Lawyer is a discoverable lawyer profile owned by a user with the lawyer
// role. Latitude/longitude back the nearby search.
type Lawyer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	Specialty       string    `gorm:"size:128;not null;index" json:"specialty"`
	City            string    `gorm:"size:64;not null;index" json:"city"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	YearsExperience int       `json:"years_experience"`
	Bio             string    `gorm:"type:text" json:"bio"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
