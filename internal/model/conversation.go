package model

import "time"

// Conversation is a client–lawyer message thread, unique per pair.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClientID  uint      `gorm:"not null;index;uniqueIndex:idx_client_lawyer" json:"client_id"`
	LawyerID  uint      `gorm:"not null;index;uniqueIndex:idx_client_lawyer" json:"lawyer_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
