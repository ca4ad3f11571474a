package models

import "time"

// Actor is the directory entry used to render notifications. Actors are
// owned by the account layer; the engine only reads them.
type Actor struct {
	ID          string    `gorm:"type:varchar(64);primarykey" json:"id"`
	Role        Role      `gorm:"type:varchar(20);primarykey" json:"role"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	Email       string    `gorm:"type:varchar(255)" json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
