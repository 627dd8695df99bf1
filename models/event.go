package models

import "time"

// Event is a school calendar entry. Events carry no moderation state:
// once an administrator creates one it is publicly visible.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Time        string    `gorm:"size:32" json:"time"`
	Location    string    `gorm:"size:255" json:"location"`
	Category    string    `gorm:"size:64" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    *string   `gorm:"size:512" json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
