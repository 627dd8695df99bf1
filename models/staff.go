package models

import "time"

// StaffCategory groups directory members under a named heading such as
// "Board of Trustees". Categories are seeded from static defaults the
// first time the service boots against an empty table; there is no
// endpoint to create new ones.
type StaffCategory struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"size:128;uniqueIndex;not null" json:"name"`
	SortOrder int           `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time     `json:"created_at"`
	Members   []StaffMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"members"`
}

// StaffMember is one person inside a directory category.
type StaffMember struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StaffCategoryID uint      `gorm:"index;not null" json:"staff_category_id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	Position        string    `gorm:"size:128" json:"position"`
	ImageURL        string    `gorm:"size:512" json:"image_url"`
	SortOrder       int       `gorm:"default:0" json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
