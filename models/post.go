package models

import "time"

// Post is a school announcement written by an administrator. Creation
// paths set IsApproved explicitly (admin-authored posts are born
// published); the public listing still filters on it so a future
// submission flow can reuse the same moderation gate comments already
// go through. No column default: a `default` tag would make GORM omit
// the zero value on insert, turning an explicit false into true.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ImageURL   *string   `gorm:"size:512" json:"image_url"`
	IsApproved bool      `gorm:"not null" json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments   []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
