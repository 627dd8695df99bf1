package models

import "time"

// Comment is a user reply to an announcement. It is created pending
// (IsApproved=false) and only becomes visible after an administrator
// approves it. There is no un-approve transition; declining a pending
// comment deletes the record.
//
// UserName and UserPhoto are snapshots taken at submission time so an
// approved comment keeps displaying consistently even if the author
// later renames themselves or is removed.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"index;not null" json:"post_id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	UserName   string    `gorm:"size:128;not null" json:"user_name"`
	UserPhoto  string    `gorm:"size:512" json:"user_photo"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsApproved bool      `gorm:"default:false" json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}
