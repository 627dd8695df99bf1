package models

import "time"

// UploadedFile is the ledger of locally stored image uploads. Entity
// deletion does not remove files (only profile-photo replacement
// does), so the ledger lets the background cleaner drop rows whose
// files have disappeared from disk and spot files nothing references.
type UploadedFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"size:16;index;not null" json:"kind"` // post, event, profile
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
