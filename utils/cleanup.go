package utils

import (
	"os"
	"time"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/models"
)

// StartUploadCleaner launches a background goroutine that periodically
// prunes upload-ledger rows whose files have disappeared from disk.
// Entity deletion does not remove files, so the ledger inevitably
// drifts; this keeps it honest. Best-effort, failures are logged.
func StartUploadCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing the database at startup
			time.Sleep(interval)
			db := config.DB()
			if db == nil {
				continue
			}
			var items []models.UploadedFile
			if err := db.Limit(500).Find(&items).Error; err != nil {
				if Sugar != nil {
					Sugar.Warnf("upload cleaner query failed: %v", err)
				}
				continue
			}
			removed := 0
			for _, it := range items {
				if it.FilePath == "" {
					continue
				}
				if _, err := os.Stat(it.FilePath); os.IsNotExist(err) {
					if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
						if Sugar != nil {
							Sugar.Warnf("upload cleaner delete row failed: %v", err)
						}
						continue
					}
					removed++
				}
			}
			if removed > 0 && Sugar != nil {
				Sugar.Infof("upload cleaner pruned %d stale ledger rows", removed)
			}
		}
	}()
}
