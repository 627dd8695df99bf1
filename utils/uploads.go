package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/models"
)

// Per-kind upload ceilings. Checked before any disk write.
const (
	MaxPostImageBytes    = 50 * 1024 * 1024
	MaxEventImageBytes   = 25 * 1024 * 1024
	MaxProfileImageBytes = 5 * 1024 * 1024
)

// UploadLimit returns the byte ceiling for an upload kind.
func UploadLimit(kind string) (int64, bool) {
	switch kind {
	case "post":
		return MaxPostImageBytes, true
	case "event":
		return MaxEventImageBytes, true
	case "profile":
		return MaxProfileImageBytes, true
	default:
		return 0, false
	}
}

// SanitizeFilename keeps a conservative character set so uploaded
// names are safe as filesystem paths and URLs.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' || c == '-' || c == '_':
			b.WriteRune(c)
		}
	}
	out := b.String()
	if out == "" || out == "." {
		out = "file"
	}
	return out
}

// BuildUploadName namespaces a stored file by timestamp plus a random
// suffix so concurrent uploads of the same original name never collide.
func BuildUploadName(original string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), suffix, SanitizeFilename(original))
}

// uploadURLPrefix is where locally stored files are served from. The
// router mounts UploadBaseDir at this prefix, so URL and disk path are
// two views of the same mapping.
const uploadURLPrefix = "/static/uploads/"

// UploadBaseDir returns the configured upload directory.
func UploadBaseDir() string {
	if dir := config.Get().UploadDir; dir != "" {
		return dir
	}
	return filepath.Join("static", "uploads")
}

// IsLocalUploadURL reports whether url points at a file this service stored.
func IsLocalUploadURL(url string) bool {
	return strings.HasPrefix(url, uploadURLPrefix)
}

// UploadPathFor maps a locally served upload URL back to its path on
// disk under UploadBaseDir.
func UploadPathFor(url string) (string, bool) {
	if !IsLocalUploadURL(url) {
		return "", false
	}
	rel := strings.TrimPrefix(url, uploadURLPrefix)
	return filepath.Join(UploadBaseDir(), filepath.FromSlash(rel)), true
}

// DeleteLocalUpload removes a locally stored upload and its ledger
// row. Only the profile-photo replacement path calls this; other
// entity deletions intentionally leave their files in place.
func DeleteLocalUpload(db *gorm.DB, url string) {
	if !IsLocalUploadURL(url) {
		return
	}
	var rec models.UploadedFile
	if err := db.Where("url = ?", url).First(&rec).Error; err == nil {
		if rec.FilePath != "" {
			if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) && Sugar != nil {
				Sugar.Warnf("failed to remove upload %s: %v", rec.FilePath, err)
			}
		}
		_ = db.Delete(&models.UploadedFile{}, rec.ID).Error
		return
	}
	// No ledger row: derive the path through the same URL-to-directory
	// mapping the upload handler used.
	if p, ok := UploadPathFor(url); ok {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && Sugar != nil {
			Sugar.Debugf("no local file for %s: %v", url, err)
		}
	}
}
