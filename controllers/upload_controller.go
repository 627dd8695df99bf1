package controllers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// UploadController stores image uploads under the local static
// directory and records them in the upload ledger. Every upload
// declares a kind (post, event, profile) with its own size ceiling.
type UploadController struct {
	db *gorm.DB
}

// NewUploadController creates a new UploadController instance.
func NewUploadController(db *gorm.DB) *UploadController {
	return &UploadController{db: db}
}

// Image accepts a multipart "file" field plus a "kind" form value and
// returns the public URL of the stored file. Size and content type are
// checked before anything touches the disk.
func (c *UploadController) Image(ctx *gin.Context) {
	kind := strings.TrimSpace(ctx.PostForm("kind"))
	limit, ok := utils.UploadLimit(kind)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40080, "kind must be one of: post, event, profile")
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40081, "file field is required")
		return
	}

	if header.Size > limit {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file exceeds the size limit for this upload kind")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		utils.Error(ctx, http.StatusBadRequest, 40082, "only image uploads are accepted")
		return
	}

	uploadDir := utils.UploadBaseDir()
	// Files are bucketed by kind and month so a directory never grows unbounded.
	now := time.Now()
	bucket := filepath.Join(kind, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(filepath.Join(uploadDir, bucket), 0o755); err != nil {
		utils.Sugar.Errorf("create upload dir %s: %v", uploadDir, err)
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to store file")
		return
	}

	name := utils.BuildUploadName(header.Filename)
	dst := filepath.Join(uploadDir, bucket, name)
	if err := ctx.SaveUploadedFile(header, dst); err != nil {
		utils.Sugar.Errorf("save upload %s: %v", dst, err)
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to store file")
		return
	}

	userID, _ := getUserID(ctx)
	url := "/static/uploads/" + path.Join(kind, now.Format("2006"), now.Format("01"), name)
	record := models.UploadedFile{
		Kind:     kind,
		OwnerID:  userID,
		FilePath: dst,
		URL:      url,
	}
	if err := c.db.Create(&record).Error; err != nil {
		// File is on disk; the cleaner reconciles ledger drift later.
		utils.Sugar.Warnf("record upload %s: %v", dst, err)
	}

	utils.Success(ctx, gin.H{"url": url, "kind": kind})
}
