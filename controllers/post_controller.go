package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// PostController manages school announcements. Writing is an
// administrator concern; reading is public and cached.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type postRequest struct {
	Title    string  `json:"title" binding:"required"`
	Content  string  `json:"content" binding:"required"`
	ImageURL *string `json:"image_url"`
}

func (r *postRequest) sanitize() (title, content string, ok bool) {
	title = strings.TrimSpace(utils.SanitizeStrict(r.Title))
	content = strings.TrimSpace(utils.Sanitize(r.Content))
	return title, content, title != "" && content != ""
}

// Create publishes a new announcement.
func (c *PostController) Create(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	title, content, ok := req.sanitize()
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "title and content are required")
		return
	}

	userID, found := getUserID(ctx)
	if !found {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{
		AuthorID:   userID,
		Title:      title,
		Content:    content,
		ImageURL:   req.ImageURL,
		IsApproved: true,
	}
	if err := c.db.Create(&post).Error; err != nil {
		utils.Sugar.Errorf("create post: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create post")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyPostList)
	utils.InvalidateByPrefix(utils.CacheKeyStats)
	utils.Success(ctx, gin.H{"post": post})
}

// Update edits an existing announcement. Only supplied fields change.
func (c *PostController) Update(ctx *gin.Context) {
	var req struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		ImageURL *string `json:"image_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load post")
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(utils.SanitizeStrict(*req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40042, "title cannot be empty")
			return
		}
		updates["title"] = title
	}
	if req.Content != nil {
		content := strings.TrimSpace(utils.Sanitize(*req.Content))
		if content == "" {
			utils.Error(ctx, http.StatusBadRequest, 40043, "content cannot be empty")
			return
		}
		updates["content"] = content
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if len(updates) == 0 {
		utils.Success(ctx, gin.H{"post": post})
		return
	}

	if err := c.db.Model(&post).Updates(updates).Error; err != nil {
		utils.Sugar.Errorf("update post %d: %v", post.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to update post")
		return
	}

	c.invalidatePost(post.ID)
	utils.Success(ctx, gin.H{"post": post})
}

// Delete removes an announcement together with its comments. Both go
// in one transaction so a failure leaves the thread intact.
func (c *PostController) Delete(ctx *gin.Context) {
	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load post")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Sugar.Errorf("delete post %d: %v", post.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete post")
		return
	}

	c.invalidatePost(post.ID)
	utils.InvalidateByPrefix(utils.CacheKeyStats)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// List returns published announcements, newest first. Pages are cached
// briefly since this backs the site's landing page.
func (c *PostController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := utils.CacheKeyPostList + ctx.Request.URL.RawQuery
	if body, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	q := c.db.Model(&models.Post{}).Where("is_approved = ?", true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to count posts")
		return
	}

	var posts []models.Post
	if err := q.Preload("Author").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to list posts")
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationMeta(page, pageSize, total),
	}
	utils.CacheSetJSON(cacheKey, wrapForCache(payload), utils.CacheTTLShort)
	utils.Success(ctx, payload)
}

// ListAll is the admin view: every announcement including unpublished
// ones, uncached.
func (c *PostController) ListAll(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := c.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to count posts")
		return
	}

	var posts []models.Post
	if err := c.db.Preload("Author").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      posts,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// Detail returns one announcement with its approved comments.
func (c *PostController) Detail(ctx *gin.Context) {
	id := ctx.Param("id")

	cacheKey := utils.CacheKeyPostDetail + id
	if body, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	var post models.Post
	if err := c.db.Preload("Author").Where("is_approved = ?", true).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := c.db.Where("post_id = ? AND is_approved = ?", post.ID, true).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50048, "failed to load comments")
		return
	}

	payload := gin.H{"post": post, "comments": comments}
	utils.CacheSetJSON(cacheKey, wrapForCache(payload), utils.CacheTTLShort)
	utils.Success(ctx, payload)
}

func (c *PostController) invalidatePost(id uint) {
	utils.InvalidateByPrefix(utils.CacheKeyPostList)
	utils.InvalidateByPrefix(utils.CacheKeyPostDetail + strconv.FormatUint(uint64(id), 10))
}
