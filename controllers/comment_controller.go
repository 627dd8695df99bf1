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

// CommentController implements the comment moderation workflow:
// submit (pending) -> approve (admin) or decline/delete (admin).
// Approval is monotonic; there is no way back to pending.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// Create lets an authenticated user submit a comment on an
// announcement. The comment starts unapproved and stays invisible to
// the public listing until an administrator approves it.
func (c *CommentController) Create(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	// Empty-after-trim content is rejected before touching the database.
	content := strings.TrimSpace(utils.SanitizeStrict(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "comment cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := c.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Sugar.Errorf("load post %s for comment: %v", postID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load post")
		return
	}

	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	comment := models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		UserName:  user.FullName,
		UserPhoto: user.PhotoURL,
		Content:   content,
		// IsApproved stays false until an admin approves.
	}

	if err := c.db.Create(&comment).Error; err != nil {
		utils.Sugar.Errorf("create comment on post %d: %v", post.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to submit comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// ListForPost returns approved comments for one announcement, oldest first.
func (c *CommentController) ListForPost(ctx *gin.Context) {
	postID := ctx.Param("id")
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := c.db.Model(&models.Comment{}).Where("post_id = ? AND is_approved = ?", postID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to count comments")
		return
	}

	var comments []models.Comment
	if err := q.Order("created_at ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to list comments")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      comments,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// ListAll is the admin moderation queue: every comment regardless of
// state, newest first, optionally narrowed to pending ones. Each item
// carries the owning post's title so the queue is readable without
// extra lookups.
func (c *CommentController) ListAll(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	pendingOnly := ctx.Query("pending") == "true"

	q := c.db.Model(&models.Comment{})
	if pendingOnly {
		q = q.Where("is_approved = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to count comments")
		return
	}

	var comments []models.Comment
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to list comments")
		return
	}

	// Attach post titles for the moderation view.
	var postIDs []uint
	for _, cm := range comments {
		postIDs = append(postIDs, cm.PostID)
	}
	titles := map[uint]string{}
	if len(postIDs) > 0 {
		var posts []models.Post
		if err := c.db.Select("id", "title").Find(&posts, utils.UniqueUint(postIDs)).Error; err == nil {
			for _, p := range posts {
				titles[p.ID] = p.Title
			}
		}
	}

	items := make([]gin.H, 0, len(comments))
	for _, cm := range comments {
		items = append(items, gin.H{
			"comment":    cm,
			"post_title": titles[cm.PostID],
		})
	}

	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// Approve transitions a pending comment to approved. Approving an
// already-approved comment is a no-op success, so repeated clicks and
// concurrent moderators cannot produce errors or duplicate transitions.
func (c *CommentController) Approve(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "missing comment id")
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to load comment")
		return
	}

	if !comment.IsApproved {
		if err := c.db.Model(&comment).Update("is_approved", true).Error; err != nil {
			utils.Sugar.Errorf("approve comment %d: %v", comment.ID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50037, "failed to approve comment")
			return
		}
		comment.IsApproved = true
		utils.InvalidateByPrefix(utils.CacheKeyPostDetail + strconv.Itoa(int(comment.PostID)))
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// Decline permanently removes a comment. The confirm step lives in
// the client; by the time this endpoint is hit the decision is final.
func (c *CommentController) Decline(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		utils.Error(ctx, http.StatusBadRequest, 40033, "missing comment id")
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50038, "failed to load comment")
		return
	}

	if err := c.db.Delete(&comment).Error; err != nil {
		utils.Sugar.Errorf("decline comment %d: %v", comment.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50039, "failed to delete comment")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyPostDetail + strconv.Itoa(int(comment.PostID)))
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}
