package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// UserController covers administrator account management: listing
// accounts, granting or revoking the admin role, and deleting accounts
// together with everything they authored.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// List returns accounts newest first, optionally filtered by a
// case-insensitive name or email search.
func (c *UserController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := c.db.Model(&models.User{})
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if role := strings.TrimSpace(ctx.Query("role")); role != "" {
		q = q.Where("role = ?", role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to count users")
		return
	}

	var users []models.User
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      users,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// UpdateRole grants or revokes the admin role. Admins cannot demote
// themselves, which guarantees the site always keeps at least one
// administrator.
func (c *UserController) UpdateRole(ctx *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}
	role := strings.TrimSpace(strings.ToLower(req.Role))
	if role != models.RoleUser && role != models.RoleAdmin {
		utils.Error(ctx, http.StatusBadRequest, 40091, "role must be user or admin")
		return
	}

	var target models.User
	if err := c.db.First(&target, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40406, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to load user")
		return
	}

	if actorID, ok := getUserID(ctx); ok && actorID == target.ID && role != models.RoleAdmin {
		utils.Error(ctx, http.StatusBadRequest, 40092, "you cannot revoke your own admin role")
		return
	}

	if target.Role != role {
		if err := c.db.Model(&target).Update("role", role).Error; err != nil {
			utils.Sugar.Errorf("update role for user %d: %v", target.ID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to update role")
			return
		}
		target.Role = role
	}

	utils.Success(ctx, gin.H{"user": target})
}

// Delete removes an account and everything it authored: comments,
// linked contact messages, announcements with their comment threads,
// and finally the account row. All of it runs in one transaction so a
// mid-way failure deletes nothing.
func (c *UserController) Delete(ctx *gin.Context) {
	var target models.User
	if err := c.db.First(&target, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40406, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to load user")
		return
	}

	if actorID, ok := getUserID(ctx); ok && actorID == target.ID {
		utils.Error(ctx, http.StatusBadRequest, 40093, "you cannot delete your own account")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", target.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", target.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}

		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", target.ID).
			Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) > 0 {
			// Comments by other users on this author's posts go too.
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("author_id = ?", target.ID).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&target).Error
	})
	if err != nil {
		utils.Sugar.Errorf("cascade delete user %d: %v", target.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50095, "failed to delete user")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyPostList)
	utils.InvalidateByPrefix(utils.CacheKeyPostDetail)
	utils.InvalidateByPrefix(utils.CacheKeyStats)
	utils.Success(ctx, gin.H{"message": "user deleted"})
}
