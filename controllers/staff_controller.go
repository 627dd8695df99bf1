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

// StaffController serves the staff directory. Categories are a fixed
// set seeded at startup; administrators manage members within them.
type StaffController struct {
	db *gorm.DB
}

// NewStaffController creates a new StaffController instance.
func NewStaffController(db *gorm.DB) *StaffController {
	return &StaffController{db: db}
}

// Directory returns every category with its members, both in display
// order. The whole directory is small and changes rarely, so it is
// served from cache when possible.
func (c *StaffController) Directory(ctx *gin.Context) {
	if body, ok := utils.CacheGetBytes(utils.CacheKeyStaffDir); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	var categories []models.StaffCategory
	if err := c.db.Preload("Members", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order ASC, id ASC")
	}).Order("sort_order ASC").Find(&categories).Error; err != nil {
		utils.Sugar.Errorf("load staff directory: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load staff directory")
		return
	}

	payload := gin.H{"categories": categories}
	utils.CacheSetJSON(utils.CacheKeyStaffDir, wrapForCache(payload), utils.CacheTTLShort)
	utils.Success(ctx, payload)
}

type staffMemberRequest struct {
	StaffCategoryID uint   `json:"category_id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Position        string `json:"position" binding:"required"`
	ImageURL        string `json:"image_url"`
	SortOrder       int    `json:"sort_order"`
}

// CreateMember adds a staff member to an existing category.
func (c *StaffController) CreateMember(ctx *gin.Context) {
	var req staffMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}

	var category models.StaffCategory
	if err := c.db.First(&category, req.StaffCategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusBadRequest, 40071, "unknown staff category")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load category")
		return
	}

	member := models.StaffMember{
		StaffCategoryID: category.ID,
		Name:            strings.TrimSpace(utils.SanitizeStrict(req.Name)),
		Position:        strings.TrimSpace(utils.SanitizeStrict(req.Position)),
		ImageURL:        strings.TrimSpace(req.ImageURL),
		SortOrder:       req.SortOrder,
	}
	if member.Name == "" || member.Position == "" {
		utils.Error(ctx, http.StatusBadRequest, 40072, "name and position are required")
		return
	}

	if err := c.db.Create(&member).Error; err != nil {
		utils.Sugar.Errorf("create staff member: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to create staff member")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyStaffDir)
	utils.Success(ctx, gin.H{"member": member})
}

// UpdateMember edits a staff member, including moving them between categories.
func (c *StaffController) UpdateMember(ctx *gin.Context) {
	var req staffMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}

	var member models.StaffMember
	if err := c.db.First(&member, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40405, "staff member not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to load staff member")
		return
	}

	if req.StaffCategoryID != member.StaffCategoryID {
		var category models.StaffCategory
		if err := c.db.First(&category, req.StaffCategoryID).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40071, "unknown staff category")
			return
		}
	}

	member.StaffCategoryID = req.StaffCategoryID
	member.Name = strings.TrimSpace(utils.SanitizeStrict(req.Name))
	member.Position = strings.TrimSpace(utils.SanitizeStrict(req.Position))
	member.ImageURL = strings.TrimSpace(req.ImageURL)
	member.SortOrder = req.SortOrder
	if member.Name == "" || member.Position == "" {
		utils.Error(ctx, http.StatusBadRequest, 40072, "name and position are required")
		return
	}

	if err := c.db.Save(&member).Error; err != nil {
		utils.Sugar.Errorf("update staff member %d: %v", member.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50074, "failed to update staff member")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyStaffDir)
	utils.Success(ctx, gin.H{"member": member})
}

// DeleteMember removes a staff member from the directory.
func (c *StaffController) DeleteMember(ctx *gin.Context) {
	var member models.StaffMember
	if err := c.db.First(&member, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40405, "staff member not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50075, "failed to load staff member")
		return
	}

	if err := c.db.Delete(&member).Error; err != nil {
		utils.Sugar.Errorf("delete staff member %d: %v", member.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50076, "failed to delete staff member")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyStaffDir)
	utils.Success(ctx, gin.H{"message": "staff member deleted"})
}
