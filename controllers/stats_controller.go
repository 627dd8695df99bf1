package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// StatsController exposes the public site counters shown on the
// landing page and the admin dashboard.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// Overview returns entity counts. Cheap counts, but the landing page
// hits this on every load, so it is cached.
func (c *StatsController) Overview(ctx *gin.Context) {
	if body, ok := utils.CacheGetBytes(utils.CacheKeyStats); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	type counter struct {
		name  string
		query *gorm.DB
	}
	counters := []counter{
		{"users", c.db.Model(&models.User{})},
		{"posts", c.db.Model(&models.Post{}).Where("is_approved = ?", true)},
		{"comments", c.db.Model(&models.Comment{}).Where("is_approved = ?", true)},
		{"events", c.db.Model(&models.Event{})},
		{"staff", c.db.Model(&models.StaffMember{})},
	}

	counts := map[string]int64{}
	for _, ct := range counters {
		var n int64
		if err := ct.query.Count(&n).Error; err != nil {
			utils.Sugar.Errorf("count %s: %v", ct.name, err)
			utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to load statistics")
			return
		}
		counts[ct.name] = n
	}

	payload := gin.H{"counts": counts}
	utils.CacheSetJSON(utils.CacheKeyStats, wrapForCache(payload), utils.CacheTTLShort)
	utils.Success(ctx, payload)
}

// AdminOverview adds moderation counters on top of the public counts.
func (c *StatsController) AdminOverview(ctx *gin.Context) {
	type counter struct {
		name  string
		query *gorm.DB
	}
	counters := []counter{
		{"users", c.db.Model(&models.User{})},
		{"posts", c.db.Model(&models.Post{})},
		{"events", c.db.Model(&models.Event{})},
		{"staff", c.db.Model(&models.StaffMember{})},
		{"pending_comments", c.db.Model(&models.Comment{}).Where("is_approved = ?", false)},
		{"unread_messages", c.db.Model(&models.Message{}).Where("is_read = ?", false)},
	}

	counts := map[string]int64{}
	for _, ct := range counters {
		var n int64
		if err := ct.query.Count(&n).Error; err != nil {
			utils.Sugar.Errorf("count %s: %v", ct.name, err)
			utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to load statistics")
			return
		}
		counts[ct.name] = n
	}

	utils.Success(ctx, gin.H{"counts": counts})
}
