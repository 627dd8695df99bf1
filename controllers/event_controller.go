package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// EventController manages the school events calendar.
type EventController struct {
	db *gorm.DB
}

// NewEventController creates a new EventController instance.
func NewEventController(db *gorm.DB) *EventController {
	return &EventController{db: db}
}

type eventRequest struct {
	Title       string  `json:"title" binding:"required"`
	Date        string  `json:"date" binding:"required"`
	Time        string  `json:"time"`
	Location    string  `json:"location"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
}

func (r *eventRequest) toModel() (models.Event, error) {
	// Parsed in local time so the stored value and the upcoming cutoff
	// agree on where the day starts.
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(r.Date), time.Local)
	if err != nil {
		return models.Event{}, err
	}
	return models.Event{
		Title:       strings.TrimSpace(utils.SanitizeStrict(r.Title)),
		Date:        date,
		Time:        strings.TrimSpace(utils.SanitizeStrict(r.Time)),
		Location:    strings.TrimSpace(utils.SanitizeStrict(r.Location)),
		Category:    strings.TrimSpace(utils.SanitizeStrict(r.Category)),
		Description: strings.TrimSpace(utils.Sanitize(r.Description)),
		ImageURL:    r.ImageURL,
	}, nil
}

// Create adds an event to the calendar.
func (c *EventController) Create(ctx *gin.Context) {
	var req eventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	event, err := req.toModel()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "date must be in YYYY-MM-DD format")
		return
	}
	if event.Title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40052, "title is required")
		return
	}

	if err := c.db.Create(&event).Error; err != nil {
		utils.Sugar.Errorf("create event: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to create event")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyEventList)
	utils.InvalidateByPrefix(utils.CacheKeyStats)
	utils.Success(ctx, gin.H{"event": event})
}

// Update replaces an event's details.
func (c *EventController) Update(ctx *gin.Context) {
	var req eventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	var event models.Event
	if err := c.db.First(&event, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "event not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load event")
		return
	}

	updated, err := req.toModel()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "date must be in YYYY-MM-DD format")
		return
	}
	if updated.Title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40052, "title is required")
		return
	}
	updated.ID = event.ID
	updated.CreatedAt = event.CreatedAt

	if err := c.db.Save(&updated).Error; err != nil {
		utils.Sugar.Errorf("update event %d: %v", event.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to update event")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyEventList)
	utils.Success(ctx, gin.H{"event": updated})
}

// Delete removes an event.
func (c *EventController) Delete(ctx *gin.Context) {
	var event models.Event
	if err := c.db.First(&event, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "event not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to load event")
		return
	}

	if err := c.db.Delete(&event).Error; err != nil {
		utils.Sugar.Errorf("delete event %d: %v", event.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to delete event")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyEventList)
	utils.InvalidateByPrefix(utils.CacheKeyStats)
	utils.Success(ctx, gin.H{"message": "event deleted"})
}

// List returns events soonest first. upcoming=true drops past events,
// and category narrows the result. Pages are cached briefly.
func (c *EventController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := utils.CacheKeyEventList + ctx.Request.URL.RawQuery
	if body, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	q := c.db.Model(&models.Event{})
	if ctx.Query("upcoming") == "true" {
		// Local midnight, not Truncate: Truncate works in epoch UTC and
		// would shift the cutoff by the timezone offset.
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		q = q.Where("date >= ?", today)
	}
	if category := strings.TrimSpace(ctx.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to count events")
		return
	}

	var events []models.Event
	if err := q.Order("date ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&events).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to list events")
		return
	}

	payload := gin.H{
		"items":      events,
		"pagination": paginationMeta(page, pageSize, total),
	}
	utils.CacheSetJSON(cacheKey, wrapForCache(payload), utils.CacheTTLShort)
	utils.Success(ctx, payload)
}

// Detail returns one event.
func (c *EventController) Detail(ctx *gin.Context) {
	var event models.Event
	if err := c.db.First(&event, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "event not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50057, "failed to load event")
		return
	}
	utils.Success(ctx, gin.H{"event": event})
}
