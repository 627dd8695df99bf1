package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

// MessageController handles contact form submissions and the admin inbox.
type MessageController struct {
	db *gorm.DB
}

// NewMessageController creates a new MessageController instance.
func NewMessageController(db *gorm.DB) *MessageController {
	return &MessageController{db: db}
}

// Create accepts a contact message from anyone. When the caller is
// logged in, the message gets linked to their account; anonymous
// submissions are fine too.
func (c *MessageController) Create(ctx *gin.Context) {
	var req struct {
		Name          string `json:"name" binding:"required"`
		Email         string `json:"email" binding:"required"`
		Subject       string `json:"subject"`
		Body          string `json:"body" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	if config.Get().ContactCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40061, "captcha verification failed")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !utils.IsValidEmail(email) {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid email address")
		return
	}

	name := strings.TrimSpace(utils.SanitizeStrict(req.Name))
	body := strings.TrimSpace(utils.SanitizeStrict(req.Body))
	if name == "" || body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40063, "name and message body are required")
		return
	}

	msg := models.Message{
		Name:    name,
		Email:   email,
		Subject: strings.TrimSpace(utils.SanitizeStrict(req.Subject)),
		Body:    body,
	}
	if userID, ok := getUserID(ctx); ok {
		msg.UserID = &userID
	}

	if err := c.db.Create(&msg).Error; err != nil {
		utils.Sugar.Errorf("create contact message: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to submit message")
		return
	}

	utils.Success(ctx, gin.H{"message": "thank you, your message has been received"})
}

// List is the admin inbox, newest first. unread=true narrows to
// messages not yet marked read.
func (c *MessageController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := c.db.Model(&models.Message{})
	if ctx.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to count messages")
		return
	}

	var messages []models.Message
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&messages).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to list messages")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      messages,
		"pagination": paginationMeta(page, pageSize, total),
	})
}

// MarkRead flags a message as handled. Marking twice is harmless.
func (c *MessageController) MarkRead(ctx *gin.Context) {
	var msg models.Message
	if err := c.db.First(&msg, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "message not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load message")
		return
	}

	if !msg.IsRead {
		if err := c.db.Model(&msg).Update("is_read", true).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to update message")
			return
		}
		msg.IsRead = true
	}

	utils.Success(ctx, gin.H{"message": msg})
}

// Delete removes a message from the inbox.
func (c *MessageController) Delete(ctx *gin.Context) {
	var msg models.Message
	if err := c.db.First(&msg, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "message not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to load message")
		return
	}

	if err := c.db.Delete(&msg).Error; err != nil {
		utils.Sugar.Errorf("delete message %d: %v", msg.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to delete message")
		return
	}

	utils.Success(ctx, gin.H{"message": "message deleted"})
}
