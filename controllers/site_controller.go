package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/utils"
)

// SiteController serves site-wide information sourced from
// configuration: contact details and the notice banner.
type SiteController struct{}

// NewSiteController creates a new SiteController instance.
func NewSiteController() *SiteController {
	return &SiteController{}
}

// Info returns the school's public contact details.
func (c *SiteController) Info(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"school_name": cfg.SchoolName,
		"site_url":    cfg.SiteURL,
		"contact": gin.H{
			"email":   cfg.ContactEmail,
			"phone":   cfg.ContactPhone,
			"address": cfg.ContactAddress,
		},
	})
}

// Notice returns the configured announcement banner, if any.
func (c *SiteController) Notice(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"title": cfg.NoticeTitle,
		"html":  utils.Sanitize(cfg.NoticeHTML),
	})
}

// Captcha issues a captcha challenge for forms that require one.
func (c *SiteController) Captcha(ctx *gin.Context) {
	id, image, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Sugar.Errorf("generate captcha: %v", err)
		utils.Error(ctx, 500, 50110, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": image})
}
