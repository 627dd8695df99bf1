package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

const (
	tokenLifetime        = 24 * time.Hour
	verificationCodeTTL  = 15 * time.Minute
	resetCodeTTL         = 15 * time.Minute
	codeResendCooldown   = time.Minute
	googleUserinfoURL    = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthExchangeTimeout = 10 * time.Second
)

// AuthController handles registration, login, email verification,
// password recovery, profile management and Google sign-in.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	FirstName     string `json:"first_name" binding:"required"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name" binding:"required"`
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

// Register creates a local account. Validation runs in a fixed order
// so the client always sees the first failing field: names, email,
// password, then uniqueness.
func (c *AuthController) Register(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again later")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42911, "please wait before trying again")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42912, "registration limit reached for today")
		return
	}

	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	if config.Get().RegisterCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaAnswer) {
		c.recordFailure(ip)
		utils.Error(ctx, http.StatusBadRequest, 40011, "captcha verification failed")
		return
	}

	first := strings.TrimSpace(utils.SanitizeStrict(req.FirstName))
	middle := strings.TrimSpace(utils.SanitizeStrict(req.MiddleName))
	last := strings.TrimSpace(utils.SanitizeStrict(req.LastName))
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if first == "" || last == "" {
		c.recordFailure(ip)
		utils.Error(ctx, http.StatusBadRequest, 40012, "first and last name are required")
		return
	}
	if !utils.IsValidEmail(email) {
		c.recordFailure(ip)
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid email address")
		return
	}
	if fieldErr := utils.ValidateRegistrationNames(first, middle, last, email); fieldErr != nil {
		c.recordFailure(ip)
		utils.Error(ctx, http.StatusBadRequest, 40014, fieldErr.Message)
		return
	}
	for _, name := range []string{first, middle, last} {
		if utils.HasProfanity(name) {
			c.recordFailure(ip)
			utils.Error(ctx, http.StatusBadRequest, 40015, "name contains inappropriate language")
			return
		}
	}
	if check := utils.ValidatePassword(req.Password); !check.IsValid {
		c.recordFailure(ip)
		utils.Error(ctx, http.StatusBadRequest, 40016, check.Message)
		return
	}

	var existing models.User
	if err := c.db.Where("email = ?", email).First(&existing).Error; err == nil {
		c.recordFailure(ip)
		utils.Error(ctx, http.StatusBadRequest, 40017, "an account with this email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to create account")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Sugar.Errorf("hash password: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to create account")
		return
	}

	fullName := first
	if middle != "" {
		fullName += " " + middle
	}
	fullName += " " + last

	user := models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Provider:     "local",
		RegisterIP:   ip,
	}
	if err := c.db.Create(&user).Error; err != nil {
		utils.Sugar.Errorf("create user %s: %v", email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to create account")
		return
	}

	utils.RegistrationDailyIncrement(ip)
	c.sendVerificationCode(email)

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, tokenLifetime)
	if err != nil {
		utils.Sugar.Errorf("issue token for user %d: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "account created but sign-in failed, please log in")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// CheckPassword evaluates a candidate password without creating
// anything, so the signup form can show live requirement feedback.
func (c *AuthController) CheckPassword(ctx *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	utils.Success(ctx, gin.H{
		"requirements": utils.CheckPasswordRequirements(req.Password),
		"result":       utils.ValidatePassword(req.Password),
	})
}

// Login authenticates by email and password.
func (c *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	var user models.User
	if err := c.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid email or password")
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid email or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, tokenLifetime)
	if err != nil {
		utils.Sugar.Errorf("issue token for user %d: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to sign in")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the presented token until its natural expiry.
func (c *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40018, "missing bearer token")
		return
	}
	token := strings.TrimSpace(parts[1])

	expiresAt := time.Now().Add(tokenLifetime)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)

	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated account.
func (c *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile edits the caller's display name and photo. Replacing
// a locally stored photo deletes the old file so orphans do not pile
// up under the upload directory.
func (c *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		FullName *string `json:"full_name"`
		PhotoURL *string `json:"photo_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		name := strings.TrimSpace(utils.SanitizeStrict(*req.FullName))
		if name == "" {
			utils.Error(ctx, http.StatusBadRequest, 40019, "name cannot be empty")
			return
		}
		if term, found := utils.RestrictedTermMatch(name); found {
			utils.Error(ctx, http.StatusBadRequest, 40014, "name may not contain the restricted term "+term)
			return
		}
		if utils.HasProfanity(name) {
			utils.Error(ctx, http.StatusBadRequest, 40015, "name contains inappropriate language")
			return
		}
		updates["full_name"] = name
	}

	oldPhoto := user.PhotoURL
	if req.PhotoURL != nil {
		updates["photo_url"] = strings.TrimSpace(*req.PhotoURL)
	}

	if len(updates) == 0 {
		utils.Success(ctx, gin.H{"user": user})
		return
	}

	if err := c.db.Model(&user).Updates(updates).Error; err != nil {
		utils.Sugar.Errorf("update profile for user %d: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to update profile")
		return
	}

	if req.PhotoURL != nil && oldPhoto != "" && oldPhoto != *req.PhotoURL {
		utils.DeleteLocalUpload(c.db, oldPhoto)
	}

	if name, ok := updates["full_name"].(string); ok {
		user.FullName = name
	}
	if photo, ok := updates["photo_url"].(string); ok {
		user.PhotoURL = photo
	}
	utils.Success(ctx, gin.H{"user": user})
}

// ChangePassword replaces the caller's password after verifying the
// current one.
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var user models.User
	if err := c.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		utils.Error(ctx, http.StatusBadRequest, 40021, "current password is incorrect")
		return
	}
	if check := utils.ValidatePassword(req.NewPassword); !check.IsValid {
		utils.Error(ctx, http.StatusBadRequest, 40016, check.Message)
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to change password")
		return
	}
	if err := c.db.Model(&user).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to change password")
		return
	}

	utils.Success(ctx, gin.H{"message": "password updated"})
}

// VerifyEmail confirms an emailed verification code.
func (c *AuthController) VerifyEmail(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if !utils.VerifyAndConsumeCode(utils.CodePurposeVerifyEmail, email, strings.TrimSpace(req.Code)) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid or expired verification code")
		return
	}

	if err := c.db.Model(&models.User{}).Where("email = ?", email).
		Update("email_verified", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to verify email")
		return
	}

	utils.Success(ctx, gin.H{"message": "email verified"})
}

// ResendVerification emails a fresh verification code, subject to a
// per-address cooldown.
func (c *AuthController) ResendVerification(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	var user models.User
	if err := c.db.Where("email = ?", email).First(&user).Error; err != nil {
		// Same response as success so addresses cannot be enumerated.
		utils.Success(ctx, gin.H{"message": "if the account exists, a code has been sent"})
		return
	}
	if user.EmailVerified {
		utils.Success(ctx, gin.H{"message": "email is already verified"})
		return
	}

	if !utils.EmailCooldownTrySet(utils.CodePurposeVerifyEmail, email, codeResendCooldown) {
		utils.Error(ctx, http.StatusTooManyRequests, 42913, "please wait before requesting another code")
		return
	}

	c.sendVerificationCode(email)
	utils.Success(ctx, gin.H{"message": "if the account exists, a code has been sent"})
}

// ForgotPassword emails a reset code. The response never reveals
// whether the address has an account.
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	generic := gin.H{"message": "if the account exists, a reset code has been sent"}

	var user models.User
	if err := c.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Success(ctx, generic)
		return
	}
	if !utils.EmailCooldownTrySet(utils.CodePurposeResetPassword, email, codeResendCooldown) {
		utils.Success(ctx, generic)
		return
	}

	code := utils.GenerateVerificationCode(6)
	utils.SaveCode(utils.CodePurposeResetPassword, email, code, resetCodeTTL)
	if err := utils.SendPasswordResetMail(email, code); err != nil {
		utils.Sugar.Warnf("send reset mail to %s: %v", email, err)
	}

	utils.Success(ctx, generic)
}

// ResetPassword sets a new password after validating the emailed code.
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if check := utils.ValidatePassword(req.NewPassword); !check.IsValid {
		utils.Error(ctx, http.StatusBadRequest, 40016, check.Message)
		return
	}
	if !utils.VerifyAndConsumeCode(utils.CodePurposeResetPassword, email, strings.TrimSpace(req.Code)) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid or expired reset code")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to reset password")
		return
	}
	if err := c.db.Model(&models.User{}).Where("email = ?", email).
		Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to reset password")
		return
	}

	utils.Success(ctx, gin.H{"message": "password has been reset"})
}

func (c *AuthController) recordFailure(ip string) {
	cfg := config.Get()
	n := utils.RegistrationFailRecord(ip)
	if cfg.RegisterFailedMaxPerIPPerHour > 0 && n >= cfg.RegisterFailedMaxPerIPPerHour {
		utils.RegistrationBan(ip)
	}
}

func (c *AuthController) sendVerificationCode(email string) {
	code := utils.GenerateVerificationCode(6)
	utils.SaveCode(utils.CodePurposeVerifyEmail, email, code, verificationCodeTTL)
	if err := utils.SendVerificationMail(email, code); err != nil {
		utils.Sugar.Warnf("send verification mail to %s: %v", email, err)
	}
}

func googleOAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/api/v1/auth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleRedirect starts the Google sign-in flow.
func (c *AuthController) GoogleRedirect(ctx *gin.Context) {
	conf := googleOAuthConfig()
	if conf.ClientID == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, 50310, "google sign-in is not configured")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, conf.AuthCodeURL(state))
}

type googleUserinfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleCallback finishes the flow: validates state, exchanges the
// code, and signs the user in, creating the account on first visit.
func (c *AuthController) GoogleCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" || !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid oauth state")
		return
	}

	conf := googleOAuthConfig()
	exchangeCtx, cancel := context.WithTimeout(ctx.Request.Context(), oauthExchangeTimeout)
	defer cancel()

	token, err := conf.Exchange(exchangeCtx, code)
	if err != nil {
		utils.Sugar.Warnf("google oauth exchange: %v", err)
		utils.Error(ctx, http.StatusBadGateway, 50210, "google sign-in failed")
		return
	}

	client := conf.Client(exchangeCtx, token)
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		utils.Sugar.Warnf("google userinfo: %v", err)
		utils.Error(ctx, http.StatusBadGateway, 50211, "google sign-in failed")
		return
	}
	defer resp.Body.Close()

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		utils.Error(ctx, http.StatusBadGateway, 50212, "google sign-in failed")
		return
	}

	email := strings.ToLower(info.Email)
	var user models.User
	err = c.db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			FullName:      info.Name,
			Email:         email,
			PhotoURL:      info.Picture,
			EmailVerified: info.VerifiedEmail,
			Provider:      "google",
			ProviderID:    info.ID,
			RegisterIP:    ctx.ClientIP(),
		}
		if user.FullName == "" {
			user.FullName = strings.Split(email, "@")[0]
		}
		if err := c.db.Create(&user).Error; err != nil {
			utils.Sugar.Errorf("create google user %s: %v", email, err)
			utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to create account")
			return
		}
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to sign in")
		return
	default:
		// Existing local account: link the provider identity.
		if user.Provider != "google" {
			_ = c.db.Model(&user).Updates(map[string]interface{}{
				"provider":    "google",
				"provider_id": info.ID,
			}).Error
		}
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Email, user.Role, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to sign in")
		return
	}

	// Hand the token back to the frontend via redirect when a site URL
	// is configured; otherwise answer with JSON (useful for API tests).
	if site := config.Get().SiteURL; site != "" {
		ctx.Redirect(http.StatusFound, strings.TrimRight(site, "/")+"/oauth/callback?token="+jwtToken)
		return
	}
	utils.Success(ctx, gin.H{"token": jwtToken, "user": user})
}
