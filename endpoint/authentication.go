package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/hospital-desk/captcha"
	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/notification"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

type LoginRequest struct {
	Username       string `json:"username" binding:"required" example:"ram.sharma"`
	Password       string `json:"password" example:"a1b2c3d4"`
	Role           string `json:"role" binding:"required" example:"staff"`
	CaptchaID      string `json:"captcha_id" example:"5f1c0f0e-2b7d-4e44-9c61-0d7b3c7d9a10"`
	CaptchaCode    string `json:"captcha_code" example:"K7MXA"`
	FirstTimeLogin bool   `json:"first_time_login" example:"false"`
}

type LoginResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role   string `json:"role" example:"staff"`
	UserID uint   `json:"user_id" example:"1"`
	Name   string `json:"name" example:"Ram Sharma"`
}

// GetCaptcha godoc
// @Summary      New captcha challenge
// @Description  Issue a single-use captcha image for doctor and staff login
// @Tags         Authentication
// @Produce      json
// @Success      200 {object} util.APIResponse{data=captcha.Challenge} "Captcha generated"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /captcha [get]
func GetCaptcha(c *gin.Context) {
	challenge, err := captchaService().Generate(c.Request.Context())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate captcha", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Captcha generated", Data: challenge})
}

// Login godoc
// @Summary      User login
// @Description  Authenticate an admin, doctor or staff member
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload or wrong captcha"
// @Failure      401 {object} util.APIResponse "Invalid credentials, disabled or locked account"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	roleID, valid := model.RoleIDFromName(req.Role)
	if !valid {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: fmt.Errorf("unknown role %q", req.Role)})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ctx := loginContext{C: c, DB: db, Username: strings.TrimSpace(req.Username), CI: clientOf(c)}

	if roleID != model.RoleAdmin && !verifyCaptchaOrRespond(ctx, req.CaptchaID, req.CaptchaCode) {
		return
	}

	user, ok := loadUserForLogin(ctx, roleID)
	if !ok {
		return
	}

	if !user.IsActive {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "account disabled")
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Account Disabled", Err: fmt.Errorf("account is inactive")})
		return
	}

	if !ensureAccountNotLocked(ctx, &user) {
		return
	}

	if !checkLoginSecret(ctx, &user, req) {
		return
	}

	finalizeLogin(ctx, &user)
}

type loginContext struct {
	C        *gin.Context
	DB       *gorm.DB
	Username string
	CI       clientInfo
}

func verifyCaptchaOrRespond(ctx loginContext, id, code string) bool {
	match, err := captchaService().Verify(ctx.C.Request.Context(), id, code)
	if err != nil && !errors.Is(err, captcha.ErrNoChallenge) {
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to verify captcha", Err: err})
		return false
	}
	if !match {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "wrong captcha")
		if err == nil {
			err = fmt.Errorf("captcha mismatch")
		}
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Wrong Captcha Code", Err: err})
		return false
	}
	return true
}

func loadUserForLogin(ctx loginContext, roleID uint32) (model.User, bool) {
	var user model.User
	err := ctx.DB.Where("username = ? AND role_id = ?", ctx.Username, roleID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "user not found")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{Msg: "Invalid username or password", Err: fmt.Errorf("user not found")})
		return model.User{}, false
	}
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "database error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.User{}, false
	}
	return user, true
}

func ensureAccountNotLocked(ctx loginContext, user *model.User) bool {
	if locked, expiry := isAccountLocked(user); locked {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "account locked")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{
			Msg: fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", expiry.Format(time.RFC3339)),
			Err: fmt.Errorf("account locked"),
		})
		return false
	}
	// An expired lock starts a fresh count of failures.
	if user.LockedUntil != nil {
		if err := resetFailedAttempts(ctx.DB, user); err != nil {
			util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to reset login attempts", Err: err})
			return false
		}
	}
	return true
}

// checkLoginSecret applies the per-role password rules. Admins always need a
// password. Doctors and staff must finish a first-time login before they can
// sign in normally.
func checkLoginSecret(ctx loginContext, user *model.User, req LoginRequest) bool {
	if user.RoleID == model.RoleAdmin {
		return verifyPasswordOrRespond(ctx, user, req.Password)
	}

	if req.FirstTimeLogin {
		if !verifyPasswordOrRespond(ctx, user, req.Password) {
			return false
		}
		if err := ctx.DB.Model(user).Update("requires_password", false).Error; err != nil {
			util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to complete first time login", Err: err})
			return false
		}
		user.RequiresPassword = false
		return true
	}

	if user.RequiresPassword {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "first time login required")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{
			Msg: "Security Alert: New User, use first time login",
			Err: fmt.Errorf("first time login required"),
		})
		return false
	}

	if req.Password == "" && config.LoadConfig().StaffPasswordlessLogin {
		return true
	}
	return verifyPasswordOrRespond(ctx, user, req.Password)
}

func verifyPasswordOrRespond(ctx loginContext, user *model.User, plain string) bool {
	if plain == "" {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "empty password")
		util.CallUserError(ctx.C, util.APIErrorParams{Msg: "Invalid request payload", Err: fmt.Errorf("password cannot be empty")})
		return false
	}
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "password verification error")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return false
	}
	if !match {
		incrementFailedAttempts(ctx.DB, user, ctx.CI)
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "invalid password")
		util.CallUserNotAuthorized(ctx.C, util.APIErrorParams{Msg: "Invalid username or password", Err: fmt.Errorf("invalid password")})
		return false
	}
	return true
}

func finalizeLogin(ctx loginContext, user *model.User) {
	if err := resetFailedAttempts(ctx.DB, user); err != nil {
		util.LogSecurityEvent(util.SecurityEvent{EventType: util.EventSuspiciousActivity, UserID: fmt.Sprintf("%d", user.ID), Email: user.Email, IP: ctx.CI.IP, Message: fmt.Sprintf("Failed to reset failed attempts: %v", err)})
	}

	expires := time.Now().Add(util.SessionTTL)
	token, err := util.IssueSessionToken(user.ID, user.RoleID, expires)
	if err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "token generation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	session := model.Session{UserID: user.ID, SessionToken: token, ExpiresAt: expires, ClientIP: ctx.CI.IP, Browser: ctx.CI.Agent}
	if err := ctx.DB.Create(&session).Error; err != nil {
		util.LogLoginFailure(ctx.Username, ctx.CI.IP, ctx.CI.Agent, "session creation failed")
		util.CallServerError(ctx.C, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return
	}

	if err := util.StoreSession(ctx.C.Request.Context(), token, user.ID, user.RoleID, util.SessionTTL); err != nil {
		util.SecurityLogger().Warn().Err(err).Uint("user_id", user.ID).Msg("failed to mirror session in redis")
	}

	if config.GetRedisClient() != nil {
		if err := middleware.ResetRateLimit(ctx.C.Request.Context(), ctx.CI.IP, ctx.C.Request.URL.Path); err != nil {
			util.SecurityLogger().Warn().Err(err).Str("ip", ctx.CI.IP).Msg("failed to reset login rate limit")
		}
	}

	util.LogLoginSuccess(user.ID, user.Email, ctx.CI.IP, ctx.CI.Agent)
	util.CallSuccessOK(ctx.C, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: token, Role: model.RoleName(user.RoleID), UserID: user.ID, Name: user.Name},
	})
}

func isAccountLocked(user *model.User) (bool, time.Time) {
	if user.LockedUntil != nil && *user.LockedUntil > time.Now().Unix() {
		return true, time.Unix(*user.LockedUntil, 0)
	}
	return false, time.Time{}
}

func incrementFailedAttempts(db *gorm.DB, user *model.User, ci clientInfo) {
	user.FailedAttempts++
	updates := map[string]interface{}{"failed_attempts": user.FailedAttempts}
	if user.FailedAttempts >= maxFailedAttempts {
		lockUntil := time.Now().Add(lockoutDuration).Unix()
		user.LockedUntil = &lockUntil
		updates["locked_until"] = lockUntil
		util.LogAccountLocked(user.ID, user.Email, ci.IP, "too many failed login attempts")
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		util.LogLoginFailure(user.Username, ci.IP, ci.Agent, "failed to update failed attempts")
	}
}

func resetFailedAttempts(db *gorm.DB, user *model.User) error {
	if user.FailedAttempts == 0 && user.LockedUntil == nil {
		return nil
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	return db.Model(user).Updates(map[string]interface{}{"failed_attempts": 0, "locked_until": nil}).Error
}

// Logout godoc
// @Summary      User logout
// @Description  Invalidate the caller's session token
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserIDOrRespond(c)
	if !ok {
		return
	}
	token := middleware.GetSessionToken(c)

	if err := db.Unscoped().Where("session_token = ?", token).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}
	if err := util.RemoveSession(c.Request.Context(), userID, token); err != nil {
		util.SecurityLogger().Warn().Err(err).Uint("user_id", userID).Msg("failed to remove session from redis")
	}

	util.LogLogout(userID, util.GetUserEmail(db, userID), c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}

// RegisterRequest is the public self-registration form for doctors and staff.
type RegisterRequest struct {
	Role       string `json:"role" binding:"required" example:"doctor"`
	Name       string `json:"name" binding:"required" example:"Sita Karki"`
	Address    string `json:"address" binding:"required" example:"Lalitpur"`
	Phone      string `json:"phone" binding:"required" example:"9812345678"`
	Email      string `json:"email" binding:"required" example:"sita.karki@example.com"`
	NMCNumber  string `json:"nmc_number" example:"12345"`
	Department string `json:"department" example:"Cardiology"`
}

// registrableRoles are the roles a visitor may sign up for.
var registrableRoles = []string{"doctor", "staff"}

// Register godoc
// @Summary      Self registration
// @Description  Create a doctor or staff account and email the generated password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration form"
// @Success      200 {object} util.APIResponse{data=model.UserSummary} "Registration successful"
// @Failure      400 {object} util.APIResponse "Invalid request or duplicate account"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /register [post]
func Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	roleID, valid := model.RoleIDFromName(req.Role)
	if !valid || !util.Contains(model.RoleName(roleID), registrableRoles) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Role must be doctor or staff", Err: fmt.Errorf("invalid role %q", req.Role)})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	form := userForm{
		Name:       req.Name,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      strings.TrimSpace(req.Email),
		Username:   usernameFromEmail(req.Email),
		RoleID:     roleID,
		NMCNumber:  req.NMCNumber,
		Department: req.Department,
	}
	user, password, ok := createUserFromForm(c, db, form)
	if !ok {
		return
	}

	notification.Send(notification.Credentials(user.Email, user.Name, user.Username, password))
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventRegisterSuccess,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "User registered",
	})

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Registration successful. Credentials were sent by email.", Data: summarizeUser(user)})
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required" example:"sita.karki"`
}

// ForgotPassword godoc
// @Summary      Reset a forgotten password
// @Description  Generate a new password, revoke sessions and email the new credentials
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Account username"
// @Success      200 {object} util.APIResponse "Password reset"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /password/forgot [post]
func ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var user model.User
	if !findOrRespond(c, db.Where("username = ?", strings.TrimSpace(req.Username)), &user, "User not found") {
		return
	}

	password := util.GeneratePassword()
	hash, salt, err := util.NewPasswordHash(password)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}
	err = db.Model(&user).Updates(map[string]interface{}{
		"password":          hash,
		"password_salt":     salt,
		"requires_password": true,
		"failed_attempts":   0,
		"locked_until":      nil,
	}).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reset password", Err: err})
		return
	}
	invalidateUserSessions(c, db, user.ID)

	notification.Send(notification.Credentials(user.Email, user.Name, user.Username, password))
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordReset,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "Password reset requested",
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "A new password was sent to the registered email"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword godoc
// @Summary      Change own password
// @Description  Verify the current password and replace it, revoking every session
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} util.APIResponse "Password changed"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Wrong current password"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/password [patch]
func ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserIDOrRespond(c)
	if !ok {
		return
	}

	var user model.User
	if !findOrRespond(c, db.Where("id = ?", userID), &user, "User not found") {
		return
	}

	match, err := util.VerifyPassword(req.CurrentPassword, user.Password, user.PasswordSalt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return
	}
	if !match {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid password", Err: fmt.Errorf("provided password does not match")})
		return
	}

	hash, salt, err := util.NewPasswordHash(req.NewPassword)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}
	err = db.Model(&user).Updates(map[string]interface{}{"password": hash, "password_salt": salt, "requires_password": false}).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update password", Err: err})
		return
	}
	invalidateUserSessions(c, db, user.ID)

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordChanged,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "Password changed by user",
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Password changed, please log in again"})
}

// invalidateUserSessions removes every DB session of the user and clears the
// Redis mirror. Redis failures are logged only.
func invalidateUserSessions(c *gin.Context, db *gorm.DB, userID uint) {
	if err := db.Unscoped().Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
		util.SecurityLogger().Error().Err(err).Uint("user_id", userID).Msg("failed to delete sessions")
	}
	if err := util.InvalidateUserSessions(c.Request.Context(), userID); err != nil {
		util.SecurityLogger().Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate redis sessions")
	}
}
