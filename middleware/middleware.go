package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DBKey           = "db"
	UserIDKey       = "user_id"
	RoleIDKey       = "role_id"
	SessionTokenKey = "session_token"

	SessionHeader = "session-token"
)

// CORSMiddleware allows browser clients on any origin to call the API with a
// session-token header.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Requested-With", "Authorization", SessionHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	})
}

// DatabaseMiddleware injects db into every request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the request's database handle or nil.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(DBKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func GetRoleID(c *gin.Context) (uint32, bool) {
	v, ok := c.Get(RoleIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint32)
	return id, ok
}

func GetSessionToken(c *gin.Context) string {
	return c.GetString(SessionTokenKey)
}

var errSessionNotFound = errors.New("session not found or expired")

// ValidateLoginToken authenticates the session-token header. The Redis mirror
// is consulted first; on a miss or a malformed entry the sessions table is
// the authority.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionHeader)
		if token == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session token not provided", Err: fmt.Errorf("missing %s header", SessionHeader)})
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
			c.Abort()
			return
		}

		if _, err := util.ParseSessionToken(token); err != nil {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid session token")
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid session token", Err: err})
			c.Abort()
			return
		}

		userID, roleID, err := util.LookupSession(c.Request.Context(), token)
		if err != nil || userID == 0 {
			userID, roleID, err = lookupSessionInDB(db, token)
		}
		if err != nil {
			if errors.Is(err, errSessionNotFound) {
				util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session expired, please log in again", Err: err})
			} else {
				util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate session", Err: err})
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(RoleIDKey, roleID)
		c.Set(SessionTokenKey, token)
		c.Next()
	}
}

func lookupSessionInDB(db *gorm.DB, token string) (uint, uint32, error) {
	var row struct {
		UserID uint
		RoleID uint32
	}
	err := db.Model(&model.Session{}).
		Select("sessions.user_id, users.role_id").
		Joins("JOIN users ON users.id = sessions.user_id AND users.deleted_at IS NULL").
		Where("sessions.session_token = ? AND sessions.expires_at > ? AND users.is_active = ?", token, time.Now(), true).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, errSessionNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return row.UserID, row.RoleID, nil
}

// RequireRole lets the request through only when the session's role is one
// of roles. It must run after ValidateLoginToken.
func RequireRole(roles ...uint32) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleID, ok := GetRoleID(c)
		if !ok {
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("role not found in context")})
			c.Abort()
			return
		}
		for _, r := range roles {
			if r == roleID {
				c.Next()
				return
			}
		}
		userID, _ := GetUserID(c)
		util.LogUnauthorizedAccess(fmt.Sprintf("%d", userID), "", c.ClientIP(), c.Request.URL.Path,
			fmt.Sprintf("role %s not allowed", model.RoleName(roleID)))
		util.CallForbidden(c, util.APIErrorParams{Msg: "You do not have access to this resource", Err: fmt.Errorf("forbidden for role %s", model.RoleName(roleID))})
		c.Abort()
	}
}
