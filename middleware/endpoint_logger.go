package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger records every request as an ENDPOINT_CALL security
// event once the handler has run.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		userID, _ := GetUserID(c)
		roleID, _ := GetRoleID(c)

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"query":       c.Request.URL.RawQuery,
		}
		var uid string
		if userID != 0 {
			details["user_id"] = userID
			uid = fmt.Sprintf("%d", userID)
		}
		if roleID != 0 {
			details["role_id"] = roleID
		}

		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventEndpointCall,
			UserID:    uid,
			Email:     util.GetUserEmail(GetDB(c), userID),
			Role:      model.RoleName(roleID),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Resource:  c.FullPath(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		})
	}
}
