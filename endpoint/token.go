package endpoint

import (
	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
)

type TokenStatus struct {
	UserID    uint   `json:"user_id" example:"1"`
	Role      string `json:"role" example:"doctor"`
	Name      string `json:"name" example:"Sita Karki"`
	ExpiresAt string `json:"expires_at" example:"2026-01-01T18:00:00Z"`
}

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Report whether the session token is valid and which role it carries
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=TokenStatus} "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := currentUserIDOrRespond(c)
	if !ok {
		return
	}
	roleID, _ := middleware.GetRoleID(c)

	status := TokenStatus{UserID: userID, Role: model.RoleName(roleID)}
	if claims, err := util.ParseSessionToken(middleware.GetSessionToken(c)); err == nil && claims.ExpiresAt != nil {
		status.ExpiresAt = claims.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	var user model.User
	if err := db.Select("name").Where("id = ?", userID).First(&user).Error; err == nil {
		status.Name = user.Name
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Valid session token", Data: status})
}
