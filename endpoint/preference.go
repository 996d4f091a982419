package endpoint

import (
	"errors"
	"strings"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errInvalidDevice = errors.New("device id must be 1-64 characters")
	errInvalidRole   = errors.New("role must be admin, doctor or staff")
)

type RememberedLogin struct {
	Remember bool   `json:"remember" example:"true"`
	Username string `json:"username" example:"sita.karki"`
	Role     string `json:"role" example:"doctor"`
}

func deviceIDOrRespond(c *gin.Context) (string, bool) {
	device := strings.TrimSpace(c.Param("device_id"))
	if device == "" || len(device) > 64 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid device id", Err: errInvalidDevice})
		return "", false
	}
	return device, true
}

// GetPreferences godoc
// @Summary      Remembered login
// @Description  Username and role remembered for a device. Passwords are never stored.
// @Tags         Preferences
// @Produce      json
// @Param        device_id path string true "Client device id"
// @Success      200 {object} util.APIResponse{data=RememberedLogin} "Preferences retrieved"
// @Router       /preferences/{device_id} [get]
func GetPreferences(c *gin.Context) {
	device, ok := deviceIDOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var prefs []model.Preference
	if err := db.Where("device_id = ?", device).Find(&prefs).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load preferences", Err: err})
		return
	}

	var out RememberedLogin
	for _, p := range prefs {
		switch p.Key {
		case model.PreferenceUsername:
			out.Username = p.Value
		case model.PreferenceRole:
			out.Role = p.Value
		}
	}
	out.Remember = out.Username != ""
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Preferences retrieved", Data: out})
}

// PutPreferences godoc
// @Summary      Remember or forget a login
// @Tags         Preferences
// @Accept       json
// @Produce      json
// @Param        device_id path string true "Client device id"
// @Param        request body RememberedLogin true "Remember me settings"
// @Success      200 {object} util.APIResponse{data=RememberedLogin} "Preferences saved"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Router       /preferences/{device_id} [put]
func PutPreferences(c *gin.Context) {
	device, ok := deviceIDOrRespond(c)
	if !ok {
		return
	}
	var req RememberedLogin
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if !req.Remember {
		if err := db.Unscoped().Where("device_id = ?", device).Delete(&model.Preference{}).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to clear preferences", Err: err})
			return
		}
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Preferences cleared", Data: RememberedLogin{}})
		return
	}

	if _, valid := model.RoleIDFromName(req.Role); !valid {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: errInvalidRole})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	rows := []model.Preference{
		{DeviceID: device, Key: model.PreferenceUsername, Value: req.Username},
		{DeviceID: device, Key: model.PreferenceRole, Value: req.Role},
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save preferences", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Preferences saved", Data: req})
}
