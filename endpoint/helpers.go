package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ariebrainware/hospital-desk/captcha"
	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type clientInfo struct {
	IP    string
	Agent string
}

func clientOf(c *gin.Context) clientInfo {
	return clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func currentUserIDOrRespond(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("user id not found in context")})
		return 0, false
	}
	return userID, true
}

// parseIDParam parses the "id" path parameter into a positive uint.
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("id must be a valid integer")
	}
	if id == 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return uint(id), nil
}

func idParamOrRespond(c *gin.Context) (uint, bool) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return 0, false
	}
	return id, true
}

// parsePositiveInt parses a positive integer from a query value returning a default
// when the value is missing or invalid. If max > 0 it caps the returned value.
func parsePositiveInt(q string, defaultVal, max int) int {
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// parseUintQuery returns 0 for a missing, invalid or zero value.
func parseUintQuery(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func likePattern(keyword string) string {
	return "%" + keyword + "%"
}

// findOrRespond loads one row matching query into dst. It answers 404 with
// notFoundMsg when nothing matches.
func findOrRespond(c *gin.Context, query *gorm.DB, dst interface{}, notFoundMsg string) bool {
	if err := query.First(dst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: notFoundMsg, Err: err})
			return false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return false
	}
	return true
}

func loadPatientOrRespond(c *gin.Context, db *gorm.DB, code string) (model.Patient, bool) {
	var patient model.Patient
	ok := findOrRespond(c, db.Where("patient_code = ?", code), &patient, "Patient not found")
	return patient, ok
}

var (
	captchaMu  sync.Mutex
	captchaSvc *captcha.Service
)

// SetCaptchaService installs the captcha service used by the login flow.
func SetCaptchaService(s *captcha.Service) {
	captchaMu.Lock()
	defer captchaMu.Unlock()
	captchaSvc = s
}

// captchaService returns the installed service, falling back to an
// in-memory store.
func captchaService() *captcha.Service {
	captchaMu.Lock()
	defer captchaMu.Unlock()
	if captchaSvc == nil {
		captchaSvc = captcha.NewService(captcha.NewMemoryStore(), config.LoadConfig().CaptchaTTL)
	}
	return captchaSvc
}
