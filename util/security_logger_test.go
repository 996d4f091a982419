package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// captureSecurityLog routes security events into a buffer for the test.
func captureSecurityLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev, prevDB := currentSecurityLogger()
	SetSecurityLogger(zerolog.New(buf))
	t.Cleanup(func() {
		SetSecurityLogger(prev)
		SetSecurityLoggerDB(prevDB)
	})
	return buf
}

func setupSecurityDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:security_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SecurityLog{}))
	return db
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"removes newlines", "hello\nworld", "hello world"},
		{"removes carriage returns", "hello\rworld", "hello world"},
		{"removes tabs", "hello\tworld", "hello world"},
		{"truncates long values", strings.Repeat("a", 250), strings.Repeat("a", 200) + "..."},
		{"handles normal strings", "normal string", "normal string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeLogValue(tt.input))
		})
	}
}

func TestLogSecurityEvent_WritesJSONLine(t *testing.T) {
	buf := captureSecurityLog(t)
	SetSecurityLoggerDB(nil)

	LogLoginFailure("sita\nadmin", "203.0.113.5", "curl/8", "invalid password")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "LOGIN_FAILURE", line["event"])
	assert.Equal(t, "sita admin", line["username"])
	assert.Equal(t, "203.0.113.5", line["ip"])
	assert.Equal(t, "Login failed: invalid password", line["message"])
}

func TestLogSecurityEvent_PersistsRow(t *testing.T) {
	captureSecurityLog(t)
	db := setupSecurityDB(t)
	SetSecurityLoggerDB(db)

	LogSecurityEvent(SecurityEvent{
		EventType: EventEndpointCall,
		UserID:    "3",
		IP:        "127.0.0.1",
		Message:   "GET /patient -> 200",
		Details:   map[string]interface{}{"status": 200},
	})

	var row model.SecurityLog
	require.NoError(t, db.Where("event_type = ?", "ENDPOINT_CALL").First(&row).Error)
	assert.Equal(t, "3", row.UserID)
	assert.Equal(t, "", row.Location)
	assert.JSONEq(t, `{"status":200}`, string(row.Details))
}

func TestLogHelpers(t *testing.T) {
	buf := captureSecurityLog(t)
	SetSecurityLoggerDB(nil)

	LogLoginSuccess(1, "a@b.np", "1.1.1.1", "ua")
	LogLogout(1, "a@b.np", "1.1.1.1", "ua")
	LogAccountLocked(1, "a@b.np", "1.1.1.1", "too many failed login attempts")
	LogUnauthorizedAccess("1", "a@b.np", "1.1.1.1", "/user", "wrong role")
	LogRateLimitExceeded("", "1.1.1.1", "/login")

	out := buf.String()
	for _, want := range []string{"LOGIN_SUCCESS", "LOGOUT", "ACCOUNT_LOCKED", "UNAUTHORIZED_ACCESS", "RATE_LIMIT_EXCEEDED"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 5, strings.Count(out, "\n"))
}

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "Kathmandu/Nepal", formatLocation("Kathmandu", "Nepal"))
	assert.Equal(t, "Nepal", formatLocation("", "Nepal"))
	assert.Equal(t, "Pokhara", formatLocation("Pokhara", ""))
	assert.Equal(t, "", formatLocation("", ""))
}

func TestSecurityLogger_ChainsOnCurrentLogger(t *testing.T) {
	buf := captureSecurityLog(t)

	SecurityLogger().Warn().Uint("user_id", 7).Msg("failed to mirror session in redis")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(7), line["user_id"])
	assert.Equal(t, "failed to mirror session in redis", line["message"])
}
