package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType names an audited desk event.
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventRegisterSuccess    SecurityEventType = "REGISTER_SUCCESS"
	EventLogout             SecurityEventType = "LOGOUT"
	EventAccountLocked      SecurityEventType = "ACCOUNT_LOCKED"
	EventAccountToggled     SecurityEventType = "ACCOUNT_TOGGLED"
	EventPasswordChanged    SecurityEventType = "PASSWORD_CHANGED"
	EventPasswordReset      SecurityEventType = "PASSWORD_RESET"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"
)

// SecurityEvent is written to the security log and, when a database is set,
// stored as a model.SecurityLog row.
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Username  string
	Email     string
	Role      string
	IP        string
	UserAgent string
	Resource  string
	Message   string
	Details   map[string]interface{}
}

// warnEvents are logged at warn level.
var warnEvents = map[SecurityEventType]bool{
	EventLoginFailure:       true,
	EventAccountLocked:      true,
	EventUnauthorizedAccess: true,
	EventRateLimitExceeded:  true,
	EventSuspiciousActivity: true,
}

var (
	securityMu     sync.RWMutex
	securityLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "security").Logger()
	securityDB     *gorm.DB
)

// SetSecurityLoggerDB sets the database security events are persisted to.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityMu.Lock()
	defer securityMu.Unlock()
	securityDB = db
}

// SetSecurityLogger replaces the zerolog logger security events are written to.
func SetSecurityLogger(l zerolog.Logger) {
	securityMu.Lock()
	defer securityMu.Unlock()
	securityLogger = l
}

// SecurityLogger returns a copy of the logger security events are written to.
func SecurityLogger() *zerolog.Logger {
	l, _ := currentSecurityLogger()
	return &l
}

func currentSecurityLogger() (zerolog.Logger, *gorm.DB) {
	securityMu.RLock()
	defer securityMu.RUnlock()
	return securityLogger, securityDB
}

// sanitizeLogValue flattens control whitespace and truncates long values.
func sanitizeLogValue(value string) string {
	value = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(value)
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

func formatLocation(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + "/" + country
	case country != "":
		return country
	default:
		return city
	}
}

// LogSecurityEvent writes the event to the security log and, when a database
// is configured, stores it as a SecurityLog row.
func LogSecurityEvent(event SecurityEvent) {
	logger, db := currentSecurityLogger()

	entry := logger.Info()
	if warnEvents[event.EventType] {
		entry = logger.Warn()
	}
	entry = entry.
		Str("event", string(event.EventType)).
		Str("user_id", sanitizeLogValue(event.UserID)).
		Str("username", sanitizeLogValue(event.Username)).
		Str("email", sanitizeLogValue(event.Email)).
		Str("ip", sanitizeLogValue(event.IP))
	if event.Role != "" {
		entry = entry.Str("role", event.Role)
	}
	if event.Resource != "" {
		entry = entry.Str("resource", sanitizeLogValue(event.Resource))
	}
	if event.UserAgent != "" {
		entry = entry.Str("user_agent", sanitizeLogValue(event.UserAgent))
	}
	if len(event.Details) > 0 {
		entry = entry.Int("details_count", len(event.Details))
	}
	entry.Msg(sanitizeLogValue(event.Message))

	if db == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	row := model.SecurityLog{
		EventType: string(event.EventType),
		UserID:    event.UserID,
		Username:  sanitizeLogValue(event.Username),
		Email:     sanitizeLogValue(event.Email),
		Role:      event.Role,
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(formatLocation(GetIPLocation(event.IP))),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Resource:  sanitizeLogValue(event.Resource),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := db.Create(&row).Error; err != nil {
		logger.Error().Err(err).Str("event", string(event.EventType)).Msg("failed to persist security event")
	}
}

func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure records a failed login against the username that was typed.
func LogLoginFailure(username, ip, userAgent, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Username:  username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

func LogLogout(userID uint, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged out",
	})
}

func LogAccountLocked(userID uint, email, ip string, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAccountLocked,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Account locked: %s", reason),
	})
}

func LogUnauthorizedAccess(userID string, email, ip, resource, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		UserID:    userID,
		Email:     email,
		IP:        ip,
		Resource:  resource,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

func LogRateLimitExceeded(email, ip, endpoint string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		Email:     email,
		IP:        ip,
		Resource:  endpoint,
		Message:   fmt.Sprintf("Too many requests to %s", endpoint),
	})
}
