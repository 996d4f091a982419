package router_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/router"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	config.ResetConfigForTest()
	gin.SetMode(gin.TestMode)
	util.SetJWTSecret("router-test-secret")
	util.SetSecurityLogger(zerolog.Nop())
	os.Exit(m.Run())
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := config.ConnectDatabase()
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return router.SetupRouter(db, router.Options{})
}

func TestSetupRouter_RegistersRoutes(t *testing.T) {
	r := setupRouter(t)

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	want := []string{
		"GET /", "GET /departments", "GET /captcha",
		"POST /login", "POST /register", "POST /password/forgot",
		"GET /preferences/:device_id", "PUT /preferences/:device_id",
		"DELETE /logout", "GET /token/validate", "PATCH /user/password",
		"POST /user", "GET /user", "GET /user/:id", "PATCH /user/:id", "DELETE /user/:id",
		"PATCH /user/:id/toggle-active", "GET /staff", "GET /doctors",
		"POST /patient", "GET /patient", "GET /patient/:code", "PATCH /patient/:code", "DELETE /patient/:code",
		"GET /patient/:code/history", "GET /doctors/by-department",
		"POST /appointment", "GET /appointment", "PATCH /appointment/:id/reschedule", "DELETE /appointment/:id",
		"GET /doctor/appointments", "POST /appointment/:id/prescription",
		"POST /admission", "GET /admission", "PATCH /admission/:id", "PATCH /admission/:id/discharge", "DELETE /admission/:id",
		"GET /bill/next-invoice", "POST /bill", "GET /bill",
	}
	for _, route := range want {
		assert.True(t, registered[route], "route %s is not registered", route)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/user"},
		{http.MethodGet, "/patient"},
		{http.MethodPost, "/appointment"},
		{http.MethodGet, "/doctor/appointments"},
		{http.MethodGet, "/bill/next-invoice"},
		{http.MethodDelete, "/logout"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/patient", nil)
	req.Header.Set("session-token", "not-a-jwt")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicRoutesAnswerWithoutSession(t *testing.T) {
	r := setupRouter(t)

	for _, path := range []string{"/", "/departments", "/preferences/kiosk-1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
