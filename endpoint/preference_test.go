package endpoint_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ariebrainware/hospital-desk/endpoint"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferences(t *testing.T) {
	env := setupEndpointTest(t)
	path := "/preferences/tablet-7"

	w, resp := env.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got endpoint.RememberedLogin
	decodeData(t, resp, &got)
	assert.False(t, got.Remember)

	w, _ = env.do(http.MethodPut, path, endpoint.RememberedLogin{Remember: true, Username: "sita", Role: "Doctor"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = env.do(http.MethodPut, path, endpoint.RememberedLogin{Remember: true, Username: "ram", Role: "staff"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = env.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, resp, &got)
	assert.Equal(t, endpoint.RememberedLogin{Remember: true, Username: "ram", Role: "staff"}, got)

	var rows int64
	env.db.Model(&model.Preference{}).Where("device_id = ?", "tablet-7").Count(&rows)
	assert.Equal(t, int64(2), rows)

	w, _ = env.do(http.MethodPut, path, endpoint.RememberedLogin{Remember: false}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	got = endpoint.RememberedLogin{}
	decodeData(t, resp, &got)
	assert.False(t, got.Remember)
	assert.Empty(t, got.Username)
}

func TestPreferences_Invalid(t *testing.T) {
	env := setupEndpointTest(t)

	w, _ := env.do(http.MethodPut, "/preferences/tablet-7", endpoint.RememberedLogin{Remember: true, Username: "x", Role: "nurse"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(http.MethodGet, "/preferences/"+strings.Repeat("d", 65), nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
