package endpoint_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admit(t *testing.T, env *testEnv, token string, p model.Patient, bed string) (int, model.Admission, apiResp) {
	t.Helper()
	w, resp := env.do(http.MethodPost, "/admission", map[string]string{
		"patient_code": p.PatientCode, "bed_no": bed, "disease": "Pneumonia",
	}, token)
	var a model.Admission
	if w.Code == http.StatusOK {
		decodeData(t, resp, &a)
	}
	return w.Code, a, resp
}

func TestAdmitPatient_BedOccupancy(t *testing.T) {
	env := setupEndpointTest(t)
	_, token := env.loginAs(model.RoleStaff, "desk1")
	asha := env.createPatient("Asha", 30, "Female", "")
	bikash := env.createPatient("Bikash", 25, "Male", "")

	code, first, _ := admit(t, env, token, asha, " W2-14 ")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "W2-14", first.BedNo)
	assert.Equal(t, model.AdmissionAdmitted, first.Status)
	assert.Equal(t, "Asha", first.PatientName)
	assert.NotEmpty(t, first.AdmitDate)
	assert.Nil(t, first.DischargeDate)

	code, _, resp := admit(t, env, token, bikash, "W2-14")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bed is already occupied", resp.Msg)

	code, _, _ = admit(t, env, token, model.Patient{PatientCode: "000001"}, "W2-15")
	assert.Equal(t, http.StatusNotFound, code)

	w, resp := env.do(http.MethodPatch, fmt.Sprintf("/admission/%d/discharge", first.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var discharged model.Admission
	decodeData(t, resp, &discharged)
	assert.Equal(t, model.AdmissionDischarged, discharged.Status)
	require.NotNil(t, discharged.DischargeDate)

	w, resp = env.do(http.MethodPatch, fmt.Sprintf("/admission/%d/discharge", first.ID), nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Already Discharged", resp.Msg)

	code, _, _ = admit(t, env, token, bikash, "W2-14")
	assert.Equal(t, http.StatusOK, code)
}

func TestUpdateAdmission(t *testing.T) {
	env := setupEndpointTest(t)
	_, token := env.loginAs(model.RoleStaff, "desk1")
	asha := env.createPatient("Asha", 30, "Female", "")
	bikash := env.createPatient("Bikash", 25, "Male", "")

	_, a, _ := admit(t, env, token, asha, "W1")
	_, b, _ := admit(t, env, token, bikash, "W2")
	pathA := fmt.Sprintf("/admission/%d", a.ID)

	w, resp := env.do(http.MethodPatch, pathA, map[string]string{"bed_no": "W2"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bed is already occupied", resp.Msg)

	w, _ = env.do(http.MethodPatch, pathA, map[string]string{"bed_no": "  "}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(http.MethodPatch, pathA, map[string]string{"bed_no": "W1", "disease": "Asthma"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var same model.Admission
	decodeData(t, resp, &same)
	assert.Equal(t, "W1", same.BedNo)
	assert.Equal(t, "Asthma", same.Disease)

	w, _ = env.do(http.MethodPatch, fmt.Sprintf("/admission/%d/discharge", b.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(http.MethodPatch, pathA, map[string]string{"bed_no": "W2"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved model.Admission
	decodeData(t, resp, &moved)
	assert.Equal(t, "W2", moved.BedNo)
	assert.Equal(t, "Asthma", moved.Disease)

	w, _ = env.do(http.MethodPatch, "/admission/9999", map[string]string{"disease": "x"}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAndDeleteAdmissions(t *testing.T) {
	env := setupEndpointTest(t)
	_, token := env.loginAs(model.RoleStaff, "desk1")
	asha := env.createPatient("Asha", 30, "Female", "")
	bikash := env.createPatient("Bikash", 25, "Male", "")
	_, a, _ := admit(t, env, token, asha, "W1")
	_, b, _ := admit(t, env, token, bikash, "W2")

	w, resp := env.do(http.MethodGet, "/admission", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Admission
	decodeData(t, resp, &list)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	w, _ = env.do(http.MethodDelete, fmt.Sprintf("/admission/%d", a.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(http.MethodDelete, fmt.Sprintf("/admission/%d", a.ID), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The deleted row no longer holds its bed.
	code, _, _ := admit(t, env, token, asha, "W1")
	assert.Equal(t, http.StatusOK, code)

	w, _ = env.do(http.MethodDelete, "/admission/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
