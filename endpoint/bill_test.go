package endpoint_test

import (
	"net/http"
	"testing"

	"github.com/ariebrainware/hospital-desk/endpoint"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billBody(p model.Patient, discount float64) map[string]interface{} {
	return map[string]interface{}{
		"patient_code": p.PatientCode,
		"items": []map[string]interface{}{
			{"name": "X-Ray", "qty": 1, "rate": 500},
			{"name": "Blood Test", "qty": 2, "rate": 250.5},
		},
		"discount": discount,
	}
}

func TestCreateBill(t *testing.T) {
	env := setupEndpointTest(t)
	_, token := env.loginAs(model.RoleStaff, "desk1")
	p := env.createPatient("Asha", 30, "Female", "asha@example.com")

	w, resp := env.do(http.MethodGet, "/bill/next-invoice", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var next map[string]uint
	decodeData(t, resp, &next)
	assert.Equal(t, uint(1), next["invoice_no"])

	body := billBody(p, 10)
	body["send_email"] = true
	w, resp = env.do(http.MethodPost, "/bill", body, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out endpoint.CreateBillResponse
	decodeData(t, resp, &out)
	assert.Equal(t, uint(1), out.Bill.ID)
	assert.Equal(t, "X-Ray, Blood Test", out.Bill.Particulars)
	assert.InDelta(t, 1001.0, out.Bill.Subtotal, 0.001)
	assert.InDelta(t, 900.9, out.Bill.TotalAmount, 0.001)
	assert.Contains(t, out.Invoice, "Invoice #: 1")
	assert.Contains(t, out.Invoice, "GRAND TOTAL: 900.90")
	assert.True(t, out.Emailed)

	sent := env.waitForMail(1)
	assert.Equal(t, "asha@example.com", sent[0].To)
	assert.Equal(t, "Hospital Invoice #1", sent[0].Subject)
	assert.Equal(t, out.Invoice, sent[0].Body)

	w, resp = env.do(http.MethodGet, "/bill/next-invoice", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, resp, &next)
	assert.Equal(t, uint(2), next["invoice_no"])
}

func TestCreateBill_Validation(t *testing.T) {
	env := setupEndpointTest(t)
	_, token := env.loginAs(model.RoleStaff, "desk1")
	p := env.createPatient("Asha", 30, "Female", "")

	noItems := billBody(p, 0)
	noItems["items"] = []map[string]interface{}{}
	zeroQty := billBody(p, 0)
	zeroQty["items"] = []map[string]interface{}{{"name": "X-Ray", "qty": 0, "rate": 500}}
	unknown := billBody(p, 0)
	unknown["patient_code"] = "000001"
	wantsEmail := billBody(p, 0)
	wantsEmail["send_email"] = true

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"no items", noItems, http.StatusBadRequest},
		{"zero quantity", zeroQty, http.StatusBadRequest},
		{"discount above 100", billBody(p, 120), http.StatusBadRequest},
		{"negative discount", billBody(p, -5), http.StatusBadRequest},
		{"unknown patient", unknown, http.StatusNotFound},
		{"email without address", wantsEmail, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := env.do(http.MethodPost, "/bill", tt.body, token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	var count int64
	env.db.Model(&model.Bill{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, env.mail.Sent())
}

func TestListBills(t *testing.T) {
	env := setupEndpointTest(t)
	_, token := env.loginAs(model.RoleStaff, "desk1")
	asha := env.createPatient("Asha", 30, "Female", "")
	bikash := env.createPatient("Bikash", 25, "Male", "")

	for _, p := range []model.Patient{asha, bikash} {
		w, _ := env.do(http.MethodPost, "/bill", billBody(p, 0), token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w, resp := env.do(http.MethodGet, "/bill", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var bills []model.Bill
	decodeData(t, resp, &bills)
	require.Len(t, bills, 2)
	assert.Equal(t, "Bikash", bills[0].PatientName)

	w, resp = env.do(http.MethodGet, "/bill?keyword="+asha.PatientCode, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, resp, &bills)
	require.Len(t, bills, 1)
	assert.Equal(t, "Asha", bills[0].PatientName)
}
