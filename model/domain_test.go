package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCreatesAllTables(t *testing.T) {
	db := setupTestDB(t, "migrate")

	require.NoError(t, Migrate(db))

	for _, m := range AllModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	var count int64
	require.NoError(t, db.Model(&Role{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestPatientModel_CodeUnique(t *testing.T) {
	db := setupTestDB(t, "patients", &Patient{})

	require.NoError(t, db.Create(&Patient{PatientCode: "123456", Name: "Ram", Age: 40}).Error)
	assert.Error(t, db.Create(&Patient{PatientCode: "123456", Name: "Shyam", Age: 20}).Error)
}

func TestAppointmentModel_DefaultStatus(t *testing.T) {
	db := setupTestDB(t, "appointments", &Appointment{})

	appt := Appointment{PatientCode: "123456", DoctorName: "Dr. A", ApptDate: "2026-10-20"}
	require.NoError(t, db.Create(&appt).Error)

	var found Appointment
	require.NoError(t, db.First(&found, appt.ID).Error)
	assert.Equal(t, AppointmentPending, found.Status)
}

func TestAdmissionModel_Discharge(t *testing.T) {
	db := setupTestDB(t, "admissions", &Admission{})

	adm := Admission{PatientCode: "123456", BedNo: "B-1", Status: AdmissionAdmitted, AdmitDate: "2026-10-01"}
	require.NoError(t, db.Create(&adm).Error)
	assert.Nil(t, adm.DischargeDate)

	today := "2026-10-05"
	require.NoError(t, db.Model(&adm).Updates(Admission{Status: AdmissionDischarged, DischargeDate: &today}).Error)

	var found Admission
	require.NoError(t, db.First(&found, adm.ID).Error)
	assert.Equal(t, AdmissionDischarged, found.Status)
	require.NotNil(t, found.DischargeDate)
	assert.Equal(t, today, *found.DischargeDate)
}

func TestBillItemTotal(t *testing.T) {
	assert.Equal(t, 1500.0, BillItem{Name: "X-Ray", Qty: 3, Rate: 500}.Total())
	assert.Equal(t, 0.0, BillItem{Name: "Free", Qty: 2, Rate: 0}.Total())
}

func TestPreferenceModel_DeviceKeyUnique(t *testing.T) {
	db := setupTestDB(t, "preferences", &Preference{})

	require.NoError(t, db.Create(&Preference{DeviceID: "dev-1", Key: PreferenceUsername, Value: "sita"}).Error)
	require.NoError(t, db.Create(&Preference{DeviceID: "dev-1", Key: PreferenceRole, Value: "doctor"}).Error)
	assert.Error(t, db.Create(&Preference{DeviceID: "dev-1", Key: PreferenceUsername, Value: "hari"}).Error)
}

func TestDepartments(t *testing.T) {
	assert.Len(t, Departments, 36)
	assert.True(t, IsDepartment("Cardiology"))
	assert.True(t, IsDepartment("Emergency / Casualty"))
	assert.False(t, IsDepartment("cardiology"))
	assert.False(t, IsDepartment(""))
}

func TestPriceBill(t *testing.T) {
	bill, err := PriceBill([]BillItem{
		{Name: "X-Ray", Qty: 1, Rate: 500},
		{Name: "Blood Test", Qty: 2, Rate: 250.5},
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, "X-Ray, Blood Test", bill.Particulars)
	assert.Equal(t, 1001.0, bill.Subtotal)
	assert.Equal(t, 10.0, bill.Discount)
	assert.Equal(t, 900.9, bill.TotalAmount)
}

func TestPriceBill_Rounding(t *testing.T) {
	bill, err := PriceBill([]BillItem{{Name: "Consultation", Qty: 3, Rate: 33.33}}, 12.5)
	require.NoError(t, err)
	assert.Equal(t, 99.99, bill.Subtotal)
	assert.Equal(t, 87.49, bill.TotalAmount)
}

func TestPriceBill_Errors(t *testing.T) {
	_, err := PriceBill(nil, 0)
	assert.ErrorIs(t, err, ErrNoBillItems)

	_, err = PriceBill([]BillItem{{Name: "A", Qty: 0, Rate: 1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = PriceBill([]BillItem{{Name: "A", Qty: 1, Rate: -1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = PriceBill([]BillItem{{Name: "A", Qty: 1, Rate: 1}}, 100.5)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = PriceBill([]BillItem{{Name: "A", Qty: 1, Rate: 1}}, -1)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = PriceBill([]BillItem{{Name: " ", Qty: 1, Rate: 1}}, 0)
	assert.Error(t, err)

	bill, err := PriceBill([]BillItem{{Name: "Free", Qty: 1, Rate: 0}}, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, bill.TotalAmount)
}
