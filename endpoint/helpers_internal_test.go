package endpoint

import (
	"testing"

	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFormatAgeSex(t *testing.T) {
	age, sex, blank := 42, "Male", "  "
	assert.Equal(t, "42 / Male", formatAgeSex(&age, &sex))
	assert.Equal(t, "42 / N/A", formatAgeSex(&age, nil))
	assert.Equal(t, "N/A / Male", formatAgeSex(nil, &sex))
	assert.Equal(t, "N/A / N/A", formatAgeSex(nil, &blank))
}

func TestResolveRecipient(t *testing.T) {
	tests := []struct {
		name      string
		send      bool
		requested string
		stored    string
		want      string
		wantErr   error
	}{
		{"not sending", false, "", "", "", nil},
		{"request wins", true, "a@example.com", "b@example.com", "a@example.com", nil},
		{"falls back to stored", true, " ", "b@example.com", "b@example.com", nil},
		{"nothing usable", true, "", "", "", ErrNoRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRecipient(tt.send, tt.requested, tt.stored)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveRecipient(true, "not-an-email", "")
	assert.Error(t, err)
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "sita.karki", usernameFromEmail(" sita.karki@example.com "))
	assert.Equal(t, "plain", usernameFromEmail("plain"))
	assert.Equal(t, "@odd", usernameFromEmail("@odd"))
}

func TestParsePositiveInt(t *testing.T) {
	assert.Equal(t, 50, parsePositiveInt("", 50, 500))
	assert.Equal(t, 50, parsePositiveInt("abc", 50, 500))
	assert.Equal(t, 50, parsePositiveInt("-3", 50, 500))
	assert.Equal(t, 20, parsePositiveInt("20", 50, 500))
	assert.Equal(t, 500, parsePositiveInt("9000", 50, 500))
	assert.Equal(t, 9000, parsePositiveInt("9000", 0, 0))
}

func TestRandomPatientCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := randomPatientCode()
		require.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0])
	}
}

func TestMergeUpdate(t *testing.T) {
	nmc, dept := "A1", "Cardiology"
	stored := model.User{
		Name: "Sita Karki", Address: "Lalitpur", Phone: "9779812345678",
		Email: "sita@example.com", Username: "sita", RoleID: model.RoleDoctor,
		NMCNumber: &nmc, Department: &dept,
	}

	newName := "Sita K"
	form, err := mergeUpdate(stored, UpdateUserRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Sita K", form.Name)
	assert.Equal(t, "9812345678", form.Phone)
	assert.Equal(t, "A1", form.NMCNumber)
	assert.Equal(t, "Cardiology", form.Department)
	assert.Equal(t, model.RoleDoctor, form.RoleID)

	staff := "Staff"
	form, err = mergeUpdate(stored, UpdateUserRequest{Role: &staff})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, form.RoleID)

	phone, err := form.validate()
	require.NoError(t, err)
	var user model.User
	form.apply(&user, phone)
	assert.Nil(t, user.NMCNumber)
	assert.Nil(t, user.Department)
	assert.Equal(t, "staff", user.Role)

	nurse := "nurse"
	_, err = mergeUpdate(stored, UpdateUserRequest{Role: &nurse})
	assert.Error(t, err)
}

func setupInternalDB(t *testing.T) *gorm.DB {
	t.Helper()
	t.Setenv("APPENV", "test")
	db, err := config.ConnectDatabase()
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, model.Migrate(db))
	return db
}

func TestOccupiedBedIsUniqueWhileAdmitted(t *testing.T) {
	db := setupInternalDB(t)
	bed := "W2-14"
	first := model.Admission{PatientCode: "111111", BedNo: bed, Status: model.AdmissionAdmitted, OccupiedBed: &bed}
	require.NoError(t, db.Create(&first).Error)

	// A second admit that slipped past the count check is still rejected.
	second := model.Admission{PatientCode: "222222", BedNo: bed, Status: model.AdmissionAdmitted, OccupiedBed: &bed}
	err := occupancyError(db.Create(&second).Error)
	assert.ErrorIs(t, err, ErrBedOccupied)

	require.NoError(t, db.Model(&first).Updates(map[string]interface{}{
		"status": model.AdmissionDischarged, "occupied_bed": nil,
	}).Error)
	third := model.Admission{PatientCode: "333333", BedNo: bed, Status: model.AdmissionAdmitted, OccupiedBed: &bed}
	assert.NoError(t, occupancyError(db.Create(&third).Error))

	discharged := model.Admission{PatientCode: "444444", BedNo: bed, Status: model.AdmissionDischarged}
	assert.NoError(t, db.Create(&discharged).Error)
}

func TestCreatePatientWithCode_RetriesTakenCode(t *testing.T) {
	db := setupInternalDB(t)

	attempts := 0
	taken := ""
	// Insert a rival row with the same code right before the first write.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("desk:take_code", func(tx *gorm.DB) {
		p, ok := tx.Statement.Dest.(*model.Patient)
		if !ok || p.Name != "Asha" {
			return
		}
		attempts++
		if taken != "" {
			return
		}
		taken = p.PatientCode
		tx.Session(&gorm.Session{NewDB: true}).Create(&model.Patient{PatientCode: p.PatientCode, Name: "Rival"})
	}))

	patient := model.Patient{Name: "Asha", Age: 30}
	require.NoError(t, createPatientWithCode(db, &patient))
	assert.Equal(t, 2, attempts)
	assert.NotEmpty(t, taken)
	assert.Len(t, patient.PatientCode, 6)

	var stored model.Patient
	require.NoError(t, db.Where("name = ?", "Asha").First(&stored).Error)
	assert.Equal(t, patient.PatientCode, stored.PatientCode)
}
