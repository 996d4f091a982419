package endpoint

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	patientCodeMin      = 100000
	patientCodeSpan     = 900000
	patientCodeAttempts = 10
	defaultPatientLimit = 50
)

var (
	ErrPatientNameRequired = errors.New("patient name is required")
	ErrInvalidAge          = errors.New("age must be a positive number")
	ErrPatientCodeExhaust  = errors.New("could not allocate a unique patient code")
)

func randomPatientCode() string {
	return strconv.Itoa(patientCodeMin + rand.IntN(patientCodeSpan))
}

// allocatePatientCode finds an unused code inside tx. Soft deleted rows keep
// their code reserved.
func allocatePatientCode(tx *gorm.DB) (string, error) {
	for i := 0; i < patientCodeAttempts; i++ {
		code := randomPatientCode()
		var count int64
		if err := tx.Unscoped().Model(&model.Patient{}).Where("patient_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrPatientCodeExhaust
}

// createPatientWithCode stores patient under a fresh code. A code taken by a
// concurrent insert between the check and the write is retried.
func createPatientWithCode(db *gorm.DB, patient *model.Patient) error {
	for i := 0; i < patientCodeAttempts; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			code, err := allocatePatientCode(tx)
			if err != nil {
				return err
			}
			patient.PatientCode = code
			return tx.Create(patient).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return ErrPatientCodeExhaust
}

type PatientRequest struct {
	Name       string `json:"name" binding:"required" example:"Ram Bahadur"`
	Address    string `json:"address" example:"Kathmandu"`
	Phone      string `json:"phone" binding:"required" example:"9812345678"`
	NationalID string `json:"national_id" example:"12-34-56"`
	Age        int    `json:"age" binding:"required" example:"42"`
	Sex        string `json:"sex" example:"Male"`
	Email      string `json:"email" example:"ram@gmail.com"`
}

// toPatient validates the request and returns the row to store.
func (r PatientRequest) toPatient() (model.Patient, error) {
	name := util.NormalizeName(r.Name)
	if name == "" {
		return model.Patient{}, ErrPatientNameRequired
	}
	if r.Age <= 0 {
		return model.Patient{}, ErrInvalidAge
	}
	phone, err := util.NormalizePhone(strings.TrimSpace(r.Phone))
	if err != nil {
		return model.Patient{}, err
	}
	email := strings.TrimSpace(r.Email)
	if email != "" {
		if err := util.ValidateEmail(email); err != nil {
			return model.Patient{}, err
		}
	}
	return model.Patient{
		Name:       name,
		Address:    strings.TrimSpace(r.Address),
		Phone:      phone,
		NationalID: strings.TrimSpace(r.NationalID),
		Age:        r.Age,
		Sex:        strings.TrimSpace(r.Sex),
		Email:      email,
	}, nil
}

// CreatePatient godoc
// @Summary      Register a patient
// @Description  Store a new patient under a random six digit patient code
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body PatientRequest true "Patient details"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient registered"
// @Failure      400 {object} util.APIResponse "Validation error"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient [post]
func CreatePatient(c *gin.Context) {
	var req PatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	patient, err := req.toPatient()
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if err := createPatientWithCode(db, &patient); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to register patient", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  fmt.Sprintf("Patient Registered. ID: %s", patient.PatientCode),
		Data: patient,
	})
}

// ListPatients godoc
// @Summary      List patients
// @Description  Newest patients first, optionally filtered by name, code or phone
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        keyword query string false "Search keyword for name, code or phone"
// @Param        limit query int false "Limit number of results (default 50, max 500)"
// @Param        offset query int false "Offset for pagination"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient [get]
func ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	limit := parsePositiveInt(c.Query("limit"), defaultPatientLimit, 500)
	offset := parsePositiveInt(c.Query("offset"), 0, 0)

	query := db.Model(&model.Patient{})
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		kw := likePattern(keyword)
		query = query.Where("name LIKE ? OR patient_code LIKE ? OR phone LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count patients", Err: err})
		return
	}

	var patients []model.Patient
	if err := query.Order("patient_code DESC").Limit(limit).Offset(offset).Find(&patients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: map[string]interface{}{"total": total, "total_fetched": len(patients), "patients": patients},
	})
}

// GetPatient godoc
// @Summary      Get patient by code
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        code path string true "Patient code"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient retrieved"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Router       /patient/{code} [get]
func GetPatient(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := loadPatientOrRespond(c, db, c.Param("code"))
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient retrieved", Data: patient})
}

type UpdatePatientRequest struct {
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	NationalID *string `json:"national_id"`
	Age        *int    `json:"age"`
	Sex        *string `json:"sex"`
	Email      *string `json:"email"`
}

// merge overlays the supplied fields on the stored patient as a full request.
func (r UpdatePatientRequest) merge(p model.Patient) PatientRequest {
	req := PatientRequest{
		Name:       p.Name,
		Address:    p.Address,
		Phone:      strings.TrimPrefix(p.Phone, util.PhonePrefix),
		NationalID: p.NationalID,
		Age:        p.Age,
		Sex:        p.Sex,
		Email:      p.Email,
	}
	if r.Name != nil {
		req.Name = *r.Name
	}
	if r.Address != nil {
		req.Address = *r.Address
	}
	if r.Phone != nil {
		req.Phone = *r.Phone
	}
	if r.NationalID != nil {
		req.NationalID = *r.NationalID
	}
	if r.Age != nil {
		req.Age = *r.Age
	}
	if r.Sex != nil {
		req.Sex = *r.Sex
	}
	if r.Email != nil {
		req.Email = *r.Email
	}
	return req
}

// UpdatePatient godoc
// @Summary      Update patient
// @Description  Change any subset of a patient's details
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        code path string true "Patient code"
// @Param        request body UpdatePatientRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient updated"
// @Failure      400 {object} util.APIResponse "Validation error"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Router       /patient/{code} [patch]
func UpdatePatient(c *gin.Context) {
	var req UpdatePatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := loadPatientOrRespond(c, db, c.Param("code"))
	if !ok {
		return
	}

	updated, err := req.merge(patient).toPatient()
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	err = db.Model(&patient).Select("name", "address", "phone", "national_id", "age", "sex", "email").Updates(&updated).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update patient", Err: err})
		return
	}

	updated.Model = patient.Model
	updated.PatientCode = patient.PatientCode
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient updated", Data: updated})
}

// DeletePatient godoc
// @Summary      Delete patient
// @Description  Remove the patient record. Appointments, admissions and bills are kept.
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        code path string true "Patient code"
// @Success      200 {object} util.APIResponse "Patient deleted"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Router       /patient/{code} [delete]
func DeletePatient(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := loadPatientOrRespond(c, db, c.Param("code"))
	if !ok {
		return
	}
	if err := db.Unscoped().Delete(&patient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete patient", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient deleted"})
}

// PatientHistory godoc
// @Summary      Prescription history
// @Description  Every prescription written for the patient, newest first
// @Tags         Doctor
// @Produce      json
// @Security     SessionToken
// @Param        code path string true "Patient code"
// @Success      200 {object} util.APIResponse{data=[]model.Prescription} "History retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/{code}/history [get]
func PatientHistory(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var history []model.Prescription
	err := db.Where("patient_code = ?", c.Param("code")).
		Order("prescribed_date DESC").Order("id DESC").
		Find(&history).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve history", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "History retrieved", Data: history})
}
