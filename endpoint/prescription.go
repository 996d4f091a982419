package endpoint

import (
	"errors"
	"strings"

	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/notification"
	"github.com/ariebrainware/hospital-desk/receipt"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var ErrAlreadyAdvised = errors.New("patient already advised for this appointment")

type PrescriptionRequest struct {
	Diagnosis string `json:"diagnosis" binding:"required" example:"Viral fever"`
	Medicines string `json:"medicines" binding:"required" example:"Paracetamol 500mg TDS x 3 days"`
	Advice    string `json:"advice" example:"Rest and fluids"`
	SendEmail bool   `json:"send_email" example:"false"`
}

type PrescriptionResponse struct {
	Prescription model.Prescription `json:"prescription"`
	Slip         string             `json:"slip"`
	Emailed      bool               `json:"emailed"`
}

func isAdvised(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), model.AppointmentAdvised)
}

// savePrescription inserts rx and marks the appointment advised in one
// transaction. The status guard in the UPDATE closes the double-submit race.
func savePrescription(db *gorm.DB, appt model.Appointment, rx *model.Prescription) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Appointment{}).
			Where("id = ? AND LOWER(status) <> ?", appt.ID, strings.ToLower(model.AppointmentAdvised)).
			Update("status", model.AppointmentAdvised)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAdvised
		}
		return tx.Create(rx).Error
	})
}

// WritePrescription godoc
// @Summary      Write prescription
// @Description  Record a prescription for one of the caller's appointments and mark it advised
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Param        request body PrescriptionRequest true "Prescription"
// @Success      200 {object} util.APIResponse{data=PrescriptionResponse} "Prescription saved"
// @Failure      400 {object} util.APIResponse "Already advised or missing patient email"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointment/{id}/prescription [post]
func WritePrescription(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	var req PrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctorID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: errors.New("user id not found in context")})
		return
	}

	var appt model.Appointment
	if !findOrRespond(c, db.Where("id = ? AND doctor_id = ?", id, doctorID), &appt, "Appointment not found") {
		return
	}
	if isAdvised(appt.Status) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Patient already advised", Err: ErrAlreadyAdvised})
		return
	}

	var patientEmail string
	var patient model.Patient
	if err := db.Where("patient_code = ?", appt.PatientCode).First(&patient).Error; err == nil {
		patientEmail = patient.Email
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}
	to, err := resolveRecipient(req.SendEmail, "", patientEmail)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Patient has no email address", Err: err})
		return
	}

	rx := model.Prescription{
		PatientCode:    appt.PatientCode,
		AppointmentID:  appt.ID,
		DoctorName:     appt.DoctorName,
		Diagnosis:      strings.TrimSpace(req.Diagnosis),
		Medicines:      strings.TrimSpace(req.Medicines),
		Advice:         strings.TrimSpace(req.Advice),
		PrescribedDate: util.Today(),
	}
	if err := savePrescription(db, appt, &rx); err != nil {
		if errors.Is(err, ErrAlreadyAdvised) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Patient already advised", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save prescription", Err: err})
		return
	}

	slip := receipt.PrescriptionSlip(receipt.Prescription{
		DoctorName:  rx.DoctorName,
		PatientName: appt.PatientName,
		PatientCode: rx.PatientCode,
		Date:        rx.PrescribedDate,
		Diagnosis:   rx.Diagnosis,
		Medicines:   rx.Medicines,
		Advice:      rx.Advice,
	})
	emailed := false
	if to != "" {
		emailed = notification.Send(notification.PrescriptionNotice(to, rx.DoctorName, slip))
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Prescription saved",
		Data: PrescriptionResponse{Prescription: rx, Slip: slip, Emailed: emailed},
	})
}
