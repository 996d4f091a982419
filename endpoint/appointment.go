package endpoint

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/notification"
	"github.com/ariebrainware/hospital-desk/receipt"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrDoctorUnavailable = errors.New("doctor is not an active member of that department")
	ErrNoRecipient       = errors.New("no email address for this patient")
)

const notAvailable = "N/A"

// resolveRecipient picks the request email over the stored one. It fails when
// sending was asked for and neither is usable.
func resolveRecipient(sendEmail bool, requested, stored string) (string, error) {
	if !sendEmail {
		return "", nil
	}
	to := strings.TrimSpace(requested)
	if to == "" {
		to = strings.TrimSpace(stored)
	}
	if to == "" {
		return "", ErrNoRecipient
	}
	if err := util.ValidateEmail(to); err != nil {
		return "", err
	}
	return to, nil
}

type BookAppointmentRequest struct {
	PatientCode string `json:"patient_code" binding:"required" example:"482913"`
	DoctorID    uint   `json:"doctor_id" binding:"required" example:"4"`
	Department  string `json:"department" binding:"required" example:"Cardiology"`
	ApptDate    string `json:"appt_date" binding:"required" example:"2026-10-20"`
	SendEmail   bool   `json:"send_email" example:"true"`
	Email       string `json:"email" example:"ram@gmail.com"`
}

type BookAppointmentResponse struct {
	Appointment model.Appointment `json:"appointment"`
	Slip        string            `json:"slip"`
	Emailed     bool              `json:"emailed"`
}

// BookAppointment godoc
// @Summary      Book an appointment
// @Description  Book a patient with an active doctor of a department and return the printable slip
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body BookAppointmentRequest true "Booking"
// @Success      200 {object} util.APIResponse{data=BookAppointmentResponse} "Appointment booked"
// @Failure      400 {object} util.APIResponse "Validation error or missing email"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointment [post]
func BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if _, err := util.ParseDate(req.ApptDate); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := loadPatientOrRespond(c, db, strings.TrimSpace(req.PatientCode))
	if !ok {
		return
	}

	var doctor model.User
	err := db.Where("id = ? AND role_id = ? AND department = ? AND is_active = ?", req.DoctorID, model.RoleDoctor, req.Department, true).First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Please select a Department and a Doctor first!", Err: ErrDoctorUnavailable})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}

	to, err := resolveRecipient(req.SendEmail, req.Email, patient.Email)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Enter Email Address!", Err: err})
		return
	}

	appt := model.Appointment{
		PatientCode: patient.PatientCode,
		PatientName: patient.Name,
		DoctorID:    doctor.ID,
		DoctorName:  doctor.Name,
		Department:  req.Department,
		ApptDate:    req.ApptDate,
		Status:      model.AppointmentPending,
	}
	if err := db.Create(&appt).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to book appointment", Err: err})
		return
	}

	slip := receipt.AppointmentSlip(receipt.Appointment{
		PatientCode: appt.PatientCode,
		PatientName: appt.PatientName,
		Department:  appt.Department,
		DoctorName:  appt.DoctorName,
		Date:        appt.ApptDate,
	})
	emailed := false
	if to != "" {
		emailed = notification.Send(notification.AppointmentConfirmation(to, slip))
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment booked",
		Data: BookAppointmentResponse{Appointment: appt, Slip: slip, Emailed: emailed},
	})
}

// ListAppointments godoc
// @Summary      List appointments
// @Description  Latest appointment date first, optionally filtered by patient, code or doctor
// @Tags         Appointment
// @Produce      json
// @Security     SessionToken
// @Param        keyword query string false "Search keyword"
// @Success      200 {object} util.APIResponse{data=[]model.Appointment} "Appointments retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointment [get]
func ListAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	query := db.Model(&model.Appointment{})
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		kw := likePattern(keyword)
		query = query.Where("patient_name LIKE ? OR patient_code LIKE ? OR doctor_name LIKE ?", kw, kw, kw)
	}
	var appts []model.Appointment
	if err := query.Order("appt_date DESC").Order("id DESC").Find(&appts).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: appts})
}

type RescheduleRequest struct {
	ApptDate string `json:"appt_date" binding:"required" example:"2026-10-22"`
}

// RescheduleAppointment godoc
// @Summary      Reschedule appointment
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Param        request body RescheduleRequest true "New date"
// @Success      200 {object} util.APIResponse{data=model.Appointment} "Appointment rescheduled"
// @Failure      400 {object} util.APIResponse "Invalid date"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Router       /appointment/{id}/reschedule [patch]
func RescheduleAppointment(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if _, err := util.ParseDate(req.ApptDate); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var appt model.Appointment
	if !findOrRespond(c, db.Where("id = ?", id), &appt, "Appointment not found") {
		return
	}
	if err := db.Model(&appt).Update("appt_date", req.ApptDate).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reschedule appointment", Err: err})
		return
	}
	appt.ApptDate = req.ApptDate
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment rescheduled", Data: appt})
}

// DeleteAppointment godoc
// @Summary      Cancel appointment
// @Tags         Appointment
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Success      200 {object} util.APIResponse "Appointment deleted"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Router       /appointment/{id} [delete]
func DeleteAppointment(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var appt model.Appointment
	if !findOrRespond(c, db.Where("id = ?", id), &appt, "Appointment not found") {
		return
	}
	if err := db.Unscoped().Delete(&appt).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete appointment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment deleted"})
}

func formatAgeSex(age *int, sex *string) string {
	a, s := notAvailable, notAvailable
	if age != nil {
		a = strconv.Itoa(*age)
	}
	if sex != nil && strings.TrimSpace(*sex) != "" {
		s = *sex
	}
	return a + " / " + s
}

// DoctorAppointments godoc
// @Summary      Doctor worklist
// @Description  The calling doctor's appointments with patient age, sex and phone
// @Tags         Doctor
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]model.DoctorAppointmentRow} "Appointments retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/appointments [get]
func DoctorAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctorID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: errors.New("user id not found in context")})
		return
	}

	var rows []model.DoctorAppointmentRow
	err := db.Model(&model.Appointment{}).
		Select("appointments.id AS appt_id, appointments.patient_code, appointments.patient_name, patients.age, patients.sex, patients.phone, appointments.appt_date, appointments.status").
		Joins("LEFT JOIN patients ON patients.patient_code = appointments.patient_code AND patients.deleted_at IS NULL").
		Where("appointments.doctor_id = ?", doctorID).
		Order("appointments.appt_date DESC").Order("appointments.id DESC").
		Scan(&rows).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}
	for i := range rows {
		rows[i].AgeSex = formatAgeSex(rows[i].Age, rows[i].Sex)
		if rows[i].Phone == nil {
			na := notAvailable
			rows[i].Phone = &na
		}
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: rows})
}
