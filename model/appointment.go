package model

import "gorm.io/gorm"

const (
	AppointmentPending = "Pending"
	AppointmentAdvised = "Advised"
)

type Appointment struct {
	gorm.Model
	PatientCode string `json:"patient_code" gorm:"type:varchar(6);not null;index"`
	PatientName string `json:"patient_name"`
	DoctorID    uint   `json:"doctor_id" gorm:"index"`
	DoctorName  string `json:"doctor_name" gorm:"index"`
	Department  string `json:"department"`
	ApptDate    string `json:"appt_date" gorm:"type:varchar(10);index" example:"2026-10-20"`
	Status      string `json:"status" gorm:"type:varchar(32);default:Pending"`
}

// DoctorAppointmentRow is one line of a doctor's worklist, joined with the
// patient's demographics.
type DoctorAppointmentRow struct {
	ApptID      uint    `json:"appt_id"`
	PatientCode string  `json:"patient_code"`
	PatientName string  `json:"patient_name"`
	Age         *int    `json:"-"`
	Sex         *string `json:"-"`
	Phone       *string `json:"phone"`
	AgeSex      string  `json:"age_sex" gorm:"-"`
	ApptDate    string  `json:"appt_date"`
	Status      string  `json:"status"`
}
