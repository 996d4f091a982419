package model

import "gorm.io/gorm"

type Prescription struct {
	gorm.Model
	PatientCode    string `json:"patient_code" gorm:"type:varchar(6);not null;index"`
	AppointmentID  uint   `json:"appointment_id" gorm:"index"`
	DoctorName     string `json:"doctor_name"`
	Diagnosis      string `json:"diagnosis" gorm:"type:text"`
	Medicines      string `json:"medicines" gorm:"type:text"`
	Advice         string `json:"advice" gorm:"type:text"`
	PrescribedDate string `json:"prescribed_date" gorm:"type:varchar(10);index"`
}
