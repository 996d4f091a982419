package model

import "gorm.io/gorm"

const (
	AdmissionAdmitted   = "Admitted"
	AdmissionDischarged = "Discharged"
)

type Admission struct {
	gorm.Model
	PatientCode   string  `json:"patient_code" gorm:"type:varchar(6);not null;index"`
	PatientName   string  `json:"patient_name"`
	BedNo         string  `json:"bed_no" gorm:"type:varchar(32);not null;index"`
	Disease       string  `json:"disease"`
	AdmitDate     string  `json:"admit_date" gorm:"type:varchar(10)"`
	DischargeDate *string `json:"discharge_date" gorm:"type:varchar(10)"`
	Status        string  `json:"status" gorm:"type:varchar(16);index"`
	// OccupiedBed mirrors BedNo while the patient is admitted and is NULL
	// afterwards, so the unique index allows one admitted patient per bed.
	OccupiedBed *string `json:"-" gorm:"type:varchar(32);uniqueIndex"`
}
