package model

// Departments is the catalogue a doctor's department must come from.
var Departments = []string{
	"Primary Care & General Services",
	"Outpatient Department (OPD)",
	"Inpatient Department (IPD)",
	"Emergency / Casualty",
	"Family Medicine",
	"Internal Medicine",
	"Cardiology",
	"Dermatology",
	"Endocrinology",
	"Gastroenterology",
	"Geriatrics",
	"Hematology",
	"Infectious Diseases",
	"Nephrology",
	"Neurology",
	"Oncology",
	"Pulmonology",
	"Rheumatology",
	"Anesthesiology",
	"General Surgery",
	"Obstetrics and Gynecology (OB-GYN)",
	"Ophthalmology",
	"Orthopedics",
	"ENT",
	"Urology",
	"Operation Theatre (OT)",
	"Pathology",
	"Radiology",
	"Pharmacy",
	"Physiotherapy",
	"Dietary",
	"Psychiatry",
	"ICU",
	"NICU",
	"PICU",
	"CCU",
}

// IsDepartment reports whether name is in the catalogue. The match is exact.
func IsDepartment(name string) bool {
	for _, d := range Departments {
		if d == name {
			return true
		}
	}
	return false
}
