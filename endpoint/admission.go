package endpoint

import (
	"errors"
	"strings"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrBedOccupied       = errors.New("bed is already occupied")
	ErrAlreadyDischarged = errors.New("patient already discharged")
	ErrBedRequired       = errors.New("bed number is required")
)

// bedOccupied reports whether another Admitted row holds bed. excludeID
// skips the row being edited.
func bedOccupied(tx *gorm.DB, bed string, excludeID uint) (bool, error) {
	var count int64
	err := tx.Model(&model.Admission{}).
		Where("bed_no = ? AND status = ? AND id <> ?", bed, model.AdmissionAdmitted, excludeID).
		Count(&count).Error
	return count > 0, err
}

// occupancyError maps a unique violation on occupied_bed to ErrBedOccupied.
func occupancyError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrBedOccupied
	}
	return err
}

func respondAdmissionError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrBedOccupied), errors.Is(err, ErrAlreadyDischarged), errors.Is(err, ErrBedRequired):
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
	case errors.Is(err, gorm.ErrRecordNotFound):
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Admission not found", Err: err})
	default:
		util.CallServerError(c, util.APIErrorParams{Msg: msg, Err: err})
	}
}

type AdmitRequest struct {
	PatientCode string `json:"patient_code" binding:"required" example:"482913"`
	BedNo       string `json:"bed_no" binding:"required" example:"W2-14"`
	Disease     string `json:"disease" example:"Pneumonia"`
}

// AdmitPatient godoc
// @Summary      Admit patient
// @Description  Place a patient in a free bed. The bed check and insert share one transaction.
// @Tags         Ward
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body AdmitRequest true "Admission"
// @Success      200 {object} util.APIResponse{data=model.Admission} "Patient admitted"
// @Failure      400 {object} util.APIResponse "Bed occupied"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /admission [post]
func AdmitPatient(c *gin.Context) {
	var req AdmitRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	bed := strings.TrimSpace(req.BedNo)
	if bed == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: ErrBedRequired.Error(), Err: ErrBedRequired})
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

	admission := model.Admission{
		PatientCode: patient.PatientCode,
		PatientName: patient.Name,
		BedNo:       bed,
		Disease:     strings.TrimSpace(req.Disease),
		AdmitDate:   util.Today(),
		Status:      model.AdmissionAdmitted,
		OccupiedBed: &bed,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		occupied, err := bedOccupied(tx, bed, 0)
		if err != nil {
			return err
		}
		if occupied {
			return ErrBedOccupied
		}
		return occupancyError(tx.Create(&admission).Error)
	})
	if err != nil {
		respondAdmissionError(c, err, "Failed to admit patient")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient admitted", Data: admission})
}

// ListAdmissions godoc
// @Summary      List admissions
// @Tags         Ward
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]model.Admission} "Admissions retrieved"
// @Router       /admission [get]
func ListAdmissions(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var admissions []model.Admission
	if err := db.Order("id DESC").Find(&admissions).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve admissions", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Admissions retrieved", Data: admissions})
}

type UpdateAdmissionRequest struct {
	BedNo   *string `json:"bed_no" example:"W2-15"`
	Disease *string `json:"disease" example:"Pneumonia"`
}

// UpdateAdmission godoc
// @Summary      Edit admission
// @Description  Change the bed or diagnosis of an admission
// @Tags         Ward
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Admission ID"
// @Param        request body UpdateAdmissionRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Admission} "Admission updated"
// @Failure      400 {object} util.APIResponse "Bed occupied"
// @Failure      404 {object} util.APIResponse "Admission not found"
// @Router       /admission/{id} [patch]
func UpdateAdmission(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	var req UpdateAdmissionRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var admission model.Admission
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&admission).Error; err != nil {
			return err
		}
		if req.BedNo != nil {
			bed := strings.TrimSpace(*req.BedNo)
			if bed == "" {
				return ErrBedRequired
			}
			if bed != admission.BedNo && admission.Status == model.AdmissionAdmitted {
				occupied, err := bedOccupied(tx, bed, admission.ID)
				if err != nil {
					return err
				}
				if occupied {
					return ErrBedOccupied
				}
			}
			admission.BedNo = bed
			if admission.Status == model.AdmissionAdmitted {
				admission.OccupiedBed = &bed
			}
		}
		if req.Disease != nil {
			admission.Disease = strings.TrimSpace(*req.Disease)
		}
		return occupancyError(tx.Model(&admission).Select("bed_no", "disease", "occupied_bed").Updates(&admission).Error)
	})
	if err != nil {
		respondAdmissionError(c, err, "Failed to update admission")
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Admission updated", Data: admission})
}

// DischargePatient godoc
// @Summary      Discharge patient
// @Tags         Ward
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Admission ID"
// @Success      200 {object} util.APIResponse{data=model.Admission} "Patient discharged"
// @Failure      400 {object} util.APIResponse "Already Discharged"
// @Failure      404 {object} util.APIResponse "Admission not found"
// @Router       /admission/{id}/discharge [patch]
func DischargePatient(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var admission model.Admission
	if !findOrRespond(c, db.Where("id = ?", id), &admission, "Admission not found") {
		return
	}
	if admission.Status == model.AdmissionDischarged {
		util.CallUserError(c, util.APIErrorParams{Msg: "Already Discharged", Err: ErrAlreadyDischarged})
		return
	}

	today := util.Today()
	res := db.Model(&model.Admission{}).
		Where("id = ? AND status = ?", admission.ID, model.AdmissionAdmitted).
		Updates(map[string]interface{}{"status": model.AdmissionDischarged, "discharge_date": today, "occupied_bed": nil})
	if res.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to discharge patient", Err: res.Error})
		return
	}
	if res.RowsAffected == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Already Discharged", Err: ErrAlreadyDischarged})
		return
	}
	admission.Status = model.AdmissionDischarged
	admission.DischargeDate = &today
	admission.OccupiedBed = nil
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient discharged", Data: admission})
}

// DeleteAdmission godoc
// @Summary      Delete admission
// @Tags         Ward
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Admission ID"
// @Success      200 {object} util.APIResponse "Admission deleted"
// @Failure      404 {object} util.APIResponse "Admission not found"
// @Router       /admission/{id} [delete]
func DeleteAdmission(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var admission model.Admission
	if !findOrRespond(c, db.Where("id = ?", id), &admission, "Admission not found") {
		return
	}
	if err := db.Unscoped().Delete(&admission).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete admission", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Admission deleted"})
}
