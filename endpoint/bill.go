package endpoint

import (
	"strings"

	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/notification"
	"github.com/ariebrainware/hospital-desk/receipt"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// nextInvoiceNumber is MAX(id)+1 over every bill ever written.
func nextInvoiceNumber(db *gorm.DB) (uint, error) {
	var maxID uint
	if err := db.Unscoped().Model(&model.Bill{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, err
	}
	return maxID + 1, nil
}

// NextInvoice godoc
// @Summary      Next invoice number
// @Tags         Billing
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=object} "Next invoice number"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /bill/next-invoice [get]
func NextInvoice(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	next, err := nextInvoiceNumber(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read invoice number", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Next invoice number", Data: map[string]uint{"invoice_no": next}})
}

type CreateBillRequest struct {
	PatientCode string           `json:"patient_code" binding:"required" example:"482913"`
	Items       []model.BillItem `json:"items" binding:"required,dive"`
	Discount    float64          `json:"discount" example:"10"`
	SendEmail   bool             `json:"send_email" example:"false"`
	Email       string           `json:"email" example:"ram@gmail.com"`
}

type CreateBillResponse struct {
	Bill    model.Bill `json:"bill"`
	Invoice string     `json:"invoice"`
	Emailed bool       `json:"emailed"`
}

// CreateBill godoc
// @Summary      Generate invoice
// @Description  Price the items, store the bill and return the invoice text
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateBillRequest true "Bill"
// @Success      200 {object} util.APIResponse{data=CreateBillResponse} "Bill saved"
// @Failure      400 {object} util.APIResponse "Validation error or missing email"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /bill [post]
func CreateBill(c *gin.Context) {
	var req CreateBillRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	bill, err := model.PriceBill(req.Items, req.Discount)
	if err != nil {
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
	to, err := resolveRecipient(req.SendEmail, req.Email, patient.Email)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Enter Email Address!", Err: err})
		return
	}

	bill.PatientCode = patient.PatientCode
	bill.PatientName = patient.Name
	bill.BillDate = util.Today()
	if err := db.Create(&bill).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save bill", Err: err})
		return
	}

	lines := make([]receipt.InvoiceLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, receipt.InvoiceLine{Name: it.Name, Qty: it.Qty, Rate: it.Rate})
	}
	invoice := receipt.InvoiceText(receipt.Invoice{
		Number:      bill.ID,
		Date:        bill.BillDate,
		PatientName: patient.Name,
		PatientCode: patient.PatientCode,
		Phone:       patient.Phone,
		Lines:       lines,
		Subtotal:    bill.Subtotal,
		Discount:    bill.Discount,
		Total:       bill.TotalAmount,
	})
	emailed := false
	if to != "" {
		emailed = notification.Send(notification.InvoiceNotice(to, bill.ID, invoice))
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Bill saved",
		Data: CreateBillResponse{Bill: bill, Invoice: invoice, Emailed: emailed},
	})
}

// ListBills godoc
// @Summary      List bills
// @Tags         Billing
// @Produce      json
// @Security     SessionToken
// @Param        keyword query string false "Search by patient name or code"
// @Success      200 {object} util.APIResponse{data=[]model.Bill} "Bills retrieved"
// @Router       /bill [get]
func ListBills(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	query := db.Model(&model.Bill{})
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		kw := likePattern(keyword)
		query = query.Where("patient_name LIKE ? OR patient_code LIKE ?", kw, kw)
	}
	var bills []model.Bill
	if err := query.Order("id DESC").Find(&bills).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve bills", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Bills retrieved", Data: bills})
}
