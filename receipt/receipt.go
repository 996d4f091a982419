// Package receipt renders the fixed-width slips handed to patients. The same
// text is printed at the desk and used as the email body.
package receipt

import (
	"fmt"
	"strings"
)

const (
	slipRule    = "----------------------------"
	rxRule      = "------------------------------------------"
	invoiceRule = "------------------------------------------------"
	itemRow     = "%-20s %-5s %-10s %-10s\n"
)

type Appointment struct {
	PatientCode string
	PatientName string
	Department  string
	DoctorName  string
	Date        string
}

// AppointmentSlip is the booking confirmation.
func AppointmentSlip(a Appointment) string {
	var sb strings.Builder
	sb.WriteString("      APPOINTMENT SLIP      \n")
	sb.WriteString(slipRule + "\n")
	sb.WriteString("Your booking has been confirmed!\n\n")
	fmt.Fprintf(&sb, "PATIENT ID : %s\n", a.PatientCode)
	fmt.Fprintf(&sb, "NAME       : %s\n", a.PatientName)
	fmt.Fprintf(&sb, "DEPARTMENT : %s\n", a.Department)
	fmt.Fprintf(&sb, "DOCTOR     : %s\n", a.DoctorName)
	fmt.Fprintf(&sb, "DATE       : %s\n", a.Date)
	sb.WriteString(slipRule + "\n")
	return sb.String()
}

type Prescription struct {
	DoctorName  string
	PatientName string
	PatientCode string
	Date        string
	Diagnosis   string
	Medicines   string
	Advice      string
}

func PrescriptionSlip(p Prescription) string {
	var sb strings.Builder
	sb.WriteString("          HOSPITAL PRESCRIPTION          \n")
	sb.WriteString(rxRule + "\n")
	fmt.Fprintf(&sb, "Doctor: %s\n", p.DoctorName)
	fmt.Fprintf(&sb, "Patient: %s (ID: %s)\n", p.PatientName, p.PatientCode)
	fmt.Fprintf(&sb, "Date: %s\n", p.Date)
	sb.WriteString(rxRule + "\n\n")
	fmt.Fprintf(&sb, "[ DIAGNOSIS ]\n%s\n\n", p.Diagnosis)
	fmt.Fprintf(&sb, "[ MEDICINES ]\n%s\n\n", p.Medicines)
	fmt.Fprintf(&sb, "[ ADVICE ]\n%s\n\n", p.Advice)
	sb.WriteString(rxRule + "\n")
	sb.WriteString("Signature: ___________________________\n")
	return sb.String()
}

type InvoiceLine struct {
	Name string
	Qty  int
	Rate float64
}

type Invoice struct {
	Number      uint
	Date        string
	PatientName string
	PatientCode string
	Phone       string
	Lines       []InvoiceLine
	Subtotal    float64
	Discount    float64
	Total       float64
}

// InvoiceText renders the bill with one row per line item.
func InvoiceText(inv Invoice) string {
	var sb strings.Builder
	sb.WriteString("      HOSPITAL INVOICE      \n")
	fmt.Fprintf(&sb, "Invoice #: %d\n", inv.Number)
	fmt.Fprintf(&sb, "Date: %s\n", inv.Date)
	fmt.Fprintf(&sb, "Patient: %s (ID: %s)\n", inv.PatientName, inv.PatientCode)
	fmt.Fprintf(&sb, "Phone: %s\n", inv.Phone)
	sb.WriteString(invoiceRule + "\n")
	fmt.Fprintf(&sb, itemRow, "Item", "Qty", "Rate", "Total")
	sb.WriteString(invoiceRule + "\n")
	for _, l := range inv.Lines {
		fmt.Fprintf(&sb, itemRow, l.Name, fmt.Sprintf("%d", l.Qty), money(l.Rate), money(float64(l.Qty)*l.Rate))
	}
	sb.WriteString(invoiceRule + "\n")
	fmt.Fprintf(&sb, "Subtotal: %s\n", money(inv.Subtotal))
	fmt.Fprintf(&sb, "Discount: %s%%\n", trimFloat(inv.Discount))
	fmt.Fprintf(&sb, "GRAND TOTAL: %s\n", money(inv.Total))
	return sb.String()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// trimFloat prints 10 as "10" and 12.5 as "12.5".
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
