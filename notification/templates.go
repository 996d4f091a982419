package notification

import "fmt"

// Credentials is sent when an account is created or its password is reset.
func Credentials(to, name, username, password string) Message {
	return Message{
		To:      to,
		Subject: "HMS Login Credentials",
		Body: fmt.Sprintf("Welcome %s,\n\nUsername: %s\nPassword: %s\n\nLog in as a 'New User' first.",
			name, username, password),
	}
}

func AppointmentConfirmation(to, slip string) Message {
	return Message{To: to, Subject: "Appointment Confirmation", Body: slip}
}

func PrescriptionNotice(to, doctorName, slip string) Message {
	return Message{To: to, Subject: "Prescription from " + doctorName, Body: slip}
}

func InvoiceNotice(to string, invoiceNo uint, invoice string) Message {
	return Message{To: to, Subject: fmt.Sprintf("Hospital Invoice #%d", invoiceNo), Body: invoice}
}
