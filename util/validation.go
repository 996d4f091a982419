package util

import (
	"errors"
	"regexp"
	"time"
)

// PhonePrefix is the country code stored in front of every local number.
const PhonePrefix = "977"

const DateLayout = "2006-01-02"

var (
	ErrInvalidPhone = errors.New("phone number must be exactly 10 digits")
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInvalidNMC   = errors.New("NMC ID must be 1-10 characters")
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")

	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// NormalizePhone validates a 10 digit local number and returns it with the
// country prefix.
func NormalizePhone(phone string) (string, error) {
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return PhonePrefix + phone, nil
}

// ValidateEmail rejects anything that does not look like local@domain.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateNMC(nmc string) error {
	if len(nmc) < 1 || len(nmc) > 10 {
		return ErrInvalidNMC
	}
	return nil
}

// ParseDate accepts only the YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Today is the current local date as YYYY-MM-DD.
func Today() string {
	return time.Now().Format(DateLayout)
}
