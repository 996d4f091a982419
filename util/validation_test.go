package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("9812345678")
	assert.NoError(t, err)
	assert.Equal(t, "9779812345678", got)

	for _, bad := range []string{"", "981234567", "98123456789", "98123456ab", "+9812345678", "９８１２３４５６７８"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"ram@gmail.com", "first.last+tag@hospital.com.np", "a_b-c@x"} {
		assert.NoError(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "ram", "ram@", "@gmail.com", "ram sharma@gmail.com", "ram@@gmail.com"} {
		assert.ErrorIs(t, ValidateEmail(bad), ErrInvalidEmail, bad)
	}
}

func TestValidateNMC(t *testing.T) {
	assert.NoError(t, ValidateNMC("1"))
	assert.NoError(t, ValidateNMC("1234567890"))
	assert.ErrorIs(t, ValidateNMC(""), ErrInvalidNMC)
	assert.ErrorIs(t, ValidateNMC("12345678901"), ErrInvalidNMC)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-20")
	assert.NoError(t, err)
	assert.Equal(t, 20, d.Day())

	for _, bad := range []string{"", "20-10-2026", "2026/10/20", "2026-13-01", "2026-02-30"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
	_, err = ParseDate(Today())
	assert.NoError(t, err)
}
