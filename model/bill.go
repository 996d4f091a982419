package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
)

// Bill is the persisted summary of an invoice. The row id is the invoice number.
type Bill struct {
	gorm.Model
	PatientCode string  `json:"patient_code" gorm:"type:varchar(6);not null;index"`
	PatientName string  `json:"patient_name"`
	BillDate    string  `json:"bill_date" gorm:"type:varchar(10)"`
	Particulars string  `json:"particulars" gorm:"type:text"`
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	TotalAmount float64 `json:"total_amount"`
}

// BillItem is an invoice line. It is never stored on its own; only its name
// survives in Bill.Particulars.
type BillItem struct {
	Name string  `json:"name" binding:"required" example:"X-Ray"`
	Qty  int     `json:"qty" example:"1"`
	Rate float64 `json:"rate" example:"500"`
}

// Total is qty times rate.
func (i BillItem) Total() float64 {
	return float64(i.Qty) * i.Rate
}

var (
	ErrNoBillItems     = errors.New("bill needs at least one item")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidRate     = errors.New("rate cannot be negative")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
)

// PriceBill fills Particulars, Subtotal, Discount and TotalAmount from items.
// The total is rounded to two decimals.
func PriceBill(items []BillItem, discount float64) (Bill, error) {
	if len(items) == 0 {
		return Bill{}, ErrNoBillItems
	}
	if discount < 0 || discount > 100 {
		return Bill{}, ErrInvalidDiscount
	}
	names := make([]string, 0, len(items))
	var subtotal float64
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return Bill{}, fmt.Errorf("item name is required")
		}
		if it.Qty <= 0 {
			return Bill{}, fmt.Errorf("%s: %w", it.Name, ErrInvalidQuantity)
		}
		if it.Rate < 0 {
			return Bill{}, fmt.Errorf("%s: %w", it.Name, ErrInvalidRate)
		}
		subtotal += it.Total()
		names = append(names, it.Name)
	}
	return Bill{
		Particulars: strings.Join(names, ", "),
		Subtotal:    roundCents(subtotal),
		Discount:    discount,
		TotalAmount: roundCents(subtotal - subtotal*discount/100),
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
