package billing

import (
	"errors"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var ErrInsufficientTender = errors.New("tendered amount is less than the total due")

// Calculator prices a visit: every prescription line at its snapshotted
// price plus one consultation fee.
type Calculator struct {
	Fee      int64
	FeeLabel string
}

func NewCalculator(fee int64, label string) Calculator {
	if label == "" {
		label = "Consultation fee"
	}
	return Calculator{Fee: fee, FeeLabel: label}
}

// Items lists the fee first, then the medicine lines in prescription order.
func (c Calculator) Items(v *model.Visit) []model.TransactionItem {
	items := []model.TransactionItem{{
		Name:      c.FeeLabel,
		Quantity:  1,
		UnitPrice: c.Fee,
		Type:      model.ItemTypeService,
	}}
	if v.Prescription == nil {
		return items
	}
	for _, line := range v.Prescription.Items {
		items = append(items, model.TransactionItem{
			Name:      line.MedicineName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Type:      model.ItemTypeMedicine,
		})
	}
	return items
}

func (c Calculator) Total(v *model.Visit) int64 {
	total := c.Fee
	if v.Prescription != nil {
		for _, line := range v.Prescription.Items {
			total += line.Subtotal()
		}
	}
	return total
}

// Transaction builds the pending bill for v.
func (c Calculator) Transaction(v *model.Visit, patientName string) *model.Transaction {
	description := "Consultation"
	if v.HasMedicine() {
		description = "Consultation and medicine"
	}
	return &model.Transaction{
		VisitID:     v.ID,
		PatientName: patientName,
		Description: description,
		Items:       c.Items(v),
		Amount:      c.Total(v),
		Status:      model.TransactionStatusPending,
		Date:        v.Date,
	}
}

// Change returns tendered minus total, or ErrInsufficientTender when negative.
func Change(total, tendered int64) (int64, error) {
	if tendered < total {
		return 0, ErrInsufficientTender
	}
	return tendered - total, nil
}
