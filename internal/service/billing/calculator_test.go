package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestTotalAddsFeeToMedicineLines(t *testing.T) {
	calc := NewCalculator(150000, "")
	v := &model.Visit{Prescription: &model.Prescription{Items: []model.PrescriptionItem{
		{MedicineName: "Paracetamol 500mg", Quantity: 10, UnitPrice: 5000},
		{MedicineName: "Amoxicillin 500mg", Quantity: 1, UnitPrice: 5000},
	}}}

	assert.Equal(t, int64(205000), calc.Total(v))

	items := calc.Items(v)
	assert.Len(t, items, 3)
	assert.Equal(t, model.ItemTypeService, items[0].Type)
	assert.Equal(t, "Consultation fee", items[0].Name)
	assert.Equal(t, "Amoxicillin 500mg", items[2].Name)
}

func TestTotalWithoutPrescriptionIsFee(t *testing.T) {
	calc := NewCalculator(150000, "Jasa dokter")
	assert.Equal(t, int64(150000), calc.Total(&model.Visit{}))
	assert.Equal(t, int64(150000), calc.Total(&model.Visit{Prescription: &model.Prescription{}}))
	assert.Len(t, calc.Items(&model.Visit{}), 1)
}

func TestChange(t *testing.T) {
	change, err := Change(205000, 250000)
	assert.NoError(t, err)
	assert.Equal(t, int64(45000), change)

	change, err = Change(205000, 205000)
	assert.NoError(t, err)
	assert.Zero(t, change)

	_, err = Change(205000, 200000)
	assert.ErrorIs(t, err, ErrInsufficientTender)
}

func TestTransactionDescribesContents(t *testing.T) {
	calc := NewCalculator(150000, "")
	tx := calc.Transaction(&model.Visit{Date: "2026-10-15"}, "Alya Pratama")
	assert.Equal(t, "Consultation", tx.Description)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.Equal(t, int64(150000), tx.Amount)
	assert.Equal(t, "2026-10-15", tx.Date)
}
