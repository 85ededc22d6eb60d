package visit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/billing"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	fixture "github.com/jwalitptl/clinic-api/internal/testutil"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/messaging/local"
)

func newService(t *testing.T) (*Service, *fixture.Fixture) {
	f := fixture.New(t)
	svc := NewService(
		f.Store,
		billing.NewCalculator(150000, ""),
		event.NewService(local.NewBroker(), "clinic.visits"),
		f.Validator,
		f.Metrics,
		f.Logger,
		Config{Clock: f.Clock},
	)
	return svc, f
}

func register(t *testing.T, svc *Service, f *fixture.Fixture, emergency bool) *model.Visit {
	t.Helper()
	reg, err := svc.Register(context.Background(), model.RegisterVisitRequest{
		PatientID:   f.Patient.ID,
		DoctorID:    f.Doctor.ID,
		IsEmergency: emergency,
	})
	require.NoError(t, err)
	return reg.Visit
}

func examine(t *testing.T, svc *Service, f *fixture.Fixture, id uuid.UUID) {
	t.Helper()
	v, err := svc.Advance(context.Background(), id, f.As(f.Doctor), model.AdvanceRequest{})
	require.NoError(t, err)
	require.Equal(t, model.VisitStatusExamining, v.Status)
}

func soap() *model.MedicalRecordInput {
	return &model.MedicalRecordInput{Complaints: "fever for two days", Findings: "38.5C", Diagnosis: "common cold"}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected *AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestRegisterNumbersEachQueueSeparately(t *testing.T) {
	svc, f := newService(t)

	a1 := register(t, svc, f, false)
	a2 := register(t, svc, f, false)
	e1 := register(t, svc, f, true)

	assert.Equal(t, "A-001", a1.QueueNumber)
	assert.Equal(t, "A-002", a2.QueueNumber)
	assert.Equal(t, "E-001", e1.QueueNumber)
	assert.Equal(t, model.VisitStatusWaiting, a1.Status)
	assert.Equal(t, f.Today(), a1.Date)
	assert.Less(t, a1.Seq, a2.Seq)

	events, err := f.Store.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "visit.waiting", events[0].EventType)
}

func TestQueueNumberIsNotReusedAfterCancel(t *testing.T) {
	svc, f := newService(t)

	register(t, svc, f, false)
	second := register(t, svc, f, false)
	require.NoError(t, svc.Cancel(context.Background(), second.ID))

	third := register(t, svc, f, false)
	assert.Equal(t, "A-003", third.QueueNumber)
}

func TestRegisterRejectsUnknownDoctor(t *testing.T) {
	svc, f := newService(t)

	_, err := svc.Register(context.Background(), model.RegisterVisitRequest{PatientID: f.Patient.ID, DoctorID: f.Pharmacist.ID})
	assertCode(t, err, apperrors.ErrBadRequest)

	_, err = svc.Register(context.Background(), model.RegisterVisitRequest{PatientID: uuid.New(), DoctorID: f.Doctor.ID})
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestRegisterPatientCreatesRecordAndVisit(t *testing.T) {
	svc, f := newService(t)

	reg, err := svc.RegisterPatient(context.Background(), model.RegisterPatientRequest{
		Patient: model.NewPatient{
			Name:      "Bima Saputra",
			NIK:       "3273010101900005",
			BirthDate: "1990-01-01",
			Address:   "Jl. Braga No. 3",
			Phone:     "0812-0000-222",
		},
		DoctorID: f.OtherDoctor.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PatientTypeGeneral, reg.Patient.Type)
	assert.Equal(t, reg.Patient.ID, reg.Visit.PatientID)
	assert.Equal(t, f.OtherDoctor.ID, *reg.Visit.DoctorID)

	_, err = svc.RegisterPatient(context.Background(), model.RegisterPatientRequest{
		Patient:  model.NewPatient{Name: "BPJS without card", NIK: "1", BirthDate: "1990-01-01", Type: model.PatientTypeBPJS},
		DoctorID: f.Doctor.ID,
	})
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestRegisterEmergencyUsesPlaceholderPatient(t *testing.T) {
	svc, f := newService(t)

	reg, err := svc.RegisterEmergency(context.Background(), model.RegisterEmergencyRequest{DoctorID: f.Doctor.ID})
	require.NoError(t, err)

	assert.True(t, reg.Patient.IsPlaceholder)
	assert.Equal(t, EmergencyPatientName, reg.Patient.Name)
	assert.Contains(t, reg.Patient.NIK, "EMERGENCY-")
	assert.True(t, reg.Visit.IsEmergency)
	assert.Equal(t, "E-001", reg.Visit.QueueNumber)
}

func TestLifecycleWithPrescription(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	paracetamol := f.Medicine(t, "Paracetamol 500mg")
	amoxicillin := f.Medicine(t, "Amoxicillin 500mg")

	v := register(t, svc, f, false)
	examine(t, svc, f, v.ID)

	v, err := svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{
		MedicalRecord: soap(),
		Prescription: []model.PrescriptionLine{
			{MedicineID: paracetamol.ID, Dosage: "3x1", Quantity: 2},
			{MedicineID: amoxicillin.ID, Dosage: "3x1", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusPharmacy, v.Status)
	require.NotNil(t, v.MedicalRecord)
	assert.Equal(t, "common cold", v.MedicalRecord.Diagnosis)
	require.NotNil(t, v.Prescription)
	assert.Equal(t, model.PrescriptionStatusPending, v.Prescription.Status)
	assert.Equal(t, int64(5000), v.Prescription.Items[0].UnitPrice)
	assert.Equal(t, "Amoxicillin 500mg", v.Prescription.Items[1].MedicineName)
	assert.Equal(t, 200, f.Stock(t, "Paracetamol 500mg"), "prescribing must not touch stock")

	v, err = svc.Advance(ctx, v.ID, f.As(f.Pharmacist), model.AdvanceRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusPayment, v.Status)
	assert.Equal(t, model.PrescriptionStatusProcessed, v.Prescription.Status)
	assert.Equal(t, 198, f.Stock(t, "Paracetamol 500mg"))
	assert.Equal(t, 99, f.Stock(t, "Amoxicillin 500mg"))

	require.NotNil(t, v.TransactionID)
	tx, err := f.Store.Transactions().Get(ctx, *v.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000+2*5000+12000), tx.Amount)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.Equal(t, f.Patient.Name, tx.PatientName)

	_, err = svc.Advance(ctx, v.ID, f.As(f.Admin), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrConflict)

	assert.Equal(t, 4.0, testutil.ToFloat64(f.Metrics.VisitTransitions.WithLabelValues("", "waiting"))+
		testutil.ToFloat64(f.Metrics.VisitTransitions.WithLabelValues("waiting", "examining"))+
		testutil.ToFloat64(f.Metrics.VisitTransitions.WithLabelValues("examining", "pharmacy"))+
		testutil.ToFloat64(f.Metrics.VisitTransitions.WithLabelValues("pharmacy", "payment")))
}

func TestCompletingWithoutPrescriptionGoesToPayment(t *testing.T) {
	svc, f := newService(t)

	v := register(t, svc, f, false)
	examine(t, svc, f, v.ID)

	v, err := svc.Advance(context.Background(), v.ID, f.As(f.Doctor), model.AdvanceRequest{MedicalRecord: soap()})
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusPayment, v.Status)
	assert.Nil(t, v.Prescription)

	tx, err := f.Store.Transactions().Get(context.Background(), *v.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), tx.Amount)
	assert.Equal(t, "Consultation", tx.Description)
}

func TestCompletingRequiresMedicalRecord(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	v := register(t, svc, f, false)
	examine(t, svc, f, v.ID)

	_, err := svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrBadRequest)

	_, err = svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{
		MedicalRecord: &model.MedicalRecordInput{Complaints: "cough", Findings: " ", Diagnosis: "flu"},
	})
	appErr := assertCode(t, err, apperrors.ErrBadRequest)
	assert.Contains(t, appErr.Details, "findings is required")

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusExamining, got.Status)
	assert.Nil(t, got.MedicalRecord)
}

func TestPrescriptionRejectsUnknownMedicineAndBadQuantity(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	v := register(t, svc, f, false)
	examine(t, svc, f, v.ID)

	_, err := svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{
		MedicalRecord: soap(),
		Prescription:  []model.PrescriptionLine{{MedicineID: uuid.New(), Dosage: "1x1", Quantity: 1}},
	})
	assertCode(t, err, apperrors.ErrBadRequest)

	_, err = svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{
		MedicalRecord: soap(),
		Prescription:  []model.PrescriptionLine{{MedicineID: f.Medicine(t, "Antasida").ID, Dosage: "1x1", Quantity: 0}},
	})
	assertCode(t, err, apperrors.ErrBadRequest)
}

func TestDispenseShortageRollsBackEveryDecrement(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	paracetamol := f.Medicine(t, "Paracetamol 500mg")
	salbutamol := f.Medicine(t, "Salbutamol inhaler")

	v := register(t, svc, f, false)
	examine(t, svc, f, v.ID)
	v, err := svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{
		MedicalRecord: soap(),
		Prescription: []model.PrescriptionLine{
			{MedicineID: paracetamol.ID, Dosage: "3x1", Quantity: 5},
			{MedicineID: salbutamol.ID, Dosage: "as needed", Quantity: 6},
			{MedicineID: salbutamol.ID, Dosage: "as needed", Quantity: 5},
		},
	})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, v.ID, f.As(f.Pharmacist), model.AdvanceRequest{})
	appErr := assertCode(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 422, appErr.StatusCode())

	shortages, ok := appErr.Details.([]model.StockShortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, salbutamol.ID, shortages[0].MedicineID)
	assert.Equal(t, 11, shortages[0].Requested)
	assert.Equal(t, 10, shortages[0].Available)

	assert.Equal(t, 200, f.Stock(t, "Paracetamol 500mg"))
	assert.Equal(t, 10, f.Stock(t, "Salbutamol inhaler"))

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusPharmacy, got.Status)
	assert.Nil(t, got.TransactionID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.Metrics.DispenseFailures))
}

func TestSkipAndReopenKeepsQueueNumber(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	v := register(t, svc, f, false)
	skipped, err := svc.Skip(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusSkipped, skipped.Status)

	reopened, err := svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusExamining, reopened.Status)
	assert.Equal(t, v.QueueNumber, reopened.QueueNumber)
	assert.Equal(t, v.Seq, reopened.Seq)
}

func TestAdvanceRejectsAnotherDoctor(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	v := register(t, svc, f, false)
	_, err := svc.Advance(ctx, v.ID, f.As(f.OtherDoctor), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrConflict)

	other := f.OtherDoctor.ID
	_, err = svc.Advance(ctx, v.ID, f.As(f.Admin), model.AdvanceRequest{DoctorID: &other})
	assertCode(t, err, apperrors.ErrConflict)

	examine(t, svc, f, v.ID)
	_, err = svc.Advance(ctx, v.ID, f.As(f.OtherDoctor), model.AdvanceRequest{MedicalRecord: soap()})
	assertCode(t, err, apperrors.ErrConflict)

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusExamining, got.Status)
	assert.Equal(t, f.Doctor.ID, *got.DoctorID)
	assert.Nil(t, got.MedicalRecord)
}

func TestAdvanceDoctorActsAsThemselves(t *testing.T) {
	svc, f := newService(t)

	v := register(t, svc, f, false)
	other := f.OtherDoctor.ID
	_, err := svc.Advance(context.Background(), v.ID, f.As(f.Doctor), model.AdvanceRequest{DoctorID: &other})
	assertCode(t, err, apperrors.ErrForbidden)
}

func TestAdvanceRequiresStationStaff(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	v := register(t, svc, f, false)
	_, err := svc.Advance(ctx, v.ID, f.As(f.Pharmacist), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrForbidden)
	_, err = svc.Advance(ctx, v.ID, f.As(f.Cashier), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrForbidden)

	examine(t, svc, f, v.ID)
	v, err = svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{
		MedicalRecord: soap(),
		Prescription:  []model.PrescriptionLine{{MedicineID: f.Medicine(t, "Antasida").ID, Dosage: "3x1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, model.VisitStatusPharmacy, v.Status)

	_, err = svc.Advance(ctx, v.ID, f.As(f.Doctor), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrForbidden)

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusPharmacy, got.Status)
}

func TestAdminAssignsUnassignedVisit(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	v := register(t, svc, f, false)
	require.NoError(t, f.Store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		got, err := uow.Visits().Get(ctx, v.ID)
		if err != nil {
			return err
		}
		got.DoctorID = nil
		return uow.Visits().Update(ctx, got)
	}))

	_, err := svc.Advance(ctx, v.ID, f.As(f.Admin), model.AdvanceRequest{})
	assertCode(t, err, apperrors.ErrBadRequest)

	other := f.OtherDoctor.ID
	got, err := svc.Advance(ctx, v.ID, f.As(f.Admin), model.AdvanceRequest{DoctorID: &other})
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusExamining, got.Status)
	assert.Equal(t, other, *got.DoctorID)
}

func TestCancelOnlyBeforeExamination(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()

	waiting := register(t, svc, f, false)
	require.NoError(t, svc.Cancel(ctx, waiting.ID))
	_, err := svc.Get(ctx, waiting.ID)
	assertCode(t, err, apperrors.ErrNotFound)

	examining := register(t, svc, f, false)
	examine(t, svc, f, examining.ID)
	assertCode(t, svc.Cancel(ctx, examining.ID), apperrors.ErrConflict)

	assertCode(t, svc.Cancel(ctx, uuid.New()), apperrors.ErrNotFound)
}
