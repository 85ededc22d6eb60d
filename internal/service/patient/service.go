package patient

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const (
	minSearchLen = 3
	searchLimit  = 20
)

type PatientService interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	SearchPatients(ctx context.Context, q string) ([]*model.Patient, error)
	History(ctx context.Context, id uuid.UUID) ([]model.PatientHistoryEntry, error)
}

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.store.Patients().Get(ctx, id)
	if err != nil {
		return nil, repository.Translate("patient", err)
	}
	return p, nil
}

// SearchPatients matches name or NIK. Queries shorter than three
// characters return nothing rather than the whole register.
func (s *Service) SearchPatients(ctx context.Context, q string) ([]*model.Patient, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minSearchLen {
		return []*model.Patient{}, nil
	}
	patients, err := s.store.Patients().Search(ctx, q, searchLimit)
	if err != nil {
		return nil, repository.Translate("patients", err)
	}
	if patients == nil {
		patients = []*model.Patient{}
	}
	return patients, nil
}

// History lists the patient's examined visits, newest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]model.PatientHistoryEntry, error) {
	if _, err := s.GetPatient(ctx, id); err != nil {
		return nil, err
	}

	visits, err := s.store.Visits().List(ctx, model.VisitFilter{
		PatientID: &id,
		Statuses:  []model.VisitStatus{model.VisitStatusPharmacy, model.VisitStatusPayment, model.VisitStatusDone},
	})
	if err != nil {
		return nil, repository.Translate("visits", err)
	}

	doctors, err := s.store.Users().ListByRole(ctx, model.RoleDoctor)
	if err != nil {
		return nil, repository.Translate("doctors", err)
	}
	names := make(map[uuid.UUID]string, len(doctors))
	for _, d := range doctors {
		names[d.ID] = d.Name
	}

	sort.SliceStable(visits, func(i, j int) bool {
		if visits[i].Date != visits[j].Date {
			return visits[i].Date > visits[j].Date
		}
		return visits[i].Seq > visits[j].Seq
	})

	out := make([]model.PatientHistoryEntry, 0, len(visits))
	for _, v := range visits {
		entry := model.PatientHistoryEntry{
			VisitID:       v.ID,
			Date:          v.Date,
			Status:        v.Status,
			DoctorName:    "-",
			MedicalRecord: v.MedicalRecord,
			Prescription:  v.Prescription,
		}
		if v.DoctorID != nil {
			if name, ok := names[*v.DoctorID]; ok {
				entry.DoctorName = name
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
