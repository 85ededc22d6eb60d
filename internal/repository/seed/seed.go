// Package seed loads the demo clinic used by offline runs and fresh databases.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

var medicines = []model.Medicine{
	{Name: "Paracetamol 500mg", Price: 5000, Stock: 200},
	{Name: "Amoxicillin 500mg", Price: 12000, Stock: 100},
	{Name: "Omeprazole 20mg", Price: 15000, Stock: 60},
	{Name: "Antasida", Price: 8000, Stock: 80},
	{Name: "Captopril 25mg", Price: 10000, Stock: 60},
	{Name: "Amlodipine 5mg", Price: 9000, Stock: 60},
	{Name: "Salbutamol inhaler", Price: 85000, Stock: 10},
}

var patients = []model.Patient{
	{Name: "Alya Pratama", NIK: "3273015507920001", BirthDate: "1992-07-15", Address: "Jl. Kenanga No. 12, Bandung", Phone: "0812-1234-555", Type: model.PatientTypeGeneral},
	{Name: "Rafi Nugraha", NIK: "3273010403870002", BirthDate: "1987-03-04", Address: "Jl. Merdeka No. 21, Bandung", Phone: "0821-3322-778", Type: model.PatientTypeBPJS, InsuranceNumber: "0001234567890"},
	{Name: "Siti Rahma", NIK: "3273016311010003", BirthDate: "2001-11-23", Address: "Jl. Melati No. 8, Bandung", Phone: "0857-8899-221", Type: model.PatientTypeGeneral},
}

type account struct {
	username  string
	name      string
	role      model.Role
	specialty string
}

var accounts = []account{
	{username: "admin", name: "Administrator", role: model.RoleAdmin},
	{username: "dr.rani", name: "dr. Rani Kusuma", role: model.RoleDoctor, specialty: "Umum"},
	{username: "dr.budi", name: "dr. Budi Santoso", role: model.RoleDoctor, specialty: "Anak"},
	{username: "siska", name: "Siska Apriani", role: model.RolePharmacist},
	{username: "kasir1", name: "Kasir Satu", role: model.RoleCashier},
}

var workdays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat"}

// Seed populates an empty store. It is a no-op once the admin account exists.
func Seed(ctx context.Context, store repository.Store, hasher security.PasswordHasher, password string, clinic model.ClinicInfo) error {
	if _, err := store.Users().GetByUsername(ctx, "admin"); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check seed state: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	for _, a := range accounts {
		user := &model.User{Username: a.username, Name: a.name, Role: a.role, Specialty: a.specialty, PasswordHash: hash}
		if err := store.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", a.username, err)
		}
		if a.role != model.RoleDoctor {
			continue
		}
		for _, day := range workdays {
			schedule := &model.DoctorSchedule{
				DoctorID:  user.ID,
				Name:      user.Name,
				Specialty: user.Specialty,
				Day:       day,
				Time:      "08:00 - 14:00",
				Status:    model.ScheduleStatusPractice,
				Quota:     30,
			}
			if err := store.Schedules().Create(ctx, schedule); err != nil {
				return fmt.Errorf("failed to seed schedule: %w", err)
			}
		}
	}

	for i := range medicines {
		m := medicines[i]
		if err := store.Medicines().Create(ctx, &m); err != nil {
			return fmt.Errorf("failed to seed medicine %s: %w", m.Name, err)
		}
	}

	for i := range patients {
		p := patients[i]
		if err := store.Patients().Create(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed patient %s: %w", p.Name, err)
		}
	}

	if err := store.Clinic().Save(ctx, &clinic); err != nil {
		return fmt.Errorf("failed to seed clinic profile: %w", err)
	}
	return nil
}
