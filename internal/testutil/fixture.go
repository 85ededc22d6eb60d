// Package testutil builds a seeded in-memory clinic for service and
// handler tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/seed"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const Password = "sentosa123"

// Monday 2 March 2026, 09:00 in Jakarta.
var Now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))

type Fixture struct {
	Store     *memory.Store
	Hasher    security.PasswordHasher
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Logger    *logger.Logger
	Validator validator.Validator

	Admin       *model.User
	Doctor      *model.User
	OtherDoctor *model.User
	Pharmacist  *model.User
	Cashier     *model.User
	Patient     *model.Patient
	Clinic      model.ClinicInfo

	medicines map[string]*model.Medicine
}

func New(t *testing.T) *Fixture {
	t.Helper()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	f := &Fixture{
		Store:     memory.NewStore(),
		Hasher:    security.NewBcrypt(bcrypt.MinCost),
		Metrics:   metrics.NewMetrics("clinic_test", reg),
		Registry:  reg,
		Logger:    logger.Nop(),
		Validator: validator.New(),
		Clinic:    model.ClinicInfo{Name: "Klinik Sentosa", Address: "Jl. Asia Afrika No. 1", Phone: "022-123456"},
		medicines: make(map[string]*model.Medicine),
	}
	require.NoError(t, seed.Seed(ctx, f.Store, f.Hasher, Password, f.Clinic))

	f.Admin = f.user(t, "admin")
	f.Doctor = f.user(t, "dr.rani")
	f.OtherDoctor = f.user(t, "dr.budi")
	f.Pharmacist = f.user(t, "siska")
	f.Cashier = f.user(t, "kasir1")

	f.Patient = &model.Patient{
		Name:      "Dewi Lestari",
		NIK:       "3273014101950004",
		BirthDate: "1995-01-01",
		Address:   "Jl. Dago No. 5, Bandung",
		Phone:     "0813-0000-111",
		Type:      model.PatientTypeGeneral,
	}
	require.NoError(t, f.Store.Patients().Create(ctx, f.Patient))

	meds, err := f.Store.Medicines().List(ctx)
	require.NoError(t, err)
	for _, m := range meds {
		f.medicines[m.Name] = m
	}
	return f
}

func (f *Fixture) Clock() time.Time { return Now }

func (f *Fixture) Today() string { return model.Day(Now) }

// Medicine returns the seeded catalog entry called name.
func (f *Fixture) Medicine(t *testing.T, name string) *model.Medicine {
	t.Helper()
	m, ok := f.medicines[name]
	require.Truef(t, ok, "no seeded medicine %q", name)
	return m
}

// Stock reads the current stock of a seeded medicine.
func (f *Fixture) Stock(t *testing.T, name string) int {
	t.Helper()
	m, err := f.Store.Medicines().Get(context.Background(), f.Medicine(t, name).ID)
	require.NoError(t, err)
	return m.Stock
}

// As returns u as the actor of a service call.
func (f *Fixture) As(u *model.User) model.Actor {
	return model.Actor{UserID: u.ID, Role: u.Role}
}

func (f *Fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := f.Store.Users().GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return u
}
