package clinic

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const profileCacheKey = "profile"

type ClinicServicer interface {
	Profile(ctx context.Context) *model.ClinicInfo
	UpdateProfile(ctx context.Context, info model.ClinicInfo) (*model.ClinicInfo, error)
	Doctors(ctx context.Context) ([]*model.User, error)
	Today(ctx context.Context) (*model.TodaySchedule, error)
	Medicines(ctx context.Context) ([]*model.Medicine, error)
}

type Config struct {
	Defaults   model.ClinicInfo
	ProfileTTL time.Duration
	// Weekdays names each time.Weekday in the clinic's language, Sunday first.
	Weekdays []string
	Clock    func() time.Time
}

type Service struct {
	store     repository.Store
	validator validator.Validator
	logger    *logger.Logger
	profiles  *cache.Cache
	cfg       Config
}

func NewService(store repository.Store, v validator.Validator, log *logger.Logger, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = 5 * time.Minute
	}
	return &Service{
		store:     store,
		validator: v,
		logger:    log,
		profiles:  cache.New(cfg.ProfileTTL, 2*cfg.ProfileTTL),
		cfg:       cfg,
	}
}

// Profile never fails: when the store is unreachable or empty the
// configured default profile is returned.
func (s *Service) Profile(ctx context.Context) *model.ClinicInfo {
	if cached, ok := s.profiles.Get(profileCacheKey); ok {
		info := cached.(model.ClinicInfo)
		return &info
	}

	info, err := s.store.Clinic().Get(ctx)
	if err != nil {
		s.logger.Warn("using default clinic profile", "error", err.Error())
		fallback := s.cfg.Defaults
		return &fallback
	}
	s.profiles.SetDefault(profileCacheKey, *info)
	return info
}

func (s *Service) UpdateProfile(ctx context.Context, info model.ClinicInfo) (*model.ClinicInfo, error) {
	if err := s.validator.Validate(&info); err != nil {
		return nil, err
	}
	if err := s.store.Clinic().Save(ctx, &info); err != nil {
		return nil, repository.Translate("clinic", err)
	}
	s.profiles.Delete(profileCacheKey)

	s.logger.Info("clinic profile updated", "name", info.Name)
	return &info, nil
}

func (s *Service) Doctors(ctx context.Context) ([]*model.User, error) {
	doctors, err := s.store.Users().ListByRole(ctx, model.RoleDoctor)
	if err != nil {
		return nil, repository.Translate("doctors", err)
	}
	if doctors == nil {
		doctors = []*model.User{}
	}
	return doctors, nil
}

// Today lists the schedules for the current weekday. OnDuty counts the
// doctors actually practising.
func (s *Service) Today(ctx context.Context) (*model.TodaySchedule, error) {
	day := model.Weekday(s.cfg.Clock(), s.cfg.Weekdays)
	schedules, err := s.store.Schedules().ListByDay(ctx, day)
	if err != nil {
		return nil, repository.Translate("schedules", err)
	}

	today := &model.TodaySchedule{Day: day, Schedules: schedules}
	if today.Schedules == nil {
		today.Schedules = []*model.DoctorSchedule{}
	}
	for _, sch := range schedules {
		if sch.Status == model.ScheduleStatusPractice {
			today.OnDuty++
		}
	}
	return today, nil
}

func (s *Service) Medicines(ctx context.Context) ([]*model.Medicine, error) {
	meds, err := s.store.Medicines().List(ctx)
	if err != nil {
		return nil, repository.Translate("medicines", err)
	}
	if meds == nil {
		meds = []*model.Medicine{}
	}
	return meds, nil
}
