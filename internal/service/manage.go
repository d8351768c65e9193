package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"
)

// Write-boundary errors. The resolution path assumes a valid model and
// never validates; everything is caught here.
var (
	ErrGroupExists       = errors.New("group already exists")
	ErrProfileExists     = errors.New("profile already exists")
	ErrProfileInUse      = errors.New("cannot delete the last profile")
	ErrInvalidDayKey     = errors.New("day key not valid for schedule mode")
	ErrInvalidMode       = errors.New("invalid schedule mode")
	ErrInvalidTempBounds = errors.New("invalid temperature bounds: min must be below max")
)

const defaultProfileName = "Default"

// ManagementService owns all writes to the schedule model. Every operation
// loads the document, mutates it under the exclusive model lock and saves
// it back whole.
type ManagementService struct {
	schedules repository.ScheduleRepo
	modelMu   *sync.RWMutex
	log       *logger.Logger
	cfg       Config
}

func NewManagementService(schedules repository.ScheduleRepo, modelMu *sync.RWMutex, log *logger.Logger, cfg Config) *ManagementService {
	return &ManagementService{schedules: schedules, modelMu: modelMu, log: log, cfg: cfg}
}

var _ Management = (*ManagementService)(nil)

// Model returns a snapshot of the whole data model.
func (s *ManagementService) Model(ctx context.Context) (models.ScheduleModel, error) {
	s.modelMu.RLock()
	defer s.modelMu.RUnlock()
	m, err := s.schedules.Load(ctx)
	if err != nil {
		return models.ScheduleModel{}, err
	}
	m.EnsureDefaults(s.cfg.MinTemp, s.cfg.MaxTemp)
	return m, nil
}

// mutate runs fn against the loaded model under the exclusive lock and
// saves the result if fn succeeds.
func (s *ManagementService) mutate(ctx context.Context, fn func(m *models.ScheduleModel) error) error {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()

	m, err := s.schedules.Load(ctx)
	if err != nil {
		return err
	}
	m.EnsureDefaults(s.cfg.MinTemp, s.cfg.MaxTemp)
	if err := fn(&m); err != nil {
		return err
	}
	return s.schedules.Save(ctx, m)
}

// CreateGroup adds a group referencing the default profile, creating that
// profile on first use.
func (s *ManagementService) CreateGroup(ctx context.Context, name string, entities []string) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		if _, ok := m.Groups[name]; ok {
			return fmt.Errorf("%w: %q", ErrGroupExists, name)
		}
		ensureDefaultProfile(m)
		m.Groups[name] = &models.Group{
			Entities:      append([]string(nil), entities...),
			Enabled:       true,
			ActiveProfile: defaultProfileName,
		}
		s.log.Infow("group_created", "group", name, "entities", len(entities))
		return nil
	})
}

func (s *ManagementService) DeleteGroup(ctx context.Context, name string) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		if _, ok := m.Groups[name]; !ok {
			return ErrGroupNotFound
		}
		delete(m.Groups, name)
		s.log.Infow("group_deleted", "group", name)
		return nil
	})
}

func (s *ManagementService) RenameGroup(ctx context.Context, oldName, newName string) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		g, ok := m.Groups[oldName]
		if !ok {
			return ErrGroupNotFound
		}
		if _, ok := m.Groups[newName]; ok {
			return fmt.Errorf("%w: %q", ErrGroupExists, newName)
		}
		delete(m.Groups, oldName)
		m.Groups[newName] = g
		s.log.Infow("group_renamed", "from", oldName, "to", newName)
		return nil
	})
}

func (s *ManagementService) SetGroupEnabled(ctx context.Context, name string, enabled bool) error {
	return s.updateGroup(ctx, name, func(g *models.Group) { g.Enabled = enabled })
}

func (s *ManagementService) SetGroupIgnored(ctx context.Context, name string, ignored bool) error {
	return s.updateGroup(ctx, name, func(g *models.Group) { g.Ignored = ignored })
}

func (s *ManagementService) SetGroupEntities(ctx context.Context, name string, entities []string) error {
	return s.updateGroup(ctx, name, func(g *models.Group) {
		g.Entities = append([]string(nil), entities...)
	})
}

func (s *ManagementService) updateGroup(ctx context.Context, name string, fn func(g *models.Group)) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		g, ok := m.Groups[name]
		if !ok {
			return ErrGroupNotFound
		}
		fn(g)
		return nil
	})
}

func (s *ManagementService) SetActiveProfile(ctx context.Context, groupName, profileName string) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		g, ok := m.Groups[groupName]
		if !ok {
			return ErrGroupNotFound
		}
		if _, ok := m.Profiles[profileName]; !ok {
			return ErrProfileNotFound
		}
		g.ActiveProfile = profileName
		// A profile switch changes what is active right now; stale
		// bookkeeping would suppress the re-apply.
		g.LastAppliedNodeKey = ""
		g.LastAppliedSignature = ""
		s.log.Infow("active_profile_set", "group", groupName, "profile", profileName)
		return nil
	})
}

func (s *ManagementService) CreateProfile(ctx context.Context, name string, mode models.ScheduleMode) error {
	if !validMode(mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		if _, ok := m.Profiles[name]; ok {
			return fmt.Errorf("%w: %q", ErrProfileExists, name)
		}
		m.Profiles[name] = &models.Profile{Mode: mode, Days: models.DaySchedule{}}
		s.log.Infow("profile_created", "profile", name, "mode", mode)
		return nil
	})
}

// DeleteProfile removes a profile and reassigns every referencing group to
// a fallback profile, so no group is ever left dangling. Deleting the last
// profile is rejected.
func (s *ManagementService) DeleteProfile(ctx context.Context, name string) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		if _, ok := m.Profiles[name]; !ok {
			return ErrProfileNotFound
		}
		if len(m.Profiles) == 1 {
			return ErrProfileInUse
		}
		delete(m.Profiles, name)

		fallback := firstProfileName(m)
		for gname, g := range m.Groups {
			if g.ActiveProfile == name {
				g.ActiveProfile = fallback
				g.LastAppliedNodeKey = ""
				g.LastAppliedSignature = ""
				s.log.Infow("group_reassigned_profile", "group", gname, "profile", fallback)
			}
		}
		s.log.Infow("profile_deleted", "profile", name, "fallback", fallback)
		return nil
	})
}

// RenameProfile renames a profile and updates every group referencing it.
func (s *ManagementService) RenameProfile(ctx context.Context, oldName, newName string) error {
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		p, ok := m.Profiles[oldName]
		if !ok {
			return ErrProfileNotFound
		}
		if _, ok := m.Profiles[newName]; ok {
			return fmt.Errorf("%w: %q", ErrProfileExists, newName)
		}
		delete(m.Profiles, oldName)
		m.Profiles[newName] = p
		for _, g := range m.Groups {
			if g.ActiveProfile == oldName {
				g.ActiveProfile = newName
			}
		}
		s.log.Infow("profile_renamed", "from", oldName, "to", newName)
		return nil
	})
}

// SetProfileSchedule replaces a profile's mode and day schedules. Day keys
// are validated against the mode and node lists normalized (sorted, unique,
// 24:00 folded to 23:59) before the model is stored.
func (s *ManagementService) SetProfileSchedule(ctx context.Context, name string, mode models.ScheduleMode, days models.DaySchedule) error {
	if !validMode(mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	for key := range days {
		if !validDayKey(mode, key) {
			return fmt.Errorf("%w: %q under mode %q", ErrInvalidDayKey, key, mode)
		}
	}
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		p, ok := m.Profiles[name]
		if !ok {
			return ErrProfileNotFound
		}
		days.Normalize()
		p.Mode = mode
		p.Days = days
		s.log.Infow("profile_schedule_set", "profile", name, "mode", mode, "days", len(days))
		return nil
	})
}

func (s *ManagementService) SetSettings(ctx context.Context, settings models.Settings) error {
	if settings.MinTemp >= settings.MaxTemp {
		return ErrInvalidTempBounds
	}
	return s.mutate(ctx, func(m *models.ScheduleModel) error {
		m.Settings = settings
		s.log.Infow("settings_updated", "min_temp", settings.MinTemp, "max_temp", settings.MaxTemp)
		return nil
	})
}

func ensureDefaultProfile(m *models.ScheduleModel) {
	if len(m.Profiles) > 0 {
		return
	}
	temp := 18.0
	m.Profiles[defaultProfileName] = &models.Profile{
		Mode: models.ModeAllDays,
		Days: models.DaySchedule{
			models.DayKeyAllDays: {{Time: 0, Temperature: &temp}},
		},
	}
}

func firstProfileName(m *models.ScheduleModel) string {
	names := make([]string, 0, len(m.Profiles))
	for name := range m.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return defaultProfileName
	}
	return names[0]
}

func validMode(mode models.ScheduleMode) bool {
	switch mode {
	case models.ModeAllDays, models.ModeWeekdayWeekend, models.ModeIndividual:
		return true
	}
	return false
}

func validDayKey(mode models.ScheduleMode, key string) bool {
	switch mode {
	case models.ModeAllDays:
		return key == models.DayKeyAllDays
	case models.ModeWeekdayWeekend:
		return key == models.DayKeyWeekday || key == models.DayKeyWeekend
	case models.ModeIndividual:
		for _, k := range models.WeekdayKeys {
			if key == k {
				return true
			}
		}
	}
	return false
}
