package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

const surchargeDefIDPrefix = "scd_"

var (
	// ErrSettingsInvalidInput signals a malformed settings snapshot or
	// surcharge definition.
	ErrSettingsInvalidInput = errors.New("settings: invalid input")
	// ErrSettingsNotFound indicates the record could not be located.
	ErrSettingsNotFound = errors.New("settings: not found")
	// ErrSettingsConflict indicates concurrent modification.
	ErrSettingsConflict = errors.New("settings: conflict")
)

// SettingsServiceDeps bundles collaborators for the settings service.
type SettingsServiceDeps struct {
	Settings          repositories.SettingsRepository
	CompanySurcharges repositories.CompanySurchargeRepository
	PumpSurcharges    repositories.PumpSurchargeRepository
	Clock             func() time.Time
	IDGenerator       func() string
	Logger            *zap.Logger
}

type settingsService struct {
	settings          repositories.SettingsRepository
	companySurcharges repositories.CompanySurchargeRepository
	pumpSurcharges    repositories.PumpSurchargeRepository
	clock             func() time.Time
	newID             func() string
	logger            *zap.Logger

	// snapshot holds the last loaded settings. Reads never touch the
	// repository once the snapshot is primed; Update and Reload swap the
	// whole value at once.
	snapshot atomic.Pointer[domain.FacilitySettings]
}

// NewSettingsService wires dependencies into a SettingsService.
func NewSettingsService(deps SettingsServiceDeps) (SettingsService, error) {
	if deps.Settings == nil {
		return nil, errors.New("settings service: settings repository is required")
	}
	if deps.CompanySurcharges == nil {
		return nil, errors.New("settings service: company surcharge repository is required")
	}
	if deps.PumpSurcharges == nil {
		return nil, errors.New("settings service: pump surcharge repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &settingsService{
		settings:          deps.Settings,
		companySurcharges: deps.CompanySurcharges,
		pumpSurcharges:    deps.PumpSurcharges,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *settingsService) Current(ctx context.Context) (FacilitySettings, error) {
	if cached := s.snapshot.Load(); cached != nil {
		return *cached, nil
	}
	return s.Reload(ctx)
}

func (s *settingsService) Update(ctx context.Context, cmd UpdateSettingsCommand) (FacilitySettings, error) {
	next := cmd.Settings
	next.CurrencySymbol = strings.TrimSpace(next.CurrencySymbol)
	if err := domain.ValidateFacilitySettings(next); err != nil {
		return FacilitySettings{}, fmt.Errorf("%w: %v", ErrSettingsInvalidInput, err)
	}
	if err := s.settings.Save(ctx, next); err != nil {
		return FacilitySettings{}, s.mapRepositoryError(err)
	}
	s.snapshot.Store(&next)
	s.logger.Info("settings.updated",
		zap.Int("vatRate", next.VATRate),
		zap.Bool("transportZonesEnabled", next.TransportZonesEnabled))
	return next, nil
}

func (s *settingsService) Reload(ctx context.Context) (FacilitySettings, error) {
	loaded, err := s.settings.Get(ctx)
	if err != nil {
		return FacilitySettings{}, s.mapRepositoryError(err)
	}
	s.snapshot.Store(&loaded)
	return loaded, nil
}

func (s *settingsService) ListCompanySurcharges(ctx context.Context) ([]CompanySurcharge, error) {
	items, err := s.companySurcharges.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return items, nil
}

func (s *settingsService) CreateCompanySurcharge(ctx context.Context, cmd UpsertSurchargeCommand) (CompanySurcharge, error) {
	name, unitName, err := s.surchargeFields(cmd, false)
	if err != nil {
		return CompanySurcharge{}, err
	}
	now := s.clock()
	surcharge := domain.CompanySurcharge{
		ID:        surchargeDefIDPrefix + s.newID(),
		Name:      name,
		Price:     cmd.Price,
		Type:      cmd.Type,
		UnitName:  unitName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.companySurcharges.Insert(ctx, surcharge); err != nil {
		return CompanySurcharge{}, s.mapRepositoryError(err)
	}
	return surcharge, nil
}

func (s *settingsService) UpdateCompanySurcharge(ctx context.Context, surchargeID string, cmd UpsertSurchargeCommand) (CompanySurcharge, error) {
	surchargeID = strings.TrimSpace(surchargeID)
	if surchargeID == "" {
		return CompanySurcharge{}, fmt.Errorf("%w: surcharge id is required", ErrSettingsInvalidInput)
	}
	name, unitName, err := s.surchargeFields(cmd, false)
	if err != nil {
		return CompanySurcharge{}, err
	}
	surcharge, err := s.companySurcharges.FindByID(ctx, surchargeID)
	if err != nil {
		return CompanySurcharge{}, s.mapRepositoryError(err)
	}
	surcharge.Name = name
	surcharge.Price = cmd.Price
	surcharge.Type = cmd.Type
	surcharge.UnitName = unitName
	surcharge.UpdatedAt = s.clock()
	if err := s.companySurcharges.Update(ctx, surcharge); err != nil {
		return CompanySurcharge{}, s.mapRepositoryError(err)
	}
	return surcharge, nil
}

func (s *settingsService) DeleteCompanySurcharge(ctx context.Context, surchargeID string) error {
	surchargeID = strings.TrimSpace(surchargeID)
	if surchargeID == "" {
		return fmt.Errorf("%w: surcharge id is required", ErrSettingsInvalidInput)
	}
	if err := s.companySurcharges.Delete(ctx, surchargeID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *settingsService) ListPumpSurcharges(ctx context.Context) ([]PumpSurcharge, error) {
	items, err := s.pumpSurcharges.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return items, nil
}

func (s *settingsService) CreatePumpSurcharge(ctx context.Context, cmd UpsertSurchargeCommand) (PumpSurcharge, error) {
	name, unitName, err := s.surchargeFields(cmd, true)
	if err != nil {
		return PumpSurcharge{}, err
	}
	now := s.clock()
	surcharge := domain.PumpSurcharge{
		ID:        surchargeDefIDPrefix + s.newID(),
		Name:      name,
		Price:     cmd.Price,
		Type:      cmd.Type,
		UnitName:  unitName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.pumpSurcharges.Insert(ctx, surcharge); err != nil {
		return PumpSurcharge{}, s.mapRepositoryError(err)
	}
	return surcharge, nil
}

func (s *settingsService) UpdatePumpSurcharge(ctx context.Context, surchargeID string, cmd UpsertSurchargeCommand) (PumpSurcharge, error) {
	surchargeID = strings.TrimSpace(surchargeID)
	if surchargeID == "" {
		return PumpSurcharge{}, fmt.Errorf("%w: surcharge id is required", ErrSettingsInvalidInput)
	}
	name, unitName, err := s.surchargeFields(cmd, true)
	if err != nil {
		return PumpSurcharge{}, err
	}
	surcharge, err := s.pumpSurcharges.FindByID(ctx, surchargeID)
	if err != nil {
		return PumpSurcharge{}, s.mapRepositoryError(err)
	}
	surcharge.Name = name
	surcharge.Price = cmd.Price
	surcharge.Type = cmd.Type
	surcharge.UnitName = unitName
	surcharge.UpdatedAt = s.clock()
	if err := s.pumpSurcharges.Update(ctx, surcharge); err != nil {
		return PumpSurcharge{}, s.mapRepositoryError(err)
	}
	return surcharge, nil
}

func (s *settingsService) DeletePumpSurcharge(ctx context.Context, surchargeID string) error {
	surchargeID = strings.TrimSpace(surchargeID)
	if surchargeID == "" {
		return fmt.Errorf("%w: surcharge id is required", ErrSettingsInvalidInput)
	}
	if err := s.pumpSurcharges.Delete(ctx, surchargeID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *settingsService) surchargeFields(cmd UpsertSurchargeCommand, pumpScoped bool) (string, *string, error) {
	name := sanitizeText(cmd.Name)
	var unitName *string
	if cmd.UnitName != nil {
		trimmed := sanitizeText(*cmd.UnitName)
		if trimmed != "" {
			unitName = &trimmed
		}
	}
	if err := domain.ValidateSurchargeDefinition(name, cmd.Price, cmd.Type, unitName, pumpScoped); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrSettingsInvalidInput, err)
	}
	return name, unitName, nil
}

func (s *settingsService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrSettingsNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrSettingsConflict, err)
		}
	}
	return err
}
