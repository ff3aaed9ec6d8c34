package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

const (
	driverIDPrefix = "drv_"
	carIDPrefix    = "car_"
	pumpIDPrefix   = "pmp_"
)

var (
	// ErrFleetInvalidInput signals malformed driver or vehicle data.
	ErrFleetInvalidInput = errors.New("fleet: invalid input")
	// ErrFleetNotFound indicates the record could not be located.
	ErrFleetNotFound = errors.New("fleet: not found")
	// ErrFleetConflict indicates concurrent modification or duplicates.
	ErrFleetConflict = errors.New("fleet: conflict")
	// ErrFleetRegistrationTaken indicates the registration number is already
	// assigned to another vehicle. Registrations are unique across cars and
	// pumps together.
	ErrFleetRegistrationTaken = errors.New("fleet: registration number taken")
)

// FleetServiceDeps bundles collaborators for the fleet service.
type FleetServiceDeps struct {
	Drivers        repositories.DriverRepository
	Cars           repositories.CarRepository
	Pumps          repositories.PumpRepository
	TransportTypes repositories.TransportTypeRepository
	Clock          func() time.Time
	IDGenerator    func() string
}

type fleetService struct {
	drivers        repositories.DriverRepository
	cars           repositories.CarRepository
	pumps          repositories.PumpRepository
	transportTypes repositories.TransportTypeRepository
	clock          func() time.Time
	newID          func() string
}

// NewFleetService wires dependencies into a FleetService.
func NewFleetService(deps FleetServiceDeps) (FleetService, error) {
	if deps.Drivers == nil {
		return nil, errors.New("fleet service: driver repository is required")
	}
	if deps.Cars == nil {
		return nil, errors.New("fleet service: car repository is required")
	}
	if deps.Pumps == nil {
		return nil, errors.New("fleet service: pump repository is required")
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

	return &fleetService{
		drivers:        deps.Drivers,
		cars:           deps.Cars,
		pumps:          deps.Pumps,
		transportTypes: deps.TransportTypes,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *fleetService) CreateDriver(ctx context.Context, cmd UpsertDriverCommand) (Driver, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Driver{}, fmt.Errorf("%w: driver name is required", ErrFleetInvalidInput)
	}
	now := s.clock()
	driver := domain.Driver{
		ID:        driverIDPrefix + s.newID(),
		Name:      name,
		Contact:   strings.TrimSpace(cmd.Contact),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.drivers.Insert(ctx, driver); err != nil {
		return Driver{}, s.mapRepositoryError(err)
	}
	return driver, nil
}

func (s *fleetService) UpdateDriver(ctx context.Context, driverID string, cmd UpsertDriverCommand) (Driver, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return Driver{}, fmt.Errorf("%w: driver id is required", ErrFleetInvalidInput)
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Driver{}, fmt.Errorf("%w: driver name is required", ErrFleetInvalidInput)
	}
	driver, err := s.drivers.FindByID(ctx, driverID)
	if err != nil {
		return Driver{}, s.mapRepositoryError(err)
	}
	driver.Name = name
	driver.Contact = strings.TrimSpace(cmd.Contact)
	driver.UpdatedAt = s.clock()
	if err := s.drivers.Update(ctx, driver); err != nil {
		return Driver{}, s.mapRepositoryError(err)
	}
	return driver, nil
}

func (s *fleetService) ListDrivers(ctx context.Context, includeHidden bool) ([]Driver, error) {
	drivers, err := s.drivers.List(ctx, includeHidden)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return drivers, nil
}

func (s *fleetService) CreateCar(ctx context.Context, cmd UpsertCarCommand) (Car, error) {
	vehicle, err := s.vehicleFromFields(ctx, cmd.RegistrationNumber, cmd.DriverID, cmd.PricePerKm, "")
	if err != nil {
		return Car{}, err
	}
	if cmd.TransportTypeID != nil && s.transportTypes != nil {
		if _, err := s.transportTypes.FindByID(ctx, *cmd.TransportTypeID); err != nil {
			return Car{}, s.mapRepositoryError(err)
		}
	}
	now := s.clock()
	car := domain.Car{
		ID:                           carIDPrefix + s.newID(),
		Vehicle:                      vehicle,
		TransportTypeID:              cmd.TransportTypeID,
		ChargeTransportAutomatically: cmd.ChargeTransportAutomatically,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	if err := s.cars.Insert(ctx, car); err != nil {
		return Car{}, s.mapRepositoryError(err)
	}
	return car, nil
}

func (s *fleetService) UpdateCar(ctx context.Context, carID string, cmd UpsertCarCommand) (Car, error) {
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return Car{}, fmt.Errorf("%w: car id is required", ErrFleetInvalidInput)
	}
	car, err := s.cars.FindByID(ctx, carID)
	if err != nil {
		return Car{}, s.mapRepositoryError(err)
	}
	vehicle, err := s.vehicleFromFields(ctx, cmd.RegistrationNumber, cmd.DriverID, cmd.PricePerKm, car.ID)
	if err != nil {
		return Car{}, err
	}
	if cmd.TransportTypeID != nil && s.transportTypes != nil {
		if _, err := s.transportTypes.FindByID(ctx, *cmd.TransportTypeID); err != nil {
			return Car{}, s.mapRepositoryError(err)
		}
	}
	car.Vehicle = vehicle
	car.TransportTypeID = cmd.TransportTypeID
	car.ChargeTransportAutomatically = cmd.ChargeTransportAutomatically
	car.UpdatedAt = s.clock()
	if err := s.cars.Update(ctx, car); err != nil {
		return Car{}, s.mapRepositoryError(err)
	}
	return car, nil
}

func (s *fleetService) GetCar(ctx context.Context, carID string) (Car, error) {
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return Car{}, fmt.Errorf("%w: car id is required", ErrFleetInvalidInput)
	}
	car, err := s.cars.FindByID(ctx, carID)
	if err != nil {
		return Car{}, s.mapRepositoryError(err)
	}
	return car, nil
}

func (s *fleetService) ListCars(ctx context.Context, includeHidden bool) ([]Car, error) {
	cars, err := s.cars.List(ctx, includeHidden)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return cars, nil
}

func (s *fleetService) ArchiveCar(ctx context.Context, carID string) error {
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return fmt.Errorf("%w: car id is required", ErrFleetInvalidInput)
	}
	car, err := s.cars.FindByID(ctx, carID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	car.Hidden = true
	car.UpdatedAt = s.clock()
	if err := s.cars.Update(ctx, car); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *fleetService) CreatePump(ctx context.Context, cmd UpsertPumpCommand) (Pump, error) {
	vehicle, err := s.vehicleFromFields(ctx, cmd.RegistrationNumber, cmd.DriverID, cmd.PricePerKm, "")
	if err != nil {
		return Pump{}, err
	}
	if cmd.PricePerHour != nil && *cmd.PricePerHour < 0 {
		return Pump{}, fmt.Errorf("%w: price per hour must not be negative", ErrFleetInvalidInput)
	}
	now := s.clock()
	pump := domain.Pump{
		ID:           pumpIDPrefix + s.newID(),
		Vehicle:      vehicle,
		PumpType:     strings.TrimSpace(cmd.PumpType),
		PricePerHour: cmd.PricePerHour,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.pumps.Insert(ctx, pump); err != nil {
		return Pump{}, s.mapRepositoryError(err)
	}
	return pump, nil
}

func (s *fleetService) UpdatePump(ctx context.Context, pumpID string, cmd UpsertPumpCommand) (Pump, error) {
	pumpID = strings.TrimSpace(pumpID)
	if pumpID == "" {
		return Pump{}, fmt.Errorf("%w: pump id is required", ErrFleetInvalidInput)
	}
	pump, err := s.pumps.FindByID(ctx, pumpID)
	if err != nil {
		return Pump{}, s.mapRepositoryError(err)
	}
	vehicle, err := s.vehicleFromFields(ctx, cmd.RegistrationNumber, cmd.DriverID, cmd.PricePerKm, pump.ID)
	if err != nil {
		return Pump{}, err
	}
	if cmd.PricePerHour != nil && *cmd.PricePerHour < 0 {
		return Pump{}, fmt.Errorf("%w: price per hour must not be negative", ErrFleetInvalidInput)
	}
	pump.Vehicle = vehicle
	pump.PumpType = strings.TrimSpace(cmd.PumpType)
	pump.PricePerHour = cmd.PricePerHour
	pump.UpdatedAt = s.clock()
	if err := s.pumps.Update(ctx, pump); err != nil {
		return Pump{}, s.mapRepositoryError(err)
	}
	return pump, nil
}

func (s *fleetService) GetPump(ctx context.Context, pumpID string) (Pump, error) {
	pumpID = strings.TrimSpace(pumpID)
	if pumpID == "" {
		return Pump{}, fmt.Errorf("%w: pump id is required", ErrFleetInvalidInput)
	}
	pump, err := s.pumps.FindByID(ctx, pumpID)
	if err != nil {
		return Pump{}, s.mapRepositoryError(err)
	}
	return pump, nil
}

func (s *fleetService) ListPumps(ctx context.Context, includeHidden bool) ([]Pump, error) {
	pumps, err := s.pumps.List(ctx, includeHidden)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return pumps, nil
}

func (s *fleetService) ArchivePump(ctx context.Context, pumpID string) error {
	pumpID = strings.TrimSpace(pumpID)
	if pumpID == "" {
		return fmt.Errorf("%w: pump id is required", ErrFleetInvalidInput)
	}
	pump, err := s.pumps.FindByID(ctx, pumpID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	pump.Hidden = true
	pump.UpdatedAt = s.clock()
	if err := s.pumps.Update(ctx, pump); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// vehicleFromFields normalizes the registration number and checks it is not
// held by any other car or pump. selfID excludes the vehicle being updated
// from the check.
func (s *fleetService) vehicleFromFields(ctx context.Context, registration string, driverID *string, pricePerKm *float64, selfID string) (domain.Vehicle, error) {
	normalized := domain.NormalizeRegistration(registration)
	if normalized == "" {
		return domain.Vehicle{}, fmt.Errorf("%w: registration number is required", ErrFleetInvalidInput)
	}
	if pricePerKm != nil && *pricePerKm < 0 {
		return domain.Vehicle{}, fmt.Errorf("%w: price per km must not be negative", ErrFleetInvalidInput)
	}
	if err := s.checkRegistrationFree(ctx, normalized, selfID); err != nil {
		return domain.Vehicle{}, err
	}
	vehicle := domain.Vehicle{
		RegistrationNumber: normalized,
		PricePerKm:         pricePerKm,
	}
	if driverID != nil {
		trimmed := strings.TrimSpace(*driverID)
		if trimmed != "" {
			if _, err := s.drivers.FindByID(ctx, trimmed); err != nil {
				return domain.Vehicle{}, s.mapRepositoryError(err)
			}
			vehicle.DriverID = &trimmed
		}
	}
	return vehicle, nil
}

func (s *fleetService) checkRegistrationFree(ctx context.Context, registration, selfID string) error {
	if car, err := s.cars.FindByRegistration(ctx, registration); err == nil {
		if car.ID != selfID {
			return fmt.Errorf("%w: %s held by car %s", ErrFleetRegistrationTaken, registration, car.ID)
		}
	} else if mapped := s.mapRepositoryError(err); !errors.Is(mapped, ErrFleetNotFound) {
		return mapped
	}
	if pump, err := s.pumps.FindByRegistration(ctx, registration); err == nil {
		if pump.ID != selfID {
			return fmt.Errorf("%w: %s held by pump %s", ErrFleetRegistrationTaken, registration, pump.ID)
		}
	} else if mapped := s.mapRepositoryError(err); !errors.Is(mapped, ErrFleetNotFound) {
		return mapped
	}
	return nil
}

func (s *fleetService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrFleetNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrFleetConflict, err)
		}
	}
	return err
}
