package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

var (
	// ErrTransportInvalidInput indicates the caller supplied malformed zone or type data.
	ErrTransportInvalidInput = errors.New("transport: invalid input")
	// ErrTransportNotFound indicates the zone or transport type does not exist.
	ErrTransportNotFound = errors.New("transport: not found")
	// ErrTransportConflict indicates a concurrent modification or duplicate.
	ErrTransportConflict = errors.New("transport: conflict")
	// ErrTransportTypeInUse indicates a transport type is still referenced by a zone.
	ErrTransportTypeInUse = errors.New("transport: type in use")
)

const (
	transportZoneIDPrefix = "tz_"
	transportTypeIDPrefix = "tt_"
)

// TransportServiceDeps wires repositories and ambient dependencies.
type TransportServiceDeps struct {
	Zones       repositories.TransportZoneRepository
	Types       repositories.TransportTypeRepository
	Clock       func() time.Time
	IDGenerator func() string
}

// NewTransportService builds the transport zone service.
func NewTransportService(deps TransportServiceDeps) (TransportService, error) {
	if deps.Zones == nil {
		return nil, fmt.Errorf("transport service: zone repository is required")
	}
	if deps.Types == nil {
		return nil, fmt.Errorf("transport service: transport type repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &transportService{
		zones: deps.Zones,
		types: deps.Types,
		clock: func() time.Time { return clock().UTC() },
		idGen: idGen,
	}, nil
}

type transportService struct {
	zones repositories.TransportZoneRepository
	types repositories.TransportTypeRepository
	clock func() time.Time
	idGen func() string
}

// MatchZones ranks every zone against the requested distance. Tier one
// requires both the distance and the vehicle's transport type to match,
// tier two requires only the distance, everything else falls into tier
// three so the dispatcher can still pick a zone manually. The lookup never
// fails on an unmatched distance and every zone appears exactly once.
func (s *transportService) MatchZones(ctx context.Context, query MatchZonesQuery) ([]RankedZone, error) {
	if query.Distance < 0 {
		return nil, fmt.Errorf("%w: distance must not be negative", ErrTransportInvalidInput)
	}
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	ranked := make([]RankedZone, 0, len(zones))
	for _, zone := range zones {
		ranked = append(ranked, RankedZone{Zone: zone, Tier: rankZone(zone, query)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Tier < ranked[j].Tier
	})
	return ranked, nil
}

func rankZone(zone domain.TransportZone, query MatchZonesQuery) domain.ZoneMatchTier {
	if !zone.Matches(query.Distance) {
		return domain.ZoneMatchNone
	}
	if query.TransportTypeID != nil && zone.TransportTypeID != nil &&
		*zone.TransportTypeID == *query.TransportTypeID {
		return domain.ZoneMatchTypeAndDistance
	}
	return domain.ZoneMatchDistanceOnly
}

func (s *transportService) ListZones(ctx context.Context) ([]TransportZone, error) {
	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return zones, nil
}

func (s *transportService) CreateZone(ctx context.Context, cmd UpsertZoneCommand) (TransportZone, error) {
	zone, err := s.zoneFromCommand(ctx, cmd)
	if err != nil {
		return TransportZone{}, err
	}
	now := s.clock()
	zone.ID = transportZoneIDPrefix + s.idGen()
	zone.CreatedAt = now
	zone.UpdatedAt = now
	if err := s.zones.Insert(ctx, zone); err != nil {
		return TransportZone{}, s.mapRepositoryError(err)
	}
	return zone, nil
}

func (s *transportService) UpdateZone(ctx context.Context, zoneID string, cmd UpsertZoneCommand) (TransportZone, error) {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return TransportZone{}, fmt.Errorf("%w: zone id is required", ErrTransportInvalidInput)
	}
	existing, err := s.zones.FindByID(ctx, zoneID)
	if err != nil {
		return TransportZone{}, s.mapRepositoryError(err)
	}
	zone, err := s.zoneFromCommand(ctx, cmd)
	if err != nil {
		return TransportZone{}, err
	}
	zone.ID = existing.ID
	zone.CreatedAt = existing.CreatedAt
	zone.UpdatedAt = s.clock()
	if err := s.zones.Update(ctx, zone); err != nil {
		return TransportZone{}, s.mapRepositoryError(err)
	}
	return zone, nil
}

func (s *transportService) DeleteZone(ctx context.Context, zoneID string) error {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return fmt.Errorf("%w: zone id is required", ErrTransportInvalidInput)
	}
	if err := s.zones.Delete(ctx, zoneID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *transportService) ListTransportTypes(ctx context.Context) ([]TransportType, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return types, nil
}

func (s *transportService) CreateTransportType(ctx context.Context, name string) (TransportType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TransportType{}, fmt.Errorf("%w: name is required", ErrTransportInvalidInput)
	}
	now := s.clock()
	transportType := domain.TransportType{
		ID:        transportTypeIDPrefix + s.idGen(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.types.Insert(ctx, transportType); err != nil {
		return TransportType{}, s.mapRepositoryError(err)
	}
	return transportType, nil
}

// DeleteTransportType refuses to remove a type while any zone still
// references it. Zones scoped to a dangling type would silently lose
// their tier-one matches.
func (s *transportService) DeleteTransportType(ctx context.Context, transportTypeID string) error {
	transportTypeID = strings.TrimSpace(transportTypeID)
	if transportTypeID == "" {
		return fmt.Errorf("%w: transport type id is required", ErrTransportInvalidInput)
	}
	zones, err := s.zones.List(ctx)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	for _, zone := range zones {
		if zone.TransportTypeID != nil && *zone.TransportTypeID == transportTypeID {
			return fmt.Errorf("%w: referenced by zone %s", ErrTransportTypeInUse, zone.ID)
		}
	}
	if err := s.types.Delete(ctx, transportTypeID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *transportService) zoneFromCommand(ctx context.Context, cmd UpsertZoneCommand) (domain.TransportZone, error) {
	zone := domain.TransportZone{
		Name:            strings.TrimSpace(cmd.Name),
		DistanceKmMin:   cmd.DistanceKmMin,
		DistanceKmMax:   cmd.DistanceKmMax,
		MinInclusive:    cmd.MinInclusive,
		MaxInclusive:    cmd.MaxInclusive,
		Price:           cmd.Price,
		PriceIsPerM3:    cmd.PriceIsPerM3,
		MinimalVolume:   cmd.MinimalVolume,
		TransportTypeID: cmd.TransportTypeID,
	}
	if err := domain.ValidateTransportZone(zone); err != nil {
		return domain.TransportZone{}, fmt.Errorf("%w: %v", ErrTransportInvalidInput, err)
	}
	if zone.TransportTypeID != nil {
		if _, err := s.types.FindByID(ctx, *zone.TransportTypeID); err != nil {
			return domain.TransportZone{}, s.mapRepositoryError(err)
		}
	}
	return zone, nil
}

func (s *transportService) mapRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrTransportNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrTransportConflict, err)
		}
	}
	return err
}
