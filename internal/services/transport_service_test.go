package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
)

func newTestTransportService(t *testing.T, zones *stubZoneRepo, types *stubTransportTypeRepo) TransportService {
	t.Helper()
	if zones == nil {
		zones = &stubZoneRepo{}
	}
	if types == nil {
		types = &stubTransportTypeRepo{}
	}
	svc, err := NewTransportService(TransportServiceDeps{
		Zones: zones,
		Types: types,
		Clock: func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewTransportService: %v", err)
	}
	return svc
}

func TestMatchZonesRanking(t *testing.T) {
	ctx := context.Background()
	typeID := "tt_mixer"
	otherType := "tt_trailer"

	zones := &stubZoneRepo{
		listFn: func(context.Context) ([]domain.TransportZone, error) {
			return []domain.TransportZone{
				{ID: "tz_far", DistanceKmMin: 20, DistanceKmMax: 40, MinInclusive: true, MaxInclusive: true},
				{ID: "tz_near_typed", DistanceKmMin: 0, DistanceKmMax: 10, MinInclusive: true, MaxInclusive: true, TransportTypeID: &typeID},
				{ID: "tz_near", DistanceKmMin: 0, DistanceKmMax: 10, MinInclusive: true, MaxInclusive: true},
				{ID: "tz_near_other", DistanceKmMin: 0, DistanceKmMax: 10, MinInclusive: true, MaxInclusive: true, TransportTypeID: &otherType},
			}, nil
		},
	}
	svc := newTestTransportService(t, zones, nil)

	ranked, err := svc.MatchZones(ctx, MatchZonesQuery{Distance: 5, TransportTypeID: &typeID})
	if err != nil {
		t.Fatalf("MatchZones: %v", err)
	}
	if len(ranked) != 4 {
		t.Fatalf("ranked %d zones, want all 4", len(ranked))
	}
	if ranked[0].Zone.ID != "tz_near_typed" || ranked[0].Tier != domain.ZoneMatchTypeAndDistance {
		t.Fatalf("first = %s tier %d, want tz_near_typed tier 1", ranked[0].Zone.ID, ranked[0].Tier)
	}
	// Distance-only matches keep their listing order.
	if ranked[1].Zone.ID != "tz_near" || ranked[1].Tier != domain.ZoneMatchDistanceOnly {
		t.Fatalf("second = %s tier %d", ranked[1].Zone.ID, ranked[1].Tier)
	}
	if ranked[2].Zone.ID != "tz_near_other" || ranked[2].Tier != domain.ZoneMatchDistanceOnly {
		t.Fatalf("third = %s tier %d", ranked[2].Zone.ID, ranked[2].Tier)
	}
	if ranked[3].Zone.ID != "tz_far" || ranked[3].Tier != domain.ZoneMatchNone {
		t.Fatalf("fourth = %s tier %d, want tz_far tier 3", ranked[3].Zone.ID, ranked[3].Tier)
	}
}

func TestMatchZonesWithoutVehicleType(t *testing.T) {
	typeID := "tt_mixer"
	zones := &stubZoneRepo{
		listFn: func(context.Context) ([]domain.TransportZone, error) {
			return []domain.TransportZone{
				{ID: "tz_typed", DistanceKmMin: 0, DistanceKmMax: 10, MinInclusive: true, MaxInclusive: true, TransportTypeID: &typeID},
			}, nil
		},
	}
	svc := newTestTransportService(t, zones, nil)

	ranked, err := svc.MatchZones(context.Background(), MatchZonesQuery{Distance: 5})
	if err != nil {
		t.Fatalf("MatchZones: %v", err)
	}
	if ranked[0].Tier != domain.ZoneMatchDistanceOnly {
		t.Fatalf("tier = %d, want distance-only when the query has no vehicle type", ranked[0].Tier)
	}
}

func TestMatchZonesRejectsNegativeDistance(t *testing.T) {
	svc := newTestTransportService(t, nil, nil)
	_, err := svc.MatchZones(context.Background(), MatchZonesQuery{Distance: -1})
	if !errors.Is(err, ErrTransportInvalidInput) {
		t.Fatalf("err = %v, want ErrTransportInvalidInput", err)
	}
}

func TestZoneBoundaryInclusivity(t *testing.T) {
	cases := []struct {
		name     string
		zone     domain.TransportZone
		distance float64
		want     bool
	}{
		{"inclusive lower bound", domain.TransportZone{DistanceKmMin: 10, DistanceKmMax: 20, MinInclusive: true, MaxInclusive: true}, 10, true},
		{"exclusive lower bound", domain.TransportZone{DistanceKmMin: 10, DistanceKmMax: 20, MaxInclusive: true}, 10, false},
		{"inclusive upper bound", domain.TransportZone{DistanceKmMin: 0, DistanceKmMax: 20, MinInclusive: true, MaxInclusive: true}, 20, true},
		{"exclusive upper bound", domain.TransportZone{DistanceKmMin: 0, DistanceKmMax: 20, MinInclusive: true}, 20, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.zone.Matches(tc.distance); got != tc.want {
				t.Fatalf("Matches(%v) = %v, want %v", tc.distance, got, tc.want)
			}
		})
	}
}

func TestCreateZoneValidatesInterval(t *testing.T) {
	svc := newTestTransportService(t, nil, nil)
	_, err := svc.CreateZone(context.Background(), UpsertZoneCommand{
		Name:          "backwards",
		DistanceKmMin: 20,
		DistanceKmMax: 10,
	})
	if !errors.Is(err, ErrTransportInvalidInput) {
		t.Fatalf("err = %v, want ErrTransportInvalidInput", err)
	}
}

func TestCreateZoneChecksTransportType(t *testing.T) {
	missing := "tt_missing"
	types := &stubTransportTypeRepo{
		findFn: func(context.Context, string) (domain.TransportType, error) {
			return domain.TransportType{}, notFoundErr("transport type not found")
		},
	}
	svc := newTestTransportService(t, nil, types)
	_, err := svc.CreateZone(context.Background(), UpsertZoneCommand{
		Name:            "typed",
		DistanceKmMax:   10,
		TransportTypeID: &missing,
	})
	if !errors.Is(err, ErrTransportNotFound) {
		t.Fatalf("err = %v, want ErrTransportNotFound", err)
	}
}

func TestUpdateZoneKeepsIdentity(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var updated domain.TransportZone
	zones := &stubZoneRepo{
		findFn: func(context.Context, string) (domain.TransportZone, error) {
			return domain.TransportZone{ID: "tz_1", Name: "old", CreatedAt: created}, nil
		},
		updateFn: func(_ context.Context, zone domain.TransportZone) error {
			updated = zone
			return nil
		},
	}
	svc := newTestTransportService(t, zones, nil)

	zone, err := svc.UpdateZone(context.Background(), "tz_1", UpsertZoneCommand{
		Name:          "renamed",
		DistanceKmMax: 15,
		Price:         300,
	})
	if err != nil {
		t.Fatalf("UpdateZone: %v", err)
	}
	if zone.ID != "tz_1" || !zone.CreatedAt.Equal(created) {
		t.Fatalf("zone identity changed: %+v", zone)
	}
	if updated.Name != "renamed" || updated.Price != 300 {
		t.Fatalf("stored zone = %+v", updated)
	}
}

func TestDeleteTransportTypeInUse(t *testing.T) {
	typeID := "tt_mixer"
	zones := &stubZoneRepo{
		listFn: func(context.Context) ([]domain.TransportZone, error) {
			return []domain.TransportZone{
				{ID: "tz_1", TransportTypeID: &typeID},
			}, nil
		},
	}
	deleted := false
	types := &stubTransportTypeRepo{
		deleteFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	svc := newTestTransportService(t, zones, types)

	if err := svc.DeleteTransportType(context.Background(), typeID); !errors.Is(err, ErrTransportTypeInUse) {
		t.Fatalf("err = %v, want ErrTransportTypeInUse", err)
	}
	if deleted {
		t.Fatal("transport type was deleted while still referenced")
	}

	if err := svc.DeleteTransportType(context.Background(), "tt_unused"); err != nil {
		t.Fatalf("DeleteTransportType: %v", err)
	}
	if !deleted {
		t.Fatal("unreferenced transport type was not deleted")
	}
}
