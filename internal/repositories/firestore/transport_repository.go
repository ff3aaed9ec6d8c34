package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const (
	transportTypesCollection = "transportTypes"
	transportZonesCollection = "transportZones"
)

type transportTypeDocument struct {
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newTransportTypeDocument(t domain.TransportType) transportTypeDocument {
	return transportTypeDocument{
		Name:      t.Name,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (d transportTypeDocument) toDomain(id string) domain.TransportType {
	return domain.TransportType{
		ID:        id,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// TransportTypeRepository persists vehicle transport categories.
type TransportTypeRepository struct {
	provider *pfirestore.Provider
	types    *pfirestore.BaseRepository[transportTypeDocument]
}

var _ repositories.TransportTypeRepository = (*TransportTypeRepository)(nil)

// NewTransportTypeRepository constructs a Firestore-backed transport type repository.
func NewTransportTypeRepository(provider *pfirestore.Provider) (*TransportTypeRepository, error) {
	if provider == nil {
		return nil, errors.New("transport type repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[transportTypeDocument](provider, transportTypesCollection, nil, nil)
	return &TransportTypeRepository{provider: provider, types: base}, nil
}

func (r *TransportTypeRepository) Insert(ctx context.Context, transportType domain.TransportType) error {
	ref, err := r.types.DocumentRef(ctx, transportType.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newTransportTypeDocument(transportType)); err != nil {
		return pfirestore.WrapError("transportTypes.insert", err)
	}
	return nil
}

func (r *TransportTypeRepository) Update(ctx context.Context, transportType domain.TransportType) error {
	ref, err := r.types.DocumentRef(ctx, transportType.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("transportTypes.update", err)
	}
	if err := setDoc(ctx, ref, newTransportTypeDocument(transportType)); err != nil {
		return pfirestore.WrapError("transportTypes.update", err)
	}
	return nil
}

func (r *TransportTypeRepository) Delete(ctx context.Context, transportTypeID string) error {
	ref, err := r.types.DocumentRef(ctx, transportTypeID)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, ref); err != nil {
		return pfirestore.WrapError("transportTypes.delete", err)
	}
	return nil
}

func (r *TransportTypeRepository) FindByID(ctx context.Context, transportTypeID string) (domain.TransportType, error) {
	doc, err := r.types.Get(ctx, transportTypeID)
	if err != nil {
		return domain.TransportType{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *TransportTypeRepository) List(ctx context.Context) ([]domain.TransportType, error) {
	docs, err := r.types.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	types := make([]domain.TransportType, 0, len(docs))
	for _, doc := range docs {
		types = append(types, doc.Data.toDomain(doc.ID))
	}
	return types, nil
}

type transportZoneDocument struct {
	Name            string    `firestore:"name"`
	DistanceKmMin   float64   `firestore:"distanceKmMin"`
	DistanceKmMax   float64   `firestore:"distanceKmMax"`
	MinInclusive    bool      `firestore:"minInclusive"`
	MaxInclusive    bool      `firestore:"maxInclusive"`
	Price           float64   `firestore:"price"`
	PriceIsPerM3    bool      `firestore:"priceIsPerM3"`
	MinimalVolume   *float64  `firestore:"minimalVolume"`
	TransportTypeID *string   `firestore:"transportTypeId"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

func newTransportZoneDocument(z domain.TransportZone) transportZoneDocument {
	return transportZoneDocument{
		Name:            z.Name,
		DistanceKmMin:   z.DistanceKmMin,
		DistanceKmMax:   z.DistanceKmMax,
		MinInclusive:    z.MinInclusive,
		MaxInclusive:    z.MaxInclusive,
		Price:           z.Price,
		PriceIsPerM3:    z.PriceIsPerM3,
		MinimalVolume:   z.MinimalVolume,
		TransportTypeID: z.TransportTypeID,
		CreatedAt:       z.CreatedAt.UTC(),
		UpdatedAt:       z.UpdatedAt.UTC(),
	}
}

func (d transportZoneDocument) toDomain(id string) domain.TransportZone {
	return domain.TransportZone{
		ID:              id,
		Name:            d.Name,
		DistanceKmMin:   d.DistanceKmMin,
		DistanceKmMax:   d.DistanceKmMax,
		MinInclusive:    d.MinInclusive,
		MaxInclusive:    d.MaxInclusive,
		Price:           d.Price,
		PriceIsPerM3:    d.PriceIsPerM3,
		MinimalVolume:   d.MinimalVolume,
		TransportTypeID: d.TransportTypeID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// TransportZoneRepository persists distance-range transport pricing rules.
type TransportZoneRepository struct {
	provider *pfirestore.Provider
	zones    *pfirestore.BaseRepository[transportZoneDocument]
}

var _ repositories.TransportZoneRepository = (*TransportZoneRepository)(nil)

// NewTransportZoneRepository constructs a Firestore-backed transport zone repository.
func NewTransportZoneRepository(provider *pfirestore.Provider) (*TransportZoneRepository, error) {
	if provider == nil {
		return nil, errors.New("transport zone repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[transportZoneDocument](provider, transportZonesCollection, nil, nil)
	return &TransportZoneRepository{provider: provider, zones: base}, nil
}

func (r *TransportZoneRepository) Insert(ctx context.Context, zone domain.TransportZone) error {
	ref, err := r.zones.DocumentRef(ctx, zone.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newTransportZoneDocument(zone)); err != nil {
		return pfirestore.WrapError("transportZones.insert", err)
	}
	return nil
}

func (r *TransportZoneRepository) Update(ctx context.Context, zone domain.TransportZone) error {
	ref, err := r.zones.DocumentRef(ctx, zone.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("transportZones.update", err)
	}
	if err := setDoc(ctx, ref, newTransportZoneDocument(zone)); err != nil {
		return pfirestore.WrapError("transportZones.update", err)
	}
	return nil
}

func (r *TransportZoneRepository) Delete(ctx context.Context, zoneID string) error {
	ref, err := r.zones.DocumentRef(ctx, zoneID)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, ref); err != nil {
		return pfirestore.WrapError("transportZones.delete", err)
	}
	return nil
}

func (r *TransportZoneRepository) FindByID(ctx context.Context, zoneID string) (domain.TransportZone, error) {
	doc, err := r.zones.Get(ctx, zoneID)
	if err != nil {
		return domain.TransportZone{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns zones ordered by document ID, which is the stable listing
// order the zone matcher relies on for tie-breaking.
func (r *TransportZoneRepository) List(ctx context.Context) ([]domain.TransportZone, error) {
	docs, err := r.zones.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	zones := make([]domain.TransportZone, 0, len(docs))
	for _, doc := range docs {
		zones = append(zones, doc.Data.toDomain(doc.ID))
	}
	return zones, nil
}
