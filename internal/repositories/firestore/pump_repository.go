package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const pumpsCollection = "pumps"

type pumpDocument struct {
	RegistrationNumber string    `firestore:"registrationNumber"`
	DriverID           *string   `firestore:"driverId"`
	PricePerKm         *float64  `firestore:"pricePerKm"`
	PumpType           string    `firestore:"pumpType"`
	PricePerHour       *float64  `firestore:"pricePerHour"`
	Hidden             bool      `firestore:"hidden"`
	CreatedAt          time.Time `firestore:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt"`
}

func newPumpDocument(p domain.Pump) pumpDocument {
	return pumpDocument{
		RegistrationNumber: p.Vehicle.RegistrationNumber,
		DriverID:           p.Vehicle.DriverID,
		PricePerKm:         p.Vehicle.PricePerKm,
		PumpType:           p.PumpType,
		PricePerHour:       p.PricePerHour,
		Hidden:             p.Hidden,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func (d pumpDocument) toDomain(id string) domain.Pump {
	return domain.Pump{
		ID: id,
		Vehicle: domain.Vehicle{
			RegistrationNumber: d.RegistrationNumber,
			DriverID:           d.DriverID,
			PricePerKm:         d.PricePerKm,
		},
		PumpType:     d.PumpType,
		PricePerHour: d.PricePerHour,
		Hidden:       d.Hidden,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// PumpRepository persists concrete pumps.
type PumpRepository struct {
	provider *pfirestore.Provider
	pumps    *pfirestore.BaseRepository[pumpDocument]
}

var _ repositories.PumpRepository = (*PumpRepository)(nil)

// NewPumpRepository constructs a Firestore-backed pump repository.
func NewPumpRepository(provider *pfirestore.Provider) (*PumpRepository, error) {
	if provider == nil {
		return nil, errors.New("pump repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[pumpDocument](provider, pumpsCollection, nil, nil)
	return &PumpRepository{provider: provider, pumps: base}, nil
}

func (r *PumpRepository) Insert(ctx context.Context, pump domain.Pump) error {
	ref, err := r.pumps.DocumentRef(ctx, pump.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newPumpDocument(pump)); err != nil {
		return pfirestore.WrapError("pumps.insert", err)
	}
	return nil
}

func (r *PumpRepository) Update(ctx context.Context, pump domain.Pump) error {
	ref, err := r.pumps.DocumentRef(ctx, pump.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("pumps.update", err)
	}
	if err := setDoc(ctx, ref, newPumpDocument(pump)); err != nil {
		return pfirestore.WrapError("pumps.update", err)
	}
	return nil
}

func (r *PumpRepository) FindByID(ctx context.Context, pumpID string) (domain.Pump, error) {
	doc, err := r.pumps.Get(ctx, pumpID)
	if err != nil {
		return domain.Pump{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByRegistration matches the exact normalized registration number.
func (r *PumpRepository) FindByRegistration(ctx context.Context, registration string) (domain.Pump, error) {
	registration = domain.NormalizeRegistration(registration)
	docs, err := r.pumps.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("registrationNumber", "==", registration).Limit(1)
	})
	if err != nil {
		return domain.Pump{}, err
	}
	if len(docs) == 0 {
		return domain.Pump{}, pfirestore.WrapError("pumps.findByRegistration",
			status.Errorf(codes.NotFound, "pump with registration %q not found", registration))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *PumpRepository) List(ctx context.Context, includeHidden bool) ([]domain.Pump, error) {
	docs, err := r.pumps.Query(ctx, func(q firestore.Query) firestore.Query {
		if !includeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("registrationNumber", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	pumps := make([]domain.Pump, 0, len(docs))
	for _, doc := range docs {
		pumps = append(pumps, doc.Data.toDomain(doc.ID))
	}
	return pumps, nil
}
