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

const carsCollection = "cars"

type carDocument struct {
	RegistrationNumber           string    `firestore:"registrationNumber"`
	DriverID                     *string   `firestore:"driverId"`
	PricePerKm                   *float64  `firestore:"pricePerKm"`
	TransportTypeID              *string   `firestore:"transportTypeId"`
	ChargeTransportAutomatically bool      `firestore:"chargeTransportAutomatically"`
	Hidden                       bool      `firestore:"hidden"`
	CreatedAt                    time.Time `firestore:"createdAt"`
	UpdatedAt                    time.Time `firestore:"updatedAt"`
}

func newCarDocument(c domain.Car) carDocument {
	return carDocument{
		RegistrationNumber:           c.Vehicle.RegistrationNumber,
		DriverID:                     c.Vehicle.DriverID,
		PricePerKm:                   c.Vehicle.PricePerKm,
		TransportTypeID:              c.TransportTypeID,
		ChargeTransportAutomatically: c.ChargeTransportAutomatically,
		Hidden:                       c.Hidden,
		CreatedAt:                    c.CreatedAt.UTC(),
		UpdatedAt:                    c.UpdatedAt.UTC(),
	}
}

func (d carDocument) toDomain(id string) domain.Car {
	return domain.Car{
		ID: id,
		Vehicle: domain.Vehicle{
			RegistrationNumber: d.RegistrationNumber,
			DriverID:           d.DriverID,
			PricePerKm:         d.PricePerKm,
		},
		TransportTypeID:              d.TransportTypeID,
		ChargeTransportAutomatically: d.ChargeTransportAutomatically,
		Hidden:                       d.Hidden,
		CreatedAt:                    d.CreatedAt,
		UpdatedAt:                    d.UpdatedAt,
	}
}

// CarRepository persists mixer trucks.
type CarRepository struct {
	provider *pfirestore.Provider
	cars     *pfirestore.BaseRepository[carDocument]
}

var _ repositories.CarRepository = (*CarRepository)(nil)

// NewCarRepository constructs a Firestore-backed car repository.
func NewCarRepository(provider *pfirestore.Provider) (*CarRepository, error) {
	if provider == nil {
		return nil, errors.New("car repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[carDocument](provider, carsCollection, nil, nil)
	return &CarRepository{provider: provider, cars: base}, nil
}

func (r *CarRepository) Insert(ctx context.Context, car domain.Car) error {
	ref, err := r.cars.DocumentRef(ctx, car.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newCarDocument(car)); err != nil {
		return pfirestore.WrapError("cars.insert", err)
	}
	return nil
}

func (r *CarRepository) Update(ctx context.Context, car domain.Car) error {
	ref, err := r.cars.DocumentRef(ctx, car.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("cars.update", err)
	}
	if err := setDoc(ctx, ref, newCarDocument(car)); err != nil {
		return pfirestore.WrapError("cars.update", err)
	}
	return nil
}

func (r *CarRepository) FindByID(ctx context.Context, carID string) (domain.Car, error) {
	doc, err := r.cars.Get(ctx, carID)
	if err != nil {
		return domain.Car{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByRegistration matches the exact normalized registration number.
func (r *CarRepository) FindByRegistration(ctx context.Context, registration string) (domain.Car, error) {
	registration = domain.NormalizeRegistration(registration)
	docs, err := r.cars.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("registrationNumber", "==", registration).Limit(1)
	})
	if err != nil {
		return domain.Car{}, err
	}
	if len(docs) == 0 {
		return domain.Car{}, pfirestore.WrapError("cars.findByRegistration",
			status.Errorf(codes.NotFound, "car with registration %q not found", registration))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *CarRepository) List(ctx context.Context, includeHidden bool) ([]domain.Car, error) {
	docs, err := r.cars.Query(ctx, func(q firestore.Query) firestore.Query {
		if !includeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("registrationNumber", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	cars := make([]domain.Car, 0, len(docs))
	for _, doc := range docs {
		cars = append(cars, doc.Data.toDomain(doc.ID))
	}
	return cars, nil
}
