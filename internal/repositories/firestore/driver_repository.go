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

const driversCollection = "drivers"

type driverDocument struct {
	Name      string    `firestore:"name"`
	Contact   string    `firestore:"contact"`
	Hidden    bool      `firestore:"hidden"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newDriverDocument(d domain.Driver) driverDocument {
	return driverDocument{
		Name:      d.Name,
		Contact:   d.Contact,
		Hidden:    d.Hidden,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (d driverDocument) toDomain(id string) domain.Driver {
	return domain.Driver{
		ID:        id,
		Name:      d.Name,
		Contact:   d.Contact,
		Hidden:    d.Hidden,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// DriverRepository persists vehicle operators.
type DriverRepository struct {
	provider *pfirestore.Provider
	drivers  *pfirestore.BaseRepository[driverDocument]
}

var _ repositories.DriverRepository = (*DriverRepository)(nil)

// NewDriverRepository constructs a Firestore-backed driver repository.
func NewDriverRepository(provider *pfirestore.Provider) (*DriverRepository, error) {
	if provider == nil {
		return nil, errors.New("driver repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[driverDocument](provider, driversCollection, nil, nil)
	return &DriverRepository{provider: provider, drivers: base}, nil
}

func (r *DriverRepository) Insert(ctx context.Context, driver domain.Driver) error {
	ref, err := r.drivers.DocumentRef(ctx, driver.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newDriverDocument(driver)); err != nil {
		return pfirestore.WrapError("drivers.insert", err)
	}
	return nil
}

func (r *DriverRepository) Update(ctx context.Context, driver domain.Driver) error {
	ref, err := r.drivers.DocumentRef(ctx, driver.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("drivers.update", err)
	}
	if err := setDoc(ctx, ref, newDriverDocument(driver)); err != nil {
		return pfirestore.WrapError("drivers.update", err)
	}
	return nil
}

func (r *DriverRepository) FindByID(ctx context.Context, driverID string) (domain.Driver, error) {
	doc, err := r.drivers.Get(ctx, driverID)
	if err != nil {
		return domain.Driver{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *DriverRepository) List(ctx context.Context, includeHidden bool) ([]domain.Driver, error) {
	docs, err := r.drivers.Query(ctx, func(q firestore.Query) firestore.Query {
		if !includeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	drivers := make([]domain.Driver, 0, len(docs))
	for _, doc := range docs {
		drivers = append(drivers, doc.Data.toDomain(doc.ID))
	}
	return drivers, nil
}
