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
	companySurchargesCollection = "companySurcharges"
	pumpSurchargesCollection    = "pumpSurcharges"
)

type surchargeDocument struct {
	Name      string    `firestore:"name"`
	Price     float64   `firestore:"price"`
	Type      string    `firestore:"type"`
	UnitName  *string   `firestore:"unitName"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CompanySurchargeRepository persists facility-wide surcharge definitions.
type CompanySurchargeRepository struct {
	provider   *pfirestore.Provider
	surcharges *pfirestore.BaseRepository[surchargeDocument]
}

var _ repositories.CompanySurchargeRepository = (*CompanySurchargeRepository)(nil)

// NewCompanySurchargeRepository constructs a Firestore-backed company surcharge repository.
func NewCompanySurchargeRepository(provider *pfirestore.Provider) (*CompanySurchargeRepository, error) {
	if provider == nil {
		return nil, errors.New("company surcharge repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[surchargeDocument](provider, companySurchargesCollection, nil, nil)
	return &CompanySurchargeRepository{provider: provider, surcharges: base}, nil
}

func (r *CompanySurchargeRepository) Insert(ctx context.Context, surcharge domain.CompanySurcharge) error {
	ref, err := r.surcharges.DocumentRef(ctx, surcharge.ID)
	if err != nil {
		return err
	}
	doc := surchargeDocument{
		Name:      surcharge.Name,
		Price:     surcharge.Price,
		Type:      string(surcharge.Type),
		UnitName:  surcharge.UnitName,
		CreatedAt: surcharge.CreatedAt.UTC(),
		UpdatedAt: surcharge.UpdatedAt.UTC(),
	}
	if err := createDoc(ctx, ref, doc); err != nil {
		return pfirestore.WrapError("companySurcharges.insert", err)
	}
	return nil
}

func (r *CompanySurchargeRepository) Update(ctx context.Context, surcharge domain.CompanySurcharge) error {
	ref, err := r.surcharges.DocumentRef(ctx, surcharge.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("companySurcharges.update", err)
	}
	doc := surchargeDocument{
		Name:      surcharge.Name,
		Price:     surcharge.Price,
		Type:      string(surcharge.Type),
		UnitName:  surcharge.UnitName,
		CreatedAt: surcharge.CreatedAt.UTC(),
		UpdatedAt: surcharge.UpdatedAt.UTC(),
	}
	if err := setDoc(ctx, ref, doc); err != nil {
		return pfirestore.WrapError("companySurcharges.update", err)
	}
	return nil
}

func (r *CompanySurchargeRepository) Delete(ctx context.Context, surchargeID string) error {
	ref, err := r.surcharges.DocumentRef(ctx, surchargeID)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, ref); err != nil {
		return pfirestore.WrapError("companySurcharges.delete", err)
	}
	return nil
}

func (r *CompanySurchargeRepository) FindByID(ctx context.Context, surchargeID string) (domain.CompanySurcharge, error) {
	doc, err := r.surcharges.Get(ctx, surchargeID)
	if err != nil {
		return domain.CompanySurcharge{}, err
	}
	return domain.CompanySurcharge{
		ID:        doc.ID,
		Name:      doc.Data.Name,
		Price:     doc.Data.Price,
		Type:      domain.SurchargeType(doc.Data.Type),
		UnitName:  doc.Data.UnitName,
		CreatedAt: doc.Data.CreatedAt,
		UpdatedAt: doc.Data.UpdatedAt,
	}, nil
}

func (r *CompanySurchargeRepository) List(ctx context.Context) ([]domain.CompanySurcharge, error) {
	docs, err := r.surcharges.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	surcharges := make([]domain.CompanySurcharge, 0, len(docs))
	for _, doc := range docs {
		surcharges = append(surcharges, domain.CompanySurcharge{
			ID:        doc.ID,
			Name:      doc.Data.Name,
			Price:     doc.Data.Price,
			Type:      domain.SurchargeType(doc.Data.Type),
			UnitName:  doc.Data.UnitName,
			CreatedAt: doc.Data.CreatedAt,
			UpdatedAt: doc.Data.UpdatedAt,
		})
	}
	return surcharges, nil
}

// PumpSurchargeRepository persists pump surcharge definitions.
type PumpSurchargeRepository struct {
	provider   *pfirestore.Provider
	surcharges *pfirestore.BaseRepository[surchargeDocument]
}

var _ repositories.PumpSurchargeRepository = (*PumpSurchargeRepository)(nil)

// NewPumpSurchargeRepository constructs a Firestore-backed pump surcharge repository.
func NewPumpSurchargeRepository(provider *pfirestore.Provider) (*PumpSurchargeRepository, error) {
	if provider == nil {
		return nil, errors.New("pump surcharge repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[surchargeDocument](provider, pumpSurchargesCollection, nil, nil)
	return &PumpSurchargeRepository{provider: provider, surcharges: base}, nil
}

func (r *PumpSurchargeRepository) Insert(ctx context.Context, surcharge domain.PumpSurcharge) error {
	ref, err := r.surcharges.DocumentRef(ctx, surcharge.ID)
	if err != nil {
		return err
	}
	doc := surchargeDocument{
		Name:      surcharge.Name,
		Price:     surcharge.Price,
		Type:      string(surcharge.Type),
		UnitName:  surcharge.UnitName,
		CreatedAt: surcharge.CreatedAt.UTC(),
		UpdatedAt: surcharge.UpdatedAt.UTC(),
	}
	if err := createDoc(ctx, ref, doc); err != nil {
		return pfirestore.WrapError("pumpSurcharges.insert", err)
	}
	return nil
}

func (r *PumpSurchargeRepository) Update(ctx context.Context, surcharge domain.PumpSurcharge) error {
	ref, err := r.surcharges.DocumentRef(ctx, surcharge.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("pumpSurcharges.update", err)
	}
	doc := surchargeDocument{
		Name:      surcharge.Name,
		Price:     surcharge.Price,
		Type:      string(surcharge.Type),
		UnitName:  surcharge.UnitName,
		CreatedAt: surcharge.CreatedAt.UTC(),
		UpdatedAt: surcharge.UpdatedAt.UTC(),
	}
	if err := setDoc(ctx, ref, doc); err != nil {
		return pfirestore.WrapError("pumpSurcharges.update", err)
	}
	return nil
}

func (r *PumpSurchargeRepository) Delete(ctx context.Context, surchargeID string) error {
	ref, err := r.surcharges.DocumentRef(ctx, surchargeID)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, ref); err != nil {
		return pfirestore.WrapError("pumpSurcharges.delete", err)
	}
	return nil
}

func (r *PumpSurchargeRepository) FindByID(ctx context.Context, surchargeID string) (domain.PumpSurcharge, error) {
	doc, err := r.surcharges.Get(ctx, surchargeID)
	if err != nil {
		return domain.PumpSurcharge{}, err
	}
	return domain.PumpSurcharge{
		ID:        doc.ID,
		Name:      doc.Data.Name,
		Price:     doc.Data.Price,
		Type:      domain.SurchargeType(doc.Data.Type),
		UnitName:  doc.Data.UnitName,
		CreatedAt: doc.Data.CreatedAt,
		UpdatedAt: doc.Data.UpdatedAt,
	}, nil
}

func (r *PumpSurchargeRepository) List(ctx context.Context) ([]domain.PumpSurcharge, error) {
	docs, err := r.surcharges.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	surcharges := make([]domain.PumpSurcharge, 0, len(docs))
	for _, doc := range docs {
		surcharges = append(surcharges, domain.PumpSurcharge{
			ID:        doc.ID,
			Name:      doc.Data.Name,
			Price:     doc.Data.Price,
			Type:      domain.SurchargeType(doc.Data.Type),
			UnitName:  doc.Data.UnitName,
			CreatedAt: doc.Data.CreatedAt,
			UpdatedAt: doc.Data.UpdatedAt,
		})
	}
	return surcharges, nil
}
