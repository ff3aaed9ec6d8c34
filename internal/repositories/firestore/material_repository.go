package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const materialsCollection = "materials"

type materialDocument struct {
	Name      string    `firestore:"name"`
	LongName  string    `firestore:"longName"`
	Type      string    `firestore:"type"`
	Unit      string    `firestore:"unit"`
	Stock     float64   `firestore:"stock"`
	Hidden    bool      `firestore:"hidden"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newMaterialDocument(m domain.Material) materialDocument {
	return materialDocument{
		Name:      m.Name,
		LongName:  m.LongName,
		Type:      string(m.Type),
		Unit:      m.Unit,
		Stock:     m.Stock,
		Hidden:    m.Hidden,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func (d materialDocument) toDomain(id string) domain.Material {
	return domain.Material{
		ID:        id,
		Name:      d.Name,
		LongName:  d.LongName,
		Type:      domain.MaterialType(d.Type),
		Unit:      d.Unit,
		Stock:     d.Stock,
		Hidden:    d.Hidden,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MaterialRepository persists raw ingredients and their stock levels.
type MaterialRepository struct {
	provider  *pfirestore.Provider
	materials *pfirestore.BaseRepository[materialDocument]
}

var _ repositories.MaterialRepository = (*MaterialRepository)(nil)

// NewMaterialRepository constructs a Firestore-backed material repository.
func NewMaterialRepository(provider *pfirestore.Provider) (*MaterialRepository, error) {
	if provider == nil {
		return nil, errors.New("material repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[materialDocument](provider, materialsCollection, nil, nil)
	return &MaterialRepository{provider: provider, materials: base}, nil
}

func (r *MaterialRepository) Insert(ctx context.Context, material domain.Material) error {
	ref, err := r.materials.DocumentRef(ctx, material.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newMaterialDocument(material)); err != nil {
		return pfirestore.WrapError("materials.insert", err)
	}
	return nil
}

func (r *MaterialRepository) Update(ctx context.Context, material domain.Material) error {
	ref, err := r.materials.DocumentRef(ctx, material.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("materials.update", err)
	}
	if err := setDoc(ctx, ref, newMaterialDocument(material)); err != nil {
		return pfirestore.WrapError("materials.update", err)
	}
	return nil
}

func (r *MaterialRepository) FindByID(ctx context.Context, materialID string) (domain.Material, error) {
	doc, err := r.materials.Get(ctx, materialID)
	if err != nil {
		return domain.Material{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *MaterialRepository) FindByName(ctx context.Context, name string) (domain.Material, error) {
	name = strings.TrimSpace(name)
	docs, err := r.materials.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("name", "==", name).Limit(1)
	})
	if err != nil {
		return domain.Material{}, err
	}
	if len(docs) == 0 {
		return domain.Material{}, pfirestore.WrapError("materials.findByName",
			status.Errorf(codes.NotFound, "material %q not found", name))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *MaterialRepository) List(ctx context.Context, filter repositories.MaterialListFilter) ([]domain.Material, error) {
	docs, err := r.materials.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Type != nil {
			q = q.Where("type", "==", string(*filter.Type))
		}
		if !filter.IncludeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	materials := make([]domain.Material, 0, len(docs))
	for _, doc := range docs {
		materials = append(materials, doc.Data.toDomain(doc.ID))
	}
	return materials, nil
}

// AdjustStock applies a signed delta to the stored stock level. Inside a
// unit of work the write is staged with an update-time precondition, so a
// concurrent dose aborts the commit instead of silently overselling.
func (r *MaterialRepository) AdjustStock(ctx context.Context, materialID string, delta float64) (domain.Material, error) {
	materialID = strings.TrimSpace(materialID)
	if materialID == "" {
		return domain.Material{}, repositories.NewStockError(repositories.StockErrorMaterialNotFound, "material id is required", nil)
	}

	ref, err := r.materials.DocumentRef(ctx, materialID)
	if err != nil {
		return domain.Material{}, err
	}

	now := time.Now().UTC()

	if txStateFrom(ctx) != nil {
		snap, err := ref.Get(ctx)
		if err != nil {
			return domain.Material{}, stockReadError(materialID, err)
		}
		doc, err := decodeMaterialSnapshot(snap)
		if err != nil {
			return domain.Material{}, err
		}
		next := doc.Stock + delta
		if next < 0 {
			return domain.Material{}, insufficientStockError(materialID, doc.Stock, delta)
		}
		if err := updateDoc(ctx, ref, []firestore.Update{
			{Path: "stock", Value: next},
			{Path: "updatedAt", Value: now},
		}, firestore.LastUpdateTime(snap.UpdateTime)); err != nil {
			return domain.Material{}, pfirestore.WrapError("materials.adjustStock", err)
		}
		doc.Stock = next
		doc.UpdatedAt = now
		return doc.toDomain(materialID), nil
	}

	var updated domain.Material
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return stockReadError(materialID, err)
		}
		doc, err := decodeMaterialSnapshot(snap)
		if err != nil {
			return err
		}
		next := doc.Stock + delta
		if next < 0 {
			return insufficientStockError(materialID, doc.Stock, delta)
		}
		doc.Stock = next
		doc.UpdatedAt = now
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(materialID)
		return nil
	})
	if err != nil {
		var stockErr *repositories.StockError
		if errors.As(err, &stockErr) {
			return domain.Material{}, stockErr
		}
		return domain.Material{}, pfirestore.WrapError("materials.adjustStock", err)
	}
	return updated, nil
}

func decodeMaterialSnapshot(snap *firestore.DocumentSnapshot) (materialDocument, error) {
	var doc materialDocument
	if err := snap.DataTo(&doc); err != nil {
		return materialDocument{}, fmt.Errorf("firestore materials decode %s: %w", snap.Ref.ID, err)
	}
	return doc, nil
}

func stockReadError(materialID string, err error) error {
	if status.Code(err) == codes.NotFound {
		return repositories.NewStockError(repositories.StockErrorMaterialNotFound,
			fmt.Sprintf("material %s has no stock record", materialID), err)
	}
	return err
}

func insufficientStockError(materialID string, stock, delta float64) error {
	return repositories.NewStockError(repositories.StockErrorInsufficient,
		fmt.Sprintf("material %s stock %.3f cannot absorb %.3f", materialID, stock, delta), nil)
}
