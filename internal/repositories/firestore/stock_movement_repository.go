package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const stockMovementsCollection = "stockMovements"

type stockMovementDocument struct {
	MaterialID string    `firestore:"materialId"`
	Amount     float64   `firestore:"amount"`
	Reason     string    `firestore:"reason"`
	OrderID    *string   `firestore:"orderId"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

func newStockMovementDocument(m domain.StockMovement) stockMovementDocument {
	return stockMovementDocument{
		MaterialID: m.MaterialID,
		Amount:     m.Amount,
		Reason:     m.Reason,
		OrderID:    m.OrderID,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func (d stockMovementDocument) toDomain(id string) domain.StockMovement {
	return domain.StockMovement{
		ID:         id,
		MaterialID: d.MaterialID,
		Amount:     d.Amount,
		Reason:     d.Reason,
		OrderID:    d.OrderID,
		CreatedAt:  d.CreatedAt,
	}
}

// StockMovementRepository records the append-only stock audit trail.
type StockMovementRepository struct {
	provider  *pfirestore.Provider
	movements *pfirestore.BaseRepository[stockMovementDocument]
}

var _ repositories.StockMovementRepository = (*StockMovementRepository)(nil)

// NewStockMovementRepository constructs a Firestore-backed stock movement repository.
func NewStockMovementRepository(provider *pfirestore.Provider) (*StockMovementRepository, error) {
	if provider == nil {
		return nil, errors.New("stock movement repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[stockMovementDocument](provider, stockMovementsCollection, nil, nil)
	return &StockMovementRepository{provider: provider, movements: base}, nil
}

func (r *StockMovementRepository) Append(ctx context.Context, movement domain.StockMovement) error {
	ref, err := r.movements.DocumentRef(ctx, movement.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newStockMovementDocument(movement)); err != nil {
		return pfirestore.WrapError("stockMovements.append", err)
	}
	return nil
}

func (r *StockMovementRepository) ListByMaterial(ctx context.Context, materialID string, limit int) ([]domain.StockMovement, error) {
	materialID = strings.TrimSpace(materialID)
	docs, err := r.movements.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("materialId", "==", materialID).OrderBy("createdAt", firestore.Desc)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	movements := make([]domain.StockMovement, 0, len(docs))
	for _, doc := range docs {
		movements = append(movements, doc.Data.toDomain(doc.ID))
	}
	return movements, nil
}
