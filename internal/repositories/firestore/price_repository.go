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

const pricesCollection = "prices"

type priceDocument struct {
	CustomerID string    `firestore:"customerId"`
	RecipeID   *string   `firestore:"recipeId"`
	SiteID     *string   `firestore:"siteId"`
	Amount     float64   `firestore:"amount"`
	Type       string    `firestore:"type"`
	Note       string    `firestore:"note"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func newPriceDocument(p domain.Price) priceDocument {
	return priceDocument{
		CustomerID: p.CustomerID,
		RecipeID:   p.RecipeID,
		SiteID:     p.SiteID,
		Amount:     p.Amount,
		Type:       string(p.Type),
		Note:       p.Note,
		CreatedAt:  p.CreatedAt.UTC(),
		UpdatedAt:  p.UpdatedAt.UTC(),
	}
}

func (d priceDocument) toDomain(id string) domain.Price {
	return domain.Price{
		ID:         id,
		CustomerID: d.CustomerID,
		RecipeID:   d.RecipeID,
		SiteID:     d.SiteID,
		Amount:     d.Amount,
		Type:       domain.PriceType(d.Type),
		Note:       d.Note,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// PriceRepository persists discount rules. Absent scope fields are stored
// as nulls so equality queries distinguish "no recipe" from "any recipe".
type PriceRepository struct {
	provider *pfirestore.Provider
	prices   *pfirestore.BaseRepository[priceDocument]
}

var _ repositories.PriceRepository = (*PriceRepository)(nil)

// NewPriceRepository constructs a Firestore-backed price rule repository.
func NewPriceRepository(provider *pfirestore.Provider) (*PriceRepository, error) {
	if provider == nil {
		return nil, errors.New("price repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[priceDocument](provider, pricesCollection, nil, nil)
	return &PriceRepository{provider: provider, prices: base}, nil
}

func (r *PriceRepository) Insert(ctx context.Context, price domain.Price) error {
	ref, err := r.prices.DocumentRef(ctx, price.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newPriceDocument(price)); err != nil {
		return pfirestore.WrapError("prices.insert", err)
	}
	return nil
}

func (r *PriceRepository) Update(ctx context.Context, price domain.Price) error {
	ref, err := r.prices.DocumentRef(ctx, price.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("prices.update", err)
	}
	if err := setDoc(ctx, ref, newPriceDocument(price)); err != nil {
		return pfirestore.WrapError("prices.update", err)
	}
	return nil
}

func (r *PriceRepository) Delete(ctx context.Context, priceID string) error {
	ref, err := r.prices.DocumentRef(ctx, priceID)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, ref); err != nil {
		return pfirestore.WrapError("prices.delete", err)
	}
	return nil
}

func (r *PriceRepository) FindByID(ctx context.Context, priceID string) (domain.Price, error) {
	doc, err := r.prices.Get(ctx, priceID)
	if err != nil {
		return domain.Price{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByScope matches rules whose scope fields equal the query exactly,
// nulls included. Results come back ordered by document ID so precedence
// ties resolve the same way on every call.
func (r *PriceRepository) FindByScope(ctx context.Context, scope repositories.PriceScope) ([]domain.Price, error) {
	docs, err := r.prices.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("customerId", "==", strings.TrimSpace(scope.CustomerID))
		q = q.Where("recipeId", "==", optionalScopeValue(scope.RecipeID))
		q = q.Where("siteId", "==", optionalScopeValue(scope.SiteID))
		return q.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	prices := make([]domain.Price, 0, len(docs))
	for _, doc := range docs {
		prices = append(prices, doc.Data.toDomain(doc.ID))
	}
	return prices, nil
}

func (r *PriceRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Price, error) {
	customerID = strings.TrimSpace(customerID)
	docs, err := r.prices.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("customerId", "==", customerID).OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	prices := make([]domain.Price, 0, len(docs))
	for _, doc := range docs {
		prices = append(prices, doc.Data.toDomain(doc.ID))
	}
	return prices, nil
}

func optionalScopeValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
