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

const contractsCollection = "contracts"

type contractDocument struct {
	Name          string    `firestore:"name"`
	CustomerID    string    `firestore:"customerId"`
	SiteID        string    `firestore:"siteId"`
	RecipeID      *string   `firestore:"recipeId"`
	CarID         *string   `firestore:"carId"`
	DefaultVolume *float64  `firestore:"defaultVolume"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func newContractDocument(c domain.Contract) contractDocument {
	return contractDocument{
		Name:          c.Name,
		CustomerID:    c.CustomerID,
		SiteID:        c.SiteID,
		RecipeID:      c.RecipeID,
		CarID:         c.CarID,
		DefaultVolume: c.DefaultVolume,
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
}

func (d contractDocument) toDomain(id string) domain.Contract {
	return domain.Contract{
		ID:            id,
		Name:          d.Name,
		CustomerID:    d.CustomerID,
		SiteID:        d.SiteID,
		RecipeID:      d.RecipeID,
		CarID:         d.CarID,
		DefaultVolume: d.DefaultVolume,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ContractRepository persists repeat-order contracts.
type ContractRepository struct {
	provider  *pfirestore.Provider
	contracts *pfirestore.BaseRepository[contractDocument]
}

var _ repositories.ContractRepository = (*ContractRepository)(nil)

// NewContractRepository constructs a Firestore-backed contract repository.
func NewContractRepository(provider *pfirestore.Provider) (*ContractRepository, error) {
	if provider == nil {
		return nil, errors.New("contract repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[contractDocument](provider, contractsCollection, nil, nil)
	return &ContractRepository{provider: provider, contracts: base}, nil
}

func (r *ContractRepository) Insert(ctx context.Context, contract domain.Contract) error {
	ref, err := r.contracts.DocumentRef(ctx, contract.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newContractDocument(contract)); err != nil {
		return pfirestore.WrapError("contracts.insert", err)
	}
	return nil
}

func (r *ContractRepository) Update(ctx context.Context, contract domain.Contract) error {
	ref, err := r.contracts.DocumentRef(ctx, contract.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("contracts.update", err)
	}
	if err := setDoc(ctx, ref, newContractDocument(contract)); err != nil {
		return pfirestore.WrapError("contracts.update", err)
	}
	return nil
}

func (r *ContractRepository) Delete(ctx context.Context, contractID string) error {
	ref, err := r.contracts.DocumentRef(ctx, contractID)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, ref); err != nil {
		return pfirestore.WrapError("contracts.delete", err)
	}
	return nil
}

func (r *ContractRepository) FindByID(ctx context.Context, contractID string) (domain.Contract, error) {
	doc, err := r.contracts.Get(ctx, contractID)
	if err != nil {
		return domain.Contract{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *ContractRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Contract, error) {
	customerID = strings.TrimSpace(customerID)
	docs, err := r.contracts.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("customerId", "==", customerID).OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	contracts := make([]domain.Contract, 0, len(docs))
	for _, doc := range docs {
		contracts = append(contracts, doc.Data.toDomain(doc.ID))
	}
	return contracts, nil
}
