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

const customersCollection = "customers"

type customerDocument struct {
	Name      string    `firestore:"name"`
	Street    string    `firestore:"street"`
	City      string    `firestore:"city"`
	Zip       string    `firestore:"zip"`
	CompanyID string    `firestore:"companyId"`
	VATID     string    `firestore:"vatId"`
	Phone     string    `firestore:"phone"`
	Email     string    `firestore:"email"`
	Hidden    bool      `firestore:"hidden"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newCustomerDocument(c domain.Customer) customerDocument {
	return customerDocument{
		Name:      c.Name,
		Street:    c.Street,
		City:      c.City,
		Zip:       c.Zip,
		CompanyID: c.CompanyID,
		VATID:     c.VATID,
		Phone:     c.Phone,
		Email:     c.Email,
		Hidden:    c.Hidden,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (d customerDocument) toDomain(id string) domain.Customer {
	return domain.Customer{
		ID:        id,
		Name:      d.Name,
		Street:    d.Street,
		City:      d.City,
		Zip:       d.Zip,
		CompanyID: d.CompanyID,
		VATID:     d.VATID,
		Phone:     d.Phone,
		Email:     d.Email,
		Hidden:    d.Hidden,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// CustomerRepository persists billable parties.
type CustomerRepository struct {
	provider  *pfirestore.Provider
	customers *pfirestore.BaseRepository[customerDocument]
}

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[customerDocument](provider, customersCollection, nil, nil)
	return &CustomerRepository{provider: provider, customers: base}, nil
}

func (r *CustomerRepository) Insert(ctx context.Context, customer domain.Customer) error {
	ref, err := r.customers.DocumentRef(ctx, customer.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newCustomerDocument(customer)); err != nil {
		return pfirestore.WrapError("customers.insert", err)
	}
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	ref, err := r.customers.DocumentRef(ctx, customer.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("customers.update", err)
	}
	if err := setDoc(ctx, ref, newCustomerDocument(customer)); err != nil {
		return pfirestore.WrapError("customers.update", err)
	}
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	doc, err := r.customers.Get(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns customers ordered by name. NamePrefix filtering relies on
// the standard begins-with range query, so it is case sensitive.
func (r *CustomerRepository) List(ctx context.Context, filter repositories.CustomerListFilter) ([]domain.Customer, error) {
	docs, err := r.customers.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.NamePrefix != nil {
			prefix := strings.TrimSpace(*filter.NamePrefix)
			if prefix != "" {
				q = q.Where("name", ">=", prefix).Where("name", "<", prefix+"")
			}
		}
		if !filter.IncludeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(docs))
	for _, doc := range docs {
		customers = append(customers, doc.Data.toDomain(doc.ID))
	}
	return customers, nil
}
