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

const sitesCollection = "constructionSites"

type siteDocument struct {
	CustomerID *string   `firestore:"customerId"`
	Name       string    `firestore:"name"`
	Street     string    `firestore:"street"`
	City       string    `firestore:"city"`
	Distance   *float64  `firestore:"distance"`
	Hidden     bool      `firestore:"hidden"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func newSiteDocument(s domain.ConstructionSite) siteDocument {
	return siteDocument{
		CustomerID: s.CustomerID,
		Name:       s.Name,
		Street:     s.Street,
		City:       s.City,
		Distance:   s.Distance,
		Hidden:     s.Hidden,
		CreatedAt:  s.CreatedAt.UTC(),
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
}

func (d siteDocument) toDomain(id string) domain.ConstructionSite {
	return domain.ConstructionSite{
		ID:         id,
		CustomerID: d.CustomerID,
		Name:       d.Name,
		Street:     d.Street,
		City:       d.City,
		Distance:   d.Distance,
		Hidden:     d.Hidden,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// SiteRepository persists construction sites.
type SiteRepository struct {
	provider *pfirestore.Provider
	sites    *pfirestore.BaseRepository[siteDocument]
}

var _ repositories.SiteRepository = (*SiteRepository)(nil)

// NewSiteRepository constructs a Firestore-backed construction site repository.
func NewSiteRepository(provider *pfirestore.Provider) (*SiteRepository, error) {
	if provider == nil {
		return nil, errors.New("site repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[siteDocument](provider, sitesCollection, nil, nil)
	return &SiteRepository{provider: provider, sites: base}, nil
}

func (r *SiteRepository) Insert(ctx context.Context, site domain.ConstructionSite) error {
	ref, err := r.sites.DocumentRef(ctx, site.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newSiteDocument(site)); err != nil {
		return pfirestore.WrapError("constructionSites.insert", err)
	}
	return nil
}

func (r *SiteRepository) Update(ctx context.Context, site domain.ConstructionSite) error {
	ref, err := r.sites.DocumentRef(ctx, site.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("constructionSites.update", err)
	}
	if err := setDoc(ctx, ref, newSiteDocument(site)); err != nil {
		return pfirestore.WrapError("constructionSites.update", err)
	}
	return nil
}

func (r *SiteRepository) FindByID(ctx context.Context, siteID string) (domain.ConstructionSite, error) {
	doc, err := r.sites.Get(ctx, siteID)
	if err != nil {
		return domain.ConstructionSite{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *SiteRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.ConstructionSite, error) {
	customerID = strings.TrimSpace(customerID)
	docs, err := r.sites.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("customerId", "==", customerID).OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	sites := make([]domain.ConstructionSite, 0, len(docs))
	for _, doc := range docs {
		sites = append(sites, doc.Data.toDomain(doc.ID))
	}
	return sites, nil
}

func (r *SiteRepository) List(ctx context.Context, includeHidden bool) ([]domain.ConstructionSite, error) {
	docs, err := r.sites.Query(ctx, func(q firestore.Query) firestore.Query {
		if !includeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	sites := make([]domain.ConstructionSite, 0, len(docs))
	for _, doc := range docs {
		sites = append(sites, doc.Data.toDomain(doc.ID))
	}
	return sites, nil
}
