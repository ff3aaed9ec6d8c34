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

const pumpOrdersCollection = "pumpOrders"

type pumpSnapshotDocument struct {
	RegistrationNumber string   `firestore:"registrationNumber"`
	Driver             string   `firestore:"driver"`
	DriverContact      string   `firestore:"driverContact"`
	PumpType           string   `firestore:"pumpType"`
	PricePerHour       *float64 `firestore:"pricePerHour"`
}

type pumpOrderDocument struct {
	Number string `firestore:"number"`
	Status string `firestore:"status"`

	PumpID     *string              `firestore:"pumpId"`
	Pump       pumpSnapshotDocument `firestore:"pump"`
	CustomerID *string              `firestore:"customerId"`
	Customer   string               `firestore:"customer"`
	SiteID     *string              `firestore:"siteId"`
	Site       string               `firestore:"site"`

	Hours                 *float64 `firestore:"hours"`
	PricePerHourOverride  *float64 `firestore:"pricePerHourOverride"`
	PriceSurchargesTotals *float64 `firestore:"priceSurchargesTotals"`

	Comment    string                  `firestore:"comment"`
	Surcharges []surchargeItemDocument `firestore:"surcharges"`

	Hidden    bool      `firestore:"hidden"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newPumpOrderDocument(o domain.PumpOrder) pumpOrderDocument {
	return pumpOrderDocument{
		Number: o.Number,
		Status: string(o.Status),
		PumpID: o.PumpID,
		Pump: pumpSnapshotDocument{
			RegistrationNumber: o.Pump.RegistrationNumber,
			Driver:             o.Pump.Driver,
			DriverContact:      o.Pump.DriverContact,
			PumpType:           o.Pump.PumpType,
			PricePerHour:       o.Pump.PricePerHour,
		},
		CustomerID:            o.CustomerID,
		Customer:              o.Customer,
		SiteID:                o.SiteID,
		Site:                  o.Site,
		Hours:                 o.Hours,
		PricePerHourOverride:  o.PricePerHourOverride,
		PriceSurchargesTotals: o.PriceSurchargesTotals,
		Comment:               o.Comment,
		Surcharges:            newSurchargeItemDocuments(o.Surcharges),
		Hidden:                o.Hidden,
		CreatedAt:             o.CreatedAt.UTC(),
		UpdatedAt:             o.UpdatedAt.UTC(),
	}
}

func (d pumpOrderDocument) toDomain(id string) domain.PumpOrder {
	return domain.PumpOrder{
		ID:     id,
		Number: d.Number,
		Status: domain.OrderStatus(d.Status),
		PumpID: d.PumpID,
		Pump: domain.PumpSnapshot{
			RegistrationNumber: d.Pump.RegistrationNumber,
			Driver:             d.Pump.Driver,
			DriverContact:      d.Pump.DriverContact,
			PumpType:           d.Pump.PumpType,
			PricePerHour:       d.Pump.PricePerHour,
		},
		CustomerID:            d.CustomerID,
		Customer:              d.Customer,
		SiteID:                d.SiteID,
		Site:                  d.Site,
		Hours:                 d.Hours,
		PricePerHourOverride:  d.PricePerHourOverride,
		PriceSurchargesTotals: d.PriceSurchargesTotals,
		Comment:               d.Comment,
		Surcharges:            surchargeItemsToDomain(d.Surcharges),
		Hidden:                d.Hidden,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

// PumpOrderRepository persists pump orders and their surcharge lines.
type PumpOrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[pumpOrderDocument]
}

var _ repositories.PumpOrderRepository = (*PumpOrderRepository)(nil)

// NewPumpOrderRepository constructs a Firestore-backed pump order repository.
func NewPumpOrderRepository(provider *pfirestore.Provider) (*PumpOrderRepository, error) {
	if provider == nil {
		return nil, errors.New("pump order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[pumpOrderDocument](provider, pumpOrdersCollection, nil, nil)
	return &PumpOrderRepository{provider: provider, orders: base}, nil
}

func (r *PumpOrderRepository) Insert(ctx context.Context, order domain.PumpOrder) error {
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newPumpOrderDocument(order)); err != nil {
		return pfirestore.WrapError("pumpOrders.insert", err)
	}
	return nil
}

func (r *PumpOrderRepository) Update(ctx context.Context, order domain.PumpOrder) error {
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("pumpOrders.update", err)
	}
	if err := setDoc(ctx, ref, newPumpOrderDocument(order)); err != nil {
		return pfirestore.WrapError("pumpOrders.update", err)
	}
	return nil
}

func (r *PumpOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error {
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if err := updateDoc(ctx, ref, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}); err != nil {
		return pfirestore.WrapError("pumpOrders.updateStatus", err)
	}
	return nil
}

func (r *PumpOrderRepository) FindByID(ctx context.Context, orderID string) (domain.PumpOrder, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.PumpOrder{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *PumpOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.PumpOrder, error) {
	docs, err := r.orders.Query(ctx, buildOrderListQuery(filter))
	if err != nil {
		return nil, err
	}
	orders := make([]domain.PumpOrder, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders, nil
}

func (r *PumpOrderRepository) ReplaceSurcharges(ctx context.Context, orderID string, items []domain.SurchargeItem, updatedAt time.Time) error {
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if err := updateDoc(ctx, ref, []firestore.Update{
		{Path: "surcharges", Value: newSurchargeItemDocuments(items)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}); err != nil {
		return pfirestore.WrapError("pumpOrders.replaceSurcharges", err)
	}
	return nil
}
