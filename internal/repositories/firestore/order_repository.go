package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const (
	ordersCollection       = "orders"
	orderDeliveriesPattern = "orders/%s/deliveries"
	orderBatchesPattern    = "orders/%s/batches"
	orderMaterialsPattern  = "orders/%s/materials"
)

type recipeSnapshotDocument struct {
	Name                      string   `firestore:"name"`
	Number                    *string  `firestore:"number"`
	RecipeClass               string   `firestore:"recipeClass"`
	Description               string   `firestore:"description"`
	Comment                   string   `firestore:"comment"`
	ConsistencyClass          string   `firestore:"consistencyClass"`
	ExposureClasses           string   `firestore:"exposureClasses"`
	BatchVolumeLimit          *float64 `firestore:"batchVolumeLimit"`
	LiftPourDuration          *float64 `firestore:"liftPourDuration"`
	LiftSemiPourDuration      *float64 `firestore:"liftSemiPourDuration"`
	MixerSemiOpeningDuration  *float64 `firestore:"mixerSemiOpeningDuration"`
	MixerSemiOpening2Duration *float64 `firestore:"mixerSemiOpening2Duration"`
	MixerOpeningDuration      *float64 `firestore:"mixerOpeningDuration"`
	MixingDuration            *float64 `firestore:"mixingDuration"`
	KValue                    *float64 `firestore:"kValue"`
	KRatio                    *float64 `firestore:"kRatio"`
	DMax                      *float64 `firestore:"dMax"`
	ClContent                 *float64 `firestore:"clContent"`
	VC                        *float64 `firestore:"vc"`
	CementMin                 *float64 `firestore:"cementMin"`
	WorkabilityTime           *float64 `firestore:"workabilityTime"`
	Price                     *float64 `firestore:"price"`
	PriceNote                 string   `firestore:"priceNote"`
}

func newRecipeSnapshotDocument(s domain.RecipeSnapshot) recipeSnapshotDocument {
	return recipeSnapshotDocument{
		Name:                      s.Name,
		Number:                    s.Number,
		RecipeClass:               s.RecipeClass,
		Description:               s.Description,
		Comment:                   s.Comment,
		ConsistencyClass:          s.ConsistencyClass,
		ExposureClasses:           s.ExposureClasses,
		BatchVolumeLimit:          s.BatchVolumeLimit,
		LiftPourDuration:          s.LiftPourDuration,
		LiftSemiPourDuration:      s.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  s.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: s.MixerSemiOpening2Duration,
		MixerOpeningDuration:      s.MixerOpeningDuration,
		MixingDuration:            s.MixingDuration,
		KValue:                    s.KValue,
		KRatio:                    s.KRatio,
		DMax:                      s.DMax,
		ClContent:                 s.ClContent,
		VC:                        s.VC,
		CementMin:                 s.CementMin,
		WorkabilityTime:           s.WorkabilityTime,
		Price:                     s.Price,
		PriceNote:                 s.PriceNote,
	}
}

func (d recipeSnapshotDocument) toDomain() domain.RecipeSnapshot {
	return domain.RecipeSnapshot{
		Name:                      d.Name,
		Number:                    d.Number,
		RecipeClass:               d.RecipeClass,
		Description:               d.Description,
		Comment:                   d.Comment,
		ConsistencyClass:          d.ConsistencyClass,
		ExposureClasses:           d.ExposureClasses,
		BatchVolumeLimit:          d.BatchVolumeLimit,
		LiftPourDuration:          d.LiftPourDuration,
		LiftSemiPourDuration:      d.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  d.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: d.MixerSemiOpening2Duration,
		MixerOpeningDuration:      d.MixerOpeningDuration,
		MixingDuration:            d.MixingDuration,
		KValue:                    d.KValue,
		KRatio:                    d.KRatio,
		DMax:                      d.DMax,
		ClContent:                 d.ClContent,
		VC:                        d.VC,
		CementMin:                 d.CementMin,
		WorkabilityTime:           d.WorkabilityTime,
		Price:                     d.Price,
		PriceNote:                 d.PriceNote,
	}
}

type surchargeItemDocument struct {
	ID       string   `firestore:"id"`
	Name     string   `firestore:"name"`
	Price    float64  `firestore:"price"`
	Type     string   `firestore:"type"`
	UnitName *string  `firestore:"unitName"`
	Amount   *float64 `firestore:"amount"`
}

func newSurchargeItemDocuments(items []domain.SurchargeItem) []surchargeItemDocument {
	docs := make([]surchargeItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, surchargeItemDocument{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Type:     string(item.Type),
			UnitName: item.UnitName,
			Amount:   item.Amount,
		})
	}
	return docs
}

func surchargeItemsToDomain(docs []surchargeItemDocument) []domain.SurchargeItem {
	if len(docs) == 0 {
		return nil
	}
	items := make([]domain.SurchargeItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.SurchargeItem{
			ID:       doc.ID,
			Name:     doc.Name,
			Price:    doc.Price,
			Type:     domain.SurchargeType(doc.Type),
			UnitName: doc.UnitName,
			Amount:   doc.Amount,
		})
	}
	return items
}

type orderDocument struct {
	Number string  `firestore:"number"`
	Status string  `firestore:"status"`
	Volume float64 `firestore:"volume"`

	Recipe     recipeSnapshotDocument `firestore:"recipe"`
	RecipeID   *string                `firestore:"recipeId"`
	CustomerID *string                `firestore:"customerId"`
	Customer   string                 `firestore:"customer"`
	SiteID     *string                `firestore:"siteId"`
	Site       string                 `firestore:"site"`
	ContractID *string                `firestore:"contractId"`

	Comment          string `firestore:"comment"`
	WithoutTransport bool   `firestore:"withoutTransport"`

	PriceConcreteOverride   *float64 `firestore:"priceConcreteOverride"`
	PriceTransportOverride  *float64 `firestore:"priceTransportOverride"`
	PriceSurchargesOverride *float64 `firestore:"priceSurchargesOverride"`
	DistanceDrivenOverride  *float64 `firestore:"distanceDrivenOverride"`
	PricePerKmOverride      *float64 `firestore:"pricePerKmOverride"`
	TransportZoneOverride   *string  `firestore:"transportZoneOverride"`

	Surcharges []surchargeItemDocument `firestore:"surcharges"`

	Hidden    bool      `firestore:"hidden"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newOrderDocument(o domain.Order) orderDocument {
	return orderDocument{
		Number:                  o.Number,
		Status:                  string(o.Status),
		Volume:                  o.Volume,
		Recipe:                  newRecipeSnapshotDocument(o.Recipe),
		RecipeID:                o.RecipeID,
		CustomerID:              o.CustomerID,
		Customer:                o.Customer,
		SiteID:                  o.SiteID,
		Site:                    o.Site,
		ContractID:              o.ContractID,
		Comment:                 o.Comment,
		WithoutTransport:        o.WithoutTransport,
		PriceConcreteOverride:   o.PriceConcreteOverride,
		PriceTransportOverride:  o.PriceTransportOverride,
		PriceSurchargesOverride: o.PriceSurchargesOverride,
		DistanceDrivenOverride:  o.DistanceDrivenOverride,
		PricePerKmOverride:      o.PricePerKmOverride,
		TransportZoneOverride:   o.TransportZoneOverride,
		Surcharges:              newSurchargeItemDocuments(o.Surcharges),
		Hidden:                  o.Hidden,
		CreatedAt:               o.CreatedAt.UTC(),
		UpdatedAt:               o.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	return domain.Order{
		ID:                      id,
		Number:                  d.Number,
		Status:                  domain.OrderStatus(d.Status),
		Volume:                  d.Volume,
		Recipe:                  d.Recipe.toDomain(),
		RecipeID:                d.RecipeID,
		CustomerID:              d.CustomerID,
		Customer:                d.Customer,
		SiteID:                  d.SiteID,
		Site:                    d.Site,
		ContractID:              d.ContractID,
		Comment:                 d.Comment,
		WithoutTransport:        d.WithoutTransport,
		PriceConcreteOverride:   d.PriceConcreteOverride,
		PriceTransportOverride:  d.PriceTransportOverride,
		PriceSurchargesOverride: d.PriceSurchargesOverride,
		DistanceDrivenOverride:  d.DistanceDrivenOverride,
		PricePerKmOverride:      d.PricePerKmOverride,
		TransportZoneOverride:   d.TransportZoneOverride,
		Surcharges:              surchargeItemsToDomain(d.Surcharges),
		Hidden:                  d.Hidden,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
}

type carSnapshotDocument struct {
	RegistrationNumber string   `firestore:"registrationNumber"`
	Driver             string   `firestore:"driver"`
	DriverContact      string   `firestore:"driverContact"`
	TransportTypeName  string   `firestore:"transportTypeName"`
	PricePerKm         *float64 `firestore:"pricePerKm"`
}

type deliveryDocument struct {
	Volume         float64             `firestore:"volume"`
	CarID          *string             `firestore:"carId"`
	Car            carSnapshotDocument `firestore:"car"`
	SiteDistance   *float64            `firestore:"siteDistance"`
	DistanceDriven *float64            `firestore:"distanceDriven"`
	CreatedAt      time.Time           `firestore:"createdAt"`
}

func newDeliveryDocument(d domain.Delivery) deliveryDocument {
	return deliveryDocument{
		Volume: d.Volume,
		CarID:  d.CarID,
		Car: carSnapshotDocument{
			RegistrationNumber: d.Car.RegistrationNumber,
			Driver:             d.Car.Driver,
			DriverContact:      d.Car.DriverContact,
			TransportTypeName:  d.Car.TransportTypeName,
			PricePerKm:         d.Car.PricePerKm,
		},
		SiteDistance:   d.SiteDistance,
		DistanceDriven: d.DistanceDriven,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

func (d deliveryDocument) toDomain(id, orderID string) domain.Delivery {
	return domain.Delivery{
		ID:      id,
		OrderID: orderID,
		Volume:  d.Volume,
		CarID:   d.CarID,
		Car: domain.CarSnapshot{
			RegistrationNumber: d.Car.RegistrationNumber,
			Driver:             d.Car.Driver,
			DriverContact:      d.Car.DriverContact,
			TransportTypeName:  d.Car.TransportTypeName,
			PricePerKm:         d.Car.PricePerKm,
		},
		SiteDistance:   d.SiteDistance,
		DistanceDriven: d.DistanceDriven,
		CreatedAt:      d.CreatedAt,
	}
}

type batchMaterialDocument struct {
	MaterialID *string `firestore:"materialId"`
	Name       string  `firestore:"name"`
	Required   float64 `firestore:"required"`
	Dosed      float64 `firestore:"dosed"`
}

type batchDocument struct {
	Volume     float64                 `firestore:"volume"`
	Materials  []batchMaterialDocument `firestore:"materials"`
	ProducedAt time.Time               `firestore:"producedAt"`
}

func newBatchDocument(b domain.Batch) batchDocument {
	materials := make([]batchMaterialDocument, 0, len(b.Materials))
	for _, m := range b.Materials {
		materials = append(materials, batchMaterialDocument{
			MaterialID: m.MaterialID,
			Name:       m.Name,
			Required:   m.Required,
			Dosed:      m.Dosed,
		})
	}
	return batchDocument{
		Volume:     b.Volume,
		Materials:  materials,
		ProducedAt: b.ProducedAt.UTC(),
	}
}

func (d batchDocument) toDomain(id, orderID string) domain.Batch {
	var materials []domain.BatchMaterial
	for _, m := range d.Materials {
		materials = append(materials, domain.BatchMaterial{
			MaterialID: m.MaterialID,
			Name:       m.Name,
			Required:   m.Required,
			Dosed:      m.Dosed,
		})
	}
	return domain.Batch{
		ID:         id,
		OrderID:    orderID,
		Volume:     d.Volume,
		Materials:  materials,
		ProducedAt: d.ProducedAt,
	}
}

type orderMaterialDocument struct {
	MaterialID *string  `firestore:"materialId"`
	Name       string   `firestore:"name"`
	Amount     float64  `firestore:"amount"`
	KValue     *float64 `firestore:"kValue"`
	KRatio     *float64 `firestore:"kRatio"`
}

func newOrderMaterialDocument(m domain.OrderMaterial) orderMaterialDocument {
	return orderMaterialDocument{
		MaterialID: m.MaterialID,
		Name:       m.Name,
		Amount:     m.Amount,
		KValue:     m.KValue,
		KRatio:     m.KRatio,
	}
}

func (d orderMaterialDocument) toDomain(id, orderID string) domain.OrderMaterial {
	return domain.OrderMaterial{
		ID:         id,
		OrderID:    orderID,
		MaterialID: d.MaterialID,
		Name:       d.Name,
		Amount:     d.Amount,
		KValue:     d.KValue,
		KRatio:     d.KRatio,
	}
}

// OrderRepository persists orders. Deliveries, batches and dosed material
// lines live in subcollections under each order document.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{provider: provider, orders: base}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	if err := setDoc(ctx, ref, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) error {
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if err := updateDoc(ctx, ref, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}); err != nil {
		return pfirestore.WrapError("orders.updateStatus", err)
	}
	return nil
}

func (r *OrderRepository) SetHidden(ctx context.Context, orderID string, hidden bool, updatedAt time.Time) error {
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if err := updateDoc(ctx, ref, []firestore.Update{
		{Path: "hidden", Value: hidden},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}); err != nil {
		return pfirestore.WrapError("orders.setHidden", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, buildOrderListQuery(filter))
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders, nil
}

func (r *OrderRepository) ReplaceSurcharges(ctx context.Context, orderID string, items []domain.SurchargeItem, updatedAt time.Time) error {
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if err := updateDoc(ctx, ref, []firestore.Update{
		{Path: "surcharges", Value: newSurchargeItemDocuments(items)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}); err != nil {
		return pfirestore.WrapError("orders.replaceSurcharges", err)
	}
	return nil
}

func (r *OrderRepository) AppendDelivery(ctx context.Context, delivery domain.Delivery) error {
	coll, err := r.subCollection(ctx, orderDeliveriesPattern, delivery.OrderID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(delivery.ID) == "" {
		return errors.New("order repository: delivery id is required")
	}
	if err := createDoc(ctx, coll.Doc(delivery.ID), newDeliveryDocument(delivery)); err != nil {
		return pfirestore.WrapError("orders.appendDelivery", err)
	}
	return nil
}

func (r *OrderRepository) ListDeliveries(ctx context.Context, orderID string) ([]domain.Delivery, error) {
	coll, err := r.subCollection(ctx, orderDeliveriesPattern, orderID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var deliveries []domain.Delivery
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.listDeliveries", err)
		}
		var doc deliveryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore deliveries decode %s: %w", snap.Ref.ID, err)
		}
		deliveries = append(deliveries, doc.toDomain(snap.Ref.ID, orderID))
	}
	return deliveries, nil
}

func (r *OrderRepository) AppendBatch(ctx context.Context, batch domain.Batch) error {
	coll, err := r.subCollection(ctx, orderBatchesPattern, batch.OrderID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(batch.ID) == "" {
		return errors.New("order repository: batch id is required")
	}
	if err := createDoc(ctx, coll.Doc(batch.ID), newBatchDocument(batch)); err != nil {
		return pfirestore.WrapError("orders.appendBatch", err)
	}
	return nil
}

func (r *OrderRepository) ListBatches(ctx context.Context, orderID string) ([]domain.Batch, error) {
	coll, err := r.subCollection(ctx, orderBatchesPattern, orderID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("producedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var batches []domain.Batch
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.listBatches", err)
		}
		var doc batchDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore batches decode %s: %w", snap.Ref.ID, err)
		}
		batches = append(batches, doc.toDomain(snap.Ref.ID, orderID))
	}
	return batches, nil
}

// ReplaceOrderMaterials swaps out the dosed material lines of an order.
// Lines whose IDs survive the replacement are overwritten in place.
func (r *OrderRepository) ReplaceOrderMaterials(ctx context.Context, orderID string, materials []domain.OrderMaterial) error {
	coll, err := r.subCollection(ctx, orderMaterialsPattern, orderID)
	if err != nil {
		return err
	}

	existing, err := collectDocumentRefs(ctx, coll, "orders.replaceMaterials")
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(materials))
	for _, material := range materials {
		keep[material.ID] = true
	}
	for _, ref := range existing {
		if keep[ref.ID] {
			continue
		}
		if err := deleteDoc(ctx, ref); err != nil {
			return pfirestore.WrapError("orders.replaceMaterials", err)
		}
	}
	for _, material := range materials {
		if err := setDoc(ctx, coll.Doc(material.ID), newOrderMaterialDocument(material)); err != nil {
			return pfirestore.WrapError("orders.replaceMaterials", err)
		}
	}
	return nil
}

func (r *OrderRepository) ListOrderMaterials(ctx context.Context, orderID string) ([]domain.OrderMaterial, error) {
	coll, err := r.subCollection(ctx, orderMaterialsPattern, orderID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var materials []domain.OrderMaterial
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.listMaterials", err)
		}
		var doc orderMaterialDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore order materials decode %s: %w", snap.Ref.ID, err)
		}
		materials = append(materials, doc.toDomain(snap.Ref.ID, orderID))
	}
	return materials, nil
}

func (r *OrderRepository) subCollection(ctx context.Context, pattern, orderID string) (*firestore.CollectionRef, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("order repository: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(pattern, orderID)), nil
}

// buildOrderListQuery is shared by the order and pump order listings, which
// filter on the same fields.
func buildOrderListQuery(filter repositories.OrderListFilter) pfirestore.QueryBuilder {
	return func(q firestore.Query) firestore.Query {
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		if filter.CustomerID != nil {
			q = q.Where("customerId", "==", strings.TrimSpace(*filter.CustomerID))
		}
		if filter.CreatedFrom != nil {
			q = q.Where("createdAt", ">=", filter.CreatedFrom.UTC())
		}
		if filter.CreatedTo != nil {
			q = q.Where("createdAt", "<", filter.CreatedTo.UTC())
		}
		if !filter.IncludeHidden {
			q = q.Where("hidden", "==", false)
		}
		q = q.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	}
}
