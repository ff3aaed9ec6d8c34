package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

const (
	orderEventCreated          = "order.created"
	orderEventStatusChanged    = "order.status.changed"
	orderEventDeliveryRecorded = "order.delivery.recorded"
	orderEventBatchRecorded    = "order.batch.recorded"

	orderIDPrefix         = "ord_"
	deliveryIDPrefix      = "del_"
	batchIDPrefix         = "bat_"
	surchargeLineIDPrefix = "sur_"
	orderMaterialIDPrefix = "oma_"
	stockMovementIDPrefix = "stm_"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderArchived indicates the order is hidden and cannot be mutated.
	ErrOrderArchived = errors.New("order: archived")
)

// orderStateTransitions is the legal lifecycle graph. Terminal states have
// no entry. A transition to the current state is a no-op, never an error.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusSent: {
		domain.OrderStatusInProduction,
		domain.OrderStatusFinished,
		domain.OrderStatusAbortedByDispatcher,
		domain.OrderStatusAbortedInProduction,
		domain.OrderStatusAbortedBeforeProduction,
	},
	domain.OrderStatusInProduction: {
		domain.OrderStatusFinished,
		domain.OrderStatusAbortedInProduction,
	},
	domain.OrderStatusAbortedByDispatcher: {
		domain.OrderStatusAbortedBeforeProduction,
		domain.OrderStatusFinished,
	},
}

func canTransition(current, target domain.OrderStatus) bool {
	if current == target {
		return true
	}
	for _, allowed := range orderStateTransitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders         repositories.OrderRepository
	Recipes        repositories.RecipeRepository
	Customers      repositories.CustomerRepository
	Sites          repositories.SiteRepository
	Contracts      repositories.ContractRepository
	Cars           repositories.CarRepository
	Drivers        repositories.DriverRepository
	TransportTypes repositories.TransportTypeRepository
	Materials      repositories.MaterialRepository
	StockMovements repositories.StockMovementRepository
	Surcharges     repositories.CompanySurchargeRepository
	Settings       repositories.SettingsRepository
	Counters       repositories.CounterRepository
	Pricing        PricingService
	UnitOfWork     repositories.UnitOfWork
	Clock          func() time.Time
	IDGenerator    func() string
	Events         OrderEventPublisher
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders         repositories.OrderRepository
	recipes        repositories.RecipeRepository
	customers      repositories.CustomerRepository
	sites          repositories.SiteRepository
	contracts      repositories.ContractRepository
	cars           repositories.CarRepository
	drivers        repositories.DriverRepository
	transportTypes repositories.TransportTypeRepository
	materials      repositories.MaterialRepository
	stockMovements repositories.StockMovementRepository
	surcharges     repositories.CompanySurchargeRepository
	settings       repositories.SettingsRepository
	counters       repositories.CounterRepository
	pricing        PricingService
	unitOfWork     repositories.UnitOfWork
	clock          func() time.Time
	newID          func() string
	events         OrderEventPublisher
	logger         func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Recipes == nil {
		return nil, errors.New("order service: recipe repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing service is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("order service: settings repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:         deps.Orders,
		recipes:        deps.Recipes,
		customers:      deps.Customers,
		sites:          deps.Sites,
		contracts:      deps.Contracts,
		cars:           deps.Cars,
		drivers:        deps.Drivers,
		transportTypes: deps.TransportTypes,
		materials:      deps.Materials,
		stockMovements: deps.StockMovements,
		surcharges:     deps.Surcharges,
		settings:       deps.Settings,
		counters:       deps.Counters,
		pricing:        deps.Pricing,
		unitOfWork:     unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	recipeID := strings.TrimSpace(cmd.RecipeID)
	if recipeID == "" {
		return Order{}, fmt.Errorf("%w: recipe id is required", ErrOrderInvalidInput)
	}
	if err := domain.ValidateOrderVolume(cmd.Volume); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	order := Order{
		ID:               s.nextOrderID(),
		Status:           domain.OrderStatusSent,
		Volume:           cmd.Volume,
		RecipeID:         valuePtr(recipe.ID),
		Comment:          sanitizeText(cmd.Comment),
		WithoutTransport: cmd.WithoutTransport,

		PriceConcreteOverride:   cmd.PriceConcreteOverride,
		PriceTransportOverride:  cmd.PriceTransportOverride,
		PriceSurchargesOverride: cmd.PriceSurchargesOverride,
		DistanceDrivenOverride:  cmd.DistanceDrivenOverride,
		PricePerKmOverride:      cmd.PricePerKmOverride,
		TransportZoneOverride:   cmd.TransportZoneOverride,

		CreatedAt: now,
		UpdatedAt: now,
	}

	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID != "" {
		customer, err := s.customers.FindByID(ctx, customerID)
		if err != nil {
			return Order{}, s.mapRepositoryError(err)
		}
		order.CustomerID = valuePtr(customer.ID)
		order.Customer = customer.Name
	}

	siteID := strings.TrimSpace(cmd.SiteID)
	if siteID != "" {
		site, err := s.sites.FindByID(ctx, siteID)
		if err != nil {
			return Order{}, s.mapRepositoryError(err)
		}
		order.SiteID = valuePtr(site.ID)
		order.Site = site.Name
	}

	if contractID := strings.TrimSpace(cmd.ContractID); contractID != "" {
		contract, err := s.contracts.FindByID(ctx, contractID)
		if err != nil {
			return Order{}, s.mapRepositoryError(err)
		}
		order.ContractID = valuePtr(contract.ID)
	}

	resolved, err := s.pricing.ResolvePrice(ctx, ResolvePriceCommand{
		RecipeID:   recipe.ID,
		CustomerID: customerID,
		SiteID:     siteID,
	})
	if err != nil {
		return Order{}, err
	}
	order.Recipe = domain.SnapshotRecipe(recipe, resolved.Amount, resolved.Reason)

	order.Surcharges, err = s.snapshotSurcharges(ctx, surchargeInputsFromIDs(cmd.SurchargeIDs))
	if err != nil {
		return Order{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		number, err := s.generateOrderNumber(txCtx, now)
		if err != nil {
			return err
		}
		order.Number = number
		if err := s.orders.Insert(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:       orderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		OccurredAt:  now,
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (OrderDetail, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderDetail{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderDetail{}, s.mapRepositoryError(err)
	}
	detail := OrderDetail{Order: order}
	if opts.IncludeDeliveries {
		if detail.Deliveries, err = s.orders.ListDeliveries(ctx, orderID); err != nil {
			return OrderDetail{}, s.mapRepositoryError(err)
		}
	}
	if opts.IncludeBatches {
		if detail.Batches, err = s.orders.ListBatches(ctx, orderID); err != nil {
			return OrderDetail{}, s.mapRepositoryError(err)
		}
	}
	if opts.IncludeMaterials {
		if detail.Materials, err = s.orders.ListOrderMaterials(ctx, orderID); err != nil {
			return OrderDetail{}, s.mapRepositoryError(err)
		}
	}
	return detail, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]Order, error) {
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		Status:        filter.Status,
		CustomerID:    filter.CustomerID,
		CreatedFrom:   filter.CreatedFrom,
		CreatedTo:     filter.CreatedTo,
		IncludeHidden: filter.IncludeHidden,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.TargetStatus.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.TargetStatus)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if order.Status == cmd.TargetStatus {
		return order, nil
	}
	if !canTransition(order.Status, cmd.TargetStatus) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, order.Status, cmd.TargetStatus)
	}

	previous := order.Status
	now := s.now()
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.UpdateStatus(txCtx, order.ID, cmd.TargetStatus, now); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	order.Status = cmd.TargetStatus
	order.UpdatedAt = now

	s.publishEvent(ctx, OrderEventMessage{
		Event:          orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		OccurredAt:     now,
	})

	return order, nil
}

func (s *orderService) UpdateOverrides(ctx context.Context, cmd UpdateOrderOverridesCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if order.Terminal() {
		return Order{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status)
	}

	if cmd.SetPriceConcrete {
		order.PriceConcreteOverride = cmd.PriceConcrete
	}
	if cmd.SetPriceTransport {
		order.PriceTransportOverride = cmd.PriceTransport
	}
	if cmd.SetPriceSurcharges {
		order.PriceSurchargesOverride = cmd.PriceSurcharges
	}
	if cmd.SetDistanceDriven {
		order.DistanceDrivenOverride = cmd.DistanceDriven
	}
	if cmd.SetPricePerKm {
		order.PricePerKmOverride = cmd.PricePerKm
	}
	if cmd.SetTransportZone {
		order.TransportZoneOverride = cmd.TransportZoneID
	}
	if cmd.SetWithoutTransport {
		order.WithoutTransport = cmd.WithoutTransport
	}
	order.UpdatedAt = s.now()

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, domain.Order(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *orderService) ReplaceSurcharges(ctx context.Context, cmd ReplaceOrderSurchargesCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if order.Terminal() {
		return Order{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status)
	}

	items, err := s.snapshotSurcharges(ctx, cmd.Items)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.ReplaceSurcharges(txCtx, order.ID, items, now); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	order.Surcharges = items
	order.UpdatedAt = now
	return order, nil
}

func (s *orderService) RecordDelivery(ctx context.Context, cmd RecordDeliveryCommand) (Delivery, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Delivery{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := domain.ValidateOrderVolume(cmd.Volume); err != nil {
		return Delivery{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Delivery{}, s.mapRepositoryError(err)
	}
	if order.Terminal() {
		return Delivery{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status)
	}

	now := s.now()
	delivery := Delivery{
		ID:        deliveryIDPrefix + s.newID(),
		OrderID:   order.ID,
		Volume:    cmd.Volume,
		CreatedAt: now,
	}

	if carID := strings.TrimSpace(cmd.CarID); carID != "" {
		snapshot, err := s.snapshotCar(ctx, carID)
		if err != nil {
			return Delivery{}, err
		}
		delivery.CarID = valuePtr(carID)
		delivery.Car = snapshot
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return Delivery{}, s.mapRepositoryError(err)
	}
	if order.SiteID != nil {
		site, err := s.sites.FindByID(ctx, *order.SiteID)
		if err == nil && site.Distance != nil {
			delivery.SiteDistance = site.Distance
			delivery.DistanceDriven = valuePtr(*site.Distance * settings.DistanceFactor())
		}
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.AppendDelivery(txCtx, domain.Delivery(delivery)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Delivery{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:       orderEventDeliveryRecorded,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		OccurredAt:  now,
	})

	return delivery, nil
}

// RecordBatch stores one produced batch, decrements the stock of every
// dosed material and folds the doses into the order's material totals. The
// whole write runs in a single transaction.
func (s *orderService) RecordBatch(ctx context.Context, cmd RecordBatchCommand) (Batch, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Batch{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := domain.ValidateOrderVolume(cmd.Volume); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Batch{}, s.mapRepositoryError(err)
	}
	if order.Terminal() {
		return Batch{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status)
	}

	now := s.now()
	producedAt := now
	if cmd.ProducedAt != nil {
		producedAt = cmd.ProducedAt.UTC()
	}

	batch := Batch{
		ID:         batchIDPrefix + s.newID(),
		OrderID:    order.ID,
		Volume:     cmd.Volume,
		ProducedAt: producedAt,
	}

	type dosedMaterial struct {
		material domain.Material
		line     BatchMaterialInput
	}
	dosed := make([]dosedMaterial, 0, len(cmd.Materials))
	for _, line := range cmd.Materials {
		materialID := strings.TrimSpace(line.MaterialID)
		if materialID == "" {
			return Batch{}, fmt.Errorf("%w: batch material id is required", ErrOrderInvalidInput)
		}
		material, err := s.materials.FindByID(ctx, materialID)
		if err != nil {
			return Batch{}, s.mapRepositoryError(err)
		}
		batch.Materials = append(batch.Materials, domain.BatchMaterial{
			MaterialID: valuePtr(material.ID),
			Name:       material.Name,
			Required:   line.Required,
			Dosed:      line.Dosed,
		})
		dosed = append(dosed, dosedMaterial{material: material, line: line})
	}

	existing, err := s.orders.ListOrderMaterials(ctx, order.ID)
	if err != nil {
		return Batch{}, s.mapRepositoryError(err)
	}
	merged := mergeOrderMaterials(existing, batch.Materials, order.ID, func() string {
		return orderMaterialIDPrefix + s.newID()
	})

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.AppendBatch(txCtx, domain.Batch(batch)); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.orders.ReplaceOrderMaterials(txCtx, order.ID, merged); err != nil {
			return s.mapRepositoryError(err)
		}
		for _, d := range dosed {
			if d.line.Dosed == 0 {
				continue
			}
			if _, err := s.materials.AdjustStock(txCtx, d.material.ID, -d.line.Dosed); err != nil {
				return s.mapRepositoryError(err)
			}
			if s.stockMovements != nil {
				movement := domain.StockMovement{
					ID:         stockMovementIDPrefix + s.newID(),
					MaterialID: d.material.ID,
					Amount:     -d.line.Dosed,
					Reason:     "batch production",
					OrderID:    valuePtr(order.ID),
					CreatedAt:  now,
				}
				if err := s.stockMovements.Append(txCtx, movement); err != nil {
					return s.mapRepositoryError(err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Batch{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:       orderEventBatchRecorded,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		OccurredAt:  now,
	})

	return batch, nil
}

// ArchiveOrder hides the order from default listings. Orders still moving
// through production cannot be archived.
func (s *orderService) ArchiveOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	switch order.Status {
	case domain.OrderStatusSent, domain.OrderStatusInProduction:
		return fmt.Errorf("%w: cannot archive order in status %s", ErrOrderInvalidState, order.Status)
	}
	if err := s.orders.SetHidden(ctx, order.ID, true, s.now()); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// snapshotSurcharges copies the referenced surcharge definitions into order
// line items so later edits of the definitions never change the order.
func (s *orderService) snapshotSurcharges(ctx context.Context, inputs []SurchargeItemInput) ([]domain.SurchargeItem, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if s.surcharges == nil {
		return nil, errors.New("order service: surcharge repository not configured")
	}
	items := make([]domain.SurchargeItem, 0, len(inputs))
	for _, input := range inputs {
		surchargeID := strings.TrimSpace(input.SurchargeID)
		if surchargeID == "" {
			return nil, fmt.Errorf("%w: surcharge id is required", ErrOrderInvalidInput)
		}
		def, err := s.surcharges.FindByID(ctx, surchargeID)
		if err != nil {
			return nil, s.mapRepositoryError(err)
		}
		items = append(items, domain.SurchargeItem{
			ID:       surchargeLineIDPrefix + s.newID(),
			Name:     def.Name,
			Price:    def.Price,
			Type:     def.Type,
			UnitName: def.UnitName,
			Amount:   input.Amount,
		})
	}
	return items, nil
}

func (s *orderService) snapshotCar(ctx context.Context, carID string) (domain.CarSnapshot, error) {
	car, err := s.cars.FindByID(ctx, carID)
	if err != nil {
		return domain.CarSnapshot{}, s.mapRepositoryError(err)
	}
	snapshot := domain.CarSnapshot{
		RegistrationNumber: car.Vehicle.RegistrationNumber,
		PricePerKm:         car.Vehicle.PricePerKm,
	}
	if car.Vehicle.DriverID != nil && s.drivers != nil {
		if driver, err := s.drivers.FindByID(ctx, *car.Vehicle.DriverID); err == nil {
			snapshot.Driver = driver.Name
			snapshot.DriverContact = driver.Contact
		}
	}
	if car.TransportTypeID != nil && s.transportTypes != nil {
		if transportType, err := s.transportTypes.FindByID(ctx, *car.TransportTypeID); err == nil {
			snapshot.TransportTypeName = transportType.Name
		}
	}
	return snapshot, nil
}

func mergeOrderMaterials(existing []domain.OrderMaterial, batchLines []domain.BatchMaterial, orderID string, nextID func() string) []domain.OrderMaterial {
	merged := make([]domain.OrderMaterial, len(existing))
	copy(merged, existing)
	for _, line := range batchLines {
		found := false
		for i := range merged {
			if merged[i].MaterialID != nil && line.MaterialID != nil && *merged[i].MaterialID == *line.MaterialID {
				merged[i].Amount += line.Dosed
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, domain.OrderMaterial{
				ID:         nextID(),
				OrderID:    orderID,
				MaterialID: line.MaterialID,
				Name:       line.Name,
				Amount:     line.Dosed,
			})
		}
	}
	return merged
}

func surchargeInputsFromIDs(ids []string) []SurchargeItemInput {
	if len(ids) == 0 {
		return nil
	}
	inputs := make([]SurchargeItemInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, SurchargeItemInput{SurchargeID: id})
	}
	return inputs
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%04d", now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) publishEvent(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"event":  message.Event,
			"order":  message.OrderID,
			"error":  err.Error(),
			"status": message.Status,
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func valuePtr[T any](v T) *T {
	return &v
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
