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
	pumpOrderEventCreated       = "pump_order.created"
	pumpOrderEventStatusChanged = "pump_order.status.changed"

	pumpOrderIDPrefix = "pord_"
)

var (
	// ErrPumpOrderInvalidInput signals the caller provided invalid data.
	ErrPumpOrderInvalidInput = errors.New("pump order: invalid input")
	// ErrPumpOrderNotFound indicates the pump order could not be located.
	ErrPumpOrderNotFound = errors.New("pump order: not found")
	// ErrPumpOrderInvalidState indicates an invalid status transition was attempted.
	ErrPumpOrderInvalidState = errors.New("pump order: invalid status transition")
	// ErrPumpOrderConflict indicates concurrent modification or duplicates.
	ErrPumpOrderConflict = errors.New("pump order: conflict")
)

// PumpOrderServiceDeps bundles collaborators for the pump order service.
type PumpOrderServiceDeps struct {
	PumpOrders  repositories.PumpOrderRepository
	Pumps       repositories.PumpRepository
	Drivers     repositories.DriverRepository
	Customers   repositories.CustomerRepository
	Sites       repositories.SiteRepository
	Surcharges  repositories.PumpSurchargeRepository
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type pumpOrderService struct {
	pumpOrders repositories.PumpOrderRepository
	pumps      repositories.PumpRepository
	drivers    repositories.DriverRepository
	customers  repositories.CustomerRepository
	sites      repositories.SiteRepository
	surcharges repositories.PumpSurchargeRepository
	counters   repositories.CounterRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	events     OrderEventPublisher
	logger     func(context.Context, string, map[string]any)
}

// NewPumpOrderService wires dependencies into a PumpOrderService.
func NewPumpOrderService(deps PumpOrderServiceDeps) (PumpOrderService, error) {
	if deps.PumpOrders == nil {
		return nil, errors.New("pump order service: pump order repository is required")
	}
	if deps.Pumps == nil {
		return nil, errors.New("pump order service: pump repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("pump order service: counter repository is required")
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

	return &pumpOrderService{
		pumpOrders: deps.PumpOrders,
		pumps:      deps.Pumps,
		drivers:    deps.Drivers,
		customers:  deps.Customers,
		sites:      deps.Sites,
		surcharges: deps.Surcharges,
		counters:   deps.Counters,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *pumpOrderService) CreatePumpOrder(ctx context.Context, cmd CreatePumpOrderCommand) (PumpOrder, error) {
	pumpID := strings.TrimSpace(cmd.PumpID)
	if pumpID == "" {
		return PumpOrder{}, fmt.Errorf("%w: pump id is required", ErrPumpOrderInvalidInput)
	}
	if cmd.Hours != nil && *cmd.Hours < 0 {
		return PumpOrder{}, fmt.Errorf("%w: hours must not be negative", ErrPumpOrderInvalidInput)
	}

	pump, err := s.pumps.FindByID(ctx, pumpID)
	if err != nil {
		return PumpOrder{}, s.mapRepositoryError(err)
	}

	now := s.now()
	order := PumpOrder{
		ID:     pumpOrderIDPrefix + s.newID(),
		Status: domain.OrderStatusSent,
		PumpID: valuePtr(pump.ID),
		Pump:   s.snapshotPump(ctx, pump),

		Hours:                cmd.Hours,
		PricePerHourOverride: cmd.PricePerHourOverride,
		Comment:              sanitizeText(cmd.Comment),

		CreatedAt: now,
		UpdatedAt: now,
	}

	if customerID := strings.TrimSpace(cmd.CustomerID); customerID != "" {
		customer, err := s.customers.FindByID(ctx, customerID)
		if err != nil {
			return PumpOrder{}, s.mapRepositoryError(err)
		}
		order.CustomerID = valuePtr(customer.ID)
		order.Customer = customer.Name
	}
	if siteID := strings.TrimSpace(cmd.SiteID); siteID != "" {
		site, err := s.sites.FindByID(ctx, siteID)
		if err != nil {
			return PumpOrder{}, s.mapRepositoryError(err)
		}
		order.SiteID = valuePtr(site.ID)
		order.Site = site.Name
	}

	order.Surcharges, err = s.snapshotSurcharges(ctx, cmd.SurchargeIDs)
	if err != nil {
		return PumpOrder{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		seq, err := s.counters.Next(txCtx, "pump_orders", 1)
		if err != nil {
			return err
		}
		order.Number = fmt.Sprintf("%d/%04d", now.Year(), seq)
		if err := s.pumpOrders.Insert(txCtx, domain.PumpOrder(order)); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return PumpOrder{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:       pumpOrderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		OccurredAt:  now,
	})

	return order, nil
}

func (s *pumpOrderService) GetPumpOrder(ctx context.Context, orderID string) (PumpOrder, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return PumpOrder{}, fmt.Errorf("%w: order id is required", ErrPumpOrderInvalidInput)
	}
	order, err := s.pumpOrders.FindByID(ctx, orderID)
	if err != nil {
		return PumpOrder{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *pumpOrderService) ListPumpOrders(ctx context.Context, filter OrderListFilter) ([]PumpOrder, error) {
	orders, err := s.pumpOrders.List(ctx, repositories.OrderListFilter{
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

func (s *pumpOrderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (PumpOrder, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PumpOrder{}, fmt.Errorf("%w: order id is required", ErrPumpOrderInvalidInput)
	}
	if !cmd.TargetStatus.Valid() {
		return PumpOrder{}, fmt.Errorf("%w: unknown status %q", ErrPumpOrderInvalidInput, cmd.TargetStatus)
	}

	order, err := s.pumpOrders.FindByID(ctx, orderID)
	if err != nil {
		return PumpOrder{}, s.mapRepositoryError(err)
	}
	if order.Status == cmd.TargetStatus {
		return order, nil
	}
	if !canTransition(order.Status, cmd.TargetStatus) {
		return PumpOrder{}, fmt.Errorf("%w: %s to %s", ErrPumpOrderInvalidState, order.Status, cmd.TargetStatus)
	}

	previous := order.Status
	now := s.now()
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.pumpOrders.UpdateStatus(txCtx, order.ID, cmd.TargetStatus, now); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return PumpOrder{}, err
	}

	order.Status = cmd.TargetStatus
	order.UpdatedAt = now

	s.publishEvent(ctx, OrderEventMessage{
		Event:          pumpOrderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		OccurredAt:     now,
	})

	return order, nil
}

func (s *pumpOrderService) ReplaceSurcharges(ctx context.Context, cmd ReplaceOrderSurchargesCommand) (PumpOrder, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PumpOrder{}, fmt.Errorf("%w: order id is required", ErrPumpOrderInvalidInput)
	}
	order, err := s.pumpOrders.FindByID(ctx, orderID)
	if err != nil {
		return PumpOrder{}, s.mapRepositoryError(err)
	}

	ids := make([]string, 0, len(cmd.Items))
	amounts := make(map[string]*float64, len(cmd.Items))
	for _, item := range cmd.Items {
		ids = append(ids, item.SurchargeID)
		amounts[strings.TrimSpace(item.SurchargeID)] = item.Amount
	}
	items, err := s.snapshotSurcharges(ctx, ids)
	if err != nil {
		return PumpOrder{}, err
	}
	for i := range items {
		items[i].Amount = amounts[strings.TrimSpace(ids[i])]
	}

	now := s.now()
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.pumpOrders.ReplaceSurcharges(txCtx, order.ID, items, now); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return PumpOrder{}, err
	}

	order.Surcharges = items
	order.UpdatedAt = now
	return order, nil
}

func (s *pumpOrderService) ArchivePumpOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrPumpOrderInvalidInput)
	}
	order, err := s.pumpOrders.FindByID(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	switch order.Status {
	case domain.OrderStatusSent, domain.OrderStatusInProduction:
		return fmt.Errorf("%w: cannot archive pump order in status %s", ErrPumpOrderInvalidState, order.Status)
	}
	order.Hidden = true
	order.UpdatedAt = s.now()
	if err := s.pumpOrders.Update(ctx, domain.PumpOrder(order)); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// snapshotSurcharges copies pump surcharge definitions onto the order.
// Per-cubic-meter definitions never exist for pumps; the write-side
// validation rejects them.
func (s *pumpOrderService) snapshotSurcharges(ctx context.Context, ids []string) ([]domain.SurchargeItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if s.surcharges == nil {
		return nil, errors.New("pump order service: surcharge repository not configured")
	}
	items := make([]domain.SurchargeItem, 0, len(ids))
	for _, id := range ids {
		surchargeID := strings.TrimSpace(id)
		if surchargeID == "" {
			return nil, fmt.Errorf("%w: surcharge id is required", ErrPumpOrderInvalidInput)
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
		})
	}
	return items, nil
}

func (s *pumpOrderService) snapshotPump(ctx context.Context, pump domain.Pump) domain.PumpSnapshot {
	snapshot := domain.PumpSnapshot{
		RegistrationNumber: pump.Vehicle.RegistrationNumber,
		PumpType:           pump.PumpType,
		PricePerHour:       pump.PricePerHour,
	}
	if pump.Vehicle.DriverID != nil && s.drivers != nil {
		if driver, err := s.drivers.FindByID(ctx, *pump.Vehicle.DriverID); err == nil {
			snapshot.Driver = driver.Name
			snapshot.DriverContact = driver.Contact
		}
	}
	return snapshot
}

func (s *pumpOrderService) publishEvent(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "pump_order.event.publish.failed", map[string]any{
			"event": message.Event,
			"order": message.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *pumpOrderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPumpOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrPumpOrderConflict, err)
		}
	}
	return err
}

func (s *pumpOrderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *pumpOrderService) now() time.Time {
	return s.clock()
}
