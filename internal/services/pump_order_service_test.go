package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
)

type stubPumpSurchargeRepo struct {
	findFn   func(context.Context, string) (domain.PumpSurcharge, error)
	insertFn func(context.Context, domain.PumpSurcharge) error
	updateFn func(context.Context, domain.PumpSurcharge) error
	deleteFn func(context.Context, string) error
	listFn   func(context.Context) ([]domain.PumpSurcharge, error)
}

func (s *stubPumpSurchargeRepo) Insert(ctx context.Context, surcharge domain.PumpSurcharge) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, surcharge)
	}
	return nil
}

func (s *stubPumpSurchargeRepo) Update(ctx context.Context, surcharge domain.PumpSurcharge) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, surcharge)
	}
	return nil
}

func (s *stubPumpSurchargeRepo) Delete(ctx context.Context, surchargeID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, surchargeID)
	}
	return nil
}

func (s *stubPumpSurchargeRepo) FindByID(ctx context.Context, surchargeID string) (domain.PumpSurcharge, error) {
	if s.findFn != nil {
		return s.findFn(ctx, surchargeID)
	}
	return domain.PumpSurcharge{}, notFoundErr("pump surcharge not found")
}

func (s *stubPumpSurchargeRepo) List(ctx context.Context) ([]domain.PumpSurcharge, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func newTestPumpOrderService(t *testing.T, deps PumpOrderServiceDeps) PumpOrderService {
	t.Helper()
	if deps.PumpOrders == nil {
		deps.PumpOrders = &stubPumpOrderRepo{}
	}
	if deps.Pumps == nil {
		deps.Pumps = &stubPumpRepo{
			findFn: func(_ context.Context, id string) (domain.Pump, error) {
				return domain.Pump{
					ID:           id,
					Vehicle:      domain.Vehicle{RegistrationNumber: "PMP-001"},
					PumpType:     "boom 36m",
					PricePerHour: valuePtr(40.0),
				}, nil
			},
		}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 7, 9, 11, 0, 0, 0, time.UTC) }
	}
	svc, err := NewPumpOrderService(deps)
	if err != nil {
		t.Fatalf("NewPumpOrderService: %v", err)
	}
	return svc
}

func TestCreatePumpOrderNumbersAndSnapshots(t *testing.T) {
	driverID := "drv_1"
	pumps := &stubPumpRepo{
		findFn: func(_ context.Context, id string) (domain.Pump, error) {
			return domain.Pump{
				ID:           id,
				Vehicle:      domain.Vehicle{RegistrationNumber: "PMP-001", DriverID: &driverID},
				PumpType:     "boom 36m",
				PricePerHour: valuePtr(40.0),
			}, nil
		},
	}
	drivers := &stubDriverRepo{
		findFn: func(context.Context, string) (domain.Driver, error) {
			return domain.Driver{ID: driverID, Name: "M. Holt"}, nil
		},
	}
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, name string, _ int64) (int64, error) {
			if name != "pump_orders" {
				t.Fatalf("counter name = %q, want pump_orders", name)
			}
			return 12, nil
		},
	}
	events := &captureOrderEvents{}
	var inserted domain.PumpOrder
	pumpOrders := &stubPumpOrderRepo{
		insertFn: func(_ context.Context, order domain.PumpOrder) error {
			inserted = order
			return nil
		},
	}

	svc := newTestPumpOrderService(t, PumpOrderServiceDeps{
		PumpOrders: pumpOrders,
		Pumps:      pumps,
		Drivers:    drivers,
		Counters:   counters,
		Events:     events,
		Clock:      func() time.Time { return time.Date(2026, 7, 9, 11, 0, 0, 0, time.UTC) },
	})

	order, err := svc.CreatePumpOrder(context.Background(), CreatePumpOrderCommand{
		PumpID: "pmp_1",
		Hours:  valuePtr(3.0),
	})
	if err != nil {
		t.Fatalf("CreatePumpOrder: %v", err)
	}
	if order.Number != "2026/0012" {
		t.Fatalf("number = %q, want 2026/0012", order.Number)
	}
	if order.Pump.RegistrationNumber != "PMP-001" || order.Pump.Driver != "M. Holt" {
		t.Fatalf("pump snapshot = %+v", order.Pump)
	}
	if order.Pump.PricePerHour == nil || *order.Pump.PricePerHour != 40 {
		t.Fatalf("snapshot rate = %v, want 40", order.Pump.PricePerHour)
	}
	if inserted.ID != order.ID {
		t.Fatalf("inserted %q, returned %q", inserted.ID, order.ID)
	}
	if len(events.messages) != 1 || events.messages[0].Event != "pump_order.created" {
		t.Fatalf("events = %+v", events.messages)
	}
}

func TestCreatePumpOrderRequiresPump(t *testing.T) {
	svc := newTestPumpOrderService(t, PumpOrderServiceDeps{})
	_, err := svc.CreatePumpOrder(context.Background(), CreatePumpOrderCommand{})
	if !errors.Is(err, ErrPumpOrderInvalidInput) {
		t.Fatalf("err = %v, want ErrPumpOrderInvalidInput", err)
	}
}

func TestCreatePumpOrderRejectsNegativeHours(t *testing.T) {
	svc := newTestPumpOrderService(t, PumpOrderServiceDeps{})
	_, err := svc.CreatePumpOrder(context.Background(), CreatePumpOrderCommand{
		PumpID: "pmp_1",
		Hours:  valuePtr(-2.0),
	})
	if !errors.Is(err, ErrPumpOrderInvalidInput) {
		t.Fatalf("err = %v, want ErrPumpOrderInvalidInput", err)
	}
}

func TestPumpOrderTransitionStatus(t *testing.T) {
	events := &captureOrderEvents{}
	pumpOrders := &stubPumpOrderRepo{
		findFn: func(context.Context, string) (domain.PumpOrder, error) {
			return domain.PumpOrder{ID: "pord_1", Number: "2026/0001", Status: domain.OrderStatusSent}, nil
		},
	}
	svc := newTestPumpOrderService(t, PumpOrderServiceDeps{PumpOrders: pumpOrders, Events: events})

	order, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "pord_1",
		TargetStatus: domain.OrderStatusInProduction,
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if order.Status != domain.OrderStatusInProduction {
		t.Fatalf("status = %q", order.Status)
	}
	if len(events.messages) != 1 || events.messages[0].PreviousStatus != "sent" {
		t.Fatalf("events = %+v", events.messages)
	}

	finished := &stubPumpOrderRepo{
		findFn: func(context.Context, string) (domain.PumpOrder, error) {
			return domain.PumpOrder{ID: "pord_2", Status: domain.OrderStatusFinished}, nil
		},
	}
	svc = newTestPumpOrderService(t, PumpOrderServiceDeps{PumpOrders: finished})
	_, err = svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "pord_2",
		TargetStatus: domain.OrderStatusInProduction,
	})
	if !errors.Is(err, ErrPumpOrderInvalidState) {
		t.Fatalf("err = %v, want ErrPumpOrderInvalidState for finished to in_production", err)
	}
}

func TestArchivePumpOrderRejectsActive(t *testing.T) {
	pumpOrders := &stubPumpOrderRepo{
		findFn: func(context.Context, string) (domain.PumpOrder, error) {
			return domain.PumpOrder{ID: "pord_1", Status: domain.OrderStatusSent}, nil
		},
	}
	svc := newTestPumpOrderService(t, PumpOrderServiceDeps{PumpOrders: pumpOrders})

	if err := svc.ArchivePumpOrder(context.Background(), "pord_1"); !errors.Is(err, ErrPumpOrderInvalidState) {
		t.Fatalf("err = %v, want ErrPumpOrderInvalidState", err)
	}
}

func TestPumpOrderReplaceSurchargesKeepsAmounts(t *testing.T) {
	pumpOrders := &stubPumpOrderRepo{
		findFn: func(context.Context, string) (domain.PumpOrder, error) {
			return domain.PumpOrder{ID: "pord_1", Status: domain.OrderStatusSent}, nil
		},
	}
	surcharges := &stubPumpSurchargeRepo{
		findFn: func(_ context.Context, id string) (domain.PumpSurcharge, error) {
			return domain.PumpSurcharge{
				ID:       id,
				Name:     "extra hose",
				Price:    10,
				Type:     domain.SurchargeTypePerOtherUnit,
				UnitName: valuePtr("piece"),
			}, nil
		},
	}
	svc := newTestPumpOrderService(t, PumpOrderServiceDeps{PumpOrders: pumpOrders, Surcharges: surcharges})

	order, err := svc.ReplaceSurcharges(context.Background(), ReplaceOrderSurchargesCommand{
		OrderID: "pord_1",
		Items: []SurchargeItemInput{
			{SurchargeID: "psc_1", Amount: valuePtr(3.0)},
		},
	})
	if err != nil {
		t.Fatalf("ReplaceSurcharges: %v", err)
	}
	if len(order.Surcharges) != 1 {
		t.Fatalf("surcharges = %+v", order.Surcharges)
	}
	item := order.Surcharges[0]
	if item.Name != "extra hose" || item.Amount == nil || *item.Amount != 3 {
		t.Fatalf("item = %+v", item)
	}
}
