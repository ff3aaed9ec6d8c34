package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

type stubCustomerRepo struct {
	findFn   func(context.Context, string) (domain.Customer, error)
	insertFn func(context.Context, domain.Customer) error
	updateFn func(context.Context, domain.Customer) error
	listFn   func(context.Context, repositories.CustomerListFilter) ([]domain.Customer, error)
}

func (s *stubCustomerRepo) Insert(ctx context.Context, customer domain.Customer) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, customer)
	}
	return nil
}

func (s *stubCustomerRepo) Update(ctx context.Context, customer domain.Customer) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, customer)
	}
	return nil
}

func (s *stubCustomerRepo) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if s.findFn != nil {
		return s.findFn(ctx, customerID)
	}
	return domain.Customer{}, notFoundErr("customer not found")
}

func (s *stubCustomerRepo) List(ctx context.Context, filter repositories.CustomerListFilter) ([]domain.Customer, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

type stubContractRepo struct {
	findFn func(context.Context, string) (domain.Contract, error)
}

func (s *stubContractRepo) Insert(context.Context, domain.Contract) error { return nil }
func (s *stubContractRepo) Update(context.Context, domain.Contract) error { return nil }
func (s *stubContractRepo) Delete(context.Context, string) error          { return nil }

func (s *stubContractRepo) FindByID(ctx context.Context, contractID string) (domain.Contract, error) {
	if s.findFn != nil {
		return s.findFn(ctx, contractID)
	}
	return domain.Contract{}, notFoundErr("contract not found")
}

func (s *stubContractRepo) ListByCustomer(context.Context, string) ([]domain.Contract, error) {
	return nil, nil
}

type stubCarRepo struct {
	findFn               func(context.Context, string) (domain.Car, error)
	findByRegistrationFn func(context.Context, string) (domain.Car, error)
	insertFn             func(context.Context, domain.Car) error
	updateFn             func(context.Context, domain.Car) error
}

func (s *stubCarRepo) Insert(ctx context.Context, car domain.Car) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, car)
	}
	return nil
}

func (s *stubCarRepo) Update(ctx context.Context, car domain.Car) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, car)
	}
	return nil
}

func (s *stubCarRepo) FindByID(ctx context.Context, carID string) (domain.Car, error) {
	if s.findFn != nil {
		return s.findFn(ctx, carID)
	}
	return domain.Car{}, notFoundErr("car not found")
}

func (s *stubCarRepo) FindByRegistration(ctx context.Context, registration string) (domain.Car, error) {
	if s.findByRegistrationFn != nil {
		return s.findByRegistrationFn(ctx, registration)
	}
	return domain.Car{}, notFoundErr("car not found")
}

func (s *stubCarRepo) List(context.Context, bool) ([]domain.Car, error) { return nil, nil }

type stubDriverRepo struct {
	findFn   func(context.Context, string) (domain.Driver, error)
	insertFn func(context.Context, domain.Driver) error
	updateFn func(context.Context, domain.Driver) error
}

func (s *stubDriverRepo) Insert(ctx context.Context, driver domain.Driver) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, driver)
	}
	return nil
}

func (s *stubDriverRepo) Update(ctx context.Context, driver domain.Driver) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, driver)
	}
	return nil
}

func (s *stubDriverRepo) FindByID(ctx context.Context, driverID string) (domain.Driver, error) {
	if s.findFn != nil {
		return s.findFn(ctx, driverID)
	}
	return domain.Driver{}, notFoundErr("driver not found")
}

func (s *stubDriverRepo) List(context.Context, bool) ([]domain.Driver, error) { return nil, nil }

type stubMaterialRepo struct {
	findFn        func(context.Context, string) (domain.Material, error)
	insertFn      func(context.Context, domain.Material) error
	updateFn      func(context.Context, domain.Material) error
	adjustStockFn func(context.Context, string, float64) (domain.Material, error)
	listFn        func(context.Context, repositories.MaterialListFilter) ([]domain.Material, error)
}

func (s *stubMaterialRepo) Insert(ctx context.Context, material domain.Material) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, material)
	}
	return nil
}

func (s *stubMaterialRepo) Update(ctx context.Context, material domain.Material) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, material)
	}
	return nil
}

func (s *stubMaterialRepo) FindByID(ctx context.Context, materialID string) (domain.Material, error) {
	if s.findFn != nil {
		return s.findFn(ctx, materialID)
	}
	return domain.Material{}, notFoundErr("material not found")
}

func (s *stubMaterialRepo) FindByName(context.Context, string) (domain.Material, error) {
	return domain.Material{}, notFoundErr("material not found")
}

func (s *stubMaterialRepo) List(ctx context.Context, filter repositories.MaterialListFilter) ([]domain.Material, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubMaterialRepo) AdjustStock(ctx context.Context, materialID string, delta float64) (domain.Material, error) {
	if s.adjustStockFn != nil {
		return s.adjustStockFn(ctx, materialID, delta)
	}
	return domain.Material{}, nil
}

type stubStockMovementRepo struct {
	appendFn func(context.Context, domain.StockMovement) error
}

func (s *stubStockMovementRepo) Append(ctx context.Context, movement domain.StockMovement) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, movement)
	}
	return nil
}

func (s *stubStockMovementRepo) ListByMaterial(context.Context, string, int) ([]domain.StockMovement, error) {
	return nil, nil
}

type stubCompanySurchargeRepo struct {
	findFn   func(context.Context, string) (domain.CompanySurcharge, error)
	insertFn func(context.Context, domain.CompanySurcharge) error
	updateFn func(context.Context, domain.CompanySurcharge) error
	deleteFn func(context.Context, string) error
	listFn   func(context.Context) ([]domain.CompanySurcharge, error)
}

func (s *stubCompanySurchargeRepo) Insert(ctx context.Context, surcharge domain.CompanySurcharge) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, surcharge)
	}
	return nil
}

func (s *stubCompanySurchargeRepo) Update(ctx context.Context, surcharge domain.CompanySurcharge) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, surcharge)
	}
	return nil
}

func (s *stubCompanySurchargeRepo) Delete(ctx context.Context, surchargeID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, surchargeID)
	}
	return nil
}

func (s *stubCompanySurchargeRepo) FindByID(ctx context.Context, surchargeID string) (domain.CompanySurcharge, error) {
	if s.findFn != nil {
		return s.findFn(ctx, surchargeID)
	}
	return domain.CompanySurcharge{}, notFoundErr("surcharge not found")
}

func (s *stubCompanySurchargeRepo) List(ctx context.Context) ([]domain.CompanySurcharge, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, name string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, name, step)
	}
	return 1, nil
}

func (s *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type stubUnitOfWork struct {
	runFn func(context.Context, func(context.Context) error) error
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.runFn != nil {
		return s.runFn(ctx, fn)
	}
	return fn(ctx)
}

type captureOrderEvents struct {
	messages []OrderEventMessage
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, message OrderEventMessage) (string, error) {
	c.messages = append(c.messages, message)
	return "msg-1", nil
}

type stubPricingService struct {
	resolveFn    func(context.Context, ResolvePriceCommand) (ResolvedPrice, error)
	priceOrderFn func(context.Context, PriceOrderCommand) (OrderPricing, error)
}

func (s *stubPricingService) ResolvePrice(ctx context.Context, cmd ResolvePriceCommand) (ResolvedPrice, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, cmd)
	}
	return ResolvedPrice{Reason: "recipe base price"}, nil
}

func (s *stubPricingService) PriceOrder(ctx context.Context, cmd PriceOrderCommand) (OrderPricing, error) {
	if s.priceOrderFn != nil {
		return s.priceOrderFn(ctx, cmd)
	}
	return OrderPricing{}, errors.New("not implemented")
}

func (s *stubPricingService) PricePumpOrder(context.Context, PricePumpOrderCommand) (PumpOrderPricing, error) {
	return PumpOrderPricing{}, errors.New("not implemented")
}

func newTestOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Recipes == nil {
		deps.Recipes = &stubRecipeRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Pricing == nil {
		deps.Pricing = &stubPricingService{}
	}
	if deps.Settings == nil {
		deps.Settings = &stubSettingsRepo{}
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestCreateOrderNumbersAndSnapshots(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)

	var inserted domain.Order
	orders := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}
	recipes := &stubRecipeRepo{
		findFn: func(context.Context, string) (domain.Recipe, error) {
			return domain.Recipe{ID: "rcp_1", Name: "C25/30", Price: valuePtr(1500.0)}, nil
		},
	}
	customers := &stubCustomerRepo{
		findFn: func(context.Context, string) (domain.Customer, error) {
			return domain.Customer{ID: "cus_1", Name: "Bridgeworks"}, nil
		},
	}
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, name string, _ int64) (int64, error) {
			if name != "orders" {
				t.Fatalf("counter name = %q, want orders", name)
			}
			return 7, nil
		},
	}
	pricing := &stubPricingService{
		resolveFn: func(_ context.Context, cmd ResolvePriceCommand) (ResolvedPrice, error) {
			if cmd.RecipeID != "rcp_1" || cmd.CustomerID != "cus_1" {
				t.Fatalf("unexpected resolve command %+v", cmd)
			}
			return ResolvedPrice{
				Amount: valuePtr(1400.0),
				Reason: "special price defined for recipe and customer",
			}, nil
		},
	}
	events := &captureOrderEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:    orders,
		Recipes:   recipes,
		Customers: customers,
		Counters:  counters,
		Pricing:   pricing,
		Events:    events,
		Clock:     func() time.Time { return now },
	})

	order, err := svc.CreateOrder(ctx, CreateOrderCommand{
		RecipeID:   "rcp_1",
		CustomerID: "cus_1",
		Volume:     8,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if order.Number != "2026/0007" {
		t.Fatalf("order number = %q, want 2026/0007", order.Number)
	}
	if order.Status != domain.OrderStatusSent {
		t.Fatalf("status = %q, want sent", order.Status)
	}
	if order.Recipe.Price == nil || *order.Recipe.Price != 1400 {
		t.Fatalf("snapshot price = %v, want 1400", order.Recipe.Price)
	}
	if order.Recipe.PriceNote != "special price defined for recipe and customer" {
		t.Fatalf("snapshot price note = %q", order.Recipe.PriceNote)
	}
	if order.Customer != "Bridgeworks" {
		t.Fatalf("customer name = %q, want Bridgeworks", order.Customer)
	}
	if inserted.ID != order.ID {
		t.Fatalf("inserted order %q, returned %q", inserted.ID, order.ID)
	}
	if len(events.messages) != 1 || events.messages[0].Event != "order.created" {
		t.Fatalf("events = %+v, want one order.created", events.messages)
	}
}

func TestCreateOrderStripsCommentMarkup(t *testing.T) {
	var inserted domain.Order
	orders := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}
	recipes := &stubRecipeRepo{
		findFn: func(context.Context, string) (domain.Recipe, error) {
			return domain.Recipe{ID: "rcp_1", Name: "C25/30"}, nil
		},
	}

	svc := newTestOrderService(t, OrderServiceDeps{Orders: orders, Recipes: recipes})
	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		RecipeID: "rcp_1",
		Volume:   4,
		Comment:  "  pour after <script>alert(1)</script> 14:00 ",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Comment != "pour after  14:00" {
		t.Fatalf("comment = %q, want markup stripped", order.Comment)
	}
	if inserted.Comment != order.Comment {
		t.Fatalf("inserted comment = %q, returned %q", inserted.Comment, order.Comment)
	}
}

func TestCreateOrderRejectsBadVolume(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{})
	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{RecipeID: "rcp_1", Volume: 0})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("err = %v, want ErrOrderInvalidInput", err)
	}
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()

	newService := func(current domain.OrderStatus, updated *domain.OrderStatus, events *captureOrderEvents) OrderService {
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord_1", Number: "2026/0001", Status: current}, nil
			},
			updateStatusFn: func(_ context.Context, _ string, status domain.OrderStatus, _ time.Time) error {
				if updated != nil {
					*updated = status
				}
				return nil
			},
		}
		return newTestOrderService(t, OrderServiceDeps{Orders: orders, Events: events})
	}

	t.Run("sent to in_production publishes a status event", func(t *testing.T) {
		events := &captureOrderEvents{}
		var updated domain.OrderStatus
		svc := newService(domain.OrderStatusSent, &updated, events)

		order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID:      "ord_1",
			TargetStatus: domain.OrderStatusInProduction,
		})
		if err != nil {
			t.Fatalf("TransitionStatus: %v", err)
		}
		if order.Status != domain.OrderStatusInProduction || updated != domain.OrderStatusInProduction {
			t.Fatalf("status = %q, stored = %q", order.Status, updated)
		}
		if len(events.messages) != 1 {
			t.Fatalf("expected one event, got %d", len(events.messages))
		}
		msg := events.messages[0]
		if msg.Event != "order.status.changed" || msg.PreviousStatus != "sent" || msg.Status != "in_production" {
			t.Fatalf("unexpected event %+v", msg)
		}
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		events := &captureOrderEvents{}
		var updated domain.OrderStatus
		svc := newService(domain.OrderStatusSent, &updated, events)

		order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID:      "ord_1",
			TargetStatus: domain.OrderStatusSent,
		})
		if err != nil {
			t.Fatalf("TransitionStatus: %v", err)
		}
		if order.Status != domain.OrderStatusSent {
			t.Fatalf("status = %q, want sent", order.Status)
		}
		if updated != "" {
			t.Fatalf("store was updated to %q on a no-op", updated)
		}
		if len(events.messages) != 0 {
			t.Fatalf("no-op transition published %d events", len(events.messages))
		}
	})

	t.Run("in_production cannot go back to sent", func(t *testing.T) {
		svc := newService(domain.OrderStatusInProduction, nil, &captureOrderEvents{})
		_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID:      "ord_1",
			TargetStatus: domain.OrderStatusSent,
		})
		if !errors.Is(err, ErrOrderInvalidState) {
			t.Fatalf("err = %v, want ErrOrderInvalidState", err)
		}
	})

	t.Run("terminal states accept nothing", func(t *testing.T) {
		svc := newService(domain.OrderStatusFinished, nil, &captureOrderEvents{})
		_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID:      "ord_1",
			TargetStatus: domain.OrderStatusInProduction,
		})
		if !errors.Is(err, ErrOrderInvalidState) {
			t.Fatalf("err = %v, want ErrOrderInvalidState", err)
		}
	})

	t.Run("dispatcher abort can still finish", func(t *testing.T) {
		events := &captureOrderEvents{}
		var updated domain.OrderStatus
		svc := newService(domain.OrderStatusAbortedByDispatcher, &updated, events)

		_, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID:      "ord_1",
			TargetStatus: domain.OrderStatusFinished,
		})
		if err != nil {
			t.Fatalf("TransitionStatus: %v", err)
		}
		if updated != domain.OrderStatusFinished {
			t.Fatalf("stored status = %q, want finished", updated)
		}
	})
}

func TestArchiveOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("active orders cannot be archived", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{domain.OrderStatusSent, domain.OrderStatusInProduction} {
			orders := &stubOrderRepo{
				findFn: func(context.Context, string) (domain.Order, error) {
					return domain.Order{ID: "ord_1", Status: status}, nil
				},
			}
			svc := newTestOrderService(t, OrderServiceDeps{Orders: orders})
			if err := svc.ArchiveOrder(ctx, "ord_1"); !errors.Is(err, ErrOrderInvalidState) {
				t.Fatalf("archive in %s: err = %v, want ErrOrderInvalidState", status, err)
			}
		}
	})

	t.Run("finished order is hidden", func(t *testing.T) {
		var hidden bool
		orders := &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord_1", Status: domain.OrderStatusFinished}, nil
			},
			setHiddenFn: func(_ context.Context, _ string, h bool, _ time.Time) error {
				hidden = h
				return nil
			},
		}
		svc := newTestOrderService(t, OrderServiceDeps{Orders: orders})
		if err := svc.ArchiveOrder(ctx, "ord_1"); err != nil {
			t.Fatalf("ArchiveOrder: %v", err)
		}
		if !hidden {
			t.Fatal("order was not hidden")
		}
	})
}

func TestRecordBatchAdjustsStockAndOrderMaterials(t *testing.T) {
	ctx := context.Background()

	var (
		adjusted  = map[string]float64{}
		movements []domain.StockMovement
		replaced  []domain.OrderMaterial
		batch     domain.Batch
	)
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{ID: "ord_1", Number: "2026/0001", Status: domain.OrderStatusInProduction}, nil
		},
		listOrderMaterialsFn: func(context.Context, string) ([]domain.OrderMaterial, error) {
			return []domain.OrderMaterial{
				{ID: "oma_1", OrderID: "ord_1", MaterialID: valuePtr("mat_cement"), Name: "CEM I", Amount: 300},
			}, nil
		},
		appendBatchFn: func(_ context.Context, b domain.Batch) error {
			batch = b
			return nil
		},
		replaceOrderMaterialsFn: func(_ context.Context, _ string, materials []domain.OrderMaterial) error {
			replaced = materials
			return nil
		},
	}
	materials := &stubMaterialRepo{
		findFn: func(_ context.Context, id string) (domain.Material, error) {
			switch id {
			case "mat_cement":
				return domain.Material{ID: "mat_cement", Name: "CEM I", Type: domain.MaterialTypeCement}, nil
			case "mat_water":
				return domain.Material{ID: "mat_water", Name: "Water", Type: domain.MaterialTypeWater}, nil
			}
			return domain.Material{}, notFoundErr("material not found")
		},
		adjustStockFn: func(_ context.Context, id string, delta float64) (domain.Material, error) {
			adjusted[id] += delta
			return domain.Material{ID: id}, nil
		},
	}
	stockMovements := &stubStockMovementRepo{
		appendFn: func(_ context.Context, movement domain.StockMovement) error {
			movements = append(movements, movement)
			return nil
		},
	}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:         orders,
		Materials:      materials,
		StockMovements: stockMovements,
	})

	_, err := svc.RecordBatch(ctx, RecordBatchCommand{
		OrderID: "ord_1",
		Volume:  2,
		Materials: []BatchMaterialInput{
			{MaterialID: "mat_cement", Required: 600, Dosed: 620},
			{MaterialID: "mat_water", Required: 300, Dosed: 310},
		},
	})
	if err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	if len(batch.Materials) != 2 {
		t.Fatalf("batch materials = %d, want 2", len(batch.Materials))
	}
	if adjusted["mat_cement"] != -620 || adjusted["mat_water"] != -310 {
		t.Fatalf("stock deltas = %v, want -620 cement and -310 water", adjusted)
	}
	if len(movements) != 2 {
		t.Fatalf("stock movements = %d, want 2", len(movements))
	}
	if movements[0].Reason != "batch production" {
		t.Fatalf("movement reason = %q", movements[0].Reason)
	}

	// The cement dose folds into the existing order line; water is new.
	if len(replaced) != 2 {
		t.Fatalf("order materials = %d, want 2", len(replaced))
	}
	if replaced[0].ID != "oma_1" || replaced[0].Amount != 920 {
		t.Fatalf("cement line = %+v, want amount 920 on oma_1", replaced[0])
	}
	if replaced[1].Name != "Water" || replaced[1].Amount != 310 {
		t.Fatalf("water line = %+v, want new line with amount 310", replaced[1])
	}
}

func TestRecordDeliverySnapshotsCar(t *testing.T) {
	ctx := context.Background()
	siteID := "sit_1"
	driverID := "drv_1"

	var appended domain.Delivery
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{ID: "ord_1", Number: "2026/0001", Status: domain.OrderStatusInProduction, SiteID: &siteID}, nil
		},
		appendDeliveryFn: func(_ context.Context, delivery domain.Delivery) error {
			appended = delivery
			return nil
		},
	}
	cars := &stubCarRepo{
		findFn: func(context.Context, string) (domain.Car, error) {
			return domain.Car{
				ID: "car_1",
				Vehicle: domain.Vehicle{
					RegistrationNumber: "MIX-042",
					DriverID:           &driverID,
					PricePerKm:         valuePtr(4.5),
				},
			}, nil
		},
	}
	drivers := &stubDriverRepo{
		findFn: func(context.Context, string) (domain.Driver, error) {
			return domain.Driver{ID: driverID, Name: "J. Stone", Contact: "+420 600 000 000"}, nil
		},
	}
	sites := &stubSiteRepo{
		findFn: func(context.Context, string) (domain.ConstructionSite, error) {
			return domain.ConstructionSite{ID: siteID, Distance: valuePtr(15.0)}, nil
		},
	}
	settings := &stubSettingsRepo{
		getFn: func(context.Context) (domain.FacilitySettings, error) {
			return domain.FacilitySettings{CountDistanceDoubled: true}, nil
		},
	}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   orders,
		Cars:     cars,
		Drivers:  drivers,
		Sites:    sites,
		Settings: settings,
	})

	delivery, err := svc.RecordDelivery(ctx, RecordDeliveryCommand{
		OrderID: "ord_1",
		Volume:  4,
		CarID:   "car_1",
	})
	if err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	if delivery.Car.RegistrationNumber != "MIX-042" || delivery.Car.Driver != "J. Stone" {
		t.Fatalf("car snapshot = %+v", delivery.Car)
	}
	if delivery.SiteDistance == nil || *delivery.SiteDistance != 15 {
		t.Fatalf("SiteDistance = %v, want 15", delivery.SiteDistance)
	}
	if delivery.DistanceDriven == nil || *delivery.DistanceDriven != 30 {
		t.Fatalf("DistanceDriven = %v, want 30", delivery.DistanceDriven)
	}
	if appended.ID == "" || appended.OrderID != "ord_1" {
		t.Fatalf("appended delivery = %+v", appended)
	}
}
