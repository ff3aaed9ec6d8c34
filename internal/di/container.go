package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mixdispatch/api/internal/platform/config"
	"github.com/mixdispatch/api/internal/repositories"
	"github.com/mixdispatch/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled in NewContainer.
type Services struct {
	Settings   services.SettingsService
	Transport  services.TransportService
	Pricing    services.PricingService
	Catalog    services.CatalogService
	Customers  services.CustomerService
	Fleet      services.FleetService
	Orders     services.OrderService
	PumpOrders services.PumpOrderService
	Exports    services.ExportService
	System     services.SystemService
}

// ContainerDeps carries everything the container cannot build itself:
// persistence, the event publisher, and the export object sink.
type ContainerDeps struct {
	Config       config.Config
	Registry     repositories.Registry
	Events       services.OrderEventPublisher
	ExportWriter services.ExportObjectWriter
	Logger       *zap.Logger
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Tests can supply
// in-memory registries and stub publishers through ContainerDeps.
func NewContainer(ctx context.Context, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("container: repositories registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	svc, err := buildServices(deps, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases repository clients and any other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps, logger *zap.Logger) (Services, error) {
	reg := deps.Registry
	var svc Services

	settingsSvc, err := services.NewSettingsService(services.SettingsServiceDeps{
		Settings:          reg.Settings(),
		CompanySurcharges: reg.CompanySurcharges(),
		PumpSurcharges:    reg.PumpSurcharges(),
		Logger:            logger.Named("settings"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build settings service: %w", err)
	}
	svc.Settings = settingsSvc

	transportSvc, err := services.NewTransportService(services.TransportServiceDeps{
		Zones: reg.TransportZones(),
		Types: reg.TransportTypes(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build transport service: %w", err)
	}
	svc.Transport = transportSvc

	pricingSvc, err := services.NewPricingService(services.PricingServiceDeps{
		Prices:     reg.Prices(),
		Recipes:    reg.Recipes(),
		Sites:      reg.Sites(),
		Orders:     reg.Orders(),
		PumpOrders: reg.PumpOrders(),
		Zones:      reg.TransportZones(),
		Settings:   reg.Settings(),
		Transport:  transportSvc,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing service: %w", err)
	}
	svc.Pricing = pricingSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Materials:  reg.Materials(),
		Recipes:    reg.Recipes(),
		Defaults:   reg.Defaults(),
		Movements:  reg.StockMovements(),
		UnitOfWork: reg,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	customerSvc, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers:  reg.Customers(),
		Sites:      reg.Sites(),
		Contracts:  reg.Contracts(),
		Prices:     reg.Prices(),
		Recipes:    reg.Recipes(),
		UnitOfWork: reg,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build customer service: %w", err)
	}
	svc.Customers = customerSvc

	fleetSvc, err := services.NewFleetService(services.FleetServiceDeps{
		Drivers:        reg.Drivers(),
		Cars:           reg.Cars(),
		Pumps:          reg.Pumps(),
		TransportTypes: reg.TransportTypes(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build fleet service: %w", err)
	}
	svc.Fleet = fleetSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:         reg.Orders(),
		Recipes:        reg.Recipes(),
		Customers:      reg.Customers(),
		Sites:          reg.Sites(),
		Contracts:      reg.Contracts(),
		Cars:           reg.Cars(),
		Drivers:        reg.Drivers(),
		TransportTypes: reg.TransportTypes(),
		Materials:      reg.Materials(),
		StockMovements: reg.StockMovements(),
		Surcharges:     reg.CompanySurcharges(),
		Settings:       reg.Settings(),
		Counters:       reg.Counters(),
		Pricing:        pricingSvc,
		UnitOfWork:     reg,
		Events:         deps.Events,
		Logger:         zapEventLogger(logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if deps.Config.Features.EnablePumpOrders {
		pumpOrderSvc, err := services.NewPumpOrderService(services.PumpOrderServiceDeps{
			PumpOrders: reg.PumpOrders(),
			Pumps:      reg.Pumps(),
			Drivers:    reg.Drivers(),
			Customers:  reg.Customers(),
			Sites:      reg.Sites(),
			Surcharges: reg.PumpSurcharges(),
			Counters:   reg.Counters(),
			UnitOfWork: reg,
			Events:     deps.Events,
			Logger:     zapEventLogger(logger.Named("pump_orders")),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build pump order service: %w", err)
		}
		svc.PumpOrders = pumpOrderSvc
	}

	if deps.Config.Features.EnableExports && deps.ExportWriter != nil {
		exportSvc, err := services.NewExportService(services.ExportServiceDeps{
			Orders:  reg.Orders(),
			Pricing: pricingSvc,
			Writer:  deps.ExportWriter,
			Logger:  logger.Named("exports"),
		})
		if err != nil {
			return Services{}, fmt.Errorf("build export service: %w", err)
		}
		svc.Exports = exportSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			Health: healthRepo,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func zapEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info(event, zFields...)
	}
}
