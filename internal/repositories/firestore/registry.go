package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

// Registry wires every Firestore-backed repository behind the
// repositories.Registry interface and owns the shared provider lifecycle.
type Registry struct {
	provider *pfirestore.Provider

	materials         *MaterialRepository
	recipes           *RecipeRepository
	defaults          *DefaultsRepository
	customers         *CustomerRepository
	sites             *SiteRepository
	contracts         *ContractRepository
	prices            *PriceRepository
	transportTypes    *TransportTypeRepository
	transportZones    *TransportZoneRepository
	drivers           *DriverRepository
	cars              *CarRepository
	pumps             *PumpRepository
	companySurcharges *CompanySurchargeRepository
	pumpSurcharges    *PumpSurchargeRepository
	orders            *OrderRepository
	pumpOrders        *PumpOrderRepository
	stockMovements    *StockMovementRepository
	settings          *SettingsRepository
	counters          *CounterRepository
	health            repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// RegistryOption customises registry construction.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	extraChecks []repositories.DependencyCheck
}

// WithHealthChecks appends dependency probes beyond the built-in record
// store check, typically for the event broker and export bucket.
func WithHealthChecks(checks ...repositories.DependencyCheck) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.extraChecks = append(cfg.extraChecks, checks...)
	}
}

// NewRegistry constructs every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	reg := &Registry{provider: provider}

	var err error
	if reg.materials, err = NewMaterialRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.recipes, err = NewRecipeRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.defaults, err = NewDefaultsRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.customers, err = NewCustomerRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.sites, err = NewSiteRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.contracts, err = NewContractRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.prices, err = NewPriceRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.transportTypes, err = NewTransportTypeRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.transportZones, err = NewTransportZoneRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.drivers, err = NewDriverRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.cars, err = NewCarRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.pumps, err = NewPumpRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.companySurcharges, err = NewCompanySurchargeRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.pumpSurcharges, err = NewPumpSurchargeRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.pumpOrders, err = NewPumpOrderRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.stockMovements, err = NewStockMovementRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.settings, err = NewSettingsRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	checks := make([]repositories.DependencyCheck, 0, len(cfg.extraChecks)+1)
	checks = append(checks, repositories.DependencyCheck{
		Name: "firestore",
		Check: func(ctx context.Context) error {
			_, err := provider.Client(ctx)
			return err
		},
	})
	checks = append(checks, cfg.extraChecks...)

	if reg.health, err = repositories.NewDependencyHealthRepository(checks); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return reg, nil
}

// RunInTx opens a unit of work. Writes issued through the repositories on
// the derived context are staged and committed atomically in one Firestore
// transaction after fn returns. Reads inside fn observe the current store,
// not the staged writes.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("registry: transaction function is nil")
	}

	state := &txState{}
	if err := fn(withTxState(ctx, state)); err != nil {
		return err
	}
	if state.empty() {
		return nil
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return state.apply(tx)
	})
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

func (r *Registry) Materials() repositories.MaterialRepository { return r.materials }
func (r *Registry) Recipes() repositories.RecipeRepository { return r.recipes }
func (r *Registry) Defaults() repositories.DefaultsRepository { return r.defaults }
func (r *Registry) Customers() repositories.CustomerRepository { return r.customers }
func (r *Registry) Sites() repositories.SiteRepository { return r.sites }
func (r *Registry) Contracts() repositories.ContractRepository { return r.contracts }
func (r *Registry) Prices() repositories.PriceRepository { return r.prices }
func (r *Registry) Drivers() repositories.DriverRepository { return r.drivers }
func (r *Registry) Cars() repositories.CarRepository { return r.cars }
func (r *Registry) Pumps() repositories.PumpRepository { return r.pumps }
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }
func (r *Registry) PumpOrders() repositories.PumpOrderRepository { return r.pumpOrders }
func (r *Registry) Settings() repositories.SettingsRepository { return r.settings }
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }
func (r *Registry) Health() repositories.HealthRepository { return r.health }

func (r *Registry) TransportTypes() repositories.TransportTypeRepository { return r.transportTypes }
func (r *Registry) TransportZones() repositories.TransportZoneRepository { return r.transportZones }

func (r *Registry) CompanySurcharges() repositories.CompanySurchargeRepository {
	return r.companySurcharges
}

func (r *Registry) PumpSurcharges() repositories.PumpSurchargeRepository {
	return r.pumpSurcharges
}

func (r *Registry) StockMovements() repositories.StockMovementRepository {
	return r.stockMovements
}
