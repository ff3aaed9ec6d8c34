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
	customerIDPrefix  = "cus_"
	siteIDPrefix      = "sit_"
	contractIDPrefix  = "con_"
	priceRuleIDPrefix = "prc_"
)

var (
	// ErrCustomerInvalidInput signals malformed customer, site or rule data.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
	// ErrCustomerNotFound indicates the record could not be located.
	ErrCustomerNotFound = errors.New("customer: not found")
	// ErrCustomerConflict indicates a duplicate record.
	ErrCustomerConflict = errors.New("customer: conflict")
	// ErrPriceRuleDuplicate indicates a discount rule already exists for the
	// exact same scope.
	ErrPriceRuleDuplicate = errors.New("customer: duplicate price rule for scope")
)

// CustomerServiceDeps bundles collaborators for the customer service.
type CustomerServiceDeps struct {
	Customers   repositories.CustomerRepository
	Sites       repositories.SiteRepository
	Contracts   repositories.ContractRepository
	Prices      repositories.PriceRepository
	Recipes     repositories.RecipeRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
}

type customerService struct {
	customers  repositories.CustomerRepository
	sites      repositories.SiteRepository
	contracts  repositories.ContractRepository
	prices     repositories.PriceRepository
	recipes    repositories.RecipeRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
}

// NewCustomerService wires dependencies into a CustomerService.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: customer repository is required")
	}
	if deps.Sites == nil {
		return nil, errors.New("customer service: site repository is required")
	}
	if deps.Contracts == nil {
		return nil, errors.New("customer service: contract repository is required")
	}
	if deps.Prices == nil {
		return nil, errors.New("customer service: price repository is required")
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

	return &customerService{
		customers:  deps.Customers,
		sites:      deps.Sites,
		contracts:  deps.Contracts,
		prices:     deps.Prices,
		recipes:    deps.Recipes,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, error) {
	customer, err := customerFromCommand(cmd)
	if err != nil {
		return Customer{}, err
	}
	now := s.clock()
	customer.ID = customerIDPrefix + s.newID()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	if err := s.customers.Insert(ctx, customer); err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, customerID string, cmd UpsertCustomerCommand) (Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}
	existing, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	customer, err := customerFromCommand(cmd)
	if err != nil {
		return Customer{}, err
	}
	customer.ID = existing.ID
	customer.Hidden = existing.Hidden
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = s.clock()
	if err := s.customers.Update(ctx, customer); err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter CustomerListFilter) ([]Customer, error) {
	customers, err := s.customers.List(ctx, repositories.CustomerListFilter{
		NamePrefix:    filter.NamePrefix,
		IncludeHidden: filter.IncludeHidden,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return customers, nil
}

func (s *customerService) ArchiveCustomer(ctx context.Context, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	customer.Hidden = true
	customer.UpdatedAt = s.clock()
	if err := s.customers.Update(ctx, customer); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *customerService) CreateSite(ctx context.Context, cmd UpsertSiteCommand) (ConstructionSite, error) {
	site, err := s.siteFromCommand(ctx, cmd, true)
	if err != nil {
		return ConstructionSite{}, err
	}
	now := s.clock()
	site.ID = siteIDPrefix + s.newID()
	site.CreatedAt = now
	site.UpdatedAt = now
	if err := s.sites.Insert(ctx, site); err != nil {
		return ConstructionSite{}, s.mapRepositoryError(err)
	}
	return site, nil
}

func (s *customerService) UpdateSite(ctx context.Context, siteID string, cmd UpsertSiteCommand) (ConstructionSite, error) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return ConstructionSite{}, fmt.Errorf("%w: site id is required", ErrCustomerInvalidInput)
	}
	existing, err := s.sites.FindByID(ctx, siteID)
	if err != nil {
		return ConstructionSite{}, s.mapRepositoryError(err)
	}
	site, err := s.siteFromCommand(ctx, cmd, false)
	if err != nil {
		return ConstructionSite{}, err
	}
	site.ID = existing.ID
	site.CustomerID = existing.CustomerID
	site.Hidden = existing.Hidden
	site.CreatedAt = existing.CreatedAt
	site.UpdatedAt = s.clock()
	if err := s.sites.Update(ctx, site); err != nil {
		return ConstructionSite{}, s.mapRepositoryError(err)
	}
	return site, nil
}

func (s *customerService) ListSites(ctx context.Context, customerID string) ([]ConstructionSite, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}
	sites, err := s.sites.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return sites, nil
}

func (s *customerService) CreateContract(ctx context.Context, cmd UpsertContractCommand) (Contract, error) {
	contract, err := s.contractFromCommand(ctx, cmd)
	if err != nil {
		return Contract{}, err
	}
	now := s.clock()
	contract.ID = contractIDPrefix + s.newID()
	contract.CreatedAt = now
	contract.UpdatedAt = now
	if err := s.contracts.Insert(ctx, contract); err != nil {
		return Contract{}, s.mapRepositoryError(err)
	}
	return contract, nil
}

func (s *customerService) UpdateContract(ctx context.Context, contractID string, cmd UpsertContractCommand) (Contract, error) {
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		return Contract{}, fmt.Errorf("%w: contract id is required", ErrCustomerInvalidInput)
	}
	existing, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return Contract{}, s.mapRepositoryError(err)
	}
	contract, err := s.contractFromCommand(ctx, cmd)
	if err != nil {
		return Contract{}, err
	}
	contract.ID = existing.ID
	contract.CreatedAt = existing.CreatedAt
	contract.UpdatedAt = s.clock()
	if err := s.contracts.Update(ctx, contract); err != nil {
		return Contract{}, s.mapRepositoryError(err)
	}
	return contract, nil
}

func (s *customerService) DeleteContract(ctx context.Context, contractID string) error {
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		return fmt.Errorf("%w: contract id is required", ErrCustomerInvalidInput)
	}
	if err := s.contracts.Delete(ctx, contractID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *customerService) ListContracts(ctx context.Context, customerID string) ([]Contract, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}
	contracts, err := s.contracts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return contracts, nil
}

// CreatePriceRule enforces the scope uniqueness invariants: one rule per
// exact (customer, recipe, site) triple, one (customer, recipe) rule
// without a site, and one customer-only rule per customer. The insert
// commits atomically with any other staged writes, but the duplicate
// check reads the live store, so two concurrent creates for the same
// scope can both pass it.
func (s *customerService) CreatePriceRule(ctx context.Context, cmd UpsertPriceRuleCommand) (Price, error) {
	rule, err := s.priceRuleFromCommand(ctx, cmd)
	if err != nil {
		return Price{}, err
	}
	now := s.clock()
	rule.ID = priceRuleIDPrefix + s.newID()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.prices.FindByScope(txCtx, repositories.PriceScope{
			CustomerID: rule.CustomerID,
			RecipeID:   rule.RecipeID,
			SiteID:     rule.SiteID,
		})
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: rule %s", ErrPriceRuleDuplicate, existing[0].ID)
		}
		if err := s.prices.Insert(txCtx, rule); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Price{}, err
	}
	return rule, nil
}

func (s *customerService) UpdatePriceRule(ctx context.Context, priceID string, cmd UpsertPriceRuleCommand) (Price, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return Price{}, fmt.Errorf("%w: price rule id is required", ErrCustomerInvalidInput)
	}
	existing, err := s.prices.FindByID(ctx, priceID)
	if err != nil {
		return Price{}, s.mapRepositoryError(err)
	}
	rule, err := s.priceRuleFromCommand(ctx, cmd)
	if err != nil {
		return Price{}, err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = s.clock()

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		others, err := s.prices.FindByScope(txCtx, repositories.PriceScope{
			CustomerID: rule.CustomerID,
			RecipeID:   rule.RecipeID,
			SiteID:     rule.SiteID,
		})
		if err != nil {
			return s.mapRepositoryError(err)
		}
		for _, other := range others {
			if other.ID != rule.ID {
				return fmt.Errorf("%w: rule %s", ErrPriceRuleDuplicate, other.ID)
			}
		}
		if err := s.prices.Update(txCtx, rule); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Price{}, err
	}
	return rule, nil
}

func (s *customerService) DeletePriceRule(ctx context.Context, priceID string) error {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return fmt.Errorf("%w: price rule id is required", ErrCustomerInvalidInput)
	}
	if err := s.prices.Delete(ctx, priceID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *customerService) ListPriceRules(ctx context.Context, customerID string) ([]Price, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}
	rules, err := s.prices.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return rules, nil
}

func customerFromCommand(cmd UpsertCustomerCommand) (domain.Customer, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name is required", ErrCustomerInvalidInput)
	}
	return domain.Customer{
		Name:      name,
		Street:    strings.TrimSpace(cmd.Street),
		City:      strings.TrimSpace(cmd.City),
		Zip:       strings.TrimSpace(cmd.Zip),
		CompanyID: strings.TrimSpace(cmd.CompanyID),
		VATID:     strings.TrimSpace(cmd.VATID),
		Phone:     strings.TrimSpace(cmd.Phone),
		Email:     strings.TrimSpace(cmd.Email),
	}, nil
}

func (s *customerService) siteFromCommand(ctx context.Context, cmd UpsertSiteCommand, requireCustomer bool) (domain.ConstructionSite, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.ConstructionSite{}, fmt.Errorf("%w: site name is required", ErrCustomerInvalidInput)
	}
	if cmd.Distance != nil && *cmd.Distance < 0 {
		return domain.ConstructionSite{}, fmt.Errorf("%w: site distance must not be negative", ErrCustomerInvalidInput)
	}
	site := domain.ConstructionSite{
		Name:     name,
		Street:   strings.TrimSpace(cmd.Street),
		City:     strings.TrimSpace(cmd.City),
		Distance: cmd.Distance,
	}
	if cmd.CustomerID != nil {
		customerID := strings.TrimSpace(*cmd.CustomerID)
		if customerID != "" {
			if _, err := s.customers.FindByID(ctx, customerID); err != nil {
				return domain.ConstructionSite{}, s.mapRepositoryError(err)
			}
			site.CustomerID = &customerID
		}
	}
	if requireCustomer && site.CustomerID == nil {
		return domain.ConstructionSite{}, fmt.Errorf("%w: site customer id is required", ErrCustomerInvalidInput)
	}
	return site, nil
}

func (s *customerService) contractFromCommand(ctx context.Context, cmd UpsertContractCommand) (domain.Contract, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Contract{}, fmt.Errorf("%w: contract name is required", ErrCustomerInvalidInput)
	}
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return domain.Contract{}, fmt.Errorf("%w: contract customer id is required", ErrCustomerInvalidInput)
	}
	siteID := strings.TrimSpace(cmd.SiteID)
	if siteID == "" {
		return domain.Contract{}, fmt.Errorf("%w: contract site id is required", ErrCustomerInvalidInput)
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return domain.Contract{}, s.mapRepositoryError(err)
	}
	if _, err := s.sites.FindByID(ctx, siteID); err != nil {
		return domain.Contract{}, s.mapRepositoryError(err)
	}
	if cmd.DefaultVolume != nil && *cmd.DefaultVolume <= 0 {
		return domain.Contract{}, fmt.Errorf("%w: contract default volume must be positive", ErrCustomerInvalidInput)
	}
	return domain.Contract{
		Name:          name,
		CustomerID:    customerID,
		SiteID:        siteID,
		RecipeID:      cmd.RecipeID,
		CarID:         cmd.CarID,
		DefaultVolume: cmd.DefaultVolume,
	}, nil
}

func (s *customerService) priceRuleFromCommand(ctx context.Context, cmd UpsertPriceRuleCommand) (domain.Price, error) {
	rule := domain.Price{
		CustomerID: strings.TrimSpace(cmd.CustomerID),
		RecipeID:   cmd.RecipeID,
		SiteID:     cmd.SiteID,
		Amount:     cmd.Amount,
		Type:       cmd.Type,
		Note:       strings.TrimSpace(cmd.Note),
	}
	if rule.RecipeID != nil {
		rule.RecipeID = optionalString(*rule.RecipeID)
	}
	if rule.SiteID != nil {
		rule.SiteID = optionalString(*rule.SiteID)
	}
	if err := domain.ValidatePriceRule(rule); err != nil {
		return domain.Price{}, fmt.Errorf("%w: %v", ErrCustomerInvalidInput, err)
	}
	if _, err := s.customers.FindByID(ctx, rule.CustomerID); err != nil {
		return domain.Price{}, s.mapRepositoryError(err)
	}
	if rule.RecipeID != nil && s.recipes != nil {
		if _, err := s.recipes.FindByID(ctx, *rule.RecipeID); err != nil {
			return domain.Price{}, s.mapRepositoryError(err)
		}
	}
	if rule.SiteID != nil {
		if _, err := s.sites.FindByID(ctx, *rule.SiteID); err != nil {
			return domain.Price{}, s.mapRepositoryError(err)
		}
	}
	return rule, nil
}

func (s *customerService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *customerService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCustomerNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCustomerConflict, err)
		}
	}
	return err
}
