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
	materialIDPrefix       = "mat_"
	recipeIDPrefix         = "rcp_"
	defaultsIDPrefix       = "def_"
	recipeMaterialIDPrefix = "rml_"
)

var (
	// ErrCatalogInvalidInput signals malformed material or recipe data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the record could not be located.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict indicates a duplicate name or number.
	ErrCatalogConflict = errors.New("catalog: conflict")
)

// CatalogServiceDeps bundles collaborators for the catalog service.
type CatalogServiceDeps struct {
	Materials   repositories.MaterialRepository
	Recipes     repositories.RecipeRepository
	Defaults    repositories.DefaultsRepository
	Movements   repositories.StockMovementRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	materials  repositories.MaterialRepository
	recipes    repositories.RecipeRepository
	defaults   repositories.DefaultsRepository
	movements  repositories.StockMovementRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
}

// NewCatalogService wires dependencies into a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Materials == nil {
		return nil, errors.New("catalog service: material repository is required")
	}
	if deps.Recipes == nil {
		return nil, errors.New("catalog service: recipe repository is required")
	}
	if deps.Defaults == nil {
		return nil, errors.New("catalog service: defaults repository is required")
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

	return &catalogService{
		materials:  deps.Materials,
		recipes:    deps.Recipes,
		defaults:   deps.Defaults,
		movements:  deps.Movements,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *catalogService) CreateMaterial(ctx context.Context, cmd UpsertMaterialCommand) (Material, error) {
	material, err := materialFromCommand(cmd)
	if err != nil {
		return Material{}, err
	}
	now := s.clock()
	material.ID = materialIDPrefix + s.newID()
	material.CreatedAt = now
	material.UpdatedAt = now
	if err := s.materials.Insert(ctx, material); err != nil {
		return Material{}, s.mapRepositoryError(err)
	}
	return material, nil
}

func (s *catalogService) UpdateMaterial(ctx context.Context, materialID string, cmd UpsertMaterialCommand) (Material, error) {
	materialID = strings.TrimSpace(materialID)
	if materialID == "" {
		return Material{}, fmt.Errorf("%w: material id is required", ErrCatalogInvalidInput)
	}
	existing, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return Material{}, s.mapRepositoryError(err)
	}
	material, err := materialFromCommand(cmd)
	if err != nil {
		return Material{}, err
	}
	material.ID = existing.ID
	material.Hidden = existing.Hidden
	material.CreatedAt = existing.CreatedAt
	material.UpdatedAt = s.clock()
	if cmd.Stock == nil {
		material.Stock = existing.Stock
	}
	if err := s.materials.Update(ctx, material); err != nil {
		return Material{}, s.mapRepositoryError(err)
	}
	return material, nil
}

func (s *catalogService) GetMaterial(ctx context.Context, materialID string) (Material, error) {
	materialID = strings.TrimSpace(materialID)
	if materialID == "" {
		return Material{}, fmt.Errorf("%w: material id is required", ErrCatalogInvalidInput)
	}
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return Material{}, s.mapRepositoryError(err)
	}
	return material, nil
}

func (s *catalogService) ListMaterials(ctx context.Context, filter MaterialListFilter) ([]Material, error) {
	materials, err := s.materials.List(ctx, repositories.MaterialListFilter{
		Type:          filter.Type,
		IncludeHidden: filter.IncludeHidden,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return materials, nil
}

func (s *catalogService) ArchiveMaterial(ctx context.Context, materialID string) error {
	materialID = strings.TrimSpace(materialID)
	if materialID == "" {
		return fmt.Errorf("%w: material id is required", ErrCatalogInvalidInput)
	}
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	material.Hidden = true
	material.UpdatedAt = s.clock()
	if err := s.materials.Update(ctx, material); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// AdjustStock applies a signed delta and records the movement in the same
// transaction so the stock level and its audit trail never diverge.
func (s *catalogService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (Material, error) {
	materialID := strings.TrimSpace(cmd.MaterialID)
	if materialID == "" {
		return Material{}, fmt.Errorf("%w: material id is required", ErrCatalogInvalidInput)
	}
	if cmd.Delta == 0 {
		return Material{}, fmt.Errorf("%w: stock delta must not be zero", ErrCatalogInvalidInput)
	}

	var material Material
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		updated, err := s.materials.AdjustStock(txCtx, materialID, cmd.Delta)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		material = updated
		if s.movements != nil {
			movement := domain.StockMovement{
				ID:         stockMovementIDPrefix + s.newID(),
				MaterialID: materialID,
				Amount:     cmd.Delta,
				Reason:     strings.TrimSpace(cmd.Reason),
				OrderID:    cmd.OrderID,
				CreatedAt:  s.clock(),
			}
			if err := s.movements.Append(txCtx, movement); err != nil {
				return s.mapRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return Material{}, err
	}
	return material, nil
}

func (s *catalogService) CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (RecipeDetail, error) {
	recipe, err := recipeFromInput(cmd.Recipe)
	if err != nil {
		return RecipeDetail{}, err
	}
	now := s.clock()
	recipe.ID = recipeIDPrefix + s.newID()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	materials, err := s.recipeMaterialsFromInputs(ctx, recipe.ID, cmd.Materials)
	if err != nil {
		return RecipeDetail{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.recipes.Insert(txCtx, recipe, materials); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return RecipeDetail{}, err
	}
	return RecipeDetail{Recipe: recipe, Materials: materials}, nil
}

// UpdateRecipe replaces the recipe fields and its material list in one
// transaction. A recipe half-pointing at the old material list would reach
// the production line.
func (s *catalogService) UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (RecipeDetail, error) {
	recipeID := strings.TrimSpace(cmd.RecipeID)
	if recipeID == "" {
		return RecipeDetail{}, fmt.Errorf("%w: recipe id is required", ErrCatalogInvalidInput)
	}
	existing, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return RecipeDetail{}, s.mapRepositoryError(err)
	}
	recipe, err := recipeFromInput(cmd.Recipe)
	if err != nil {
		return RecipeDetail{}, err
	}
	recipe.ID = existing.ID
	recipe.Hidden = existing.Hidden
	recipe.CreatedAt = existing.CreatedAt
	recipe.UpdatedAt = s.clock()

	materials, err := s.recipeMaterialsFromInputs(ctx, recipe.ID, cmd.Materials)
	if err != nil {
		return RecipeDetail{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.recipes.Update(txCtx, recipe); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.recipes.ReplaceMaterials(txCtx, recipe.ID, materials); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return RecipeDetail{}, err
	}
	return RecipeDetail{Recipe: recipe, Materials: materials}, nil
}

func (s *catalogService) GetRecipe(ctx context.Context, recipeID string) (RecipeDetail, error) {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return RecipeDetail{}, fmt.Errorf("%w: recipe id is required", ErrCatalogInvalidInput)
	}
	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return RecipeDetail{}, s.mapRepositoryError(err)
	}
	materials, err := s.recipes.ListMaterials(ctx, recipeID)
	if err != nil {
		return RecipeDetail{}, s.mapRepositoryError(err)
	}
	return RecipeDetail{Recipe: recipe, Materials: materials}, nil
}

func (s *catalogService) ListRecipes(ctx context.Context, filter RecipeListFilter) ([]Recipe, error) {
	recipes, err := s.recipes.List(ctx, repositories.RecipeListFilter{
		RecipeClass:   filter.RecipeClass,
		IncludeHidden: filter.IncludeHidden,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return recipes, nil
}

func (s *catalogService) ArchiveRecipe(ctx context.Context, recipeID string) error {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return fmt.Errorf("%w: recipe id is required", ErrCatalogInvalidInput)
	}
	recipe, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	recipe.Hidden = true
	recipe.UpdatedAt = s.clock()
	if err := s.recipes.Update(ctx, recipe); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *catalogService) CreateDefaults(ctx context.Context, cmd UpsertDefaultsCommand) (Defaults, error) {
	defaults, err := defaultsFromCommand(cmd)
	if err != nil {
		return Defaults{}, err
	}
	now := s.clock()
	defaults.ID = defaultsIDPrefix + s.newID()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	if err := s.defaults.Insert(ctx, defaults); err != nil {
		return Defaults{}, s.mapRepositoryError(err)
	}
	return defaults, nil
}

func (s *catalogService) UpdateDefaults(ctx context.Context, defaultsID string, cmd UpsertDefaultsCommand) (Defaults, error) {
	defaultsID = strings.TrimSpace(defaultsID)
	if defaultsID == "" {
		return Defaults{}, fmt.Errorf("%w: defaults id is required", ErrCatalogInvalidInput)
	}
	existing, err := s.defaults.FindByID(ctx, defaultsID)
	if err != nil {
		return Defaults{}, s.mapRepositoryError(err)
	}
	defaults, err := defaultsFromCommand(cmd)
	if err != nil {
		return Defaults{}, err
	}
	defaults.ID = existing.ID
	defaults.CreatedAt = existing.CreatedAt
	defaults.UpdatedAt = s.clock()
	if err := s.defaults.Update(ctx, defaults); err != nil {
		return Defaults{}, s.mapRepositoryError(err)
	}
	return defaults, nil
}

func (s *catalogService) ListDefaults(ctx context.Context) ([]Defaults, error) {
	defaults, err := s.defaults.List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return defaults, nil
}

func materialFromCommand(cmd UpsertMaterialCommand) (domain.Material, error) {
	material := domain.Material{
		Name:     strings.TrimSpace(cmd.Name),
		LongName: strings.TrimSpace(cmd.LongName),
		Type:     cmd.Type,
		Unit:     strings.TrimSpace(cmd.Unit),
	}
	if cmd.Stock != nil {
		material.Stock = *cmd.Stock
	}
	if err := domain.ValidateMaterial(material); err != nil {
		return domain.Material{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	return material, nil
}

func recipeFromInput(input RecipeInput) (domain.Recipe, error) {
	recipe := domain.Recipe{
		Name:                      strings.TrimSpace(input.Name),
		Number:                    input.Number,
		RecipeClass:               strings.TrimSpace(input.RecipeClass),
		Description:               sanitizeText(input.Description),
		Comment:                   sanitizeText(input.Comment),
		ConsistencyClass:          strings.TrimSpace(input.ConsistencyClass),
		ExposureClasses:           strings.TrimSpace(input.ExposureClasses),
		Price:                     input.Price,
		BatchVolumeLimit:          input.BatchVolumeLimit,
		LiftPourDuration:          input.LiftPourDuration,
		LiftSemiPourDuration:      input.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  input.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: input.MixerSemiOpening2Duration,
		MixerOpeningDuration:      input.MixerOpeningDuration,
		MixingDuration:            input.MixingDuration,
		DMax:                      input.DMax,
		ClContent:                 input.ClContent,
		VC:                        input.VC,
		CementMin:                 input.CementMin,
		WorkabilityTime:           input.WorkabilityTime,
		DefaultsID:                input.DefaultsID,
	}
	if recipe.Number != nil {
		recipe.Number = optionalString(*recipe.Number)
	}
	if err := domain.ValidateRecipe(recipe); err != nil {
		return domain.Recipe{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	return recipe, nil
}

// recipeMaterialsFromInputs resolves each material line and enforces that
// k-factors appear only on addition-type materials.
func (s *catalogService) recipeMaterialsFromInputs(ctx context.Context, recipeID string, inputs []RecipeMaterialInput) ([]domain.RecipeMaterial, error) {
	materials := make([]domain.RecipeMaterial, 0, len(inputs))
	for _, input := range inputs {
		materialID := strings.TrimSpace(input.MaterialID)
		if materialID == "" {
			return nil, fmt.Errorf("%w: recipe material id is required", ErrCatalogInvalidInput)
		}
		material, err := s.materials.FindByID(ctx, materialID)
		if err != nil {
			return nil, s.mapRepositoryError(err)
		}
		line := domain.RecipeMaterial{
			ID:         recipeMaterialIDPrefix + s.newID(),
			RecipeID:   recipeID,
			MaterialID: material.ID,
			Amount:     input.Amount,
			Delay:      input.Delay,
			KValue:     input.KValue,
			KRatio:     input.KRatio,
		}
		if err := domain.ValidateRecipeMaterial(line, material.Type); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
		}
		materials = append(materials, line)
	}
	return materials, nil
}

func defaultsFromCommand(cmd UpsertDefaultsCommand) (domain.Defaults, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Defaults{}, fmt.Errorf("%w: defaults name is required", ErrCatalogInvalidInput)
	}
	return domain.Defaults{
		Name:                      name,
		BatchVolumeLimit:          cmd.BatchVolumeLimit,
		LiftPourDuration:          cmd.LiftPourDuration,
		LiftSemiPourDuration:      cmd.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  cmd.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: cmd.MixerSemiOpening2Duration,
		MixerOpeningDuration:      cmd.MixerOpeningDuration,
		MixingDuration:            cmd.MixingDuration,
	}, nil
}

func (s *catalogService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
		}
	}
	return err
}
