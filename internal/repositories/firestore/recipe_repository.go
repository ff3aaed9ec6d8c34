package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const (
	recipesCollection      = "recipes"
	recipeMaterialsPattern = "recipes/%s/materials"
)

type recipeDocument struct {
	Name                      string    `firestore:"name"`
	Number                    *string   `firestore:"number"`
	RecipeClass               string    `firestore:"recipeClass"`
	Description               string    `firestore:"description"`
	Comment                   string    `firestore:"comment"`
	ConsistencyClass          string    `firestore:"consistencyClass"`
	ExposureClasses           string    `firestore:"exposureClasses"`
	Price                     *float64  `firestore:"price"`
	BatchVolumeLimit          *float64  `firestore:"batchVolumeLimit"`
	LiftPourDuration          *float64  `firestore:"liftPourDuration"`
	LiftSemiPourDuration      *float64  `firestore:"liftSemiPourDuration"`
	MixerSemiOpeningDuration  *float64  `firestore:"mixerSemiOpeningDuration"`
	MixerSemiOpening2Duration *float64  `firestore:"mixerSemiOpening2Duration"`
	MixerOpeningDuration      *float64  `firestore:"mixerOpeningDuration"`
	MixingDuration            *float64  `firestore:"mixingDuration"`
	KValue                    *float64  `firestore:"kValue"`
	KRatio                    *float64  `firestore:"kRatio"`
	DMax                      *float64  `firestore:"dMax"`
	ClContent                 *float64  `firestore:"clContent"`
	VC                        *float64  `firestore:"vc"`
	CementMin                 *float64  `firestore:"cementMin"`
	WorkabilityTime           *float64  `firestore:"workabilityTime"`
	DefaultsID                *string   `firestore:"defaultsId"`
	Hidden                    bool      `firestore:"hidden"`
	CreatedAt                 time.Time `firestore:"createdAt"`
	UpdatedAt                 time.Time `firestore:"updatedAt"`
}

func newRecipeDocument(r domain.Recipe) recipeDocument {
	return recipeDocument{
		Name:                      r.Name,
		Number:                    r.Number,
		RecipeClass:               r.RecipeClass,
		Description:               r.Description,
		Comment:                   r.Comment,
		ConsistencyClass:          r.ConsistencyClass,
		ExposureClasses:           r.ExposureClasses,
		Price:                     r.Price,
		BatchVolumeLimit:          r.BatchVolumeLimit,
		LiftPourDuration:          r.LiftPourDuration,
		LiftSemiPourDuration:      r.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  r.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: r.MixerSemiOpening2Duration,
		MixerOpeningDuration:      r.MixerOpeningDuration,
		MixingDuration:            r.MixingDuration,
		KValue:                    r.KValue,
		KRatio:                    r.KRatio,
		DMax:                      r.DMax,
		ClContent:                 r.ClContent,
		VC:                        r.VC,
		CementMin:                 r.CementMin,
		WorkabilityTime:           r.WorkabilityTime,
		DefaultsID:                r.DefaultsID,
		Hidden:                    r.Hidden,
		CreatedAt:                 r.CreatedAt.UTC(),
		UpdatedAt:                 r.UpdatedAt.UTC(),
	}
}

func (d recipeDocument) toDomain(id string) domain.Recipe {
	return domain.Recipe{
		ID:                        id,
		Name:                      d.Name,
		Number:                    d.Number,
		RecipeClass:               d.RecipeClass,
		Description:               d.Description,
		Comment:                   d.Comment,
		ConsistencyClass:          d.ConsistencyClass,
		ExposureClasses:           d.ExposureClasses,
		Price:                     d.Price,
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
		DefaultsID:                d.DefaultsID,
		Hidden:                    d.Hidden,
		CreatedAt:                 d.CreatedAt,
		UpdatedAt:                 d.UpdatedAt,
	}
}

type recipeMaterialDocument struct {
	MaterialID string   `firestore:"materialId"`
	Amount     float64  `firestore:"amount"`
	Delay      float64  `firestore:"delay"`
	KValue     *float64 `firestore:"kValue"`
	KRatio     *float64 `firestore:"kRatio"`
}

func newRecipeMaterialDocument(m domain.RecipeMaterial) recipeMaterialDocument {
	return recipeMaterialDocument{
		MaterialID: m.MaterialID,
		Amount:     m.Amount,
		Delay:      m.Delay,
		KValue:     m.KValue,
		KRatio:     m.KRatio,
	}
}

func (d recipeMaterialDocument) toDomain(id, recipeID string) domain.RecipeMaterial {
	return domain.RecipeMaterial{
		ID:         id,
		RecipeID:   recipeID,
		MaterialID: d.MaterialID,
		Amount:     d.Amount,
		Delay:      d.Delay,
		KValue:     d.KValue,
		KRatio:     d.KRatio,
	}
}

// RecipeRepository persists concrete formulas. Material lines live in a
// subcollection under each recipe and are replaced wholesale.
type RecipeRepository struct {
	provider *pfirestore.Provider
	recipes  *pfirestore.BaseRepository[recipeDocument]
}

var _ repositories.RecipeRepository = (*RecipeRepository)(nil)

// NewRecipeRepository constructs a Firestore-backed recipe repository.
func NewRecipeRepository(provider *pfirestore.Provider) (*RecipeRepository, error) {
	if provider == nil {
		return nil, errors.New("recipe repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[recipeDocument](provider, recipesCollection, nil, nil)
	return &RecipeRepository{provider: provider, recipes: base}, nil
}

func (r *RecipeRepository) Insert(ctx context.Context, recipe domain.Recipe, materials []domain.RecipeMaterial) error {
	ref, err := r.recipes.DocumentRef(ctx, recipe.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newRecipeDocument(recipe)); err != nil {
		return pfirestore.WrapError("recipes.insert", err)
	}
	coll, err := r.materialCollection(ctx, recipe.ID)
	if err != nil {
		return err
	}
	for _, material := range materials {
		if err := setDoc(ctx, coll.Doc(material.ID), newRecipeMaterialDocument(material)); err != nil {
			return pfirestore.WrapError("recipes.insert", err)
		}
	}
	return nil
}

func (r *RecipeRepository) Update(ctx context.Context, recipe domain.Recipe) error {
	ref, err := r.recipes.DocumentRef(ctx, recipe.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("recipes.update", err)
	}
	if err := setDoc(ctx, ref, newRecipeDocument(recipe)); err != nil {
		return pfirestore.WrapError("recipes.update", err)
	}
	return nil
}

// ReplaceMaterials swaps out the full material list of a recipe. Existing
// lines are read outside the staged transaction, so concurrent edits of the
// same recipe should be rare enough to tolerate.
func (r *RecipeRepository) ReplaceMaterials(ctx context.Context, recipeID string, materials []domain.RecipeMaterial) error {
	if _, err := r.recipes.Get(ctx, recipeID); err != nil {
		return err
	}
	coll, err := r.materialCollection(ctx, recipeID)
	if err != nil {
		return err
	}

	existing, err := collectDocumentRefs(ctx, coll, "recipes.replaceMaterials")
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
			return pfirestore.WrapError("recipes.replaceMaterials", err)
		}
	}
	for _, material := range materials {
		if err := setDoc(ctx, coll.Doc(material.ID), newRecipeMaterialDocument(material)); err != nil {
			return pfirestore.WrapError("recipes.replaceMaterials", err)
		}
	}
	return nil
}

func (r *RecipeRepository) FindByID(ctx context.Context, recipeID string) (domain.Recipe, error) {
	doc, err := r.recipes.Get(ctx, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *RecipeRepository) FindByName(ctx context.Context, name string) (domain.Recipe, error) {
	name = strings.TrimSpace(name)
	docs, err := r.recipes.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("name", "==", name).Limit(1)
	})
	if err != nil {
		return domain.Recipe{}, err
	}
	if len(docs) == 0 {
		return domain.Recipe{}, pfirestore.WrapError("recipes.findByName",
			status.Errorf(codes.NotFound, "recipe %q not found", name))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *RecipeRepository) ListMaterials(ctx context.Context, recipeID string) ([]domain.RecipeMaterial, error) {
	coll, err := r.materialCollection(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var materials []domain.RecipeMaterial
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("recipes.listMaterials", err)
		}
		var doc recipeMaterialDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore recipe materials decode %s: %w", snap.Ref.ID, err)
		}
		materials = append(materials, doc.toDomain(snap.Ref.ID, recipeID))
	}
	return materials, nil
}

func (r *RecipeRepository) List(ctx context.Context, filter repositories.RecipeListFilter) ([]domain.Recipe, error) {
	docs, err := r.recipes.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.RecipeClass != nil {
			q = q.Where("recipeClass", "==", strings.TrimSpace(*filter.RecipeClass))
		}
		if !filter.IncludeHidden {
			q = q.Where("hidden", "==", false)
		}
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	recipes := make([]domain.Recipe, 0, len(docs))
	for _, doc := range docs {
		recipes = append(recipes, doc.Data.toDomain(doc.ID))
	}
	return recipes, nil
}

func (r *RecipeRepository) materialCollection(ctx context.Context, recipeID string) (*firestore.CollectionRef, error) {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return nil, errors.New("recipe repository: recipe id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(recipeMaterialsPattern, recipeID)), nil
}

// collectDocumentRefs lists every document reference in a collection.
func collectDocumentRefs(ctx context.Context, coll *firestore.CollectionRef, op string) ([]*firestore.DocumentRef, error) {
	iter := coll.DocumentRefs(ctx)
	var refs []*firestore.DocumentRef
	for {
		ref, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError(op, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
