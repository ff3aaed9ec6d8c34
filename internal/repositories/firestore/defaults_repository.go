package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const defaultsCollection = "recipeDefaults"

type defaultsDocument struct {
	Name                      string    `firestore:"name"`
	BatchVolumeLimit          *float64  `firestore:"batchVolumeLimit"`
	LiftPourDuration          *float64  `firestore:"liftPourDuration"`
	LiftSemiPourDuration      *float64  `firestore:"liftSemiPourDuration"`
	MixerSemiOpeningDuration  *float64  `firestore:"mixerSemiOpeningDuration"`
	MixerSemiOpening2Duration *float64  `firestore:"mixerSemiOpening2Duration"`
	MixerOpeningDuration      *float64  `firestore:"mixerOpeningDuration"`
	MixingDuration            *float64  `firestore:"mixingDuration"`
	CreatedAt                 time.Time `firestore:"createdAt"`
	UpdatedAt                 time.Time `firestore:"updatedAt"`
}

func newDefaultsDocument(d domain.Defaults) defaultsDocument {
	return defaultsDocument{
		Name:                      d.Name,
		BatchVolumeLimit:          d.BatchVolumeLimit,
		LiftPourDuration:          d.LiftPourDuration,
		LiftSemiPourDuration:      d.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  d.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: d.MixerSemiOpening2Duration,
		MixerOpeningDuration:      d.MixerOpeningDuration,
		MixingDuration:            d.MixingDuration,
		CreatedAt:                 d.CreatedAt.UTC(),
		UpdatedAt:                 d.UpdatedAt.UTC(),
	}
}

func (d defaultsDocument) toDomain(id string) domain.Defaults {
	return domain.Defaults{
		ID:                        id,
		Name:                      d.Name,
		BatchVolumeLimit:          d.BatchVolumeLimit,
		LiftPourDuration:          d.LiftPourDuration,
		LiftSemiPourDuration:      d.LiftSemiPourDuration,
		MixerSemiOpeningDuration:  d.MixerSemiOpeningDuration,
		MixerSemiOpening2Duration: d.MixerSemiOpening2Duration,
		MixerOpeningDuration:      d.MixerOpeningDuration,
		MixingDuration:            d.MixingDuration,
		CreatedAt:                 d.CreatedAt,
		UpdatedAt:                 d.UpdatedAt,
	}
}

// DefaultsRepository persists reusable recipe timing templates.
type DefaultsRepository struct {
	provider *pfirestore.Provider
	defaults *pfirestore.BaseRepository[defaultsDocument]
}

var _ repositories.DefaultsRepository = (*DefaultsRepository)(nil)

// NewDefaultsRepository constructs a Firestore-backed defaults repository.
func NewDefaultsRepository(provider *pfirestore.Provider) (*DefaultsRepository, error) {
	if provider == nil {
		return nil, errors.New("defaults repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[defaultsDocument](provider, defaultsCollection, nil, nil)
	return &DefaultsRepository{provider: provider, defaults: base}, nil
}

func (r *DefaultsRepository) Insert(ctx context.Context, defaults domain.Defaults) error {
	ref, err := r.defaults.DocumentRef(ctx, defaults.ID)
	if err != nil {
		return err
	}
	if err := createDoc(ctx, ref, newDefaultsDocument(defaults)); err != nil {
		return pfirestore.WrapError("recipeDefaults.insert", err)
	}
	return nil
}

func (r *DefaultsRepository) Update(ctx context.Context, defaults domain.Defaults) error {
	ref, err := r.defaults.DocumentRef(ctx, defaults.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("recipeDefaults.update", err)
	}
	if err := setDoc(ctx, ref, newDefaultsDocument(defaults)); err != nil {
		return pfirestore.WrapError("recipeDefaults.update", err)
	}
	return nil
}

func (r *DefaultsRepository) FindByID(ctx context.Context, defaultsID string) (domain.Defaults, error) {
	doc, err := r.defaults.Get(ctx, defaultsID)
	if err != nil {
		return domain.Defaults{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *DefaultsRepository) List(ctx context.Context) ([]domain.Defaults, error) {
	docs, err := r.defaults.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.Defaults, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return items, nil
}
