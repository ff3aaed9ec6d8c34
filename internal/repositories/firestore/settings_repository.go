package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

const (
	settingsCollection = "settings"
	settingsDocumentID = "facility"
)

type settingsDocument struct {
	VATRate               int       `firestore:"vatRate"`
	CurrencySymbol        string    `firestore:"currencySymbol"`
	RoundingPrecision     int       `firestore:"roundingPrecision"`
	TransportZonesEnabled bool      `firestore:"transportZonesEnabled"`
	CountDistanceDoubled  bool      `firestore:"countDistanceDoubled"`
	DatetimeFormat        string    `firestore:"datetimeFormat"`
	AutoPrint             bool      `firestore:"autoPrint"`
	CompanyName           string    `firestore:"companyName"`
	CompanyStreet         string    `firestore:"companyStreet"`
	CompanyCity           string    `firestore:"companyCity"`
	CompanyZip            string    `firestore:"companyZip"`
	FacilityName          string    `firestore:"facilityName"`
	FacilityStreet        string    `firestore:"facilityStreet"`
	FacilityCity          string    `firestore:"facilityCity"`
	UpdatedAt             time.Time `firestore:"updatedAt"`
}

func newSettingsDocument(s domain.FacilitySettings) settingsDocument {
	return settingsDocument{
		VATRate:               s.VATRate,
		CurrencySymbol:        s.CurrencySymbol,
		RoundingPrecision:     s.RoundingPrecision,
		TransportZonesEnabled: s.TransportZonesEnabled,
		CountDistanceDoubled:  s.CountDistanceDoubled,
		DatetimeFormat:        s.DatetimeFormat,
		AutoPrint:             s.AutoPrint,
		CompanyName:           s.CompanyName,
		CompanyStreet:         s.CompanyStreet,
		CompanyCity:           s.CompanyCity,
		CompanyZip:            s.CompanyZip,
		FacilityName:          s.FacilityName,
		FacilityStreet:        s.FacilityStreet,
		FacilityCity:          s.FacilityCity,
		UpdatedAt:             s.UpdatedAt.UTC(),
	}
}

func (d settingsDocument) toDomain() domain.FacilitySettings {
	return domain.FacilitySettings{
		VATRate:               d.VATRate,
		CurrencySymbol:        d.CurrencySymbol,
		RoundingPrecision:     d.RoundingPrecision,
		TransportZonesEnabled: d.TransportZonesEnabled,
		CountDistanceDoubled:  d.CountDistanceDoubled,
		DatetimeFormat:        d.DatetimeFormat,
		AutoPrint:             d.AutoPrint,
		CompanyName:           d.CompanyName,
		CompanyStreet:         d.CompanyStreet,
		CompanyCity:           d.CompanyCity,
		CompanyZip:            d.CompanyZip,
		FacilityName:          d.FacilityName,
		FacilityStreet:        d.FacilityStreet,
		FacilityCity:          d.FacilityCity,
		UpdatedAt:             d.UpdatedAt,
	}
}

// SettingsRepository persists the facility settings singleton document.
type SettingsRepository struct {
	provider *pfirestore.Provider
	settings *pfirestore.BaseRepository[settingsDocument]
}

var _ repositories.SettingsRepository = (*SettingsRepository)(nil)

// NewSettingsRepository constructs a Firestore-backed settings repository.
func NewSettingsRepository(provider *pfirestore.Provider) (*SettingsRepository, error) {
	if provider == nil {
		return nil, errors.New("settings repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[settingsDocument](provider, settingsCollection, nil, nil)
	return &SettingsRepository{provider: provider, settings: base}, nil
}

// Get loads the settings singleton. A facility that has never been
// configured yields the zero value, not an error, so pricing degrades to
// its unconfigured behaviour instead of failing.
func (r *SettingsRepository) Get(ctx context.Context) (domain.FacilitySettings, error) {
	doc, err := r.settings.Get(ctx, settingsDocumentID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.FacilitySettings{}, nil
		}
		return domain.FacilitySettings{}, err
	}
	return doc.Data.toDomain(), nil
}

func (r *SettingsRepository) Save(ctx context.Context, settings domain.FacilitySettings) error {
	ref, err := r.settings.DocumentRef(ctx, settingsDocumentID)
	if err != nil {
		return err
	}
	if err := setDoc(ctx, ref, newSettingsDocument(settings)); err != nil {
		return pfirestore.WrapError("settings.save", err)
	}
	return nil
}
