package service

import (
	"context"
	"fmt"

	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/covid-counter/covid-counter/internal/storage"
)

// Covid is the pass-through data surface over the tabular covid datasets.
type Covid interface {
	ListCountries(ctx context.Context) ([]models.CountryWiseLatest, error)
	GetCountry(ctx context.Context, country string) (models.CountryWiseLatest, error)
	ListCountriesByWhoRegion(ctx context.Context, whoRegion string) ([]models.CountryWiseLatest, error)
	ListCountriesByActiveLessThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error)
	ListCountriesByActiveGreaterThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error)
	UpdateCountry(ctx context.Context, country string, row models.CountryWiseLatest) (models.CountryWiseLatest, error)
	UpdateRecovered(ctx context.Context, country string) (models.CountryWiseLatest, error)

	ListDayWise(ctx context.Context, datePrefix string) ([]models.DayWise, error)
	GetDayWise(ctx context.Context, date string) (models.DayWise, error)
	UpdateDayWise(ctx context.Context, date string, row models.DayWise) (models.DayWise, error)

	ListWorldometer(ctx context.Context, countryPrefix, continentPrefix string) ([]models.WorldometerData, error)
	GetWorldometer(ctx context.Context, country string) (models.WorldometerData, error)
	UpdateWorldometer(ctx context.Context, country string, row models.WorldometerData) (models.WorldometerData, error)

	ListCovidData(ctx context.Context, countryPrefix, regionPrefix string) ([]models.CovidDataSimple, error)
	GetCovidData(ctx context.Context, recordID int64) (models.CovidDataSimple, error)
	UpdateCovidData(ctx context.Context, recordID int64, row models.CovidDataSimple) (models.CovidDataSimple, error)
}

type covidService struct {
	storage storage.Storage
}

func NewCovidService(st storage.Storage) *covidService {
	return &covidService{
		storage: st,
	}
}

func (s *covidService) ListCountries(ctx context.Context) ([]models.CountryWiseLatest, error) {
	return s.storage.ListCountries(ctx)
}

func (s *covidService) GetCountry(ctx context.Context, country string) (models.CountryWiseLatest, error) {
	return s.storage.GetCountry(ctx, country)
}

func (s *covidService) ListCountriesByWhoRegion(ctx context.Context, whoRegion string) ([]models.CountryWiseLatest, error) {
	return s.storage.ListCountriesByWhoRegion(ctx, whoRegion)
}

func (s *covidService) ListCountriesByActiveLessThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error) {
	return s.storage.ListCountriesByActiveLessThan(ctx, active)
}

func (s *covidService) ListCountriesByActiveGreaterThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error) {
	return s.storage.ListCountriesByActiveGreaterThan(ctx, active)
}

// UpdateCountry keeps the path key authoritative over whatever the payload says.
func (s *covidService) UpdateCountry(ctx context.Context, country string, row models.CountryWiseLatest) (models.CountryWiseLatest, error) {
	const op = "service.UpdateCountry"

	if _, err := s.storage.GetCountry(ctx, country); err != nil {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, err)
	}

	row.CountryRegion = country

	updated, err := s.storage.UpdateCountry(ctx, row)
	if err != nil {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

// UpdateRecovered derives recovered = max(0, confirmed - deaths - active),
// treating absent counters as zero.
func (s *covidService) UpdateRecovered(ctx context.Context, country string) (models.CountryWiseLatest, error) {
	const op = "service.UpdateRecovered"

	row, err := s.storage.GetCountry(ctx, country)
	if err != nil {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, err)
	}

	recovered := int64Value(row.Confirmed) - int64Value(row.Deaths) - int64Value(row.Active)
	if recovered < 0 {
		recovered = 0
	}
	row.Recovered = &recovered

	updated, err := s.storage.UpdateCountry(ctx, row)
	if err != nil {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *covidService) ListDayWise(ctx context.Context, datePrefix string) ([]models.DayWise, error) {
	return s.storage.ListDayWise(ctx, datePrefix)
}

func (s *covidService) GetDayWise(ctx context.Context, date string) (models.DayWise, error) {
	return s.storage.GetDayWise(ctx, date)
}

func (s *covidService) UpdateDayWise(ctx context.Context, date string, row models.DayWise) (models.DayWise, error) {
	const op = "service.UpdateDayWise"

	if _, err := s.storage.GetDayWise(ctx, date); err != nil {
		return models.DayWise{}, fmt.Errorf("%s: %w", op, err)
	}

	row.Date = date

	updated, err := s.storage.UpdateDayWise(ctx, row)
	if err != nil {
		return models.DayWise{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *covidService) ListWorldometer(ctx context.Context, countryPrefix, continentPrefix string) ([]models.WorldometerData, error) {
	return s.storage.ListWorldometer(ctx, countryPrefix, continentPrefix)
}

func (s *covidService) GetWorldometer(ctx context.Context, country string) (models.WorldometerData, error) {
	return s.storage.GetWorldometer(ctx, country)
}

func (s *covidService) UpdateWorldometer(ctx context.Context, country string, row models.WorldometerData) (models.WorldometerData, error) {
	const op = "service.UpdateWorldometer"

	if _, err := s.storage.GetWorldometer(ctx, country); err != nil {
		return models.WorldometerData{}, fmt.Errorf("%s: %w", op, err)
	}

	row.CountryRegion = country

	updated, err := s.storage.UpdateWorldometer(ctx, row)
	if err != nil {
		return models.WorldometerData{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *covidService) ListCovidData(ctx context.Context, countryPrefix, regionPrefix string) ([]models.CovidDataSimple, error) {
	return s.storage.ListCovidData(ctx, countryPrefix, regionPrefix)
}

func (s *covidService) GetCovidData(ctx context.Context, recordID int64) (models.CovidDataSimple, error) {
	return s.storage.GetCovidData(ctx, recordID)
}

func (s *covidService) UpdateCovidData(ctx context.Context, recordID int64, row models.CovidDataSimple) (models.CovidDataSimple, error) {
	const op = "service.UpdateCovidData"

	if _, err := s.storage.GetCovidData(ctx, recordID); err != nil {
		return models.CovidDataSimple{}, fmt.Errorf("%s: %w", op, err)
	}

	row.RecordID = recordID

	updated, err := s.storage.UpdateCovidData(ctx, row)
	if err != nil {
		return models.CovidDataSimple{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func int64Value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
