package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/gofrs/uuid"
)

// MemoryStorage is an in-memory Storage used in tests. It enforces the same
// version guard as the Postgres implementation so concurrency behaviour can be
// exercised without a database.
type MemoryStorage struct {
	mu          sync.Mutex
	users       map[string]models.User // keyed by email
	countries   map[string]models.CountryWiseLatest
	dayWise     map[string]models.DayWise
	worldometer map[string]models.WorldometerData
	covidData   map[int64]models.CovidDataSimple
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:       make(map[string]models.User),
		countries:   make(map[string]models.CountryWiseLatest),
		dayWise:     make(map[string]models.DayWise),
		worldometer: make(map[string]models.WorldometerData),
		covidData:   make(map[int64]models.CovidDataSimple),
	}
}

func (m *MemoryStorage) CreateUser(_ context.Context, name, email, passwordHash string) (models.User, error) {
	const op = "storage.CreateUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[email]; ok {
		return models.User{}, fmt.Errorf("%s: user already exists", op)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	user := models.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[email] = user

	return user, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[email]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return user, nil
}

func (m *MemoryStorage) SetOTP(_ context.Context, userID uuid.UUID, code string, expiresAt time.Time, version int64) error {
	const op = "storage.SetOTP"

	m.mu.Lock()
	defer m.mu.Unlock()

	for email, user := range m.users {
		if user.ID != userID {
			continue
		}
		if user.Version != version {
			return fmt.Errorf("%s: %w", op, ErrStaleUser)
		}
		user.OTPCode = &code
		expiry := expiresAt
		user.OTPExpiresAt = &expiry
		user.Verified = false
		user.UpdatedAt = time.Now()
		user.Version++
		m.users[email] = user
		return nil
	}

	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func (m *MemoryStorage) ClearOTP(_ context.Context, userID uuid.UUID, version int64) error {
	const op = "storage.ClearOTP"

	m.mu.Lock()
	defer m.mu.Unlock()

	for email, user := range m.users {
		if user.ID != userID {
			continue
		}
		if user.Version != version {
			return fmt.Errorf("%s: %w", op, ErrStaleUser)
		}
		user.OTPCode = nil
		user.OTPExpiresAt = nil
		user.Verified = true
		user.UpdatedAt = time.Now()
		user.Version++
		m.users[email] = user
		return nil
	}

	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

// SeedCountry and friends load fixture rows for tests.
func (m *MemoryStorage) SeedCountry(row models.CountryWiseLatest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countries[row.CountryRegion] = row
}

func (m *MemoryStorage) SeedDayWise(row models.DayWise) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dayWise[row.Date] = row
}

func (m *MemoryStorage) SeedWorldometer(row models.WorldometerData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worldometer[row.CountryRegion] = row
}

func (m *MemoryStorage) SeedCovidData(row models.CovidDataSimple) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.covidData[row.RecordID] = row
}

func (m *MemoryStorage) ListCountries(_ context.Context) ([]models.CountryWiseLatest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.CountryWiseLatest
	for _, row := range m.countries {
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CountryRegion < result[j].CountryRegion })

	return result, nil
}

func (m *MemoryStorage) GetCountry(_ context.Context, country string) (models.CountryWiseLatest, error) {
	const op = "storage.GetCountry"

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.countries[country]
	if !ok {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func (m *MemoryStorage) ListCountriesByWhoRegion(_ context.Context, whoRegion string) ([]models.CountryWiseLatest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.CountryWiseLatest
	for _, row := range m.countries {
		if row.WhoRegion == whoRegion {
			result = append(result, row)
		}
	}

	return result, nil
}

func (m *MemoryStorage) ListCountriesByActiveLessThan(_ context.Context, active int64) ([]models.CountryWiseLatest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.CountryWiseLatest
	for _, row := range m.countries {
		if row.Active != nil && *row.Active < active {
			result = append(result, row)
		}
	}

	return result, nil
}

func (m *MemoryStorage) ListCountriesByActiveGreaterThan(_ context.Context, active int64) ([]models.CountryWiseLatest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.CountryWiseLatest
	for _, row := range m.countries {
		if row.Active != nil && *row.Active > active {
			result = append(result, row)
		}
	}

	return result, nil
}

func (m *MemoryStorage) UpdateCountry(_ context.Context, row models.CountryWiseLatest) (models.CountryWiseLatest, error) {
	const op = "storage.UpdateCountry"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.countries[row.CountryRegion]; !ok {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	m.countries[row.CountryRegion] = row

	return row, nil
}

func (m *MemoryStorage) ListDayWise(_ context.Context, datePrefix string) ([]models.DayWise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.DayWise
	for _, row := range m.dayWise {
		if datePrefix == "" || strings.HasPrefix(row.Date, datePrefix) {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })

	return result, nil
}

func (m *MemoryStorage) GetDayWise(_ context.Context, date string) (models.DayWise, error) {
	const op = "storage.GetDayWise"

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.dayWise[date]
	if !ok {
		return models.DayWise{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func (m *MemoryStorage) UpdateDayWise(_ context.Context, row models.DayWise) (models.DayWise, error) {
	const op = "storage.UpdateDayWise"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dayWise[row.Date]; !ok {
		return models.DayWise{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	m.dayWise[row.Date] = row

	return row, nil
}

func (m *MemoryStorage) ListWorldometer(_ context.Context, countryPrefix, continentPrefix string) ([]models.WorldometerData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.WorldometerData
	for _, row := range m.worldometer {
		if countryPrefix != "" && !hasPrefixFold(row.CountryRegion, countryPrefix) {
			continue
		}
		if continentPrefix != "" && !hasPrefixFold(row.Continent, continentPrefix) {
			continue
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CountryRegion < result[j].CountryRegion })

	return result, nil
}

func (m *MemoryStorage) GetWorldometer(_ context.Context, country string) (models.WorldometerData, error) {
	const op = "storage.GetWorldometer"

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.worldometer[country]
	if !ok {
		return models.WorldometerData{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func (m *MemoryStorage) UpdateWorldometer(_ context.Context, row models.WorldometerData) (models.WorldometerData, error) {
	const op = "storage.UpdateWorldometer"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.worldometer[row.CountryRegion]; !ok {
		return models.WorldometerData{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	m.worldometer[row.CountryRegion] = row

	return row, nil
}

func (m *MemoryStorage) ListCovidData(_ context.Context, countryPrefix, regionPrefix string) ([]models.CovidDataSimple, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.CovidDataSimple
	for _, row := range m.covidData {
		if countryPrefix != "" && !hasPrefixFold(row.Country, countryPrefix) {
			continue
		}
		if regionPrefix != "" && !hasPrefixFold(row.Region, regionPrefix) {
			continue
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RecordID < result[j].RecordID })

	return result, nil
}

func (m *MemoryStorage) GetCovidData(_ context.Context, recordID int64) (models.CovidDataSimple, error) {
	const op = "storage.GetCovidData"

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.covidData[recordID]
	if !ok {
		return models.CovidDataSimple{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func (m *MemoryStorage) UpdateCovidData(_ context.Context, row models.CovidDataSimple) (models.CovidDataSimple, error) {
	const op = "storage.UpdateCovidData"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.covidData[row.RecordID]; !ok {
		return models.CovidDataSimple{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	m.covidData[row.RecordID] = row

	return row, nil
}

func (m *MemoryStorage) Close() {}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}
