package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/jackc/pgx/v4"
)

// Column lists mirror the CSV-derived tables; names with spaces and slashes
// stay quoted exactly as they exist in the database.
const (
	countryWiseColumns = `"Country/Region", "Confirmed", "Deaths", "Recovered", "Active",
	"New cases", "New deaths", "New recovered",
	"Deaths / 100 Cases", "Recovered / 100 Cases", "Deaths / 100 Recovered",
	"Confirmed last week", "1 week change", "1 week % increase", "WHO Region"`

	dayWiseColumns = `"Date", "Confirmed", "Deaths", "Recovered", "Active",
	"New cases", "New deaths", "New recovered",
	"Deaths / 100 Cases", "Recovered / 100 Cases", "Deaths / 100 Recovered",
	"No. of countries"`

	worldometerColumns = `"Country/Region", "Continent", "Population", "TotalCases", "NewCases",
	"TotalDeaths", "NewDeaths", "TotalRecovered", "NewRecovered", "ActiveCases",
	"Serious,Critical", "Tot Cases/1M pop", "Deaths/1M pop", "TotalTests",
	"Tests/1M pop", "WHO Region"`

	covidDataColumns = `record_id, "Country", "Latitude", "Longitude", "Total Cases",
	"Total Deaths", "Total Recovered", "Active Cases", "Region",
	"Cases per Million", "Deaths per Million"`
)

// Update statements are rendered once at init. The percent sign inside
// "1 week % increase" must stay out of Sprintf's format string or it gets
// eaten as a verb.
var (
	updateCountryWiseQuery = fmt.Sprintf(`UPDATE %s SET
	"Confirmed"=$2, "Deaths"=$3, "Recovered"=$4, "Active"=$5,
	"New cases"=$6, "New deaths"=$7, "New recovered"=$8,
	"Deaths / 100 Cases"=$9, "Recovered / 100 Cases"=$10, "Deaths / 100 Recovered"=$11,
	"Confirmed last week"=$12, "1 week change"=$13, %s=$14, "WHO Region"=$15
	WHERE "Country/Region"=$1;`, countryWiseTable, `"1 week % increase"`)

	updateDayWiseQuery = fmt.Sprintf(`UPDATE %s SET
	"Confirmed"=$2, "Deaths"=$3, "Recovered"=$4, "Active"=$5,
	"New cases"=$6, "New deaths"=$7, "New recovered"=$8,
	"Deaths / 100 Cases"=$9, "Recovered / 100 Cases"=$10, "Deaths / 100 Recovered"=$11,
	"No. of countries"=$12
	WHERE "Date"=$1;`, dayWiseTable)

	updateWorldometerQuery = fmt.Sprintf(`UPDATE %s SET
	"Continent"=$2, "Population"=$3, "TotalCases"=$4, "NewCases"=$5,
	"TotalDeaths"=$6, "NewDeaths"=$7, "TotalRecovered"=$8, "NewRecovered"=$9,
	"ActiveCases"=$10, "Serious,Critical"=$11, "Tot Cases/1M pop"=$12,
	"Deaths/1M pop"=$13, "TotalTests"=$14, "Tests/1M pop"=$15, "WHO Region"=$16
	WHERE "Country/Region"=$1;`, worldometerTable)

	updateCovidDataQuery = fmt.Sprintf(`UPDATE %s SET
	"Country"=$2, "Latitude"=$3, "Longitude"=$4, "Total Cases"=$5,
	"Total Deaths"=$6, "Total Recovered"=$7, "Active Cases"=$8, "Region"=$9,
	"Cases per Million"=$10, "Deaths per Million"=$11
	WHERE record_id=$1;`, covidDataSimpleTable)
)

func scanCountryWise(row pgx.Row) (models.CountryWiseLatest, error) {
	var c models.CountryWiseLatest
	err := row.Scan(
		&c.CountryRegion, &c.Confirmed, &c.Deaths, &c.Recovered, &c.Active,
		&c.NewCases, &c.NewDeaths, &c.NewRecovered,
		&c.DeathsPer100Cases, &c.RecoveredPer100Cases, &c.DeathsPer100Recovered,
		&c.ConfirmedLastWeek, &c.OneWeekChange, &c.OneWeekPercentIncrease, &c.WhoRegion,
	)
	return c, err
}

func (p *PostgresStorage) listCountries(ctx context.Context, op, where string, args ...interface{}) ([]models.CountryWiseLatest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s %s;`, countryWiseColumns, countryWiseTable, where)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.CountryWiseLatest
	for rows.Next() {
		c, err := scanCountryWise(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return result, nil
}

func (p *PostgresStorage) ListCountries(ctx context.Context) ([]models.CountryWiseLatest, error) {
	return p.listCountries(ctx, "storage.ListCountries", "")
}

func (p *PostgresStorage) ListCountriesByWhoRegion(ctx context.Context, whoRegion string) ([]models.CountryWiseLatest, error) {
	return p.listCountries(ctx, "storage.ListCountriesByWhoRegion", `WHERE "WHO Region"=$1`, whoRegion)
}

func (p *PostgresStorage) ListCountriesByActiveLessThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error) {
	return p.listCountries(ctx, "storage.ListCountriesByActiveLessThan", `WHERE "Active"<$1`, active)
}

func (p *PostgresStorage) ListCountriesByActiveGreaterThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error) {
	return p.listCountries(ctx, "storage.ListCountriesByActiveGreaterThan", `WHERE "Active">$1`, active)
}

func (p *PostgresStorage) GetCountry(ctx context.Context, country string) (models.CountryWiseLatest, error) {
	const op = "storage.GetCountry"

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "Country/Region"=$1;`, countryWiseColumns, countryWiseTable)

	c, err := scanCountryWise(p.db.QueryRow(ctx, query, country))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return c, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (p *PostgresStorage) UpdateCountry(ctx context.Context, row models.CountryWiseLatest) (models.CountryWiseLatest, error) {
	const op = "storage.UpdateCountry"

	tag, err := p.db.Exec(ctx, updateCountryWiseQuery,
		row.CountryRegion, row.Confirmed, row.Deaths, row.Recovered, row.Active,
		row.NewCases, row.NewDeaths, row.NewRecovered,
		row.DeathsPer100Cases, row.RecoveredPer100Cases, row.DeathsPer100Recovered,
		row.ConfirmedLastWeek, row.OneWeekChange, row.OneWeekPercentIncrease, row.WhoRegion,
	)
	if err != nil {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return models.CountryWiseLatest{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func scanDayWise(row pgx.Row) (models.DayWise, error) {
	var d models.DayWise
	err := row.Scan(
		&d.Date, &d.Confirmed, &d.Deaths, &d.Recovered, &d.Active,
		&d.NewCases, &d.NewDeaths, &d.NewRecovered,
		&d.DeathsPer100Cases, &d.RecoveredPer100Cases, &d.DeathsPer100Recovered,
		&d.NumberOfCountries,
	)
	return d, err
}

func (p *PostgresStorage) ListDayWise(ctx context.Context, datePrefix string) ([]models.DayWise, error) {
	const op = "storage.ListDayWise"

	where := ""
	var args []interface{}
	if datePrefix != "" {
		where = `WHERE "Date" LIKE $1 || '%'`
		args = append(args, datePrefix)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s %s;`, dayWiseColumns, dayWiseTable, where)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.DayWise
	for rows.Next() {
		d, err := scanDayWise(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return result, nil
}

func (p *PostgresStorage) GetDayWise(ctx context.Context, date string) (models.DayWise, error) {
	const op = "storage.GetDayWise"

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "Date"=$1;`, dayWiseColumns, dayWiseTable)

	d, err := scanDayWise(p.db.QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return d, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return d, fmt.Errorf("%s: %w", op, err)
	}

	return d, nil
}

func (p *PostgresStorage) UpdateDayWise(ctx context.Context, row models.DayWise) (models.DayWise, error) {
	const op = "storage.UpdateDayWise"

	tag, err := p.db.Exec(ctx, updateDayWiseQuery,
		row.Date, row.Confirmed, row.Deaths, row.Recovered, row.Active,
		row.NewCases, row.NewDeaths, row.NewRecovered,
		row.DeathsPer100Cases, row.RecoveredPer100Cases, row.DeathsPer100Recovered,
		row.NumberOfCountries,
	)
	if err != nil {
		return models.DayWise{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return models.DayWise{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func scanWorldometer(row pgx.Row) (models.WorldometerData, error) {
	var w models.WorldometerData
	err := row.Scan(
		&w.CountryRegion, &w.Continent, &w.Population, &w.TotalCases, &w.NewCases,
		&w.TotalDeaths, &w.NewDeaths, &w.TotalRecovered, &w.NewRecovered, &w.ActiveCases,
		&w.SeriousCritical, &w.TotCasesPer1M, &w.DeathsPer1M, &w.TotalTests,
		&w.TestsPer1M, &w.WhoRegion,
	)
	return w, err
}

func (p *PostgresStorage) ListWorldometer(ctx context.Context, countryPrefix, continentPrefix string) ([]models.WorldometerData, error) {
	const op = "storage.ListWorldometer"

	query := fmt.Sprintf(`SELECT %s FROM %s
	WHERE ($1 = '' OR "Country/Region" ILIKE $1 || '%%')
	AND ($2 = '' OR "Continent" ILIKE $2 || '%%');`, worldometerColumns, worldometerTable)

	rows, err := p.db.Query(ctx, query, countryPrefix, continentPrefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.WorldometerData
	for rows.Next() {
		w, err := scanWorldometer(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return result, nil
}

func (p *PostgresStorage) GetWorldometer(ctx context.Context, country string) (models.WorldometerData, error) {
	const op = "storage.GetWorldometer"

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE "Country/Region"=$1;`, worldometerColumns, worldometerTable)

	w, err := scanWorldometer(p.db.QueryRow(ctx, query, country))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return w, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return w, fmt.Errorf("%s: %w", op, err)
	}

	return w, nil
}

func (p *PostgresStorage) UpdateWorldometer(ctx context.Context, row models.WorldometerData) (models.WorldometerData, error) {
	const op = "storage.UpdateWorldometer"

	tag, err := p.db.Exec(ctx, updateWorldometerQuery,
		row.CountryRegion, row.Continent, row.Population, row.TotalCases, row.NewCases,
		row.TotalDeaths, row.NewDeaths, row.TotalRecovered, row.NewRecovered,
		row.ActiveCases, row.SeriousCritical, row.TotCasesPer1M,
		row.DeathsPer1M, row.TotalTests, row.TestsPer1M, row.WhoRegion,
	)
	if err != nil {
		return models.WorldometerData{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return models.WorldometerData{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}

func scanCovidData(row pgx.Row) (models.CovidDataSimple, error) {
	var c models.CovidDataSimple
	err := row.Scan(
		&c.RecordID, &c.Country, &c.Latitude, &c.Longitude, &c.TotalCases,
		&c.TotalDeaths, &c.TotalRecovered, &c.ActiveCases, &c.Region,
		&c.CasesPerMillion, &c.DeathsPerMillion,
	)
	return c, err
}

func (p *PostgresStorage) ListCovidData(ctx context.Context, countryPrefix, regionPrefix string) ([]models.CovidDataSimple, error) {
	const op = "storage.ListCovidData"

	query := fmt.Sprintf(`SELECT %s FROM %s
	WHERE ($1 = '' OR "Country" ILIKE $1 || '%%')
	AND ($2 = '' OR "Region" ILIKE $2 || '%%');`, covidDataColumns, covidDataSimpleTable)

	rows, err := p.db.Query(ctx, query, countryPrefix, regionPrefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.CovidDataSimple
	for rows.Next() {
		c, err := scanCovidData(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	return result, nil
}

func (p *PostgresStorage) GetCovidData(ctx context.Context, recordID int64) (models.CovidDataSimple, error) {
	const op = "storage.GetCovidData"

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE record_id=$1;`, covidDataColumns, covidDataSimpleTable)

	c, err := scanCovidData(p.db.QueryRow(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return c, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (p *PostgresStorage) UpdateCovidData(ctx context.Context, row models.CovidDataSimple) (models.CovidDataSimple, error) {
	const op = "storage.UpdateCovidData"

	tag, err := p.db.Exec(ctx, updateCovidDataQuery,
		row.RecordID, row.Country, row.Latitude, row.Longitude, row.TotalCases,
		row.TotalDeaths, row.TotalRecovered, row.ActiveCases, row.Region,
		row.CasesPerMillion, row.DeathsPerMillion,
	)
	if err != nil {
		return models.CovidDataSimple{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return models.CovidDataSimple{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return row, nil
}
