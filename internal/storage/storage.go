package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	usersTable           = "users"
	countryWiseTable     = "country_wise_latest"
	dayWiseTable         = "day_wise"
	worldometerTable     = "worldometer_data"
	covidDataSimpleTable = "covid_data_1000_records_simple_id"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrStaleUser means a version-guarded update lost to a concurrent write;
	// the caller read stale OTP state and must re-read.
	ErrStaleUser = errors.New("stale user record")
)

type Storage interface {
	// Пользователи и аутентификация
	CreateUser(ctx context.Context, name, email, passwordHash string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	SetOTP(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time, version int64) error
	ClearOTP(ctx context.Context, userID uuid.UUID, version int64) error

	// country_wise_latest
	ListCountries(ctx context.Context) ([]models.CountryWiseLatest, error)
	GetCountry(ctx context.Context, country string) (models.CountryWiseLatest, error)
	ListCountriesByWhoRegion(ctx context.Context, whoRegion string) ([]models.CountryWiseLatest, error)
	ListCountriesByActiveLessThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error)
	ListCountriesByActiveGreaterThan(ctx context.Context, active int64) ([]models.CountryWiseLatest, error)
	UpdateCountry(ctx context.Context, row models.CountryWiseLatest) (models.CountryWiseLatest, error)

	// day_wise
	ListDayWise(ctx context.Context, datePrefix string) ([]models.DayWise, error)
	GetDayWise(ctx context.Context, date string) (models.DayWise, error)
	UpdateDayWise(ctx context.Context, row models.DayWise) (models.DayWise, error)

	// worldometer_data
	ListWorldometer(ctx context.Context, countryPrefix, continentPrefix string) ([]models.WorldometerData, error)
	GetWorldometer(ctx context.Context, country string) (models.WorldometerData, error)
	UpdateWorldometer(ctx context.Context, row models.WorldometerData) (models.WorldometerData, error)

	// covid_data_1000_records_simple_id
	ListCovidData(ctx context.Context, countryPrefix, regionPrefix string) ([]models.CovidDataSimple, error)
	GetCovidData(ctx context.Context, recordID int64) (models.CovidDataSimple, error)
	UpdateCovidData(ctx context.Context, row models.CovidDataSimple) (models.CovidDataSimple, error)

	Close()
}

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(dbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	conn, err := pgxpool.Connect(context.Background(), dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db: conn,
	}, nil
}

func (p *PostgresStorage) CreateUser(ctx context.Context, name, email, passwordHash string) (models.User, error) {
	const op = "storage.CreateUser"

	var user models.User
	query := fmt.Sprintf(`INSERT INTO %s(name, email, password_hash, created_at, updated_at, verified, version)
	VALUES ($1, $2, $3, now(), now(), FALSE, 0)
	RETURNING id, name, email, password_hash, created_at, updated_at, verified, otp_code, otp_expires_at, version;`, usersTable)

	err := p.db.QueryRow(ctx, query, name, email, passwordHash).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Verified,
		&user.OTPCode,
		&user.OTPExpiresAt,
		&user.Version,
	)
	if err != nil {
		return user, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	var user models.User
	query := fmt.Sprintf(`SELECT id, name, email, password_hash, created_at, updated_at, verified, otp_code, otp_expires_at, version
	FROM %s WHERE email=$1;`, usersTable)

	err := p.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Verified,
		&user.OTPCode,
		&user.OTPExpiresAt,
		&user.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return user, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// SetOTP arms a challenge: code and expiry land together, verified flips to
// false. The write only lands if the row still has the given version.
func (p *PostgresStorage) SetOTP(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time, version int64) error {
	const op = "storage.SetOTP"

	query := fmt.Sprintf(`UPDATE %s
	SET otp_code=$1, otp_expires_at=$2, verified=FALSE, updated_at=now(), version=version+1
	WHERE id=$3 AND version=$4;`, usersTable)

	tag, err := p.db.Exec(ctx, query, code, expiresAt, userID, version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrStaleUser)
	}

	return nil
}

// ClearOTP resolves a challenge: both OTP fields drop together and verified
// flips to true, guarded by the version the caller read.
func (p *PostgresStorage) ClearOTP(ctx context.Context, userID uuid.UUID, version int64) error {
	const op = "storage.ClearOTP"

	query := fmt.Sprintf(`UPDATE %s
	SET otp_code=NULL, otp_expires_at=NULL, verified=TRUE, updated_at=now(), version=version+1
	WHERE id=$1 AND version=$2;`, usersTable)

	tag, err := p.db.Exec(ctx, query, userID, version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrStaleUser)
	}

	return nil
}

func (p *PostgresStorage) Close() {
	p.db.Close()
}
