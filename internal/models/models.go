package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// User is a row of the users table. OTPCode and OTPExpiresAt are set together
// while a login challenge is pending and cleared together when it is resolved.
// Version guards every OTP mutation: an update only lands if the row still
// carries the version the caller read.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Verified     bool       `json:"verified"`
	OTPCode      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	Version      int64      `json:"-"`
}

// ChallengePending reports whether a login challenge is waiting for its code.
func (u *User) ChallengePending() bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil
}

type CountryWiseLatest struct {
	CountryRegion          string   `json:"countryRegion"`
	Confirmed              *int64   `json:"confirmed"`
	Deaths                 *int64   `json:"deaths"`
	Recovered              *int64   `json:"recovered"`
	Active                 *int64   `json:"active"`
	NewCases               *int64   `json:"newCases"`
	NewDeaths              *int64   `json:"newDeaths"`
	NewRecovered           *int64   `json:"newRecovered"`
	DeathsPer100Cases      *float64 `json:"deathsPer100Cases"`
	RecoveredPer100Cases   *float64 `json:"recoveredPer100Cases"`
	DeathsPer100Recovered  *float64 `json:"deathsPer100Recovered"`
	ConfirmedLastWeek      *int64   `json:"confirmedLastWeek"`
	OneWeekChange          *int64   `json:"oneWeekChange"`
	OneWeekPercentIncrease *float64 `json:"oneWeekPercentIncrease"`
	WhoRegion              string   `json:"whoRegion"`
}

type DayWise struct {
	Date                  string   `json:"date"`
	Confirmed             *int64   `json:"confirmed"`
	Deaths                *int64   `json:"deaths"`
	Recovered             *int64   `json:"recovered"`
	Active                *int64   `json:"active"`
	NewCases              *int64   `json:"newCases"`
	NewDeaths             *int64   `json:"newDeaths"`
	NewRecovered          *int64   `json:"newRecovered"`
	DeathsPer100Cases     *float64 `json:"deathsPer100Cases"`
	RecoveredPer100Cases  *float64 `json:"recoveredPer100Cases"`
	DeathsPer100Recovered *float64 `json:"deathsPer100Recovered"`
	NumberOfCountries     *int64   `json:"numberOfCountries"`
}

type WorldometerData struct {
	CountryRegion   string   `json:"countryRegion"`
	Continent       string   `json:"continent"`
	Population      *int64   `json:"population"`
	TotalCases      *int64   `json:"totalCases"`
	NewCases        *int64   `json:"newCases"`
	TotalDeaths     *int64   `json:"totalDeaths"`
	NewDeaths       *int64   `json:"newDeaths"`
	TotalRecovered  *int64   `json:"totalRecovered"`
	NewRecovered    *int64   `json:"newRecovered"`
	ActiveCases     *int64   `json:"activeCases"`
	SeriousCritical *int64   `json:"seriousCritical"`
	TotCasesPer1M   *float64 `json:"totCasesPer1Mpop"`
	DeathsPer1M     *float64 `json:"deathsPer1Mpop"`
	TotalTests      *int64   `json:"totalTests"`
	TestsPer1M      *float64 `json:"testsPer1Mpop"`
	WhoRegion       string   `json:"whoRegion"`
}

type CovidDataSimple struct {
	RecordID         int64    `json:"recordId"`
	Country          string   `json:"country"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	TotalCases       *int64   `json:"totalCases"`
	TotalDeaths      *int64   `json:"totalDeaths"`
	TotalRecovered   *int64   `json:"totalRecovered"`
	ActiveCases      *int64   `json:"activeCases"`
	Region           string   `json:"region"`
	CasesPerMillion  *float64 `json:"casesPerMillion"`
	DeathsPerMillion *float64 `json:"deathsPerMillion"`
}

// OTPChallenge describes a pending login challenge back to the caller.
// The code itself never travels in this struct.
type OTPChallenge struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResult is returned once a challenge has been verified.
type AuthResult struct {
	Token string `json:"token"`
	Email string `json:"email"`
}
