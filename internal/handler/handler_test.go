package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/covid-counter/covid-counter/internal/auth"
	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/covid-counter/covid-counter/internal/service"
	"github.com/covid-counter/covid-counter/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{codes: make(map[string]string)}
}

func (f *fakeMailer) SendOTP(_ context.Context, to, code string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.codes[to] = code
	return nil
}

func (f *fakeMailer) lastCode(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email]
}

type fixture struct {
	router  *gin.Engine
	storage *storage.MemoryStorage
	mailer  *fakeMailer
	tokens  *auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithTTL(t, 24*time.Hour)
}

func newFixtureWithTTL(t *testing.T, tokenTTL time.Duration) *fixture {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st := storage.NewMemoryStorage()
	m := newFakeMailer()
	tokens := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), tokenTTL)

	authService := service.NewAuthService(st, m, tokens, 5*time.Minute)
	covidService := service.NewCovidService(st)

	lgr := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(authService, covidService, tokens, lgr)

	return &fixture{
		router:  h.InitRoutes(),
		storage: st,
		mailer:  m,
		tokens:  tokens,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		decorate(req)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

// register + login + verify, returning the issued token.
func (f *fixture) authenticate(t *testing.T, email string) string {
	t.Helper()

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": email, "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": email, "password": "pw123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/auth/verify", gin.H{"email": email, "code": f.mailer.lastCode(email)}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)

	return result.Token
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	f := newFixture(t)

	// Register never yields a usable token.
	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotContains(t, w.Body.String(), "token")

	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var challenge models.OTPChallenge
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))
	require.Equal(t, "OTP_REQUIRED", challenge.Status)
	require.Equal(t, "a@x.com", challenge.Email)
	require.WithinDuration(t, time.Now().Add(5*time.Minute), challenge.ExpiresAt, 2*time.Second)

	code := f.mailer.lastCode("a@x.com")
	require.Len(t, code, 6)

	w = f.do(t, http.MethodPost, "/auth/verify", gin.H{"email": "a@x.com", "code": code}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "a@x.com", result.Email)
	require.NoError(t, f.tokens.Validate(result.Token, "a@x.com"))

	cookie := w.Header().Get("Set-Cookie")
	require.Contains(t, cookie, "Authorization=")
	require.Contains(t, cookie, "Path=/")
	require.Contains(t, cookie, "HttpOnly")
	require.Contains(t, cookie, "SameSite=Lax")
	require.Contains(t, cookie, "Max-Age=86400")
}

func TestAuthenticatedWrite_UpdateRecovered(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedCountry(models.CountryWiseLatest{
		CountryRegion: "Albania",
		Confirmed:     ptr(int64(100)),
		Deaths:        ptr(int64(10)),
		Active:        ptr(int64(20)),
		WhoRegion:     "Europe",
	})

	token := f.authenticate(t, "a@x.com")

	w := f.do(t, http.MethodPut, "/countries/Albania/updateRecovered", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, w.Code)

	var row models.CountryWiseLatest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
	require.NotNil(t, row.Recovered)
	require.Equal(t, int64(70), *row.Recovered)
}

func TestAuthenticatedWrite_CookieTransport(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedCountry(models.CountryWiseLatest{
		CountryRegion: "Albania",
		Confirmed:     ptr(int64(100)),
		Deaths:        ptr(int64(10)),
		Active:        ptr(int64(20)),
		WhoRegion:     "Europe",
	})

	token := f.authenticate(t, "a@x.com")

	w := f.do(t, http.MethodPut, "/countries/Albania/updateRecovered", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "Authorization", Value: token})
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedWrite_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedCountry(models.CountryWiseLatest{CountryRegion: "Albania", WhoRegion: "Europe"})

	w := f.do(t, http.MethodPut, "/countries/Albania/updateRecovered", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// A malformed token degrades to unauthenticated, which the write rejects.
	w = f.do(t, http.MethodPut, "/countries/Albania/updateRecovered", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not.a.jwt")
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicRead_IgnoresBadTokens(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedCountry(models.CountryWiseLatest{CountryRegion: "Albania", WhoRegion: "Europe"})

	// No token at all.
	w := f.do(t, http.MethodGet, "/countries", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Malformed token is swallowed by the filter, not rejected.
	w = f.do(t, http.MethodGet, "/countries", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Token signed with another key is likewise ignored.
	other := auth.NewTokenService([]byte("fedcba9876543210fedcba9876543210"), time.Hour)
	forged, err := other.Issue("a@x.com")
	require.NoError(t, err)

	w = f.do(t, http.MethodGet, "/countries", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+forged)
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Bob", "email": "a@x.com", "password": "other"}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "not-an-email", "password": "pw123"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": ""}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": "nobody@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_MailerDown(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	f.mailer.fail = true
	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestVerify_Failures(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// No challenge pending yet.
	w = f.do(t, http.MethodPost, "/auth/verify", gin.H{"email": "a@x.com", "code": "123456"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/auth/verify", gin.H{"email": "a@x.com", "code": "000000"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/auth/verify", gin.H{"email": "nobody@x.com", "code": "000000"}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogout_ExpiresCookie(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := w.Header().Get("Set-Cookie")
	require.Contains(t, cookie, "Authorization=")
	require.Contains(t, cookie, "Max-Age=0")
}

func TestCountryEndpoints(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedCountry(models.CountryWiseLatest{CountryRegion: "Albania", Active: ptr(int64(50)), WhoRegion: "Europe"})
	f.storage.SeedCountry(models.CountryWiseLatest{CountryRegion: "Algeria", Active: ptr(int64(500)), WhoRegion: "Africa"})

	w := f.do(t, http.MethodGet, "/countries/Albania", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Albania")

	w = f.do(t, http.MethodGet, "/countries/Atlantis", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/countries?whoRegion=Europe", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Albania")
	require.NotContains(t, w.Body.String(), "Algeria")

	w = f.do(t, http.MethodGet, "/countries?activeLessThan=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Albania")
	require.NotContains(t, w.Body.String(), "Algeria")

	w = f.do(t, http.MethodGet, "/countries?activeGreaterThan=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Algeria")
	require.NotContains(t, w.Body.String(), "Albania")

	w = f.do(t, http.MethodGet, "/countries?activeLessThan=nope", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDataUpdate_WithToken(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedDayWise(models.DayWise{Date: "2020-01-22", Confirmed: ptr(int64(555))})

	token := f.authenticate(t, "a@x.com")
	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }

	w := f.do(t, http.MethodPut, "/day-wise/2020-01-22", models.DayWise{Confirmed: ptr(int64(600))}, bearer)
	require.Equal(t, http.StatusOK, w.Code)

	var row models.DayWise
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
	require.Equal(t, "2020-01-22", row.Date)
	require.Equal(t, int64(600), *row.Confirmed)

	w = f.do(t, http.MethodPut, "/day-wise/1999-01-01", models.DayWise{}, bearer)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/countries", nil, nil)
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = f.do(t, http.MethodGet, "/countries", nil, func(r *http.Request) {
		r.Header.Set("X-Request-Id", "test-id-1")
	})
	require.Equal(t, "test-id-1", w.Header().Get("X-Request-Id"))
}

func TestExtractToken_HeaderBeatsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/countries", nil)
	c.Request.Header.Set("Authorization", "Bearer header-token")
	c.Request.AddCookie(&http.Cookie{Name: "Authorization", Value: "cookie-token"})

	require.Equal(t, "header-token", extractToken(c))

	c.Request.Header.Del("Authorization")
	require.Equal(t, "cookie-token", extractToken(c))

	// A non-bearer header falls through to the cookie.
	c.Request.Header.Set("Authorization", "Basic abc")
	require.Equal(t, "cookie-token", extractToken(c))
}

func TestIdentity_AttachesSubject(t *testing.T) {
	f := newFixture(t)

	token, err := f.tokens.Issue("a@x.com")
	require.NoError(t, err)

	router := gin.New()
	h := &Handler{tokens: f.tokens}
	router.GET("/whoami", h.Identity(), func(c *gin.Context) {
		email, ok := c.Get(identityKey)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"identity": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"identity": email})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "a@x.com"))
}

func ptr[T any](v T) *T { return &v }

func TestCovidDataFilters(t *testing.T) {
	f := newFixture(t)
	f.storage.SeedCovidData(models.CovidDataSimple{RecordID: 1, Country: "USA", Region: "North America"})
	f.storage.SeedCovidData(models.CovidDataSimple{RecordID: 2, Country: "Ukraine", Region: "Europe"})

	// continent is an alias for region.
	w := f.do(t, http.MethodGet, "/covid-data?continent=Europe", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Ukraine")
	require.NotContains(t, w.Body.String(), "USA")

	// A country filter wins over any region filter.
	w = f.do(t, http.MethodGet, "/covid-data?country=USA&region=Europe", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "USA")
	require.NotContains(t, w.Body.String(), "Ukraine")

	w = f.do(t, http.MethodGet, "/covid-data?country=USA&continent=Europe", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "USA")
	require.NotContains(t, w.Body.String(), "Ukraine")
}

func TestVerify_CookieMaxAgeFollowsTokenTTL(t *testing.T) {
	f := newFixtureWithTTL(t, time.Hour)

	w := f.do(t, http.MethodPost, "/auth/register", gin.H{"name": "Alice", "email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "pw123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/auth/verify", gin.H{"email": "a@x.com", "code": f.mailer.lastCode("a@x.com")}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := w.Header().Get("Set-Cookie")
	require.Contains(t, cookie, "Max-Age=3600")
}
