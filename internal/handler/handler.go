package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/covid-counter/covid-counter/internal/auth"
	"github.com/covid-counter/covid-counter/internal/service"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	authService  service.Auth
	covidService service.Covid
	tokens       *auth.TokenService
	log          *slog.Logger
}

func NewHandler(authSrvc service.Auth, covidSrvc service.Covid, tokens *auth.TokenService, lgr *slog.Logger) *Handler {
	return &Handler{
		authService:  authSrvc,
		covidService: covidSrvc,
		tokens:       tokens,
		log:          lgr,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: errMessage})
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID())

	// Auth endpoints bypass the identity filter: no token exists yet to check.
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/verify", h.VerifyOTP)
		authGroup.POST("/logout", h.Logout)
	}

	countries := router.Group("/countries", h.Identity())
	{
		countries.GET("", h.GetAllCountries)
		countries.GET("/:country", h.GetCountry)
		countries.PUT("/:country", h.RequireAuth(), h.UpdateCountry)
		countries.PUT("/:country/updateRecovered", h.RequireAuth(), h.UpdateRecovered)
	}

	dayWise := router.Group("/day-wise", h.Identity())
	{
		dayWise.GET("", h.GetAllDayWise)
		dayWise.PUT("/:date", h.RequireAuth(), h.UpdateDayWise)
	}

	worldometer := router.Group("/worldometer", h.Identity())
	{
		worldometer.GET("", h.GetAllWorldometer)
		worldometer.PUT("/:country", h.RequireAuth(), h.UpdateWorldometer)
	}

	covidData := router.Group("/covid-data", h.Identity())
	{
		covidData.GET("", h.GetAllCovidData)
		covidData.PUT("/:id", h.RequireAuth(), h.UpdateCovidData)
	}

	return router
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	const op = "handler.Register"

	log := h.log.With(slog.String("op", op))

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	if !isValidEmail(req.Email) {
		log.Error("given invalid email", slog.String("email", req.Email))

		newErrorResponse(c, http.StatusBadRequest, "not valid email")

		return
	}

	if req.Password == "" {
		log.Error("given empty password")

		newErrorResponse(c, http.StatusBadRequest, "empty password")

		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			newErrorResponse(c, http.StatusConflict, "email already registered")

			return
		}

		log.Error("failed to create user", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to create user")

		return
	}

	log.Info("user registered", slog.String("email", user.Email))

	c.JSON(http.StatusCreated, gin.H{"email": user.Email})
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	challenge, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			newErrorResponse(c, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrInvalidCredentials):
			newErrorResponse(c, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrNotificationDelivery):
			log.Error("failed to dispatch code", slog.String("email", req.Email))

			newErrorResponse(c, http.StatusBadGateway, "failed to send one-time code")
		default:
			log.Error("failed to begin challenge", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, "failed to login")
		}

		return
	}

	log.Info("challenge issued", slog.String("email", req.Email))

	c.JSON(http.StatusOK, challenge)
}

// POST /auth/verify
func (h *Handler) VerifyOTP(c *gin.Context) {
	const op = "handler.VerifyOTP"

	log := h.log.With(slog.String("op", op))

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	result, err := h.authService.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			newErrorResponse(c, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrNoChallengePending):
			newErrorResponse(c, http.StatusUnauthorized, "no challenge pending")
		case errors.Is(err, service.ErrChallengeExpired):
			newErrorResponse(c, http.StatusUnauthorized, "code expired")
		case errors.Is(err, service.ErrInvalidCode):
			newErrorResponse(c, http.StatusUnauthorized, "invalid code")
		default:
			log.Error("failed to verify challenge", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, "failed to verify")
		}

		return
	}

	log.Info("challenge verified", slog.String("email", result.Email))

	// The cookie transport expires together with the token it carries.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookieName, result.Token, int(h.tokens.TTL().Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, result)
}

// POST /auth/logout
// Tokens are stateless, so there is nothing to revoke server-side; the
// response just expires the cookie transport.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookieName, "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out. Remove token on client."})
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
