package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/covid-counter/covid-counter/internal/storage"
	"github.com/gin-gonic/gin"
)

// GET /countries?whoRegion=<region>&activeLessThan=<n>&activeGreaterThan=<n>
func (h *Handler) GetAllCountries(c *gin.Context) {
	const op = "handler.GetAllCountries"

	log := h.log.With(slog.String("op", op))

	ctx := c.Request.Context()

	var (
		rows []models.CountryWiseLatest
		err  error
	)

	switch {
	case c.Query("whoRegion") != "":
		rows, err = h.covidService.ListCountriesByWhoRegion(ctx, c.Query("whoRegion"))
	case c.Query("activeLessThan") != "":
		var active int64
		active, err = strconv.ParseInt(c.Query("activeLessThan"), 10, 64)
		if err != nil {
			newErrorResponse(c, http.StatusBadRequest, "invalid active count")

			return
		}
		rows, err = h.covidService.ListCountriesByActiveLessThan(ctx, active)
	case c.Query("activeGreaterThan") != "":
		var active int64
		active, err = strconv.ParseInt(c.Query("activeGreaterThan"), 10, 64)
		if err != nil {
			newErrorResponse(c, http.StatusBadRequest, "invalid active count")

			return
		}
		rows, err = h.covidService.ListCountriesByActiveGreaterThan(ctx, active)
	default:
		rows, err = h.covidService.ListCountries(ctx)
	}
	if err != nil {
		log.Error("failed to list countries", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to get countries")

		return
	}

	c.JSON(http.StatusOK, rows)
}

// GET /countries/:country
func (h *Handler) GetCountry(c *gin.Context) {
	const op = "handler.GetCountry"

	log := h.log.With(slog.String("op", op))

	country := c.Param("country")

	row, err := h.covidService.GetCountry(c.Request.Context(), country)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "record not found for country: "+country)

			return
		}

		log.Error("failed to get country", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to get country")

		return
	}

	c.JSON(http.StatusOK, row)
}

// PUT /countries/:country
func (h *Handler) UpdateCountry(c *gin.Context) {
	const op = "handler.UpdateCountry"

	log := h.log.With(slog.String("op", op))

	var row models.CountryWiseLatest
	if err := c.ShouldBindJSON(&row); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	updated, err := h.covidService.UpdateCountry(c.Request.Context(), c.Param("country"), row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "record not found for country: "+c.Param("country"))

			return
		}

		log.Error("failed to update country", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to update country")

		return
	}

	c.JSON(http.StatusOK, updated)
}

// PUT /countries/:country/updateRecovered
func (h *Handler) UpdateRecovered(c *gin.Context) {
	const op = "handler.UpdateRecovered"

	log := h.log.With(slog.String("op", op))

	updated, err := h.covidService.UpdateRecovered(c.Request.Context(), c.Param("country"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "record not found for country: "+c.Param("country"))

			return
		}

		log.Error("failed to update recovered", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to update recovered")

		return
	}

	c.JSON(http.StatusOK, updated)
}

// GET /day-wise?date=<prefix>
func (h *Handler) GetAllDayWise(c *gin.Context) {
	const op = "handler.GetAllDayWise"

	log := h.log.With(slog.String("op", op))

	rows, err := h.covidService.ListDayWise(c.Request.Context(), c.Query("date"))
	if err != nil {
		log.Error("failed to list day-wise rows", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to get day-wise rows")

		return
	}

	c.JSON(http.StatusOK, rows)
}

// PUT /day-wise/:date
func (h *Handler) UpdateDayWise(c *gin.Context) {
	const op = "handler.UpdateDayWise"

	log := h.log.With(slog.String("op", op))

	var row models.DayWise
	if err := c.ShouldBindJSON(&row); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	updated, err := h.covidService.UpdateDayWise(c.Request.Context(), c.Param("date"), row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "record not found for date: "+c.Param("date"))

			return
		}

		log.Error("failed to update day-wise row", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to update day-wise row")

		return
	}

	c.JSON(http.StatusOK, updated)
}

// GET /worldometer?country=<prefix>&continent=<prefix>
func (h *Handler) GetAllWorldometer(c *gin.Context) {
	const op = "handler.GetAllWorldometer"

	log := h.log.With(slog.String("op", op))

	rows, err := h.covidService.ListWorldometer(c.Request.Context(), c.Query("country"), c.Query("continent"))
	if err != nil {
		log.Error("failed to list worldometer rows", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to get worldometer rows")

		return
	}

	c.JSON(http.StatusOK, rows)
}

// PUT /worldometer/:country
func (h *Handler) UpdateWorldometer(c *gin.Context) {
	const op = "handler.UpdateWorldometer"

	log := h.log.With(slog.String("op", op))

	var row models.WorldometerData
	if err := c.ShouldBindJSON(&row); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	updated, err := h.covidService.UpdateWorldometer(c.Request.Context(), c.Param("country"), row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "record not found for country: "+c.Param("country"))

			return
		}

		log.Error("failed to update worldometer row", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to update worldometer row")

		return
	}

	c.JSON(http.StatusOK, updated)
}

// GET /covid-data?country=<prefix>&region=<prefix>
// "continent" is accepted as an alias for "region"; when both a country and a
// region filter are given, the country filter wins.
func (h *Handler) GetAllCovidData(c *gin.Context) {
	const op = "handler.GetAllCovidData"

	log := h.log.With(slog.String("op", op))

	country := c.Query("country")
	region := c.Query("region")
	if region == "" {
		region = c.Query("continent")
	}
	if country != "" {
		region = ""
	}

	rows, err := h.covidService.ListCovidData(c.Request.Context(), country, region)
	if err != nil {
		log.Error("failed to list covid data rows", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to get covid data rows")

		return
	}

	c.JSON(http.StatusOK, rows)
}

// PUT /covid-data/:id
func (h *Handler) UpdateCovidData(c *gin.Context) {
	const op = "handler.UpdateCovidData"

	log := h.log.With(slog.String("op", op))

	recordID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid record id")

		return
	}

	var row models.CovidDataSimple
	if err := c.ShouldBindJSON(&row); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	updated, err := h.covidService.UpdateCovidData(c.Request.Context(), recordID, row)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "record not found: "+c.Param("id"))

			return
		}

		log.Error("failed to update covid data row", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to update covid data row")

		return
	}

	c.JSON(http.StatusOK, updated)
}
