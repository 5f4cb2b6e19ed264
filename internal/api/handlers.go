package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"fx-trend-lab/internal/domain"
	"fx-trend-lab/internal/snapshot"
	"fx-trend-lab/internal/storage"
	"fx-trend-lab/internal/sufficiency"
)

// SeriesPoint is one point of a currency trace.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Rate      float64   `json:"rate"`
	MA7d      float64   `json:"ma_7d"`
	MA30d     float64   `json:"ma_30d"`
}

// Series is the trace of one currency ordered by time.
type Series struct {
	Currency string        `json:"currency"`
	Points   []SeriesPoint `json:"points"`
}

// InsightView is the JSON form of a daily insight.
type InsightView struct {
	Date          string    `json:"date"`
	Text          string    `json:"text"`
	PromptVersion string    `json:"prompt_version"`
	Currencies    []string  `json:"currencies"`
	CreatedAt     time.Time `json:"created_at"`
}

type handler struct {
	rows      storage.FeatureRowStore
	insights  storage.InsightStore
	cache     snapshot.Cache
	checker   *sufficiency.Checker
	watchList []string
	status    StatusFunc
	logger    zerolog.Logger
	now       func() time.Time
}

func (h *handler) register(e *echo.Echo) {
	e.GET("/health", h.health)
	if h.status != nil {
		e.GET("/status", h.statusReport)
	}

	g := e.Group("/api/v1")
	g.GET("/snapshot/latest", h.latestSnapshot)
	g.GET("/series/:currency", h.series)
	g.GET("/insights/latest", h.latestInsight)
	g.GET("/insights/:date", h.insightByDate)
	if h.checker != nil {
		g.GET("/history/sufficiency", h.historySufficiency)
	}
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) statusReport(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status())
}

func (h *handler) latestSnapshot(c echo.Context) error {
	ctx := c.Request().Context()

	if h.cache != nil {
		snap, err := h.cache.Get(ctx)
		if err == nil {
			c.Response().Header().Set("X-Snapshot-Source", "cache")
			return dataResponse(c, snap)
		}
		if !errors.Is(err, snapshot.ErrMiss) {
			h.logger.Warn().Err(err).Msg("snapshot cache read failed")
		}
	}

	rows, err := h.rows.GetLatest(ctx, h.watchList)
	if err != nil {
		h.logger.Error().Err(err).Msg("load latest rows")
		return errorResponse(c, http.StatusInternalServerError, "failed to load snapshot")
	}
	snap := snapshot.Build(rows, h.watchList, h.now())
	if snap == nil {
		return errorResponse(c, http.StatusNotFound, "no snapshot available")
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, snap); err != nil {
			h.logger.Warn().Err(err).Msg("snapshot cache refill failed")
		}
	}

	c.Response().Header().Set("X-Snapshot-Source", "store")
	return dataResponse(c, snap)
}

func (h *handler) series(c echo.Context) error {
	currency := strings.ToUpper(c.Param("currency"))
	if !isCurrencyCode(currency) {
		return errorResponse(c, http.StatusBadRequest, "currency must be a 3-letter ISO code")
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	rows, err := h.rows.GetByCurrency(c.Request().Context(), currency)
	if err != nil {
		h.logger.Error().Err(err).Str("currency", currency).Msg("load series")
		return errorResponse(c, http.StatusInternalServerError, "failed to load series")
	}
	if len(rows) == 0 {
		return errorResponse(c, http.StatusNotFound, "unknown currency")
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	out := Series{Currency: currency, Points: make([]SeriesPoint, 0, len(rows))}
	for _, r := range rows {
		out.Points = append(out.Points, SeriesPoint{
			Timestamp: r.Timestamp.UTC(),
			Rate:      r.Rate,
			MA7d:      r.MA7d,
			MA30d:     r.MA30d,
		})
	}
	return dataResponse(c, out)
}

func (h *handler) insightByDate(c echo.Context) error {
	day, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	insight, err := h.insights.GetByDate(c.Request().Context(), day)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "no insight for date")
		}
		h.logger.Error().Err(err).Msg("load insight")
		return errorResponse(c, http.StatusInternalServerError, "failed to load insight")
	}
	return dataResponse(c, viewOf(insight))
}

func (h *handler) latestInsight(c echo.Context) error {
	all, err := h.insights.GetAll(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("load insights")
		return errorResponse(c, http.StatusInternalServerError, "failed to load insight")
	}
	if len(all) == 0 {
		return errorResponse(c, http.StatusNotFound, "no insight available")
	}
	return dataResponse(c, viewOf(all[len(all)-1]))
}

func (h *handler) historySufficiency(c echo.Context) error {
	res, err := h.checker.Check(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("check history sufficiency")
		return errorResponse(c, http.StatusInternalServerError, "failed to check history")
	}
	return dataResponse(c, res)
}

func viewOf(in *domain.DailyInsight) InsightView {
	currencies := in.Currencies
	if currencies == nil {
		currencies = []string{}
	}
	return InsightView{
		Date:          in.Date.UTC().Format("2006-01-02"),
		Text:          in.Text,
		PromptVersion: in.PromptVersion,
		Currencies:    currencies,
		CreatedAt:     in.CreatedAt.UTC(),
	}
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
