package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/tender-scout/internal/amount"
	"github.com/david/tender-scout/internal/cache"
	"github.com/david/tender-scout/internal/filter"
	"github.com/david/tender-scout/internal/models"
	"github.com/david/tender-scout/internal/predict"
)

// SurfaceHeader identifies the client view that owns a prediction session.
const SurfaceHeader = "X-Surface-ID"

const surfaceKey = "surface"

type Options struct {
	Opportunities []models.Opportunity
	Daily         *cache.Daily
	Predictions   *predict.Registry
	CORSOrigins   []string
}

type Server struct {
	Echo        *echo.Echo
	Daily       *cache.Daily
	Predictions *predict.Registry

	// opportunities is loaded once and never mutated; each request filters it
	// through its own engine.
	opportunities []models.Opportunity
	byID          map[string]models.Opportunity
}

func NewServer(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	for _, o := range opts.CORSOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, SurfaceHeader},
		ExposeHeaders: []string{SurfaceHeader},
	}))

	byID := make(map[string]models.Opportunity, len(opts.Opportunities))
	for _, o := range opts.Opportunities {
		byID[o.ExternalID] = o
	}

	s := &Server{
		Echo:          e,
		Daily:         opts.Daily,
		Predictions:   opts.Predictions,
		opportunities: opts.Opportunities,
		byID:          byID,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/opportunities/:id", s.handleGetOpportunity)
	api.GET("/categories", s.handleGetCategories)
	api.GET("/recommendations/daily", s.handleDailyRecommendations)
	api.POST("/amounts/normalize", s.handleNormalizeAmount)

	prediction := api.Group("/prediction")
	prediction.Use(surfaceMiddleware)
	prediction.GET("", s.handleGetPrediction)
	prediction.DELETE("", s.handleReleasePrediction)
	prediction.POST("/open", s.handleOpenPrediction)
	prediction.POST("/start", s.handleStartPrediction)
	prediction.POST("/cancel", s.handleCancelPrediction)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

// surfaceMiddleware resolves the calling surface, minting an id when the client
// has none yet. The id is always echoed back.
func surfaceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(SurfaceHeader))
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(surfaceKey, id)
		c.Response().Header().Set(SurfaceHeader, id)
		return next(c)
	}
}

func surfaceID(c echo.Context) string {
	id, _ := c.Get(surfaceKey).(string)
	return id
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type listResponse struct {
	Opportunities    []models.Opportunity `json:"opportunities"`
	Open             []models.Opportunity `json:"open"`
	Closed           []models.Opportunity `json:"closed"`
	Total            int                  `json:"total"`
	Criteria         filter.Criteria      `json:"criteria"`
	HasActiveFilters bool                 `json:"has_active_filters"`
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	patch, err := parseCriteria(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	engine := filter.NewEngine(s.opportunities)
	engine.SetCriteria(patch)

	return c.JSON(http.StatusOK, listResponse{
		Opportunities:    engine.Filtered(),
		Open:             engine.OpenSubset(),
		Closed:           engine.ClosedSubset(),
		Total:            len(s.opportunities),
		Criteria:         engine.Criteria(),
		HasActiveFilters: engine.HasActiveFilters(),
	})
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseCriteria(c echo.Context) (filter.Patch, error) {
	var p filter.Patch

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		p.Query = &q
	}
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		if !models.ValidCategory(category) {
			return p, queryError("unknown category " + strconv.Quote(category))
		}
		p.Category = &category
	}

	bound := func(name string) (*float64, error) {
		raw := strings.TrimSpace(c.QueryParam(name))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return nil, queryError(name + " must be a non-negative number")
		}
		return &v, nil
	}
	var err error
	if p.MinBudget, err = bound("min_budget"); err != nil {
		return p, err
	}
	if p.MaxBudget, err = bound("max_budget"); err != nil {
		return p, err
	}

	toggle := func(name string) (*bool, error) {
		raw := strings.TrimSpace(c.QueryParam(name))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, queryError(name + " must be a boolean")
		}
		return &v, nil
	}
	if p.ShowOpen, err = toggle("show_open"); err != nil {
		return p, err
	}
	if p.ShowClosed, err = toggle("show_closed"); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	opp, ok := s.byID[c.Param("id")]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "Not found")
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleGetCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"categories": models.Categories})
}

func (s *Server) handleDailyRecommendations(c echo.Context) error {
	if s.Daily == nil {
		return c.JSON(http.StatusOK, cache.Recommendation{})
	}
	return c.JSON(http.StatusOK, s.Daily.Load(c.Request().Context()))
}

type normalizeRequest struct {
	Text string `json:"text"`
}

type normalizeResponse struct {
	Value     float64 `json:"value"`
	Display   string  `json:"display"`
	Formatted string  `json:"formatted"`
	Currency  string  `json:"currency"`
}

func (s *Server) handleNormalizeAmount(c echo.Context) error {
	var req normalizeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	value, display := amount.Normalize(req.Text)
	return c.JSON(http.StatusOK, normalizeResponse{
		Value:     value,
		Display:   display,
		Formatted: amount.Format(value),
		Currency:  amount.FormatCurrency(value),
	})
}
