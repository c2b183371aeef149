// Package httpapi exposes the thin HTTP surface consumed by the dashboard
// and by manual triggers. Every endpoint answers with the uniform
// {success, data, message, error} envelope.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"goldwatch/internal/alert"
	"goldwatch/internal/models"
	"goldwatch/internal/quote"
	"goldwatch/internal/scheduler"
	"goldwatch/internal/shop"
	"goldwatch/internal/stats"
	"goldwatch/internal/store"
	"goldwatch/internal/timeref"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server wires the HTTP routes onto the application components.
type Server struct {
	store  store.Store
	quote  *quote.Fetcher
	shop   *shop.Scraper
	agg    *stats.Aggregator
	sched  *scheduler.Orchestrator
	logger zerolog.Logger
}

// NewServer creates the HTTP API server.
func NewServer(s store.Store, q *quote.Fetcher, sc *shop.Scraper,
	agg *stats.Aggregator, sched *scheduler.Orchestrator, logger zerolog.Logger) *Server {
	return &Server{store: s, quote: q, shop: sc, agg: agg, sched: sched, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/gold/realtime", s.getRealtime)
		api.GET("/gold/history", s.getHistory)
		api.GET("/alert/config", s.getAlertConfig)
		api.PUT("/alert/config", s.putAlertConfig)
		api.POST("/alert/check", s.postAlertCheck)
		api.POST("/gold-shop/collect", s.postShopCollect)
		api.GET("/gold-shop/prices", s.getShopPrices)
		api.GET("/gold-shop/history", s.getShopHistory)
		api.GET("/push/stats", s.getPushStats)
		api.GET("/scheduler/status", s.getSchedulerStatus)
	}
	return r
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func okMsg(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

func fail(c *gin.Context, status int, message string, err error) {
	env := Envelope{Success: false, Message: message}
	if err != nil {
		env.Error = err.Error()
	}
	c.JSON(status, env)
}

// getRealtime fetches the current quote; ?save=true also persists it.
func (s *Server) getRealtime(c *gin.Context) {
	snap, err := s.quote.Fetch(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to fetch quote", err)
		return
	}

	if c.Query("save") == "true" {
		if err := s.store.SaveSnapshot(c.Request.Context(), snap); err != nil {
			fail(c, http.StatusInternalServerError, "failed to save snapshot", err)
			return
		}
	}
	ok(c, snap)
}

// getHistory serves chart data: view=hour is the raw last 24 hours,
// view=day is hourly buckets over the last 35 days.
func (s *Server) getHistory(c *gin.Context) {
	view := c.DefaultQuery("view", "hour")
	if view != "hour" && view != "day" {
		fail(c, http.StatusBadRequest, "view must be hour or day", nil)
		return
	}

	end := timeref.Now()
	var data []models.PriceSnapshot
	var err error
	if view == "hour" {
		data, err = s.agg.RawSeries(c.Request.Context(), end.Add(-24*time.Hour), end)
	} else {
		data, err = s.agg.HourlyBuckets(c.Request.Context(), timeref.DaysAgo(end, 35), end)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load history", err)
		return
	}
	ok(c, data)
}

func (s *Server) getAlertConfig(c *gin.Context) {
	cfg, err := s.store.AlertConfig(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load alert config", err)
		return
	}
	ok(c, cfg)
}

type alertConfigRequest struct {
	HighPrice *float64 `json:"high_price"`
	LowPrice  *float64 `json:"low_price"`
	Enabled   *bool    `json:"enabled"`
}

func (s *Server) putAlertConfig(c *gin.Context) {
	var req alertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Enabled == nil {
		fail(c, http.StatusBadRequest, "enabled is required and must be a boolean", nil)
		return
	}

	cfg := &models.AlertConfig{
		HighPrice: req.HighPrice,
		LowPrice:  req.LowPrice,
		Enabled:   *req.Enabled,
	}
	if err := s.store.SaveAlertConfig(c.Request.Context(), cfg); err != nil {
		fail(c, http.StatusInternalServerError, "failed to save alert config", err)
		return
	}

	saved, err := s.store.AlertConfig(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to reload alert config", err)
		return
	}
	okMsg(c, saved, "alert config updated")
}

type alertCheckResponse struct {
	ShouldAlert  bool    `json:"should_alert"`
	AlertType    string  `json:"alert_type,omitempty"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	Message      string  `json:"message"`
}

// postAlertCheck evaluates the thresholds on demand without sending.
func (s *Server) postAlertCheck(c *gin.Context) {
	ctx := c.Request.Context()

	latest, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load latest snapshot", err)
		return
	}
	if latest == nil {
		ok(c, alertCheckResponse{Message: "no price data"})
		return
	}

	cfg, err := s.store.AlertConfig(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load alert config", err)
		return
	}
	if cfg == nil || !cfg.Enabled {
		ok(c, alertCheckResponse{
			CurrentPrice: latest.Price,
			Message:      "alerting disabled",
		})
		return
	}

	decision := alert.Evaluate(latest.Price, cfg)
	resp := alertCheckResponse{
		ShouldAlert:  decision.Fire,
		CurrentPrice: latest.Price,
	}
	if decision.Fire {
		resp.AlertType = string(decision.Kind)
		resp.Message = "threshold crossed"
	} else {
		resp.Message = "price within configured range"
	}
	ok(c, resp)
}

// postShopCollect manually triggers a shop price collection.
func (s *Server) postShopCollect(c *gin.Context) {
	ctx := c.Request.Context()

	batch, err := s.shop.Fetch(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, "shop price collection failed", err)
		return
	}

	valid := shop.FilterValid(batch.Prices)
	if len(valid) == 0 {
		fail(c, http.StatusBadRequest, "no valid shop price rows, check source availability", nil)
		return
	}
	batch.Prices = valid

	if err := s.store.UpsertShopBatch(ctx, batch); err != nil {
		fail(c, http.StatusInternalServerError, "failed to save shop batch", err)
		return
	}

	okMsg(c, gin.H{"date": batch.Date, "count": len(valid)},
		"shop prices collected")
}

// getShopPrices returns the latest batch, or one date's batch via ?date=.
func (s *Server) getShopPrices(c *gin.Context) {
	ctx := c.Request.Context()
	date := c.Query("date")

	var batch *models.ShopPriceBatch
	var err error
	if date != "" {
		batch, err = s.store.ShopBatchByDate(ctx, date)
	} else {
		batch, err = s.store.LatestShopBatch(ctx)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load shop prices", err)
		return
	}
	if batch == nil {
		msg := "no shop price data yet"
		if date != "" {
			msg = "no data for " + date
		}
		fail(c, http.StatusNotFound, msg, nil)
		return
	}
	ok(c, batch)
}

// getShopHistory returns one brand's daily prices over ?days= days.
func (s *Server) getShopHistory(c *gin.Context) {
	brand := c.Query("brand")
	if brand == "" {
		fail(c, http.StatusBadRequest, "brand query parameter is required", nil)
		return
	}

	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			fail(c, http.StatusBadRequest, "days must be between 1 and 365", nil)
			return
		}
		days = parsed
	}

	points, err := s.agg.BrandHistory(c.Request.Context(), brand, days)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load brand history", err)
		return
	}
	ok(c, points)
}

func (s *Server) getPushStats(c *gin.Context) {
	pushStats, err := s.store.PushStats(c.Request.Context(), 100)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load push stats", err)
		return
	}
	ok(c, pushStats)
}

func (s *Server) getSchedulerStatus(c *gin.Context) {
	ok(c, s.sched.Status())
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
