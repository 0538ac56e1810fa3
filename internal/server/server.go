package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/flightdeck/config"
	"github.com/mohammad-safakhou/flightdeck/internal/amadeus"
	"github.com/mohammad-safakhou/flightdeck/internal/history"
	"github.com/mohammad-safakhou/flightdeck/internal/llm"
	"github.com/mohammad-safakhou/flightdeck/internal/pipeline"
	"github.com/mohammad-safakhou/flightdeck/internal/slack"
	"github.com/mohammad-safakhou/flightdeck/internal/store"
	"github.com/mohammad-safakhou/flightdeck/internal/telemetry"
)

// Run wires all dependencies and serves the Slack command endpoint until the
// process exits.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	var tel *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tel = telemetry.New(prometheus.DefaultRegisterer)
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	ctx := context.Background()

	// Optional channel history (Redis)
	var hist *history.History
	if cfg.Storage.Redis.Enabled() {
		client, err := history.Conn(ctx, cfg.Storage.Redis)
		if err != nil {
			return fmt.Errorf("connecting redis: %w", err)
		}
		hist = history.New(client)
	}

	// Optional query log (Postgres)
	var st *store.Store
	if cfg.Storage.Postgres.Enabled() {
		dsn, err := cfg.Storage.Postgres.DSN()
		if err != nil {
			return err
		}
		st, err = store.NewWithDSN(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connecting postgres: %w", err)
		}
	}

	provider, err := llm.NewProvider(cfg.LLM, tel)
	if err != nil {
		return err
	}

	execLogger := log.New(log.Writer(), "[EXEC] ", log.LstdFlags)
	tokens := amadeus.NewTokenSource(cfg.Amadeus.ClientID, cfg.Amadeus.ClientSecret, cfg.Amadeus.AuthURL,
		&http.Client{Timeout: cfg.Amadeus.Timeout}, execLogger, tel)
	executor := amadeus.NewExecutor(tokens,
		amadeus.DefaultStrategies(cfg.Amadeus.BaseURLV1, cfg.Amadeus.BaseURLV2),
		&http.Client{Timeout: cfg.Amadeus.Timeout}, execLogger, tel)

	pipeLogger := log.New(log.Writer(), "[PIPE] ", log.LstdFlags)
	pipe := pipeline.New(provider, executor, hist, st, tel, pipeLogger)

	ch := &CommandHandler{
		Pipeline: pipe,
		Poster:   slack.NewClient(cfg.Slack.BotToken, 0),
		Verifier: slack.NewVerifier(cfg.Slack.SigningSecret),
		Command:  cfg.Slack.Command,
		Timeout:  cfg.General.DefaultTimeout,
		Logger:   log.New(log.Writer(), "[SLACK] ", log.LstdFlags),
	}
	ch.Register(e.Group("/slack"))

	return e.Start(cfg.Server.Address)
}
