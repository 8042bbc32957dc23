package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mauv0809/etf-flows/internal/catalog"
	"github.com/mauv0809/etf-flows/internal/config"
	"github.com/mauv0809/etf-flows/internal/db"
	"github.com/mauv0809/etf-flows/internal/handlers"
	"github.com/mauv0809/etf-flows/internal/ingest"
	"github.com/mauv0809/etf-flows/internal/logging"
	"github.com/mauv0809/etf-flows/internal/metrics"
	"github.com/mauv0809/etf-flows/internal/notify"
	"github.com/mauv0809/etf-flows/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Send()
	}

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("Could not run migrations")
	} else {
		log.Info().Msg("Migrations completed")
	}

	// Connect to database, falling back to memory so the pages still serve
	var store db.Store
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("Could not connect to database, continuing with in-memory store")
		store = db.NewMemoryStore()
	} else {
		defer pool.Close()
		log.Info().Msg("Connected to database")
		store = db.NewRepository(pool)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load catalog")
	}
	sources := make([]*catalog.Source, 0, len(cfg.ETFs))
	for _, id := range cfg.ETFs {
		src, err := cat.Source(id)
		if err != nil {
			log.Fatal().Err(err).Str("etf", id).Msg("ETFS references an unknown family")
		}
		sources = append(sources, src)
	}

	client := ingest.NewClient(
		ingest.WithProxy(cfg.ProxyURL),
		ingest.WithUserAgent(cfg.UserAgent),
		ingest.WithTimeout(cfg.FetchTimeout),
		ingest.WithRate(cfg.FetchRate),
	)

	hub := notify.NewHub()
	notifiers := notify.Multi{hub}
	if cfg.TelegramEnabled() {
		notifiers = append(notifiers, notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChannelID))
		log.Info().Msg("Telegram notifications enabled")
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN or TELEGRAM_CHANNEL_ID not set, Telegram notifications disabled")
	}

	p := pipeline.New(client, store, notifiers, metrics.New(prometheus.DefaultRegisterer), pipeline.Config{
		Window:     cfg.BackfillWindow,
		RunTimeout: cfg.RunTimeout,
		Production: cfg.Production(),
	})

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Int("status", v.Status).Str("uri", v.URI).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	h := handlers.New(store, cat, sources[0].ID)
	scrape := handlers.NewScrapeHandler(p, cat)

	// Routes
	e.GET("/health", h.Health)
	e.GET("/", h.Index)
	e.GET("/etfs/:etf", h.ETFPage)
	e.GET("/ws", echo.WrapHandler(http.HandlerFunc(hub.ServeWS)))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/etfs/:etf")
	api.GET("/flows", h.Flows)
	api.GET("/flows.csv", h.FlowsCSV)
	api.GET("/table", h.Table)
	api.GET("/charts", h.Charts)

	admin := e.Group("/admin")
	admin.POST("/scrape/:etf", scrape.Scrape)
	admin.GET("/scrape/status", scrape.ScrapeStatus)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Msg("Starting server")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.ScrapeInterval > 0 {
		g.Go(func() error {
			return p.Schedule(gctx, cfg.ScrapeInterval, sources)
		})
	} else {
		log.Info().Msg("SCRAPE_INTERVAL not set, relying on an external scheduler")
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
