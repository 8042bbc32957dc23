// Command scrape runs the flows pipeline once per ETF family and exits.
// It exits non-zero when any run failed, so cron or a Kubernetes CronJob
// can alert on it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/mauv0809/etf-flows/internal/catalog"
	"github.com/mauv0809/etf-flows/internal/config"
	"github.com/mauv0809/etf-flows/internal/db"
	"github.com/mauv0809/etf-flows/internal/ingest"
	"github.com/mauv0809/etf-flows/internal/logging"
	"github.com/mauv0809/etf-flows/internal/metrics"
	"github.com/mauv0809/etf-flows/internal/notify"
	"github.com/mauv0809/etf-flows/internal/pipeline"
)

func main() {
	etfs := flag.String("etf", "", "comma-separated ETF families to scrape (default: ETFS)")
	dryRun := flag.Bool("dry-run", false, "keep results in memory and skip notifications")
	trigger := flag.String("trigger", "cron", "trigger recorded in reports and notifications")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load catalog")
	}
	ids := cfg.ETFs
	if *etfs != "" {
		ids = strings.Split(*etfs, ",")
	}
	sources := make([]*catalog.Source, 0, len(ids))
	for _, id := range ids {
		src, err := cat.Source(strings.TrimSpace(id))
		if err != nil {
			log.Fatal().Err(err).Str("etf", id).Send()
		}
		sources = append(sources, src)
	}

	var store db.Store
	var notifier notify.Notifier
	if *dryRun {
		store = db.NewMemoryStore()
		log.Info().Msg("Dry run: using in-memory store, notifications disabled")
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			log.Fatal().Err(err).Send()
		}
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Could not run migrations")
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not connect to database")
		}
		defer pool.Close()
		store = db.NewRepository(pool)

		if cfg.TelegramEnabled() {
			notifier = notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChannelID)
		}
	}

	client := ingest.NewClient(
		ingest.WithProxy(cfg.ProxyURL),
		ingest.WithUserAgent(cfg.UserAgent),
		ingest.WithTimeout(cfg.FetchTimeout),
		ingest.WithRate(cfg.FetchRate),
	)
	p := pipeline.New(client, store, notifier, metrics.New(prometheus.NewRegistry()), pipeline.Config{
		Window:     cfg.BackfillWindow,
		RunTimeout: cfg.RunTimeout,
		Production: cfg.Production(),
	})

	failed := false
	enc := json.NewEncoder(os.Stdout)
	for _, src := range sources {
		rep := p.Run(ctx, src, *trigger)
		if rep.Outcome == pipeline.OutcomeFailed {
			failed = true
		}
		if err := enc.Encode(rep); err != nil {
			log.Error().Err(err).Msg("Could not write report")
		}
	}

	if failed {
		stop()
		os.Exit(1)
	}
}
