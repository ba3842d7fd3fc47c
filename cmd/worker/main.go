package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"recoup/backend/internal/cache"
	"recoup/backend/internal/config"
	"recoup/backend/internal/escalation"
	"recoup/backend/internal/interest"
	"recoup/backend/internal/logger"
	"recoup/backend/internal/rates"
	"recoup/backend/internal/store"
	"recoup/backend/internal/store/memory"
	pgstore "recoup/backend/internal/store/postgres"
	"recoup/backend/internal/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	var invoices store.InvoiceStore
	var states store.EscalationStore
	var configs store.ConfigProvider

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		invoices, states, configs = pg, pg, pg
		closers = append(closers, pg.Close)
		log.Info().Msg("store: postgres")
	} else {
		mem := memory.NewSeeded(time.Now().UTC())
		invoices, states, configs = mem, mem, mem
		log.Info().Msg("store: in-memory (seeded demo data)")
	}

	// Real transports are wired by the deployment; the stub only fabricates
	// provider ids so the timeline stays complete.
	dispatcher := store.ReminderDispatcher(memory.Dispatcher{})

	configCache := cache.ConfigCache(cache.NoopConfigCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisConfigCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
		} else {
			configCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Msg("cache: redis")
		}
	} else {
		log.Info().Msg("cache: noop")
	}
	configs = cache.NewCachedConfigProvider(configs, configCache)

	boe := rates.NewBankOfEnglandHistory()
	if check, due := boe.UpdateDueSoon(time.Now().UTC()); due {
		log.Warn().
			Time("reference_date", check.NextUpdateDate).
			Int("days_until", check.DaysUntil).
			Msg("Bank of England base rate reference date approaching; verify the rate table is current")
	}

	worker := escalation.NewWorker(
		invoices,
		states,
		configs,
		dispatcher,
		interest.NewCalculator(boe),
		templates.NewEngine(cfg.BusinessName),
		logger.WithComponent(log, "worker"),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", cfg.WorkerInterval).Msg("collections worker started")

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		if _, err := worker.Run(runCtx); err != nil {
			if runCtx.Err() != nil {
				break
			}
			log.Error().Err(err).Msg("escalation pass failed")
		}

		select {
		case <-runCtx.Done():
		case <-ticker.C:
			continue
		}
		break
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("worker stopped")
}
