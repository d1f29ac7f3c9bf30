package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/orato-labs/speechcoach/internal/aggregate"
	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/api"
	"github.com/orato-labs/speechcoach/internal/buffer"
	"github.com/orato-labs/speechcoach/internal/cache"
	"github.com/orato-labs/speechcoach/internal/config"
	"github.com/orato-labs/speechcoach/internal/db"
	"github.com/orato-labs/speechcoach/internal/jobs"
	"github.com/orato-labs/speechcoach/internal/notifications"
	"github.com/orato-labs/speechcoach/internal/repository"
	"github.com/orato-labs/speechcoach/internal/scheduler"
	"github.com/orato-labs/speechcoach/internal/suggest"
	"github.com/orato-labs/speechcoach/internal/version"
)

func main() {
	log.Printf("speechcoach %s starting...", version.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := database.Migrate("migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	analyzerCfg := analysis.DefaultConfig()
	analyzerCfg.PaceWindowSeconds = float64(cfg.PaceWindowSecs)
	analyzerCfg.OptimalWPMLow = cfg.OptimalWPMLow
	analyzerCfg.OptimalWPMHigh = cfg.OptimalWPMHigh
	analyzer := analysis.NewAnalyzer(analyzerCfg)

	thresholds := suggest.DefaultThresholds()
	thresholds.OptimalWPMLow = cfg.OptimalWPMLow
	thresholds.OptimalWPMHigh = cfg.OptimalWPMHigh
	engine := suggest.NewEngine(thresholds)

	agg := aggregate.NewDailyAggregator(analyzer, engine)

	buf := buffer.New(buffer.Config{
		SilenceTimeout:  time.Duration(cfg.SilenceTimeoutSecs) * time.Second,
		FinalizeTimeout: time.Duration(cfg.FinalizeTimeoutSecs) * time.Second,
	})

	statsCache := cache.New(cfg.RedisAddr)
	defer statsCache.Close()
	if err := statsCache.Ping(context.Background()); err != nil {
		log.Printf("warning: redis unreachable at %s: %v", cfg.RedisAddr, err)
	}

	queue := jobs.NewQueue(cfg.RedisAddr)
	defer queue.Stop()

	srv := api.NewServer(cfg, database, buf, analyzer, engine, statsCache, queue)

	sessionRepo := repository.NewSessionRepository(database.DB)
	analysisRepo := repository.NewAnalysisRepository(database.DB)
	var webhook *notifications.WebhookSender
	if cfg.WebhookEnabled() {
		webhook = notifications.NewWebhookSender(cfg.WebhookURL)
	}
	jobs.RegisterHandlers(queue, analyzer, engine, agg, sessionRepo, analysisRepo,
		statsCache, srv.WSHub(), webhook)

	if err := queue.Start(); err != nil {
		log.Fatalf("job queue failed to start: %v", err)
	}

	sched := scheduler.New(buf, queue,
		time.Duration(cfg.SweepIntervalSecs)*time.Second, cfg.RollupHour)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler failed to start: %v", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sched.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
