package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
	shttp "github.com/radieske/bet-settlement-engine/internal/settlement/http"
	"github.com/radieske/bet-settlement-engine/internal/settlement/producer"
	"github.com/radieske/bet-settlement-engine/internal/settlement/pubsub"
	"github.com/radieske/bet-settlement-engine/internal/settlement/repo"
	"github.com/radieske/bet-settlement-engine/internal/shared/cache"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/db"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-service"
	}

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	m := metrics.NewSettlement()
	m.MustRegister(prometheus.DefaultRegisterer)

	// Reexecuções manuais também publicam bet_settled e notificam o usuário
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	dispatcher := settlement.NewDispatcher(log,
		producer.NewKafkaPublisher(settledWriter, cfg.TopicBetSettled),
		pubsub.NewRedisNotifier(redisClient, cfg.RedisNotifyPrefix),
		cfg.OutboxSize,
	)
	dispatcher.OnDropped = m.Dropped
	dispatcher.OnPublishError = m.DispatchError
	dispatcher.Start()
	defer dispatcher.Close()

	store := repo.NewPostgres(pg)

	engine := settlement.NewEngine(log, store, dispatcher)
	engine.OnSettled = func(s settlement.BetStatus) { m.Settled(string(s)) }
	engine.OnPayoutUnresolvable = m.Unresolvable

	coordinator := settlement.NewCoordinator(log, store, engine, cfg.SettlementWorkers)
	coordinator.OnBetFailed = m.BetFailed

	api := shttp.NewServer(log, engine, coordinator,
		settlement.NewVoidLegProcessor(log, store, engine),
		settlement.NewReportGenerator(store),
	)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8084
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort,
		func(err error) { log.Fatal("metrics srv", zap.Error(err)) },
		metrics.Check{Name: "postgres", Fn: store.Ping},
	)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api srv", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-service stopped")
}
