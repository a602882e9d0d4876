package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
	"github.com/radieske/bet-settlement-engine/internal/settlement/consumer"
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
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: apostas, pernas, carteiras e ledger
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: canal de notificação por usuário
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	m := metrics.NewSettlement()
	m.MustRegister(prometheus.DefaultRegisterer)

	// Fila de recompensas (bet_settled) e entrega pós-commit
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

	// Kafka consumer: gatilhos market_settled e selection_voided no mesmo grupo
	reader := kafka.NewGroupReader(cfg.KafkaBrokers, "settlement",
		cfg.TopicMarketSettled, cfg.TopicSelectionVoided)
	defer reader.Close()

	proc := &consumer.Processor{
		Log:                  log,
		Reader:               reader,
		Markets:              coordinator,
		Voids:                settlement.NewVoidLegProcessor(log, store, engine),
		TopicMarketSettled:   cfg.TopicMarketSettled,
		TopicSelectionVoided: cfg.TopicSelectionVoided,
		Retries:              3,
		Backoff:              300 * time.Millisecond,
		OnConsumed:           m.Consumed,
		OnProcessed:          m.Processed,
		OnDLQ:                m.DLQ,
		OnError:              m.Error,
	}
	if cfg.TopicSettlementDLQ != "" {
		dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSettlementDLQ)
		defer dlqWriter.Close()
		proc.DLQ = dlqWriter
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort,
		func(err error) { log.Error("metrics srv", zap.Error(err)) },
		metrics.Check{Name: "postgres", Fn: store.Ping},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMarketSettled+","+cfg.TopicSelectionVoided),
		zap.String("publish", cfg.TopicBetSettled),
		zap.Int("workers", cfg.SettlementWorkers),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}
