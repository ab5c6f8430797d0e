package main

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	shttp "github.com/radieske/p2p-bet-platform-poc/internal/settlement-service/http"
	"github.com/radieske/p2p-bet-platform-poc/internal/settlement-service/producer"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/config"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/db"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/kafka"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/logger"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("settlement-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "settlement-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	feeRate, err := decimal.NewFromString(cfg.FeeRate)
	if err != nil {
		log.Fatal("parse FEE_RATE", zap.String("value", cfg.FeeRate), zap.Error(err))
	}
	store := ledger.NewStore(pg, feeRate)
	if err := store.InitSchema(context.Background()); err != nil {
		log.Fatal("init schema", zap.Error(err))
	}

	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer settledWriter.Close()
	publ := producer.NewKafkaPublisher(settledWriter)

	api := shttp.NewServer(log, store, publ)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	defer metricsSrv.Close()
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8083
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
