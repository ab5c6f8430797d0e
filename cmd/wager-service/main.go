package main

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog"
	eccache "github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog/cache"
	ecrepo "github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog/repo"
	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/cache"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/config"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/db"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/kafka"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/logger"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/metrics"
	whttp "github.com/radieske/p2p-bet-platform-poc/internal/wager-service/http"
	"github.com/radieske/p2p-bet-platform-poc/internal/wager-service/producer"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("wager-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wager-service"), zap.String("env", cfg.Env))

	// Conexão com Postgres (razão + catálogo de eventos)
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

	// Redis é opcional: sem ele o catálogo vai direto ao banco
	var ecCache *eccache.Cache
	if rdb, err := cache.ConnectRedis(cfg.RedisAddr); err != nil {
		log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		ecCache = &eccache.Cache{R: rdb, TTL: 5 * time.Minute}
	}
	catalog := eventcatalog.New(&ecrepo.ReadRepo{DB: pg}, ecCache)

	// Producers dos eventos de ciclo de vida
	offerWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOfferCreated)
	defer offerWriter.Close()
	matchWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchCreated)
	defer matchWriter.Close()
	publ := producer.NewKafkaPublisher(offerWriter, matchWriter)

	api := whttp.NewServer(log, store, catalog, publ)

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	defer metricsSrv.Close()
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8082
		Handler: api.Router(),
	}
	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
