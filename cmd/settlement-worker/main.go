package main

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/config"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/db"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/kafka"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/logger"
	"github.com/radieske/p2p-bet-platform-poc/internal/shared/metrics"
	ev "github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com Postgres para a liquidação em lote
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
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

	// Kafka consumer: resultados autoritativos de eventos esportivos
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicEventResults, "settlement-worker")
	defer reader.Close()

	// Kafka producers: match_settled por match liquidado e DLQ de resultados
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer settledWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicEventResultsDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventResultsDLQ)
		defer dlqWriter.Close()
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	defer metricsSrv.Close()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicEventResults),
		zap.String("publish", cfg.TopicMatchSettled),
	)

	ctx := context.Background()

	// Loop principal: consome resultados, liquida o lote do evento e publica
	// um match_settled por match
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var result ev.EventResult
		if jerr := json.Unmarshal(msg.Value, &result); jerr != nil {
			log.Error("unmarshal event_result", zap.Error(jerr))
			continue
		}

		if err := processOne(ctx, log, store, settledWriter, dlqWriter, &result); err != nil {
			log.Error("settle event", zap.String("eventId", result.EventID), zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne liquida todos os matches ativos de um evento:
// 1. SettleByEvent aplica o lote tudo-ou-nada em uma transação
// 2. Erros transitórios são retentados; esgotado o retry, a mensagem vai pra DLQ
// 3. Publica um match_settled por match liquidado
// Reentrega da mesma mensagem é inofensiva: sem matches ACTIVE restantes a
// liquidação vira no-op.
func processOne(
	ctx context.Context,
	log *zap.Logger,
	store *ledger.Store,
	settledWriter *kafkago.Writer,
	dlqWriter *kafkago.Writer,
	result *ev.EventResult,
) error {
	actual := ledger.Selection(result.Result)

	settled, err := store.SettleByEvent(ctx, result.EventID, actual)
	if err == ledger.ErrNoActiveMatches {
		log.Info("no active matches for event", zap.String("eventId", result.EventID))
		return nil
	}
	if err != nil && ledger.Retryable(err) {
		// Retry simples: tenta até 3 vezes antes de enviar para DLQ
		const retries = 3
		for i := 0; i < retries; i++ {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			if settled, err = store.SettleByEvent(ctx, result.EventID, actual); err == nil || !ledger.Retryable(err) {
				break
			}
		}
	}
	if err == ledger.ErrNoActiveMatches {
		return nil
	}
	if err != nil {
		if dlqWriter != nil {
			_ = kafka.WriteJSON(ctx, dlqWriter, result.EventID, mustJSON(result))
		}
		return err
	}

	for _, m := range settled {
		pool := m.CreatorAmount.Add(m.AcceptorAmount)
		evs := ev.MatchSettled{
			MatchID:     m.ID,
			OfferID:     m.OfferID,
			EventID:     result.EventID,
			Result:      string(m.Result),
			WinnerID:    m.WinnerID,
			PlatformFee: m.PlatformFeeTotal.String(),
		}
		if m.Result != ledger.ResultPush {
			evs.Payout = pool.Sub(m.PlatformFeeTotal).String()
		}
		if m.SettledAt != nil {
			evs.SettledAt = *m.SettledAt
		}
		if werr := kafka.WriteJSON(ctx, settledWriter, m.ID, mustJSON(evs)); werr != nil {
			log.Warn("publish match_settled", zap.String("matchId", m.ID), zap.Error(werr))
		}
	}
	log.Info("event settled",
		zap.String("eventId", result.EventID),
		zap.Int("matches", len(settled)),
	)
	return nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
