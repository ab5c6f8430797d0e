package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do ciclo de vida da aposta.
type KafkaPublisher struct {
	OfferWriter *kafka.Writer
	MatchWriter *kafka.Writer
}

func NewKafkaPublisher(offerWriter, matchWriter *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{OfferWriter: offerWriter, MatchWriter: matchWriter}
}

func (p *KafkaPublisher) PublishOfferCreated(ctx context.Context, e events.OfferCreated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.OfferWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.OfferID), Value: b})
}

func (p *KafkaPublisher) PublishMatchCreated(ctx context.Context, e events.MatchCreated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.MatchWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}
