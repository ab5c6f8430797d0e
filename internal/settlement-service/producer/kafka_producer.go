package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos de liquidação.
type KafkaPublisher struct {
	SettledWriter *kafka.Writer
}

func NewKafkaPublisher(settledWriter *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{SettledWriter: settledWriter}
}

func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e events.MatchSettled) error {
	b, _ := json.Marshal(e)
	return p.SettledWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}
