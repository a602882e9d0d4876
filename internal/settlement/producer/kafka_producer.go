package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// KafkaPublisher publica jobs bet_settled para a fila de recompensas
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w kafka.MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

// PublishBetSettled usa o betId como chave para manter a ordem por aposta na partição
func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := kafka.WriteJSON(ctx, p.Writer, e.BetID, e); err != nil {
		return fmt.Errorf("publish %s: %w", p.Topic, err)
	}
	return nil
}
