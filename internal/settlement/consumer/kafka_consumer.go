package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
	sharedkafka "github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MarketSettler interface {
	SettleMarketBets(ctx context.Context, marketID string) (settlement.MarketSummary, error)
}

type VoidProcessor interface {
	ProcessVoidLeg(ctx context.Context, legID string) error
}

// Processor consome gatilhos de liquidação do Kafka (market_settled e selection_voided)
// Mensagens que falham após as tentativas vão para a DLQ
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log     *zap.Logger
	Reader  messageReader
	DLQ     sharedkafka.MessageWriter // opcional
	Markets MarketSettler
	Voids   VoidProcessor

	TopicMarketSettled   string
	TopicSelectionVoided string

	Retries int           // tentativas extras para erros transitórios
	Backoff time.Duration // base do backoff linear

	OnConsumed  func()       // métricas (counter++)
	OnProcessed func()       // métricas
	OnDLQ       func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo; retorna quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.onError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.HandleMessage(ctx, m); err != nil {
			p.Log.Error("settlement trigger failed",
				zap.String("topic", m.Topic), zap.String("key", string(m.Key)), zap.Error(err))
			p.toDLQ(ctx, m, err)
			continue
		}
		if p.OnProcessed != nil {
			p.OnProcessed()
		}
	}
}

// HandleMessage decodifica e executa um gatilho, com retry para erros transitórios
func (p *Processor) HandleMessage(ctx context.Context, m kafka.Message) error {
	var run func(context.Context) error

	switch m.Topic {
	case p.TopicMarketSettled:
		var ev events.MarketSettled
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.MarketID == "" {
			p.onError("decode")
			return fmt.Errorf("invalid market_settled payload: %v", err)
		}
		run = func(ctx context.Context) error {
			sum, err := p.Markets.SettleMarketBets(ctx, ev.MarketID)
			if err == nil {
				p.Log.Debug("market trigger done",
					zap.String("marketId", ev.MarketID),
					zap.Int("legsUpdated", sum.LegsUpdated),
					zap.Int("betsSettled", sum.BetsSettled))
			}
			return err
		}
	case p.TopicSelectionVoided:
		var ev events.SelectionVoided
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.BetLegID == "" {
			p.onError("decode")
			return fmt.Errorf("invalid selection_voided payload: %v", err)
		}
		run = func(ctx context.Context) error { return p.Voids.ProcessVoidLeg(ctx, ev.BetLegID) }
	default:
		p.onError("topic")
		return fmt.Errorf("unexpected topic %q", m.Topic)
	}

	err := run(ctx)
	for i := 0; err != nil && retryable(err) && i < p.Retries; i++ {
		p.onError("process")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * p.Backoff):
		}
		err = run(ctx)
	}
	if err != nil {
		p.onError("process")
	}
	return err
}

// NotFound e aposta inválida não melhoram com retry
func retryable(err error) bool {
	return !errors.Is(err, settlement.ErrNotFound) && !errors.Is(err, settlement.ErrInvalidBet)
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	failed := events.SettlementFailed{
		Topic:   m.Topic,
		Key:     string(m.Key),
		Payload: m.Value,
		Error:   cause.Error(),
		Ts:      time.Now().UTC(),
	}
	if err := sharedkafka.WriteJSON(ctx, p.DLQ, string(m.Key), failed); err != nil {
		p.Log.Warn("dlq write failed", zap.Error(err))
		p.onError("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
