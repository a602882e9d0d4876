package settlement

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// RewardQueue recebe o job bet-settled (cálculo de recompensas/VIP, externo).
type RewardQueue interface {
	PublishBetSettled(ctx context.Context, ev events.BetSettled) error
}

// Notifier informa o serviço de notificações em tempo real (canal por usuário).
type Notifier interface {
	NotifySettlement(ctx context.Context, ev events.BetSettled) error
}

// Dispatcher entrega eventos pós-commit em background, com entrega best-effort:
// buffer cheio descarta o evento e falhas de publicação são apenas logadas.
type Dispatcher struct {
	log      *zap.Logger
	queue    RewardQueue
	notifier Notifier
	timeout  time.Duration

	ch        chan events.BetSettled
	done      chan struct{}
	closeOnce sync.Once

	OnDropped      func()       // métricas
	OnPublishError func(string) // métricas por destino ("queue" | "notify")
}

func NewDispatcher(log *zap.Logger, queue RewardQueue, notifier Notifier, size int) *Dispatcher {
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		log:      log,
		queue:    queue,
		notifier: notifier,
		timeout:  5 * time.Second,
		ch:       make(chan events.BetSettled, size),
		done:     make(chan struct{}),
	}
}

// Start inicia a goroutine de entrega. Deve ser chamado uma única vez.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for ev := range d.ch {
			d.deliver(ev)
		}
	}()
}

// Enqueue nunca bloqueia o chamador.
func (d *Dispatcher) Enqueue(ev events.BetSettled) {
	select {
	case d.ch <- ev:
	default:
		d.log.Warn("dispatcher buffer full, dropping bet-settled event",
			zap.String("betId", ev.BetID))
		if d.OnDropped != nil {
			d.OnDropped()
		}
	}
}

// Close para de aceitar eventos e espera o buffer esvaziar.
// Enqueue após Close não é permitido.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.ch) })
	<-d.done
}

func (d *Dispatcher) deliver(ev events.BetSettled) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if d.queue != nil {
		if err := d.queue.PublishBetSettled(ctx, ev); err != nil {
			d.log.Warn("reward queue enqueue failed", zap.String("betId", ev.BetID), zap.Error(err))
			if d.OnPublishError != nil {
				d.OnPublishError("queue")
			}
		}
	}
	if d.notifier != nil {
		if err := d.notifier.NotifySettlement(ctx, ev); err != nil {
			d.log.Warn("settlement notification failed", zap.String("betId", ev.BetID), zap.Error(err))
			if d.OnPublishError != nil {
				d.OnPublishError("notify")
			}
		}
	}
}
