package metrics

import "github.com/prometheus/client_golang/prometheus"

// Settlement reúne os collectors da liquidação; os métodos casam com os callbacks
// do Engine, Coordinator, Dispatcher e Processor
type Settlement struct {
	BetsSettled        *prometheus.CounterVec
	BetsFailed         prometheus.Counter
	PayoutUnresolvable prometheus.Counter
	MessagesConsumed   prometheus.Counter
	MessagesProcessed  prometheus.Counter
	MessagesDLQ        prometheus.Counter
	Errors             *prometheus.CounterVec
	NotificationsDrop  prometheus.Counter
	NotificationErrors *prometheus.CounterVec
}

func NewSettlement() *Settlement {
	return &Settlement{
		BetsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_bets_settled_total", Help: "apostas liquidadas por status final",
		}, []string{"status"}),
		BetsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_bet_failures_total", Help: "falhas isoladas no fan-out por mercado",
		}),
		PayoutUnresolvable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_payout_unresolvable_total", Help: "pagamentos sem carteira ou moeda (rollback)",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_messages_consumed_total", Help: "gatilhos consumidos do kafka",
		}),
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_messages_processed_total", Help: "gatilhos processados com sucesso",
		}),
		MessagesDLQ: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_messages_dlq_total", Help: "gatilhos enviados para a DLQ",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_errors_total", Help: "erros por estágio",
		}, []string{"stage"}),
		NotificationsDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_dispatch_dropped_total", Help: "eventos pós-commit descartados (buffer cheio)",
		}),
		NotificationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_dispatch_errors_total", Help: "falhas de entrega pós-commit por destino",
		}, []string{"target"}),
	}
}

// MustRegister registra todos os collectors em reg
func (m *Settlement) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BetsSettled, m.BetsFailed, m.PayoutUnresolvable,
		m.MessagesConsumed, m.MessagesProcessed, m.MessagesDLQ, m.Errors,
		m.NotificationsDrop, m.NotificationErrors,
	)
}

func (m *Settlement) Settled(status string)       { m.BetsSettled.WithLabelValues(status).Inc() }
func (m *Settlement) BetFailed()                  { m.BetsFailed.Inc() }
func (m *Settlement) Unresolvable()               { m.PayoutUnresolvable.Inc() }
func (m *Settlement) Consumed()                   { m.MessagesConsumed.Inc() }
func (m *Settlement) Processed()                  { m.MessagesProcessed.Inc() }
func (m *Settlement) DLQ()                        { m.MessagesDLQ.Inc() }
func (m *Settlement) Error(stage string)          { m.Errors.WithLabelValues(stage).Inc() }
func (m *Settlement) Dropped()                    { m.NotificationsDrop.Inc() }
func (m *Settlement) DispatchError(target string) { m.NotificationErrors.WithLabelValues(target).Inc() }
