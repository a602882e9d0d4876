package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetSettled é o job da fila de recompensas e também o payload da notificação ao usuário.
// ActualWin é serializado como string decimal.
type BetSettled struct {
	BetID       string          `json:"betId"`
	UserID      string          `json:"userId"`
	Status      string          `json:"status"` // WON | LOST | VOID
	ActualWin   decimal.Decimal `json:"actualWin"`
	Currency    string          `json:"currency"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Envelope enviado para a DLQ quando um gatilho não pode ser processado.
type SettlementFailed struct {
	Topic   string    `json:"topic"`
	Key     string    `json:"key"`
	Payload []byte    `json:"payload"`
	Error   string    `json:"error"`
	Ts      time.Time `json:"ts"`
}
