package events

import "time"

// Evento publicado quando uma seleção é anulada; carrega a perna afetada.
type SelectionVoided struct {
	BetLegID    string    `json:"betLegId"`
	SelectionID string    `json:"selectionId,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Ts          time.Time `json:"ts"`
}
