package events

import "time"

// Evento publicado pelo workflow de resultados quando um mercado é marcado como liquidado.
type MarketSettled struct {
	MarketID string    `json:"marketId"`
	Ts       time.Time `json:"ts"`
}
