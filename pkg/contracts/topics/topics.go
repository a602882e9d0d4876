package topics

const (
	// Gatilhos de entrada (workflows de mercado externos)
	MarketSettled   = "market_settled"
	SelectionVoided = "selection_voided"

	// Fila de recompensas (VIP/rewards) alimentada após cada liquidação
	BetSettled = "bet_settled"

	// DLQ
	SettlementDLQ = "settlement_dlq"
)
