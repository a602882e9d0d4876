package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale é a escala (casas decimais) de todo valor monetário persistido.
// Arredondamento: round-half-even (banker's) nessa escala.
const MoneyScale int32 = 8

type BetType string

const (
	BetSingle BetType = "SINGLE"
	BetParlay BetType = "PARLAY"
	BetSystem BetType = "SYSTEM"
)

type BetStatus string

const (
	BetPending          BetStatus = "PENDING"
	BetPartiallySettled BetStatus = "PARTIALLY_SETTLED"
	BetWon              BetStatus = "WON"
	BetLost             BetStatus = "LOST"
	BetVoid             BetStatus = "VOID"
	BetCashout          BetStatus = "CASHOUT"
)

// Terminal indica se o status não pode mais mudar.
func (s BetStatus) Terminal() bool {
	switch s {
	case BetWon, BetLost, BetVoid, BetCashout:
		return true
	}
	return false
}

type LegStatus string

const (
	LegPending  LegStatus = "PENDING"
	LegWon      LegStatus = "WON"
	LegLost     LegStatus = "LOST"
	LegVoid     LegStatus = "VOID"
	LegPush     LegStatus = "PUSH"
	LegHalfWin  LegStatus = "HALF_WIN"
	LegHalfLose LegStatus = "HALF_LOSE"
)

// resultToLeg mapeia o código de resultado da seleção (enum fechado do subsistema de odds)
// para o status da perna. Código desconhecido mantém a perna PENDING.
var resultToLeg = map[string]LegStatus{
	"WIN":       LegWon,
	"LOSE":      LegLost,
	"VOID":      LegVoid,
	"PUSH":      LegPush,
	"HALF_WIN":  LegHalfWin,
	"HALF_LOSE": LegHalfLose,
}

// LegStatusFromResult retorna o status correspondente ao resultado e se ele é reconhecido.
func LegStatusFromResult(result *string) (LegStatus, bool) {
	if result == nil {
		return LegPending, false
	}
	st, ok := resultToLeg[*result]
	if !ok {
		return LegPending, false
	}
	return st, true
}

type Bet struct {
	ID                 string
	UserID             string
	Type               BetType
	Stake              decimal.Decimal
	CurrencySymbol     string
	Odds               decimal.Decimal // odd combinada no momento da aposta
	Status             BetStatus
	ActualWin          *decimal.Decimal
	SettledAt          *time.Time
	IsCashoutAvailable bool
	ReferenceID        string
	Legs               []BetLeg
}

// legsSettled conta pernas já resolvidas.
func (b *Bet) legsSettled() int {
	n := 0
	for _, l := range b.Legs {
		if l.Status != LegPending {
			n++
		}
	}
	return n
}

type BetLeg struct {
	ID              string
	BetID           string
	SelectionID     string
	OddsAtPlacement decimal.Decimal
	Status          LegStatus
	Selection       *Selection // snapshot carregado junto com a aposta (opcional)
}

// Selection é somente leitura para a liquidação.
type Selection struct {
	ID       string
	MarketID string
	Status   string
	Result   *string
}

type TxType string

const (
	TxWin        TxType = "WIN"
	TxAdjustment TxType = "ADJUSTMENT"
	TxBet        TxType = "BET"
)

// LedgerEntry é um registro append-only de movimento de carteira.
type LedgerEntry struct {
	ID       string
	WalletID *string // nil para o registro de auditoria de aposta perdida sem carteira resolvida
	BetID    string
	Type     TxType
	Amount   decimal.Decimal
	Status   string
	Metadata LedgerMetadata
}

type LedgerMetadata struct {
	BetID          string          `json:"betId"`
	ReferenceID    string          `json:"referenceId,omitempty"`
	SettlementType BetStatus       `json:"settlementType"`
	OriginalStake  decimal.Decimal `json:"originalStake"`
	OriginalOdds   decimal.Decimal `json:"originalOdds"`
}

// Result é o retorno de SettleBet.
type Result struct {
	BetID       string          `json:"betId"`
	Status      BetStatus       `json:"status"`
	ActualWin   decimal.Decimal `json:"actualWin"`
	LegsSettled int             `json:"legsSettled"`
}
