package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStore são as operações de carteira/ledger disponíveis dentro da unidade de trabalho.
type LedgerStore interface {
	CurrencyIDBySymbol(ctx context.Context, symbol string) (string, error)
	WalletID(ctx context.Context, userID, currencyID string) (string, error)
	// IncrementBalance soma amount ao saldo de forma atômica (balance = balance + amount)
	IncrementBalance(ctx context.Context, walletID string, amount decimal.Decimal) error
	AppendTransaction(ctx context.Context, e LedgerEntry) error
}

// Tx é a unidade de trabalho de uma única aposta.
type Tx interface {
	LedgerStore

	// LockBet carrega a aposta com pernas e snapshot das seleções, bloqueando a linha
	// até o fim da transação. Retorna ErrBetNotFound se não existir.
	LockBet(ctx context.Context, betID string) (*Bet, error)
	MarkPartiallySettled(ctx context.Context, betID string) error
	FinalizeBet(ctx context.Context, betID string, status BetStatus, actualWin decimal.Decimal, settledAt time.Time) error
}

// UnitOfWork executa fn dentro de uma transação: commit se fn retornar nil, rollback caso contrário.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type LegStore interface {
	// ResolveLeg muda a perna de PENDING para status; false se ela já não estava PENDING.
	ResolveLeg(ctx context.Context, legID string, status LegStatus) (bool, error)
}

type MarketStore interface {
	LegStore
	ListSelectionsByMarket(ctx context.Context, marketID string) ([]Selection, error)
	ListPendingLegs(ctx context.Context, selectionIDs []string) ([]BetLeg, error)
	// ListOpenBetIDs retorna apostas não terminais com alguma perna já resolvida nessas seleções
	ListOpenBetIDs(ctx context.Context, selectionIDs []string) ([]string, error)
}

type VoidStore interface {
	LegStore
	GetLeg(ctx context.Context, legID string) (*BetLeg, error)
	GetBet(ctx context.Context, betID string) (*Bet, error)
}

type ReportStore interface {
	// ListSettledBets retorna apostas terminais com settledAt em [from, to].
	ListSettledBets(ctx context.Context, from, to time.Time) ([]Bet, error)
}
