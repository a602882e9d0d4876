package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

// pgTx é a unidade de trabalho de uma aposta: lock da aposta, crédito e ledger na mesma transação
type pgTx struct{ tx *sql.Tx }

var _ settlement.Tx = (*pgTx)(nil)

// LockBet garante lock pessimista na linha da aposta até o commit;
// uma segunda liquidação concorrente espera e então enxerga o status terminal
func (t *pgTx) LockBet(ctx context.Context, betID string) (*settlement.Bet, error) {
	return loadBet(ctx, t.tx, betID, true)
}

func (t *pgTx) MarkPartiallySettled(ctx context.Context, betID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`,
		string(settlement.BetPartiallySettled), betID)
	return err
}

func (t *pgTx) FinalizeBet(ctx context.Context, betID string, status settlement.BetStatus, actualWin decimal.Decimal, settledAt time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets
		SET status=$1, actual_win=$2, settled_at=$3, is_cashout_available=FALSE, updated_at=NOW()
		WHERE id=$4 AND status NOT IN ('WON','LOST','VOID','CASHOUT')`,
		string(status), actualWin, settledAt, betID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("bet %s already terminal", betID)
	}
	return nil
}

func (t *pgTx) CurrencyIDBySymbol(ctx context.Context, symbol string) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM currencies WHERE symbol=$1`, symbol).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", settlement.ErrCurrencyNotFound
	}
	return id, err
}

func (t *pgTx) WalletID(ctx context.Context, userID, currencyID string) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM wallets WHERE user_id=$1 AND currency_id=$2`, userID, currencyID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", settlement.ErrWalletNotFound
	}
	return id, err
}

// IncrementBalance nunca lê o saldo: o UPDATE atômico serializa créditos concorrentes na mesma carteira
func (t *pgTx) IncrementBalance(ctx context.Context, walletID string, amount decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1, version = version + 1 WHERE id=$2`, amount, walletID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return settlement.ErrWalletNotFound
	}
	return nil
}

// AppendTransaction insere no ledger; o índice único por crédito de aposta é a última barreira
// contra pagamento duplo
func (t *pgTx) AppendTransaction(ctx context.Context, e settlement.LedgerEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, wallet_id, bet_id, type, amount, status, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		e.ID, e.WalletID, e.BetID, string(e.Type), e.Amount, e.Status, meta)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("duplicate settlement credit for bet %s: %w", e.BetID, err)
	}
	return err
}
