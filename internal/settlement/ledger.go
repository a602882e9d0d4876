package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const txCompleted = "COMPLETED"

// LedgerWriter aplica créditos de liquidação e registra a trilha de auditoria.
// Sempre opera sobre a Tx da aposta; nunca lê-e-escreve saldo fora dela.
type LedgerWriter struct{}

// Credit resolve a carteira (usuário, moeda da aposta), incrementa o saldo e grava o lançamento.
// Moeda ou carteira inexistente é erro: a liquidação inteira volta atrás.
func (LedgerWriter) Credit(ctx context.Context, tx LedgerStore, bet *Bet, status BetStatus, amount decimal.Decimal) (LedgerEntry, error) {
	walletID, err := resolveWallet(ctx, tx, bet)
	if err != nil {
		return LedgerEntry{}, err
	}

	if err := tx.IncrementBalance(ctx, walletID, amount); err != nil {
		return LedgerEntry{}, fmt.Errorf("increment wallet %s: %w", walletID, err)
	}

	typ := TxWin
	if status == BetVoid {
		typ = TxAdjustment
	}
	entry := newEntry(bet, &walletID, typ, amount, status)
	if err := tx.AppendTransaction(ctx, entry); err != nil {
		return LedgerEntry{}, fmt.Errorf("append %s transaction: %w", typ, err)
	}
	return entry, nil
}

// RecordLoss grava o registro BET de valor zero da aposta perdida, sem tocar no saldo.
// Sem carteira resolvida o registro fica sem walletId.
func (LedgerWriter) RecordLoss(ctx context.Context, tx LedgerStore, bet *Bet) (LedgerEntry, error) {
	var walletRef *string
	walletID, err := resolveWallet(ctx, tx, bet)
	switch {
	case err == nil:
		walletRef = &walletID
	case !errors.Is(err, ErrPayoutUnresolvable):
		return LedgerEntry{}, err
	}

	entry := newEntry(bet, walletRef, TxBet, decimal.Zero, BetLost)
	if err := tx.AppendTransaction(ctx, entry); err != nil {
		return LedgerEntry{}, fmt.Errorf("append loss transaction: %w", err)
	}
	return entry, nil
}

func resolveWallet(ctx context.Context, tx LedgerStore, bet *Bet) (string, error) {
	currencyID, err := tx.CurrencyIDBySymbol(ctx, bet.CurrencySymbol)
	if err != nil {
		return "", fmt.Errorf("currency %q: %w", bet.CurrencySymbol, err)
	}
	walletID, err := tx.WalletID(ctx, bet.UserID, currencyID)
	if err != nil {
		return "", fmt.Errorf("wallet user=%s currency=%s: %w", bet.UserID, bet.CurrencySymbol, err)
	}
	return walletID, nil
}

func newEntry(bet *Bet, walletID *string, typ TxType, amount decimal.Decimal, status BetStatus) LedgerEntry {
	return LedgerEntry{
		ID:       uuid.NewString(),
		WalletID: walletID,
		BetID:    bet.ID,
		Type:     typ,
		Amount:   amount,
		Status:   txCompleted,
		Metadata: LedgerMetadata{
			BetID:          bet.ID,
			ReferenceID:    bet.ReferenceID,
			SettlementType: status,
			OriginalStake:  bet.Stake,
			OriginalOdds:   bet.Odds,
		},
	}
}
