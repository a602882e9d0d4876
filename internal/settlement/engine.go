package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// Outbox recebe o evento de aposta liquidada após o commit. Não pode bloquear.
type Outbox interface {
	Enqueue(ev events.BetSettled)
}

// Engine liquida uma aposta por vez, dentro de uma única transação.
// Callbacks de métricas são opcionais
type Engine struct {
	Log    *zap.Logger
	Store  UnitOfWork
	Ledger LedgerWriter
	Outbox Outbox
	Now    func() time.Time

	OnSettled            func(status BetStatus) // métricas (counter por status)
	OnPayoutUnresolvable func()                 // alerta: aposta ganha sem carteira/moeda
}

func NewEngine(log *zap.Logger, store UnitOfWork, outbox Outbox) *Engine {
	return &Engine{Log: log, Store: store, Outbox: outbox, Now: time.Now}
}

// SettleBet resolve a aposta a partir dos status das pernas e credita o payout.
// Em aposta já terminal devolve o resultado armazenado sem nenhum efeito colateral.
func (e *Engine) SettleBet(ctx context.Context, betID string) (Result, error) {
	var (
		res     Result
		settled *Bet
	)

	err := e.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		bet, err := tx.LockBet(ctx, betID)
		if err != nil {
			return err
		}

		// Idempotência: terminal não muda mais
		if bet.Status.Terminal() {
			res = storedResult(bet)
			return nil
		}

		legsSettled := bet.legsSettled()
		if legsSettled < len(bet.Legs) {
			res = Result{BetID: bet.ID, Status: bet.Status, ActualWin: decimal.Zero, LegsSettled: legsSettled}
			if legsSettled == 0 {
				return nil
			}
			if bet.Status != BetPartiallySettled {
				if err := tx.MarkPartiallySettled(ctx, bet.ID); err != nil {
					return fmt.Errorf("mark partially settled: %w", err)
				}
			}
			res.Status = BetPartiallySettled
			return nil
		}

		resolve, err := ResolverFor(bet.Type)
		if err != nil {
			return err
		}
		outcome, err := resolve(legOutcomes(bet.Legs))
		if err != nil {
			return fmt.Errorf("bet %s: %w", bet.ID, err)
		}
		payout := Payout(bet.Stake, outcome)

		now := e.now()
		if err := tx.FinalizeBet(ctx, bet.ID, outcome.Status, payout, now); err != nil {
			return fmt.Errorf("finalize bet: %w", err)
		}

		if payout.IsPositive() {
			if _, err := e.Ledger.Credit(ctx, tx, bet, outcome.Status, payout); err != nil {
				return err
			}
		}
		if outcome.Status == BetLost {
			if _, err := e.Ledger.RecordLoss(ctx, tx, bet); err != nil {
				return err
			}
		}

		bet.Status = outcome.Status
		bet.ActualWin = &payout
		bet.SettledAt = &now
		settled = bet
		res = Result{BetID: bet.ID, Status: outcome.Status, ActualWin: payout, LegsSettled: legsSettled}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPayoutUnresolvable) {
			e.Log.Error("settlement payout unresolvable, rolled back",
				zap.String("betId", betID), zap.Error(err))
			if e.OnPayoutUnresolvable != nil {
				e.OnPayoutUnresolvable()
			}
		}
		return Result{}, err
	}

	if settled != nil {
		e.afterCommit(settled)
	}
	return res, nil
}

// afterCommit dispara fila de recompensas e notificação; falhas aqui não desfazem a liquidação.
func (e *Engine) afterCommit(bet *Bet) {
	e.Log.Info("bet settled",
		zap.String("betId", bet.ID),
		zap.String("userId", bet.UserID),
		zap.String("status", string(bet.Status)),
		zap.String("actualWin", bet.ActualWin.String()),
	)
	if e.OnSettled != nil {
		e.OnSettled(bet.Status)
	}
	if e.Outbox == nil {
		return
	}
	e.Outbox.Enqueue(events.BetSettled{
		BetID:       bet.ID,
		UserID:      bet.UserID,
		Status:      string(bet.Status),
		ActualWin:   *bet.ActualWin,
		Currency:    bet.CurrencySymbol,
		ReferenceID: bet.ReferenceID,
		Timestamp:   *bet.SettledAt,
	})
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

func storedResult(bet *Bet) Result {
	win := decimal.Zero
	if bet.ActualWin != nil {
		win = *bet.ActualWin
	}
	return Result{BetID: bet.ID, Status: bet.Status, ActualWin: win, LegsSettled: bet.legsSettled()}
}

func legOutcomes(legs []BetLeg) []LegOutcome {
	out := make([]LegOutcome, len(legs))
	for i, l := range legs {
		out[i] = LegOutcome{Status: l.Status, Odds: l.OddsAtPlacement}
	}
	return out
}
