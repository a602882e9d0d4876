package settlement

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// VoidLegProcessor reage à anulação de uma seleção, perna a perna.
type VoidLegProcessor struct {
	Log     *zap.Logger
	Store   VoidStore
	Settler BetSettler
}

func NewVoidLegProcessor(log *zap.Logger, store VoidStore, settler BetSettler) *VoidLegProcessor {
	return &VoidLegProcessor{Log: log, Store: store, Settler: settler}
}

// ProcessVoidLeg marca a perna como VOID e liquida a aposta quando ela fica resolvível.
// Perna já resolvida é no-op.
func (p *VoidLegProcessor) ProcessVoidLeg(ctx context.Context, legID string) error {
	leg, err := p.Store.GetLeg(ctx, legID)
	if err != nil {
		return err
	}
	if leg.Status != LegPending {
		return nil
	}

	updated, err := p.Store.ResolveLeg(ctx, leg.ID, LegVoid)
	if err != nil {
		return fmt.Errorf("void leg %s: %w", leg.ID, err)
	}
	if !updated {
		return nil // outro processo resolveu a perna antes
	}

	bet, err := p.Store.GetBet(ctx, leg.BetID)
	if err != nil {
		return err
	}

	if bet.Type != BetSingle && bet.legsSettled() < len(bet.Legs) {
		p.Log.Debug("leg voided, bet still pending",
			zap.String("betId", bet.ID), zap.String("legId", leg.ID))
		return nil
	}

	if _, err := p.Settler.SettleBet(ctx, bet.ID); err != nil {
		return fmt.Errorf("settle bet %s: %w", bet.ID, err)
	}
	return nil
}
