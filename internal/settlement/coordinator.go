package settlement

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BetSettler é o contrato do Engine consumido pelo fan-out e pelo processador de void.
type BetSettler interface {
	SettleBet(ctx context.Context, betID string) (Result, error)
}

// BetOutcome é o resultado individual de uma aposta no fan-out; Error vazio = sucesso.
type BetOutcome struct {
	BetID  string  `json:"betId"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type MarketSummary struct {
	MarketID      string       `json:"marketId"`
	LegsUpdated   int          `json:"legsUpdated"`
	BetsSettled   int          `json:"betsSettled"`   // apostas que chegaram a WON/LOST/VOID
	BetsRecovered int          `json:"betsRecovered"` // apostas abertas de uma execução anterior interrompida
	Results       []BetOutcome `json:"results"`
}

// Coordinator aplica os resultados de um mercado nas pernas pendentes e liquida cada aposta afetada.
// Falha de uma aposta é registrada e isolada; as demais seguem.
type Coordinator struct {
	Log     *zap.Logger
	Store   MarketStore
	Settler BetSettler
	Workers int // 1 = sequencial; >1 liquida apostas distintas em paralelo

	OnBetFailed func() // métricas
}

func NewCoordinator(log *zap.Logger, store MarketStore, settler BetSettler, workers int) *Coordinator {
	return &Coordinator{Log: log, Store: store, Settler: settler, Workers: workers}
}

// SettleMarketBets é seguro para reexecução: pernas já resolvidas não voltam como PENDING
// e apostas terminais são no-op no Engine. Apostas ainda abertas com pernas já resolvidas
// neste mercado (queda entre a atualização das pernas e a liquidação) entram de novo no lote.
func (c *Coordinator) SettleMarketBets(ctx context.Context, marketID string) (MarketSummary, error) {
	sum := MarketSummary{MarketID: marketID, Results: []BetOutcome{}}

	selections, err := c.Store.ListSelectionsByMarket(ctx, marketID)
	if err != nil {
		return sum, fmt.Errorf("list selections: %w", err)
	}
	if len(selections) == 0 {
		return sum, nil
	}

	byID := make(map[string]Selection, len(selections))
	ids := make([]string, 0, len(selections))
	for _, s := range selections {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	legs, err := c.Store.ListPendingLegs(ctx, ids)
	if err != nil {
		return sum, fmt.Errorf("list pending legs: %w", err)
	}

	// Mapeia resultado -> status da perna, preservando a ordem de descoberta das apostas
	var betIDs []string
	seen := make(map[string]struct{})
	for _, leg := range legs {
		st, ok := LegStatusFromResult(byID[leg.SelectionID].Result)
		if !ok {
			continue // sem resultado (ou código desconhecido): perna segue PENDING
		}
		updated, err := c.Store.ResolveLeg(ctx, leg.ID, st)
		if err != nil {
			return sum, fmt.Errorf("resolve leg %s: %w", leg.ID, err)
		}
		if !updated {
			continue
		}
		sum.LegsUpdated++
		if _, dup := seen[leg.BetID]; !dup {
			seen[leg.BetID] = struct{}{}
			betIDs = append(betIDs, leg.BetID)
		}
	}

	open, err := c.Store.ListOpenBetIDs(ctx, ids)
	if err != nil {
		return sum, fmt.Errorf("list open bets: %w", err)
	}
	for _, id := range open {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		betIDs = append(betIDs, id)
		sum.BetsRecovered++
	}

	sum.Results = c.settleAll(ctx, betIDs)
	for _, o := range sum.Results {
		if o.Result != nil && o.Result.Status.Terminal() {
			sum.BetsSettled++
		}
	}

	c.Log.Info("market settled",
		zap.String("marketId", marketID),
		zap.Int("legsUpdated", sum.LegsUpdated),
		zap.Int("betsAffected", len(betIDs)),
		zap.Int("betsRecovered", sum.BetsRecovered),
		zap.Int("betsSettled", sum.BetsSettled),
	)
	return sum, nil
}

// settleAll liquida cada aposta; o índice do resultado acompanha a ordem de betIDs.
// Créditos na mesma carteira são serializados pelo incremento atômico do banco.
func (c *Coordinator) settleAll(ctx context.Context, betIDs []string) []BetOutcome {
	out := make([]BetOutcome, len(betIDs))

	var g errgroup.Group
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, id := range betIDs {
		i, id := i, id
		g.Go(func() error {
			out[i] = c.settleOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Coordinator) settleOne(ctx context.Context, betID string) BetOutcome {
	res, err := c.Settler.SettleBet(ctx, betID)
	if err != nil {
		c.Log.Error("bet settlement failed", zap.String("betId", betID), zap.Error(err))
		if c.OnBetFailed != nil {
			c.OnBetFailed()
		}
		return BetOutcome{BetID: betID, Error: err.Error()}
	}
	return BetOutcome{BetID: betID, Result: &res}
}
