package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one  = decimal.NewFromInt(1)
	half = decimal.New(5, -1) // 0.5 exato
)

// LegOutcome é a entrada das estratégias de resolução: status final e odd da perna.
type LegOutcome struct {
	Status LegStatus
	Odds   decimal.Decimal
}

// Outcome é o resultado de uma estratégia: payout = stake * Multiplier.
type Outcome struct {
	Status     BetStatus
	Multiplier decimal.Decimal
}

// legEffect descreve o efeito de um status de perna sobre a odd combinada.
type legEffect struct {
	multiplier func(odds decimal.Decimal) decimal.Decimal
	void       bool // neutraliza a perna (push incluso)
	fullLoss   bool
}

var legEffects = map[LegStatus]legEffect{
	LegWon: {multiplier: func(o decimal.Decimal) decimal.Decimal { return o }},
	LegLost: {
		multiplier: func(decimal.Decimal) decimal.Decimal { return decimal.Zero },
		fullLoss:   true,
	},
	LegVoid: {multiplier: func(decimal.Decimal) decimal.Decimal { return one }, void: true},
	LegPush: {multiplier: func(decimal.Decimal) decimal.Decimal { return one }, void: true},
	LegHalfWin: {multiplier: func(o decimal.Decimal) decimal.Decimal {
		return one.Add(o.Sub(one).Mul(half))
	}},
	LegHalfLose: {multiplier: func(decimal.Decimal) decimal.Decimal { return half }},
}

// singleStatus é o status da aposta simples derivado do status da única perna.
var singleStatus = map[LegStatus]BetStatus{
	LegWon:      BetWon,
	LegLost:     BetLost,
	LegVoid:     BetVoid,
	LegPush:     BetVoid,
	LegHalfWin:  BetWon,
	LegHalfLose: BetLost,
}

// Resolver é a estratégia de resolução de um tipo de aposta.
type Resolver func(legs []LegOutcome) (Outcome, error)

var resolvers = map[BetType]Resolver{
	BetSingle: ResolveSingle,
	BetParlay: ResolveCombined,
	BetSystem: ResolveCombined,
}

// ResolverFor retorna a estratégia do tipo de aposta.
func ResolverFor(t BetType) (Resolver, error) {
	r, ok := resolvers[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown bet type %q", ErrInvalidBet, t)
	}
	return r, nil
}

func ResolveSingle(legs []LegOutcome) (Outcome, error) {
	if len(legs) != 1 {
		return Outcome{}, fmt.Errorf("%w: single bet with %d legs", ErrInvalidBet, len(legs))
	}
	leg := legs[0]
	eff, ok := legEffects[leg.Status]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unresolved leg status %q", ErrInvalidBet, leg.Status)
	}
	return Outcome{Status: singleStatus[leg.Status], Multiplier: eff.multiplier(leg.Odds)}, nil
}

// ResolveCombined resolve múltiplas (PARLAY) e sistemas (SYSTEM), que aqui seguem a mesma regra.
// Pernas anuladas valem 1; meia-derrota entra como 0.5 na odd combinada e, sem derrota cheia,
// a aposta ainda é WON.
func ResolveCombined(legs []LegOutcome) (Outcome, error) {
	if len(legs) == 0 {
		return Outcome{}, fmt.Errorf("%w: combined bet without legs", ErrInvalidBet)
	}

	combined := one
	voids := 0
	fullLoss := false
	for _, leg := range legs {
		eff, ok := legEffects[leg.Status]
		if !ok {
			return Outcome{}, fmt.Errorf("%w: unresolved leg status %q", ErrInvalidBet, leg.Status)
		}
		if eff.void {
			voids++
		}
		if eff.fullLoss {
			fullLoss = true
			continue
		}
		combined = combined.Mul(eff.multiplier(leg.Odds))
	}

	switch {
	case voids == len(legs):
		return Outcome{Status: BetVoid, Multiplier: one}, nil
	case fullLoss:
		return Outcome{Status: BetLost, Multiplier: decimal.Zero}, nil
	default:
		return Outcome{Status: BetWon, Multiplier: combined}, nil
	}
}

// Payout aplica o multiplicador ao stake na escala monetária.
func Payout(stake decimal.Decimal, o Outcome) decimal.Decimal {
	return stake.Mul(o.Multiplier).RoundBank(MoneyScale)
}
