package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementReport agrega apostas já liquidadas no intervalo; valores serializam como string.
type SettlementReport struct {
	DateFrom    time.Time         `json:"dateFrom"`
	DateTo      time.Time         `json:"dateTo"`
	TotalBets   int               `json:"totalBets"`
	Counts      map[BetStatus]int `json:"counts"`
	TotalStake  decimal.Decimal   `json:"totalStake"`
	TotalWon    decimal.Decimal   `json:"totalWon"`
	TotalLost   decimal.Decimal   `json:"totalLost"`
	TotalVoid   decimal.Decimal   `json:"totalVoid"`
	TotalPayout decimal.Decimal   `json:"totalPayout"`
	GrossProfit decimal.Decimal   `json:"grossProfit"`
}

type ReportGenerator struct {
	Store ReportStore
}

func NewReportGenerator(store ReportStore) *ReportGenerator {
	return &ReportGenerator{Store: store}
}

// NormalizeRange leva o intervalo para [início do dia de from, fim do dia de to] em UTC.
func NormalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	f := dayStart(from)
	t := dayStart(to).Add(24*time.Hour - time.Nanosecond)
	if f.After(t) {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid range: from %s after to %s",
			f.Format(time.DateOnly), t.Format(time.DateOnly))
	}
	return f, t, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetSettlementReport é somente leitura.
func (g *ReportGenerator) GetSettlementReport(ctx context.Context, dateFrom, dateTo time.Time) (SettlementReport, error) {
	from, to, err := NormalizeRange(dateFrom, dateTo)
	if err != nil {
		return SettlementReport{}, err
	}

	bets, err := g.Store.ListSettledBets(ctx, from, to)
	if err != nil {
		return SettlementReport{}, fmt.Errorf("list settled bets: %w", err)
	}
	return Aggregate(from, to, bets), nil
}

// Aggregate soma stake de todas as apostas e payout por status (void devolve o stake).
func Aggregate(from, to time.Time, bets []Bet) SettlementReport {
	r := SettlementReport{
		DateFrom:    from,
		DateTo:      to,
		Counts:      map[BetStatus]int{BetWon: 0, BetLost: 0, BetVoid: 0, BetCashout: 0},
		TotalStake:  decimal.Zero,
		TotalWon:    decimal.Zero,
		TotalLost:   decimal.Zero,
		TotalVoid:   decimal.Zero,
		TotalPayout: decimal.Zero,
	}

	for _, b := range bets {
		win := decimal.Zero
		if b.ActualWin != nil {
			win = *b.ActualWin
		}

		switch b.Status {
		case BetWon:
			r.TotalWon = r.TotalWon.Add(win)
			r.TotalPayout = r.TotalPayout.Add(win)
		case BetLost:
			r.TotalLost = r.TotalLost.Add(b.Stake)
		case BetVoid:
			r.TotalVoid = r.TotalVoid.Add(b.Stake)
			r.TotalPayout = r.TotalPayout.Add(b.Stake)
		case BetCashout:
			r.TotalPayout = r.TotalPayout.Add(win)
		default:
			continue // não terminal não entra no relatório
		}
		r.TotalBets++
		r.Counts[b.Status]++
		r.TotalStake = r.TotalStake.Add(b.Stake)
	}

	r.GrossProfit = r.TotalStake.Sub(r.TotalPayout)
	return r
}
