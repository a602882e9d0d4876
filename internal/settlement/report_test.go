package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func settledBet(id string, st BetStatus, stake, win string, at time.Time) Bet {
	w := d(win)
	return Bet{ID: id, UserID: "u1", Type: BetSingle, Stake: d(stake), CurrencySymbol: "USDT", Status: st, ActualWin: &w, SettledAt: &at}
}

func TestNormalizeRange(t *testing.T) {
	from := time.Date(2026, 5, 1, 15, 4, 0, 0, time.UTC)
	to := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)

	f, tt, err := NormalizeRange(from, to)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !f.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from=%s", f)
	}
	if !tt.Equal(time.Date(2026, 5, 3, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("to=%s", tt)
	}

	// mesmo dia cobre o dia inteiro
	f, tt, err = NormalizeRange(to, to)
	if err != nil || tt.Sub(f) != 24*time.Hour-time.Nanosecond {
		t.Fatalf("same day: %s..%s err=%v", f, tt, err)
	}

	if _, _, err := NormalizeRange(to, from); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestAggregate(t *testing.T) {
	at := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	bets := []Bet{
		settledBet("w", BetWon, "100", "250", at),
		settledBet("l", BetLost, "50", "0", at),
		settledBet("v", BetVoid, "20", "20", at),
		settledBet("c", BetCashout, "30", "45", at),
		{ID: "p", Stake: d("999"), Status: BetPartiallySettled},
	}
	r := Aggregate(at, at, bets)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"totalStake", r.TotalStake, "200"},
		{"totalWon", r.TotalWon, "250"},
		{"totalLost", r.TotalLost, "50"},
		{"totalVoid", r.TotalVoid, "20"},
		{"totalPayout", r.TotalPayout, "315"},
		{"grossProfit", r.GrossProfit, "-115"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s=%s want %s", c.name, c.got, c.want)
		}
	}
	if r.TotalBets != 4 || r.Counts[BetWon] != 1 || r.Counts[BetCashout] != 1 {
		t.Fatalf("counts=%v total=%d", r.Counts, r.TotalBets)
	}
	if _, ok := r.Counts[BetPartiallySettled]; ok {
		t.Fatalf("non-terminal status must not be counted")
	}

	// totalPayout == totalWon + totalVoid + cashouts
	if !r.TotalPayout.Equal(r.TotalWon.Add(r.TotalVoid).Add(d("45"))) {
		t.Fatalf("payout invariant broken")
	}
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(time.Time{}, time.Time{}, nil)
	if r.TotalBets != 0 || !r.TotalPayout.IsZero() || !r.GrossProfit.IsZero() || r.Counts[BetWon] != 0 {
		t.Fatalf("report=%+v", r)
	}
}

func TestGetSettlementReport(t *testing.T) {
	s := newMemStore()
	s.addWallet("u1", "USDT", "w1")
	s.addBet(singleBet("won", "100", "2.5", LegWon))
	s.addBet(singleBet("lost", "50", "2.5", LegLost))
	s.addBet(singleBet("open", "10", "2.5", LegPending))
	e, _ := newTestEngine(s)
	for _, id := range []string{"won", "lost", "open"} {
		if _, err := e.SettleBet(context.Background(), id); err != nil {
			t.Fatalf("settle %s: %v", id, err)
		}
	}

	g := NewReportGenerator(s)
	r, err := g.GetSettlementReport(context.Background(), fixedNow, fixedNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if r.TotalBets != 2 || !r.TotalStake.Equal(d("150")) || !r.TotalPayout.Equal(d("250")) || !r.GrossProfit.Equal(d("-100")) {
		t.Fatalf("report=%+v", r)
	}

	// dia seguinte: nada liquidado
	next := fixedNow.Add(24 * time.Hour)
	r, err = g.GetSettlementReport(context.Background(), next, next)
	if err != nil || r.TotalBets != 0 {
		t.Fatalf("next day report=%+v err=%v", r, err)
	}
}
