package settlement

import (
	"context"
	"errors"
	"testing"
)

func TestLedgerWriter_Credit(t *testing.T) {
	s := newMemStore()
	s.addWallet("u1", "USDT", "w1")
	bet := singleBet("b1", "100", "2.5", LegWon)

	var entry LedgerEntry
	err := s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		entry, err = LedgerWriter{}.Credit(ctx, tx, &bet, BetWon, d("250"))
		return err
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if entry.ID == "" || entry.WalletID == nil || *entry.WalletID != "w1" || entry.Status != "COMPLETED" {
		t.Fatalf("entry=%+v", entry)
	}
	if !entry.Metadata.OriginalOdds.Equal(d("2.5")) {
		t.Fatalf("metadata=%+v", entry.Metadata)
	}
	if !s.balance("w1").Equal(d("250")) {
		t.Fatalf("balance=%s", s.balance("w1"))
	}

	// segundo crédito para a mesma aposta é recusado e desfaz o incremento
	err = s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := LedgerWriter{}.Credit(ctx, tx, &bet, BetVoid, d("100"))
		return err
	})
	if err == nil {
		t.Fatalf("expected duplicate credit error")
	}
	if !s.balance("w1").Equal(d("250")) || len(s.ledger("b1")) != 1 {
		t.Fatalf("duplicate credit leaked: balance=%s", s.balance("w1"))
	}
}

func TestLedgerWriter_VoidIsAdjustment(t *testing.T) {
	s := newMemStore()
	s.addWallet("u1", "USDT", "w1")
	bet := singleBet("b1", "100", "2.5", LegVoid)

	err := s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := LedgerWriter{}.Credit(ctx, tx, &bet, BetVoid, d("100"))
		return err
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if e := s.ledger("b1"); len(e) != 1 || e[0].Type != TxAdjustment {
		t.Fatalf("ledger=%+v", e)
	}
}

func TestLedgerWriter_RecordLossPropagatesStoreErrors(t *testing.T) {
	bet := singleBet("b1", "100", "2.5", LegLost)
	boom := errors.New("boom")
	_, err := LedgerWriter{}.RecordLoss(context.Background(), failingLedger{err: boom}, &bet)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}

type failingLedger struct {
	LedgerStore
	err error
}

func (f failingLedger) CurrencyIDBySymbol(context.Context, string) (string, error) { return "", f.err }
