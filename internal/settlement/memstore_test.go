package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// memStore é uma implementação em memória dos stores usada só nos testes.
// InTx segura o mutex durante toda a transação (equivalente ao lock da linha da aposta)
// e trabalha numa cópia, descartada em caso de erro.
type memStore struct {
	mu sync.Mutex
	d  *memData

	lockErr map[string]error // erro forçado em LockBet por aposta
}

type memData struct {
	bets       map[string]*Bet // sem pernas; pernas ficam em legs
	legs       map[string]*BetLeg
	selections map[string]Selection
	currencies map[string]string // symbol -> id
	wallets    map[string]string // userID|currencyID -> walletID
	balances   map[string]decimal.Decimal
	txs        []LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{
		d: &memData{
			bets:       map[string]*Bet{},
			legs:       map[string]*BetLeg{},
			selections: map[string]Selection{},
			currencies: map[string]string{},
			wallets:    map[string]string{},
			balances:   map[string]decimal.Decimal{},
		},
		lockErr: map[string]error{},
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		bets:       make(map[string]*Bet, len(d.bets)),
		legs:       make(map[string]*BetLeg, len(d.legs)),
		selections: make(map[string]Selection, len(d.selections)),
		currencies: make(map[string]string, len(d.currencies)),
		wallets:    make(map[string]string, len(d.wallets)),
		balances:   make(map[string]decimal.Decimal, len(d.balances)),
		txs:        append([]LedgerEntry(nil), d.txs...),
	}
	for k, v := range d.bets {
		b := *v
		c.bets[k] = &b
	}
	for k, v := range d.legs {
		l := *v
		c.legs[k] = &l
	}
	for k, v := range d.selections {
		c.selections[k] = v
	}
	for k, v := range d.currencies {
		c.currencies[k] = v
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.balances {
		c.balances[k] = v
	}
	return c
}

// --- fixtures ---

func (s *memStore) addWallet(userID, symbol, walletID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.d.currencies[symbol]
	if !ok {
		cur = "cur-" + symbol
		s.d.currencies[symbol] = cur
	}
	s.d.wallets[userID+"|"+cur] = walletID
	s.d.balances[walletID] = decimal.Zero
}

func (s *memStore) addSelection(id, marketID string, result *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.selections[id] = Selection{ID: id, MarketID: marketID, Status: "SETTLED", Result: result}
}

// addBet grava a aposta e as pernas; pernas herdam o BetID.
func (s *memStore) addBet(b Bet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	legs := b.Legs
	b.Legs = nil
	if b.Status == "" {
		b.Status = BetPending
	}
	b.IsCashoutAvailable = true
	s.d.bets[b.ID] = &b
	for _, l := range legs {
		l := l
		l.BetID = b.ID
		if l.Status == "" {
			l.Status = LegPending
		}
		s.d.legs[l.ID] = &l
	}
}

func (s *memStore) balance(walletID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.balances[walletID]
}

func (s *memStore) ledger(betID string) []LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LedgerEntry
	for _, e := range s.d.txs {
		if e.BetID == betID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) bet(betID string) Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.d.betWithLegs(betID)
}

func (s *memStore) leg(legID string) BetLeg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.d.legs[legID]
}

func (d *memData) betWithLegs(betID string) *Bet {
	b, ok := d.bets[betID]
	if !ok {
		return nil
	}
	out := *b
	out.Legs = nil
	for _, l := range d.legs {
		if l.BetID == betID {
			leg := *l
			if sel, ok := d.selections[l.SelectionID]; ok {
				leg.Selection = &sel
			}
			out.Legs = append(out.Legs, leg)
		}
	}
	sort.Slice(out.Legs, func(i, j int) bool { return out.Legs[i].ID < out.Legs[j].ID })
	return &out
}

// --- UnitOfWork ---

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.d.clone()
	if err := fn(ctx, &memTx{d: work, lockErr: s.lockErr}); err != nil {
		return err // rollback: cópia descartada
	}
	s.d = work
	return nil
}

type memTx struct {
	d       *memData
	lockErr map[string]error
}

func (t *memTx) LockBet(_ context.Context, betID string) (*Bet, error) {
	if err := t.lockErr[betID]; err != nil {
		return nil, err
	}
	b := t.d.betWithLegs(betID)
	if b == nil {
		return nil, fmt.Errorf("bet %s: %w", betID, ErrBetNotFound)
	}
	return b, nil
}

func (t *memTx) MarkPartiallySettled(_ context.Context, betID string) error {
	t.d.bets[betID].Status = BetPartiallySettled
	return nil
}

func (t *memTx) FinalizeBet(_ context.Context, betID string, status BetStatus, actualWin decimal.Decimal, settledAt time.Time) error {
	b := t.d.bets[betID]
	if b.Status.Terminal() {
		return fmt.Errorf("bet %s already terminal", betID)
	}
	b.Status = status
	b.ActualWin = &actualWin
	b.SettledAt = &settledAt
	b.IsCashoutAvailable = false
	return nil
}

func (t *memTx) CurrencyIDBySymbol(_ context.Context, symbol string) (string, error) {
	id, ok := t.d.currencies[symbol]
	if !ok {
		return "", ErrCurrencyNotFound
	}
	return id, nil
}

func (t *memTx) WalletID(_ context.Context, userID, currencyID string) (string, error) {
	id, ok := t.d.wallets[userID+"|"+currencyID]
	if !ok {
		return "", ErrWalletNotFound
	}
	return id, nil
}

func (t *memTx) IncrementBalance(_ context.Context, walletID string, amount decimal.Decimal) error {
	bal, ok := t.d.balances[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	t.d.balances[walletID] = bal.Add(amount)
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, e LedgerEntry) error {
	if e.Type == TxWin || e.Type == TxAdjustment {
		for _, x := range t.d.txs {
			if x.BetID == e.BetID && (x.Type == TxWin || x.Type == TxAdjustment) {
				return errors.New("duplicate settlement credit")
			}
		}
	}
	t.d.txs = append(t.d.txs, e)
	return nil
}

// --- MarketStore / VoidStore / ReportStore ---

func (s *memStore) ResolveLeg(_ context.Context, legID string, status LegStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.d.legs[legID]
	if !ok || l.Status != LegPending {
		return false, nil
	}
	l.Status = status
	return true, nil
}

func (s *memStore) ListSelectionsByMarket(_ context.Context, marketID string) ([]Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Selection
	for _, sel := range s.d.selections {
		if sel.MarketID == marketID {
			out = append(out, sel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListPendingLegs(_ context.Context, selectionIDs []string) ([]BetLeg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := toSet(selectionIDs)
	var out []BetLeg
	for _, l := range s.d.legs {
		if _, ok := in[l.SelectionID]; ok && l.Status == LegPending {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BetID != out[j].BetID {
			return out[i].BetID < out[j].BetID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) ListOpenBetIDs(_ context.Context, selectionIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := toSet(selectionIDs)
	seen := map[string]struct{}{}
	var out []string
	for _, l := range s.d.legs {
		if _, ok := in[l.SelectionID]; !ok || l.Status == LegPending {
			continue
		}
		b := s.d.bets[l.BetID]
		if b.Status.Terminal() {
			continue
		}
		if _, dup := seen[b.ID]; !dup {
			seen[b.ID] = struct{}{}
			out = append(out, b.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) GetLeg(_ context.Context, legID string) (*BetLeg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.d.legs[legID]
	if !ok {
		return nil, fmt.Errorf("leg %s: %w", legID, ErrLegNotFound)
	}
	out := *l
	return &out, nil
}

func (s *memStore) GetBet(_ context.Context, betID string) (*Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.d.betWithLegs(betID)
	if b == nil {
		return nil, fmt.Errorf("bet %s: %w", betID, ErrBetNotFound)
	}
	return b, nil
}

func (s *memStore) ListSettledBets(_ context.Context, from, to time.Time) ([]Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Bet
	for _, b := range s.d.bets {
		if !b.Status.Terminal() || b.SettledAt == nil {
			continue
		}
		if b.SettledAt.Before(from) || b.SettledAt.After(to) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// recordingOutbox guarda os eventos enfileirados após o commit.
type recordingOutbox struct {
	mu     sync.Mutex
	events []string // betId:status
}

func (o *recordingOutbox) Enqueue(ev events.BetSettled) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev.BetID+":"+ev.Status)
}

func (o *recordingOutbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}
