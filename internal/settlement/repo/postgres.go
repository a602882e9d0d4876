package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
)

// Postgres implementa o store da liquidação em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de liquidação
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	_ settlement.UnitOfWork  = (*Postgres)(nil)
	_ settlement.MarketStore = (*Postgres)(nil)
	_ settlement.VoidStore   = (*Postgres)(nil)
	_ settlement.ReportStore = (*Postgres)(nil)
)

// InTx abre a transação da aposta; commit se fn retornar nil, rollback caso contrário
func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx settlement.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer é comum a *sql.DB e *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const betColumns = `id, user_id, type, stake, currency_symbol, odds, status, actual_win, settled_at, is_cashout_available, reference_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(s rowScanner) (*settlement.Bet, error) {
	var (
		b         settlement.Bet
		typ, st   string
		actualWin decimal.NullDecimal
		settledAt sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.UserID, &typ, &b.Stake, &b.CurrencySymbol, &b.Odds, &st,
		&actualWin, &settledAt, &b.IsCashoutAvailable, &b.ReferenceID); err != nil {
		return nil, err
	}
	b.Type = settlement.BetType(typ)
	b.Status = settlement.BetStatus(st)
	if actualWin.Valid {
		b.ActualWin = &actualWin.Decimal
	}
	if settledAt.Valid {
		t := settledAt.Time.UTC()
		b.SettledAt = &t
	}
	return &b, nil
}

// loadBet lê a aposta e suas pernas com o snapshot da seleção; lock=true usa FOR UPDATE na aposta
func loadBet(ctx context.Context, q queryer, betID string, lock bool) (*settlement.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id=$1`
	if lock {
		query += ` FOR UPDATE`
	}
	bet, err := scanBet(q.QueryRowContext(ctx, query, betID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bet %s: %w", betID, settlement.ErrBetNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT l.id, l.bet_id, l.selection_id, l.odds_at_placement, l.status,
		       s.id, s.market_id, s.status, s.result
		FROM bet_legs l
		LEFT JOIN selections s ON s.id = l.selection_id
		WHERE l.bet_id=$1
		ORDER BY l.id`, betID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l                           settlement.BetLeg
			st                          string
			selID, selMarket, selStatus sql.NullString
			selResult                   sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.BetID, &l.SelectionID, &l.OddsAtPlacement, &st,
			&selID, &selMarket, &selStatus, &selResult); err != nil {
			return nil, err
		}
		l.Status = settlement.LegStatus(st)
		if selID.Valid {
			l.Selection = &settlement.Selection{
				ID:       selID.String,
				MarketID: selMarket.String,
				Status:   selStatus.String,
				Result:   nullString(selResult),
			}
		}
		bet.Legs = append(bet.Legs, l)
	}
	return bet, rows.Err()
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// GetBet lê a aposta (sem lock) com todas as pernas
func (p *Postgres) GetBet(ctx context.Context, betID string) (*settlement.Bet, error) {
	return loadBet(ctx, p.db, betID, false)
}

func (p *Postgres) GetLeg(ctx context.Context, legID string) (*settlement.BetLeg, error) {
	var (
		l  settlement.BetLeg
		st string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, bet_id, selection_id, odds_at_placement, status FROM bet_legs WHERE id=$1`, legID).
		Scan(&l.ID, &l.BetID, &l.SelectionID, &l.OddsAtPlacement, &st)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leg %s: %w", legID, settlement.ErrLegNotFound)
	}
	if err != nil {
		return nil, err
	}
	l.Status = settlement.LegStatus(st)
	return &l, nil
}

// ResolveLeg só altera pernas PENDING, o que torna a atualização idempotente
func (p *Postgres) ResolveLeg(ctx context.Context, legID string, status settlement.LegStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE bet_legs SET status=$1, updated_at=NOW() WHERE id=$2 AND status='PENDING'`,
		string(status), legID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) ListSelectionsByMarket(ctx context.Context, marketID string) ([]settlement.Selection, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, market_id, status, result FROM selections WHERE market_id=$1 ORDER BY id`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.Selection
	for rows.Next() {
		var (
			s      settlement.Selection
			result sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.MarketID, &s.Status, &result); err != nil {
			return nil, err
		}
		s.Result = nullString(result)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListPendingLegs(ctx context.Context, selectionIDs []string) ([]settlement.BetLeg, error) {
	if len(selectionIDs) == 0 {
		return nil, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, bet_id, selection_id, odds_at_placement, status
		FROM bet_legs
		WHERE selection_id = ANY($1) AND status='PENDING'
		ORDER BY bet_id, id`, pq.Array(selectionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.BetLeg
	for rows.Next() {
		var (
			l  settlement.BetLeg
			st string
		)
		if err := rows.Scan(&l.ID, &l.BetID, &l.SelectionID, &l.OddsAtPlacement, &st); err != nil {
			return nil, err
		}
		l.Status = settlement.LegStatus(st)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListOpenBetIDs cobre a reexecução após queda entre a atualização das pernas e a liquidação
func (p *Postgres) ListOpenBetIDs(ctx context.Context, selectionIDs []string) ([]string, error) {
	if len(selectionIDs) == 0 {
		return nil, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT b.id
		FROM bets b
		JOIN bet_legs l ON l.bet_id = b.id
		WHERE l.selection_id = ANY($1)
		  AND l.status <> 'PENDING'
		  AND b.status IN ('PENDING','PARTIALLY_SETTLED')
		ORDER BY b.id`, pq.Array(selectionIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var terminalStatuses = []string{
	string(settlement.BetWon), string(settlement.BetLost),
	string(settlement.BetVoid), string(settlement.BetCashout),
}

// ListSettledBets lê em transação READ ONLY para um snapshot consistente
func (p *Postgres) ListSettledBets(ctx context.Context, from, to time.Time) ([]settlement.Bet, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE settled_at BETWEEN $1 AND $2 AND status = ANY($3)
		ORDER BY settled_at, id`, from, to, pq.Array(terminalStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
