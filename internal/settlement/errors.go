package settlement

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrBetNotFound = &kindError{msg: "bet not found", kind: ErrNotFound}
	ErrLegNotFound = &kindError{msg: "bet leg not found", kind: ErrNotFound}

	// Pagamento sem carteira/moeda resolvida falha a transação inteira
	ErrPayoutUnresolvable = errors.New("payout unresolvable")
	ErrCurrencyNotFound   = &kindError{msg: "currency not found", kind: ErrPayoutUnresolvable}
	ErrWalletNotFound     = &kindError{msg: "wallet not found", kind: ErrPayoutUnresolvable}

	ErrInvalidBet = errors.New("invalid bet")
)

// kindError agrupa erros específicos sob uma categoria, para errors.Is em ambos.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
