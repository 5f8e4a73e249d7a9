// Package money implements the Money value object: an amount in integer
// minor units (cents) plus an ISO-4217 currency code. Every operation
// returns a new value; none mutates its receiver.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCurrencyMismatch is returned when an operation combines two Money
// values with different currencies.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// ErrNegativeAmount is returned by New when amount is negative.
var ErrNegativeAmount = errors.New("money: amount must be non-negative")

// ErrInvalidCurrency is returned by New when currency is not a 3-letter code.
var ErrInvalidCurrency = errors.New("money: currency must be a 3-letter ISO-4217 code")

// Money is an immutable amount-plus-currency value.
type Money struct {
	amount   int64 // minor units, e.g. cents
	currency string
}

// New constructs a Money, validating amount and currency.
func New(amount int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	for _, c := range currency {
		if c < 'A' || c > 'Z' {
			return Money{}, ErrInvalidCurrency
		}
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNew is New but panics on error; for use with compile-time-known
// constants in tests and fixtures.
func MustNew(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-valued Money in the given currency.
func Zero(currency string) Money {
	return MustNew(0, currency)
}

// Amount returns the minor-unit amount.
func (m Money) Amount() int64 { return m.amount }

// Currency returns the ISO-4217 currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount == 0 }

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// Add returns m + other. Both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns m - other. Both must share a currency; the result is
// never negative — subtracting more than m holds is an error.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if other.amount > m.amount {
		return Money{}, fmt.Errorf("money: subtraction would go negative (%d - %d)", m.amount, other.amount)
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Multiply returns m * factor. factor must be non-negative.
func (m Money) Multiply(factor int64) (Money, error) {
	if factor < 0 {
		return Money{}, errors.New("money: multiply factor must be non-negative")
	}
	return Money{amount: m.amount * factor, currency: m.currency}, nil
}

// Compare returns -1, 0, or 1 as m is less than, equal to, or greater
// than other. Both must share a currency.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports whether m and other have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// String renders the amount as a fixed-point decimal, e.g. "29.99 USD".
func (m Money) String() string {
	whole := m.amount / 100
	frac := m.amount % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, m.currency)
}

type moneyJSON struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON renders Money as {"amount": ..., "currency": ...}; the
// unexported fields would otherwise marshal as an empty object.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON reads back the shape MarshalJSON produces, validating
// amount and currency the same way New does.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
