package domain

import (
	"time"

	"custody-engine/pkg/apperror"

	"github.com/shopspring/decimal"
)

// WhitelistedToken is a token mint approved for custody, together with its
// on-chain decimals and the precision the trading backend quotes amounts in.
type WhitelistedToken struct {
	Mint      string    `json:"mint"`
	Decimals  uint8     `json:"decimals"`  // on-chain decimal places
	Precision uint8     `json:"precision"` // backend decimal places
	CreatedAt time.Time `json:"created_at"`
}

// NewWhitelistedToken validates and builds a whitelist entry. Zero-decimal
// mints are non-fungible and rejected; the backend precision may never
// exceed the on-chain decimals or the multiplier would underflow.
func NewWhitelistedToken(mint string, decimals, precision uint8) (*WhitelistedToken, error) {
	if decimals == 0 {
		return nil, apperror.ErrNonFungibleToken()
	}
	if decimals < precision {
		return nil, apperror.ErrInvalidTokenPrecision()
	}
	return &WhitelistedToken{
		Mint:      mint,
		Decimals:  decimals,
		Precision: precision,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Multiplier is the integer scale factor converting one backend-precision
// unit into on-chain balance units: 10^(decimals - precision).
func (t *WhitelistedToken) Multiplier() int64 {
	m := int64(1)
	for i := t.Precision; i < t.Decimals; i++ {
		m *= 10
	}
	return m
}

// ToChainUnits scales a backend-precision amount into balance units.
func (t *WhitelistedToken) ToChainUnits(backend int64) int64 {
	return backend * t.Multiplier()
}

// ToBackendUnits is the inverse of ToChainUnits.
func (t *WhitelistedToken) ToBackendUnits(chain int64) int64 {
	return chain / t.Multiplier()
}

// FormatAmount renders a chain-unit amount as a decimal token quantity at
// the backend's precision, e.g. 5000 units of a 9-decimal/6-precision token
// as "0.000005".
func (t *WhitelistedToken) FormatAmount(chain uint64) string {
	return decimal.NewFromUint64(chain).
		Shift(-int32(t.Decimals)).
		StringFixed(int32(t.Precision))
}
