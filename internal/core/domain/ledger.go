package domain

import (
	"math"
	"time"

	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
)

// Ledger binds an (underlying, strike) token pair to the fixed-point
// multipliers used when settling backend fund movements against it.
// Multipliers are derived once at initialization and never change.
type Ledger struct {
	UnderlyingToken      string    `json:"underlying_token"`
	StrikeToken          string    `json:"strike_token"`
	UnderlyingMultiplier int64     `json:"underlying_multiplier"`
	StrikeMultiplier     int64     `json:"strike_multiplier"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewLedger derives a ledger from two whitelisted tokens.
func NewLedger(underlying, strike *WhitelistedToken) (*Ledger, error) {
	if underlying.Decimals == 0 || strike.Decimals == 0 {
		return nil, apperror.ErrNonFungibleToken()
	}
	if underlying.Decimals < underlying.Precision || strike.Decimals < strike.Precision {
		return nil, apperror.ErrInvalidTokenPrecision()
	}
	return &Ledger{
		UnderlyingToken:      underlying.Mint,
		StrikeToken:          strike.Mint,
		UnderlyingMultiplier: underlying.Multiplier(),
		StrikeMultiplier:     strike.Multiplier(),
		CreatedAt:            time.Now().UTC(),
	}, nil
}

// FundMovement is a backend-declared net change for one client across the
// ledger's two tokens, expressed in backend-native precision. Amounts are
// liabilities to settle: a positive amount becomes a balance decrease.
type FundMovement struct {
	Client           uuid.UUID `json:"client"`
	UnderlyingAmount int64     `json:"underlying_amount"`
	StrikeAmount     int64     `json:"strike_amount"`
}

// LegSpec is one scaled movement leg: the exact signed delta, in chain
// units, that settlement must apply to one client's balance for one token.
type LegSpec struct {
	Client uuid.UUID
	Token  string
	Amount int64
}

// Legs validates a movement batch and expands it into per-token legs.
// Each non-zero amount yields one leg; amounts are scaled by the token's
// multiplier and negated per the backend liability convention.
func (l *Ledger) Legs(movements []FundMovement) ([]LegSpec, error) {
	if len(movements) == 0 {
		return nil, apperror.ErrEmptyFundMovements()
	}
	legs := make([]LegSpec, 0, 2*len(movements))
	for _, fm := range movements {
		if fm.UnderlyingAmount == 0 && fm.StrikeAmount == 0 {
			return nil, apperror.ErrEmptyAmounts()
		}
		if fm.UnderlyingAmount != 0 {
			amount, err := scaleAmount(fm.UnderlyingAmount, l.UnderlyingMultiplier)
			if err != nil {
				return nil, err
			}
			legs = append(legs, LegSpec{
				Client: fm.Client,
				Token:  l.UnderlyingToken,
				Amount: amount,
			})
		}
		if fm.StrikeAmount != 0 {
			amount, err := scaleAmount(fm.StrikeAmount, l.StrikeMultiplier)
			if err != nil {
				return nil, err
			}
			legs = append(legs, LegSpec{
				Client: fm.Client,
				Token:  l.StrikeToken,
				Amount: amount,
			})
		}
	}
	return legs, nil
}

// scaleAmount negates and scales one backend amount into chain units. The
// scaled value must fit in int64; a silent wrap would settle garbage.
func scaleAmount(amount, multiplier int64) (int64, error) {
	if amount == math.MinInt64 {
		return 0, apperror.ErrAmountOverflow()
	}
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	if abs > math.MaxInt64/multiplier {
		return 0, apperror.ErrAmountOverflow()
	}
	return -amount * multiplier, nil
}

// Contract is a derivative contract registered on a ledger. Pricing
// semantics live in the backend; the engine only keys positions by it.
type Contract struct {
	ContractID      uint64    `json:"contract_id"`
	UnderlyingToken string    `json:"underlying_token"`
	StrikeToken     string    `json:"strike_token"`
	CreatedAt       time.Time `json:"created_at"`
}

// Position is one client's size in one contract.
type Position struct {
	ContractID uint64    `json:"contract_id"`
	Client     uuid.UUID `json:"client"`
	Size       uint64    `json:"size"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PositionUpdate is one entry of a position settlement batch.
type PositionUpdate struct {
	Client uuid.UUID `json:"client"`
	Size   uint64    `json:"size"`
}

// SettlementReceipt records a processed settlement batch, keyed by the
// backend-assigned batch identifier so resubmissions are detected.
type SettlementReceipt struct {
	BackendID uint64    `json:"backend_id"`
	Kind      string    `json:"kind"` // fund_movements or positions
	LegCount  int       `json:"leg_count"`
	CreatedAt time.Time `json:"created_at"`
}
