package domain

import (
	"time"

	"custody-engine/pkg/apperror"
)

// SettlementLeg pairs one scaled movement leg with the balance and queue
// records the caller asserts belong to it. The records are caller-supplied
// account references resolved by the service layer; ValidateLegs cross-checks
// them against the leg before anything is mutated.
type SettlementLeg struct {
	Spec    LegSpec
	Balance *ClientBalance
	Queue   *WithdrawalQueue
}

// ValidateLegs enforces the structural batch invariants: every leg carries
// both records, and each record's stored identities match the identities
// the movement list implies for that position. A single mismatch rejects
// the whole batch before any balance is touched.
func ValidateLegs(legs []SettlementLeg) error {
	if len(legs) == 0 {
		return apperror.ErrInvalidAccountsAmount()
	}
	for i := range legs {
		leg := &legs[i]
		if leg.Balance == nil || leg.Queue == nil {
			return apperror.ErrInvalidAccountsAmount()
		}
		if leg.Balance.Token != leg.Spec.Token || leg.Balance.Client != leg.Spec.Client {
			return apperror.ErrAccountOrderViolated()
		}
		if leg.Queue.Token != leg.Spec.Token || leg.Queue.Client != leg.Spec.Client {
			return apperror.ErrAccountOrderViolated()
		}
	}
	return nil
}

// ApplyLegs validates the batch and then applies every leg in order.
// A credit or a covered debit hits the free balance directly; a debit the
// free balance cannot cover zeroes the balance and claws the shortfall back
// from the leg's withdrawal queue. Any leg that cannot be funded fails the
// whole batch.
func ApplyLegs(legs []SettlementLeg, tradeLock time.Duration, now time.Time) error {
	if err := ValidateLegs(legs); err != nil {
		return err
	}
	for i := range legs {
		if err := applyLeg(&legs[i], tradeLock, now); err != nil {
			return err
		}
	}
	return nil
}

func applyLeg(leg *SettlementLeg, tradeLock time.Duration, now time.Time) error {
	delta := leg.Spec.Amount
	bal := leg.Balance

	if delta >= 0 {
		bal.Amount += uint64(delta)
		return nil
	}

	debit := uint64(-delta)
	if bal.Amount >= debit {
		bal.Amount -= debit
		return nil
	}

	shortfall := debit - bal.Amount
	bal.Amount = 0
	return leg.Queue.Fund(shortfall, now, tradeLock)
}
