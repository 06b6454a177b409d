package domain

import (
	"time"

	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
)

// DefaultWithdrawalLimit bounds the pending withdrawals per client balance.
// The hard cap keeps queue storage fixed-size and stops an attacker from
// exhausting it with dust withdrawals.
const DefaultWithdrawalLimit = 5

// WithdrawalEntry is one pending withdrawal. While its trade lock is active
// the amount remains recallable as settlement liquidity; only after its
// release lock elapses can it be paid out externally.
type WithdrawalEntry struct {
	Amount    uint64    `json:"amount"`
	LockStart time.Time `json:"lock_start"`
}

// WithdrawalQueue is the ordered, bounded set of pending withdrawals for one
// client balance. ActiveAmount always equals the sum of entry amounts.
type WithdrawalQueue struct {
	Token        string            `json:"token"`
	Client       uuid.UUID         `json:"client"`
	ClientATA    string            `json:"client_ata"`
	Entries      []WithdrawalEntry `json:"entries"`
	ActiveAmount uint64            `json:"active_amount"`
}

// NewWithdrawalQueue creates an empty queue for a client balance.
func NewWithdrawalQueue(token string, client uuid.UUID, clientATA string) *WithdrawalQueue {
	return &WithdrawalQueue{
		Token:     token,
		Client:    client,
		ClientATA: clientATA,
		Entries:   make([]WithdrawalEntry, 0, DefaultWithdrawalLimit),
	}
}

// Push appends a pending withdrawal stamped at now.
func (q *WithdrawalQueue) Push(amount uint64, now time.Time, limit int) error {
	if len(q.Entries) >= limit {
		return apperror.ErrWithdrawalLimitReached()
	}
	q.Entries = append(q.Entries, WithdrawalEntry{Amount: amount, LockStart: now})
	q.ActiveAmount += amount
	return nil
}

// Recallable sums the entries still inside their trade-lock window, i.e.
// the liquidity settlement may still claw back.
func (q *WithdrawalQueue) Recallable(now time.Time, tradeLock time.Duration) uint64 {
	var total uint64
	for _, e := range q.Entries {
		if e.LockStart.Add(tradeLock).After(now) {
			total += e.Amount
		}
	}
	return total
}

// Fund claws back amount from recallable entries, oldest first. Entries are
// consumed front-to-back: fully consumed entries are removed in order,
// a partially consumed entry keeps its position and lock-start.
//
// The recallable total is checked up front, so a failed call leaves the
// queue untouched.
func (q *WithdrawalQueue) Fund(amount uint64, now time.Time, tradeLock time.Duration) error {
	if amount == 0 {
		return nil
	}
	if q.Recallable(now, tradeLock) < amount {
		return apperror.ErrInsufficientFunds()
	}

	funded := uint64(0)
	remaining := make([]WithdrawalEntry, 0, len(q.Entries))
	for _, e := range q.Entries {
		if funded < amount && e.LockStart.Add(tradeLock).After(now) {
			leftToFund := amount - funded
			if e.Amount <= leftToFund {
				funded += e.Amount
				q.ActiveAmount -= e.Amount
				continue // fully consumed, drop from queue
			}
			e.Amount -= leftToFund
			q.ActiveAmount -= leftToFund
			funded = amount
		}
		remaining = append(remaining, e)
	}
	q.Entries = remaining
	return nil
}

// Release removes the entry at index once its release lock has elapsed and
// returns it. The comparison is strict: at exactly lockStart+releaseLock the
// entry is still locked. Later entries shift down one position, so callers
// must not cache indices across releases.
func (q *WithdrawalQueue) Release(index int, now time.Time, releaseLock time.Duration) (WithdrawalEntry, error) {
	if index < 0 || index >= len(q.Entries) {
		return WithdrawalEntry{}, apperror.ErrInvalidIndex()
	}
	e := q.Entries[index]
	if !e.LockStart.Add(releaseLock).Before(now) {
		return WithdrawalEntry{}, apperror.ErrReleaseLockActive()
	}
	q.Entries = append(q.Entries[:index], q.Entries[index+1:]...)
	q.ActiveAmount -= e.Amount
	return e, nil
}

// Consistent reports whether ActiveAmount matches the entry sum.
func (q *WithdrawalQueue) Consistent() bool {
	var sum uint64
	for _, e := range q.Entries {
		sum += e.Amount
	}
	return sum == q.ActiveAmount
}
