package domain

import "time"

// Fundlock is the vault-wide lock configuration. Immutable once initialized.
//
// TradeLock: how long a pending withdrawal remains recallable as settlement
// liquidity. ReleaseLock: minimum age before a pending withdrawal can be
// paid out externally.
type Fundlock struct {
	TradeLock   time.Duration `json:"trade_lock"`
	ReleaseLock time.Duration `json:"release_lock"`
	CreatedAt   time.Time     `json:"created_at"`
}
