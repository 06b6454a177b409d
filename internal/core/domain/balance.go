package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientBalance is the free (unlocked) collateral one client holds for one
// token inside the custody vault. Exactly one record exists per
// (token, client token account) pair; funds queued for withdrawal are not
// part of Amount.
type ClientBalance struct {
	Token     string    `json:"token"`      // token mint identifier
	Client    uuid.UUID `json:"client"`     // owning client identity
	ClientATA string    `json:"client_ata"` // client-facing token account
	Amount    uint64    `json:"amount"`     // smallest token denomination
	UpdatedAt time.Time `json:"updated_at"`
}

// Vault tracks the custody holdings for one token across all clients.
// Deposits credit it, releases debit it; a release can never exceed it.
type Vault struct {
	Token     string    `json:"token"`
	Amount    uint64    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}
