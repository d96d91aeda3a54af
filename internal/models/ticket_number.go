package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PoolSize is the number of ticket numbers that can ever be issued (1..PoolSize).
const PoolSize = 1000

// TicketNumber is the durable claim on a single number. The primary key makes
// a second claim of the same number fail at insert time.
type TicketNumber struct {
	bun.BaseModel `bun:"table:ticket_numbers"`

	Number    int       `bun:"number,pk" json:"number"`
	DepositID string    `bun:"deposit_id,notnull" json:"deposit_id"`
	ClaimedAt time.Time `bun:"claimed_at,nullzero,notnull,default:current_timestamp" json:"claimed_at"`
}

type PoolStatus struct {
	Size      int `json:"size"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}
