package models

import (
	"time"

	"github.com/uptrace/bun"
)

// VIPMultiplier scales the requested ticket count for VIP deposits.
const VIPMultiplier = 4

type DepositRecord struct {
	bun.BaseModel `bun:"table:deposits"`

	ID             string    `bun:"id,pk" json:"id"`
	Owner          string    `bun:"owner_name,notnull" json:"owner_name"`
	Date           string    `bun:"deposit_date,notnull" json:"date"`
	Amount         Amount    `bun:"amount,type:numeric(14,2)" json:"amount"`
	UserID         string    `bun:"user_id,notnull" json:"user_id"`
	Email          string    `bun:"email" json:"email,omitempty"`
	Phone          string    `bun:"phone" json:"phone,omitempty"`
	VIP            bool      `bun:"is_vip,notnull" json:"is_vip"`
	TicketQuantity int       `bun:"ticket_quantity,notnull" json:"ticket_quantity"`
	Tickets        []int     `bun:"tickets,type:jsonb" json:"tickets"`
	PrimaryTicket  int       `bun:"primary_ticket" json:"primary_ticket,omitempty"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// AllocatedNumbers returns every ticket number the record holds, including
// the legacy single-ticket field.
func (d DepositRecord) AllocatedNumbers() []int {
	out := make([]int, 0, len(d.Tickets)+1)
	seen := make(map[int]bool, len(d.Tickets)+1)
	for _, n := range d.Tickets {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	if d.PrimaryTicket > 0 && !seen[d.PrimaryTicket] {
		out = append(out, d.PrimaryTicket)
	}
	return out
}

// DepositInput is the writable part of a deposit as sent by the dashboard.
type DepositInput struct {
	Owner             string `json:"owner_name"`
	Date              string `json:"date"`
	Amount            Amount `json:"amount"`
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	VIP               bool   `json:"is_vip"`
	TicketQuantity    int    `json:"ticket_quantity"`
	RegenerateTickets bool   `json:"regenerate_tickets"`
}
