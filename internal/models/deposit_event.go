package models

import "time"

type DepositEventType string

const (
	DepositCreated DepositEventType = "deposit_created"
	DepositUpdated DepositEventType = "deposit_updated"
	DepositDeleted DepositEventType = "deposit_deleted"
)

// DepositEvent is broadcast to dashboard streams and published to Kafka.
type DepositEvent struct {
	Type       DepositEventType `json:"type"`
	Deposit    DepositRecord    `json:"deposit"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type TicketsAllocatedEvent struct {
	DepositID   string    `json:"deposit_id"`
	Owner       string    `json:"owner_name"`
	VIP         bool      `json:"is_vip"`
	Tickets     []int     `json:"tickets"`
	AllocatedAt time.Time `json:"allocated_at"`
}

// TicketReceipt is the payload encrypted into a deposit's QR receipt.
type TicketReceipt struct {
	DepositID string `json:"deposit_id"`
	Owner     string `json:"owner_name"`
	UserID    string `json:"user_id"`
	Date      string `json:"date"`
	Tickets   []int  `json:"tickets"`
}
