package models

import (
	"time"

	"github.com/uptrace/bun"
)

// IndicatorRecord holds one owner's activity counters for a day. Several
// records for the same owner and day are allowed and are summed in reports.
type IndicatorRecord struct {
	bun.BaseModel `bun:"table:indicators"`

	ID             string    `bun:"id,pk" json:"id"`
	Owner          string    `bun:"owner_name,notnull" json:"owner_name"`
	Date           string    `bun:"indicator_date,notnull" json:"date"`
	Leads          int       `bun:"leads,notnull" json:"leads"`
	Mentoring      int       `bun:"mentoring,notnull" json:"mentoring"`
	VIP            int       `bun:"vip,notnull" json:"vip"`
	ExclusiveGroup int       `bun:"exclusive_group,notnull" json:"exclusive_group"`
	Kirvano        int       `bun:"kirvano,notnull" json:"kirvano"`
	Training7x1    int       `bun:"training_7x1,notnull" json:"training_7x1"`
	Strategies     int       `bun:"strategies,notnull" json:"strategies"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// IndicatorTotals sums the seven counters over a set of records.
type IndicatorTotals struct {
	Leads          int `json:"leads"`
	Mentoring      int `json:"mentoring"`
	VIP            int `json:"vip"`
	ExclusiveGroup int `json:"exclusive_group"`
	Kirvano        int `json:"kirvano"`
	Training7x1    int `json:"training_7x1"`
	Strategies     int `json:"strategies"`
}

func (t *IndicatorTotals) Add(r IndicatorRecord) {
	t.Leads += r.Leads
	t.Mentoring += r.Mentoring
	t.VIP += r.VIP
	t.ExclusiveGroup += r.ExclusiveGroup
	t.Kirvano += r.Kirvano
	t.Training7x1 += r.Training7x1
	t.Strategies += r.Strategies
}

// HasNegative reports whether any counter is below zero.
func (r IndicatorRecord) HasNegative() bool {
	return r.Leads < 0 || r.Mentoring < 0 || r.VIP < 0 || r.ExclusiveGroup < 0 ||
		r.Kirvano < 0 || r.Training7x1 < 0 || r.Strategies < 0
}

// IndicatorInput is the body of a new indicator entry.
type IndicatorInput struct {
	Owner          string `json:"owner_name"`
	Date           string `json:"date"`
	Leads          int    `json:"leads"`
	Mentoring      int    `json:"mentoring"`
	VIP            int    `json:"vip"`
	ExclusiveGroup int    `json:"exclusive_group"`
	Kirvano        int    `json:"kirvano"`
	Training7x1    int    `json:"training_7x1"`
	Strategies     int    `json:"strategies"`
}
