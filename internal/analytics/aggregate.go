package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"ms-deposits/internal/models"
)

type Summary struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	Count         int             `json:"count"`
	DistinctUsers int             `json:"distinct_users"`
}

type RankEntry struct {
	Position   int             `json:"position"`
	Owner      string          `json:"owner_name"`
	TotalValue decimal.Decimal `json:"total_value"`
	Count      int             `json:"count"`
}

// FilterByWindow keeps the records dated inside w. An empty owner keeps every
// owner. Records without an owner or with an unusable date are dropped.
func FilterByWindow(records []models.DepositRecord, w Window, owner string) []models.DepositRecord {
	out := make([]models.DepositRecord, 0, len(records))
	for _, r := range records {
		if r.Owner == "" || !w.Contains(r.Date) {
			continue
		}
		if owner != "" && r.Owner != owner {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Summarize totals the amounts, counts records and distinct user ids.
// Invalid amounts count as zero.
func Summarize(records []models.DepositRecord) Summary {
	total := decimal.Zero
	users := make(map[string]struct{}, len(records))
	for _, r := range records {
		total = total.Add(r.Amount.Decimal())
		users[r.UserID] = struct{}{}
	}
	return Summary{
		TotalValue:    total,
		Count:         len(records),
		DistinctUsers: len(users),
	}
}

// Rank groups by owner and orders by total value, highest first. Ties keep
// the order in which owners first appear.
func Rank(records []models.DepositRecord) []RankEntry {
	index := make(map[string]int)
	var ranking []RankEntry
	for _, r := range records {
		i, ok := index[r.Owner]
		if !ok {
			i = len(ranking)
			index[r.Owner] = i
			ranking = append(ranking, RankEntry{Owner: r.Owner, TotalValue: decimal.Zero})
		}
		ranking[i].TotalValue = ranking[i].TotalValue.Add(r.Amount.Decimal())
		ranking[i].Count++
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		return ranking[a].TotalValue.GreaterThan(ranking[b].TotalValue)
	})
	for i := range ranking {
		ranking[i].Position = i + 1
	}
	return ranking
}

// PositionOf finds owner in a ranking. An owner with no deposits gets
// position 0 and a zero total.
func PositionOf(ranking []RankEntry, owner string) RankEntry {
	for _, e := range ranking {
		if e.Owner == owner {
			return e
		}
	}
	return RankEntry{Owner: owner, TotalValue: decimal.Zero}
}

// TicketsOwed reconstructs how many tickets a deposit stands for, falling
// back to what legacy rows actually stored.
func TicketsOwed(r models.DepositRecord) int {
	switch {
	case r.TicketQuantity > 0:
		if r.VIP {
			return r.TicketQuantity * models.VIPMultiplier
		}
		return r.TicketQuantity
	case len(r.Tickets) > 0:
		return len(r.Tickets)
	default:
		return 1
	}
}
