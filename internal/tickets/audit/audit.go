// Package audit checks stored deposits and claim rows against the ticket
// pool rules: every issued number is in range, held by one deposit, and has
// a claim row.
package audit

import (
	"sort"

	"ms-deposits/internal/models"
)

type Report struct {
	Pool                models.PoolStatus `json:"pool"`
	// number -> deposits holding it, only where more than one does
	Duplicates          map[int][]string  `json:"duplicates"`
	// deposit -> numbers outside 1..PoolSize
	OutOfRange          map[string][]int  `json:"out_of_range"`
	// deposit -> in-range numbers with no claim row
	MissingClaims       map[string][]int  `json:"missing_claims"`
	// number -> deposit named by a claim row that does not hold it
	MisattributedClaims map[int]string    `json:"misattributed_claims"`
}

// Clean reports whether no violation was found.
func (r Report) Clean() bool {
	return len(r.Duplicates) == 0 && len(r.OutOfRange) == 0 &&
		len(r.MissingClaims) == 0 && len(r.MisattributedClaims) == 0
}

// MissingTotal counts numbers that need a claim row.
func (r Report) MissingTotal() int {
	total := 0
	for _, numbers := range r.MissingClaims {
		total += len(numbers)
	}
	return total
}

func Run(deposits []models.DepositRecord, claims []models.TicketNumber) Report {
	report := Report{
		Duplicates:          map[int][]string{},
		OutOfRange:          map[string][]int{},
		MissingClaims:       map[string][]int{},
		MisattributedClaims: map[int]string{},
	}

	claimedBy := make(map[int]string, len(claims))
	used := make(map[int]struct{}, len(claims))
	for _, c := range claims {
		claimedBy[c.Number] = c.DepositID
		if c.Number >= 1 && c.Number <= models.PoolSize {
			used[c.Number] = struct{}{}
		}
	}

	holders := map[int][]string{}
	for _, d := range deposits {
		for _, n := range d.AllocatedNumbers() {
			if n < 1 || n > models.PoolSize {
				report.OutOfRange[d.ID] = append(report.OutOfRange[d.ID], n)
				continue
			}
			used[n] = struct{}{}
			holders[n] = append(holders[n], d.ID)
			if _, ok := claimedBy[n]; !ok {
				report.MissingClaims[d.ID] = append(report.MissingClaims[d.ID], n)
			}
		}
	}

	for n, ids := range holders {
		if len(ids) > 1 {
			report.Duplicates[n] = ids
		}
	}
	for n, depositID := range claimedBy {
		ids, held := holders[n]
		if held && !contains(ids, depositID) {
			report.MisattributedClaims[n] = depositID
		}
	}
	for _, numbers := range report.MissingClaims {
		sort.Ints(numbers)
	}

	report.Pool = models.PoolStatus{
		Size:      models.PoolSize,
		Used:      len(used),
		Remaining: models.PoolSize - len(used),
	}
	return report
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
