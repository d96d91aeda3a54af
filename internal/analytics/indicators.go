package analytics

import (
	"sort"

	"ms-deposits/internal/models"
)

// FilterIndicators keeps records inside w (and for owner, when set), sorted
// by date ascending.
func FilterIndicators(records []models.IndicatorRecord, w Window, owner string) []models.IndicatorRecord {
	out := make([]models.IndicatorRecord, 0, len(records))
	for _, r := range records {
		if r.Owner == "" || !w.Contains(r.Date) {
			continue
		}
		if owner != "" && r.Owner != owner {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date < out[b].Date
	})
	return out
}

func SumIndicators(records []models.IndicatorRecord) models.IndicatorTotals {
	var totals models.IndicatorTotals
	for _, r := range records {
		totals.Add(r)
	}
	return totals
}
