package engine

import (
	"sort"
	"time"

	"eve-importer/internal/esi"
)

const secondsPerDay = 24 * 60 * 60

// EstimateVolumes computes a recent-period average daily sold volume per item
// from market history. An item qualifies only when
//
//  1. its history holds strictly more than daysBack daily records, and
//  2. the record at position len-daysBack is no older than
//     daysBack+tolerance days before now.
//
// The window's volume is spread over the true elapsed time between that
// reference record and now, so a slightly stale history still yields an
// honest per-day rate. Items failing either check are dropped silently.
func EstimateVolumes(histories map[int32][]esi.HistoryEntry, prices map[int32]float64, daysBack, tolerance int, now time.Time) map[int32]VolumeEstimate {
	estimates := make(map[int32]VolumeEstimate)
	maxAge := time.Duration(daysBack+tolerance) * 24 * time.Hour

	for typeID, entries := range histories {
		price, ok := prices[typeID]
		if !ok {
			continue
		}
		if len(entries) <= daysBack {
			continue
		}

		// ESI does not guarantee chronological order.
		sorted := make([]esi.HistoryEntry, len(entries))
		copy(sorted, entries)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Date < sorted[j].Date
		})

		ref := sorted[len(sorted)-daysBack]
		refDate, err := time.Parse("2006-01-02", ref.Date)
		if err != nil {
			continue
		}
		elapsed := now.Sub(refDate)
		if elapsed < 0 {
			elapsed = -elapsed
		}
		// A reference record dated now itself gives no time base to
		// spread the volume over.
		if elapsed == 0 || elapsed > maxAge {
			continue
		}

		var sold int64
		for _, e := range sorted[len(sorted)-daysBack:] {
			sold += e.Volume
		}
		perDay := float64(sold) / (elapsed.Seconds() / secondsPerDay)

		estimates[typeID] = VolumeEstimate{
			TypeID:       typeID,
			Price:        price,
			VolumePerDay: perDay,
			ISKPerDay:    price * perDay,
		}
	}
	return estimates
}
