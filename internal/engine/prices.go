package engine

import "eve-importer/internal/esi"

// BestPrices reduces an order book to one best price per item for the given
// side: the highest bid for buy orders, the lowest ask for sell orders.
// Items with no orders on the requested side are absent from the result.
func BestPrices(orders []esi.MarketOrder, isBuyOrder bool) map[int32]float64 {
	best := make(map[int32]float64)
	for _, o := range orders {
		if o.IsBuyOrder != isBuyOrder {
			continue
		}
		cur, ok := best[o.TypeID]
		if !ok {
			best[o.TypeID] = o.Price
			continue
		}
		if isBuyOrder {
			if o.Price > cur {
				best[o.TypeID] = o.Price
			}
		} else {
			if o.Price < cur {
				best[o.TypeID] = o.Price
			}
		}
	}
	return best
}

// RemainingOnMarket sums the unfilled volume per item on one side of an
// order book. Market depth for the final candidate table.
func RemainingOnMarket(orders []esi.MarketOrder, isBuyOrder bool) map[int32]int64 {
	remaining := make(map[int32]int64)
	for _, o := range orders {
		if o.IsBuyOrder != isBuyOrder {
			continue
		}
		remaining[o.TypeID] += int64(o.VolumeRemain)
	}
	return remaining
}
