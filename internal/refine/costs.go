package refine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"eve-importer/internal/engine"
	"eve-importer/internal/esi"
)

// PriceProvider is the slice of the ESI client the cost fetch depends on.
type PriceProvider interface {
	FetchRegionOrdersForType(ctx context.Context, regionID int64, typeID int32) ([]esi.MarketOrder, error)
}

// SourceCosts fetches the current best market price for every source ore in
// the table from the given region and scales it by multiplier, producing the
// cost-coefficient vector for Solve. fromBuyOrders selects which side of the
// book to quote. A source with no orders on that side fails the fetch: a
// zero cost would make the solver treat the ore as free.
func SourceCosts(ctx context.Context, provider PriceProvider, regionID string, fromBuyOrders bool, multiplier float64, table *YieldTable) ([]float64, error) {
	region, err := esi.ParseID(regionID)
	if err != nil {
		return nil, fmt.Errorf("ore region: %w", err)
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("cost multiplier %v must be positive", multiplier)
	}

	prices := make([]float64, len(table.Sources))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range table.Sources {
		i, src := i, src
		g.Go(func() error {
			orders, err := provider.FetchRegionOrdersForType(gctx, region, src.TypeID)
			if err != nil {
				return err
			}
			best, ok := engine.BestPrices(orders, fromBuyOrders)[src.TypeID]
			if !ok {
				return fmt.Errorf("no market price for %s (type %d) in region %d",
					src.Name, src.TypeID, region)
			}
			mu.Lock()
			prices[i] = best * multiplier
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}
