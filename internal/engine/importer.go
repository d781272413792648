package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"eve-importer/internal/esi"
)

// MarketProvider is the slice of the ESI client the importer depends on.
type MarketProvider interface {
	FetchRegionOrders(ctx context.Context, regionID int64) ([]esi.MarketOrder, error)
	FetchStationOrders(ctx context.Context, stationID int64) ([]esi.MarketOrder, error)
	FetchRegionOrdersForType(ctx context.Context, regionID int64, typeID int32) ([]esi.MarketOrder, error)
	FetchMarketHistory(ctx context.Context, regionID int64, typeID int32) ([]esi.HistoryEntry, error)
	FetchTypeInfos(ctx context.Context, typeIDs []int32) (map[int32]esi.TypeInfo, error)
}

// Importer evaluates cross-market import opportunities: buy in one region,
// haul, and resell at the target venue.
type Importer struct {
	Provider MarketProvider
	History  esi.HistoryCache // optional persistent history cache
	Now      func() time.Time // defaults to time.Now; fixed in tests
}

// NewImporter creates an Importer backed by the given provider.
func NewImporter(provider MarketProvider) *Importer {
	return &Importer{Provider: provider, Now: time.Now}
}

// Run executes the full import scan: fetch the sell venue's order book,
// quote and tax-adjust sell prices, estimate liquidity from history, quote
// the buy region, and keep only items clearing every threshold. Fetch
// failures abort the run; thin per-item data only shrinks the result.
func (im *Importer) Run(ctx context.Context, params ImportParams, progress func(string)) ([]ImportResult, error) {
	if progress == nil {
		progress = func(string) {}
	}
	now := time.Now()
	if im.Now != nil {
		now = im.Now()
	}

	sellRegionID, err := esi.ParseID(params.SellRegionID)
	if err != nil {
		return nil, fmt.Errorf("sell region: %w", err)
	}
	buyRegionID, err := esi.ParseID(params.BuyRegionID)
	if err != nil {
		return nil, fmt.Errorf("buy region: %w", err)
	}

	// Stage 1: sell-side order book, from the whole region or one station.
	var sellOrders []esi.MarketOrder
	if params.SellToRegion {
		progress(fmt.Sprintf("Fetching orders for region %d...", sellRegionID))
		sellOrders, err = im.Provider.FetchRegionOrders(ctx, sellRegionID)
	} else {
		var stationID int64
		stationID, err = esi.ParseID(params.SellStationID)
		if err != nil {
			return nil, fmt.Errorf("sell station: %w", err)
		}
		progress(fmt.Sprintf("Fetching orders for station %d...", stationID))
		sellOrders, err = im.Provider.FetchStationOrders(ctx, stationID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch sell orders: %w", err)
	}

	// Stage 2+3: best sell price per item, minus fees. Hitting buy orders
	// pays only transaction tax; posting sell orders pays broker fee too.
	sellQuotes := BestPrices(sellOrders, params.SellToBuyOrders)
	taxRate := params.TransactionTaxPercent / 100
	if !params.SellToBuyOrders {
		taxRate += params.BrokerFeePercent / 100
	}
	netSell := make(map[int32]float64, len(sellQuotes))
	for typeID, price := range sellQuotes {
		net := price * (1 - taxRate)
		if net < params.MinSell {
			continue // stage 4: price floor
		}
		netSell[typeID] = net
	}
	log.Printf("[IMPORT] %d items quoted, %d above min sell %.2f",
		len(sellQuotes), len(netSell), params.MinSell)

	// Stage 5: history against the sell region for surviving items.
	candidates := sortedIDs(netSell)
	progress(fmt.Sprintf("Fetching history for %d items...", len(candidates)))
	histories, err := im.fetchHistories(ctx, sellRegionID, candidates)
	if err != nil {
		return nil, fmt.Errorf("fetch histories: %w", err)
	}

	estimates := EstimateVolumes(histories, netSell, params.HistoryDays, params.ToleranceDays, now)

	// Stages 6+7: liquidity and ISK-throughput floors.
	liquid := make(map[int32]VolumeEstimate, len(estimates))
	for typeID, est := range estimates {
		if est.VolumePerDay < params.MinPerDaySold {
			continue
		}
		if est.ISKPerDay < params.MinISKVolume {
			continue
		}
		liquid[typeID] = est
	}
	log.Printf("[IMPORT] %d items estimated, %d liquid", len(estimates), len(liquid))

	// Stage 8: buy-side quotes from the source region. Filling buy orders
	// means posting our own bid first, so the broker fee lands on the cost.
	toBuy := sortedIDs(liquid)
	progress(fmt.Sprintf("Fetching buy orders for %d items...", len(toBuy)))
	buyOrders, err := im.fetchBuyOrders(ctx, buyRegionID, toBuy)
	if err != nil {
		return nil, fmt.Errorf("fetch buy orders: %w", err)
	}
	buyQuotes := BestPrices(buyOrders, params.BuyFromBuyOrders)
	if params.BuyFromBuyOrders {
		for typeID, price := range buyQuotes {
			buyQuotes[typeID] = price * (1 + params.BrokerFeePercent/100)
		}
	}

	// Stages 9-11: profit, margin, depth, profit floor.
	remaining := RemainingOnMarket(sellOrders, params.SellToBuyOrders)

	type scored struct {
		row    ImportResult
		profit float64
	}
	rows := make([]scored, 0, len(liquid))
	for _, typeID := range toBuy {
		est := liquid[typeID]
		buyPrice, ok := buyQuotes[typeID]
		if !ok {
			continue // nothing to buy at the source; a gap, not an error
		}
		profit := (est.Price - buyPrice) * est.VolumePerDay
		if profit < params.MinDailyProfit {
			continue
		}

		left := remaining[typeID]
		days := UnboundedDaysRemaining
		if est.VolumePerDay > 0 {
			days = int64(math.Floor(float64(left) / est.VolumePerDay))
		}

		rows = append(rows, scored{
			profit: profit,
			row: ImportResult{
				TypeID:        typeID,
				MarginPercent: int64((est.Price - buyPrice) / buyPrice * 100),
				VolumePerDay:  est.VolumePerDay,
				SellPrice:     est.Price,
				BuyPrice:      buyPrice,
				Remaining:     left,
				DaysRemaining: days,
			},
		})
	}

	// Stage 12: descending by profit per day, stable on the input order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].profit > rows[j].profit
	})

	ids := make([]int32, len(rows))
	for i, r := range rows {
		ids[i] = r.row.TypeID
	}
	progress(fmt.Sprintf("Resolving names for %d items...", len(ids)))
	infos, err := im.Provider.FetchTypeInfos(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch type info: %w", err)
	}

	results := make([]ImportResult, len(rows))
	for i, r := range rows {
		row := r.row
		row.ProfitPerDay = int64(r.profit)
		if info, ok := infos[row.TypeID]; ok {
			row.TypeName = info.Name
			row.PackagedVolume = info.PackagedVolume
		}
		results[i] = row
	}
	log.Printf("[IMPORT] scan complete: %d candidates", len(results))
	return results, nil
}

// fetchHistories pulls market history for each candidate concurrently,
// consulting the persistent cache first. Any error aborts the batch.
func (im *Importer) fetchHistories(ctx context.Context, regionID int64, typeIDs []int32) (map[int32][]esi.HistoryEntry, error) {
	out := make(map[int32][]esi.HistoryEntry, len(typeIDs))

	// Resolve cache hits before any goroutine starts so the map is only
	// written concurrently under the mutex below.
	var misses []int32
	for _, id := range typeIDs {
		if im.History != nil {
			if entries, ok := im.History.GetMarketHistory(regionID, id); ok {
				out[id] = entries
				continue
			}
		}
		misses = append(misses, id)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range misses {
		id := id
		g.Go(func() error {
			entries, err := im.Provider.FetchMarketHistory(gctx, regionID, id)
			if err != nil {
				return err
			}
			if im.History != nil {
				im.History.SetMarketHistory(regionID, id, entries)
			}
			mu.Lock()
			out[id] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchBuyOrders pulls per-type order books from the buy region concurrently.
func (im *Importer) fetchBuyOrders(ctx context.Context, regionID int64, typeIDs []int32) ([]esi.MarketOrder, error) {
	var mu sync.Mutex
	var all []esi.MarketOrder

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range typeIDs {
		id := id
		g.Go(func() error {
			orders, err := im.Provider.FetchRegionOrdersForType(gctx, regionID, id)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, orders...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// sortedIDs returns map keys in ascending order so every run walks items in
// the same sequence. Map iteration alone would break run-to-run determinism.
func sortedIDs[V any](m map[int32]V) []int32 {
	ids := make([]int32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
