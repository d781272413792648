package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"eve-importer/internal/esi"
)

// fakeProvider serves canned market data and records which histories were
// requested.
type fakeProvider struct {
	regionOrders  map[int64][]esi.MarketOrder // keyed by region id
	stationOrders map[int64][]esi.MarketOrder
	typeOrders    map[int32][]esi.MarketOrder // buy-region per-type books
	histories     map[int32][]esi.HistoryEntry
	types         map[int32]esi.TypeInfo

	mu           sync.Mutex
	historyCalls []int32
	ordersErr    error
	historyErr   error
}

func (f *fakeProvider) recordedHistoryCalls() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.historyCalls...)
}

func (f *fakeProvider) FetchRegionOrders(_ context.Context, regionID int64) ([]esi.MarketOrder, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return f.regionOrders[regionID], nil
}

func (f *fakeProvider) FetchStationOrders(_ context.Context, stationID int64) ([]esi.MarketOrder, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return f.stationOrders[stationID], nil
}

func (f *fakeProvider) FetchRegionOrdersForType(_ context.Context, _ int64, typeID int32) ([]esi.MarketOrder, error) {
	return f.typeOrders[typeID], nil
}

func (f *fakeProvider) FetchMarketHistory(_ context.Context, _ int64, typeID int32) ([]esi.HistoryEntry, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, typeID)
	f.mu.Unlock()
	return f.histories[typeID], nil
}

func (f *fakeProvider) FetchTypeInfos(_ context.Context, typeIDs []int32) (map[int32]esi.TypeInfo, error) {
	out := make(map[int32]esi.TypeInfo)
	for _, id := range typeIDs {
		if info, ok := f.types[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

var impNow = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func baseParams() ImportParams {
	return ImportParams{
		SellRegionID:          "100",
		BuyRegionID:           "200",
		SellToRegion:          true,
		MinSell:               10,
		MinPerDaySold:         5,
		MinISKVolume:          100,
		MinDailyProfit:        100,
		BrokerFeePercent:      2,
		TransactionTaxPercent: 3,
		HistoryDays:           7,
		ToleranceDays:         2,
	}
}

func scanProvider() *fakeProvider {
	sellBook := []esi.MarketOrder{
		// item 34: best ask 100, 350 units listed
		{TypeID: 34, IsBuyOrder: false, Price: 100, VolumeRemain: 100},
		{TypeID: 34, IsBuyOrder: false, Price: 120, VolumeRemain: 250},
		// item 38: higher-profit candidate
		{TypeID: 38, IsBuyOrder: false, Price: 200, VolumeRemain: 60},
		// item 35: too cheap, must die at the price floor
		{TypeID: 35, IsBuyOrder: false, Price: 9, VolumeRemain: 1000},
		// item 36: fine here, but nothing to buy at the source
		{TypeID: 36, IsBuyOrder: false, Price: 50, VolumeRemain: 500},
		// item 37: profit too thin
		{TypeID: 37, IsBuyOrder: false, Price: 20, VolumeRemain: 500},
	}
	return &fakeProvider{
		regionOrders: map[int64][]esi.MarketOrder{100: sellBook},
		typeOrders: map[int32][]esi.MarketOrder{
			34: {{TypeID: 34, IsBuyOrder: false, Price: 50, VolumeRemain: 9999}},
			38: {{TypeID: 38, IsBuyOrder: false, Price: 10, VolumeRemain: 9999}},
			37: {{TypeID: 37, IsBuyOrder: false, Price: 18.9, VolumeRemain: 9999}},
			// 36 deliberately missing
		},
		histories: map[int32][]esi.HistoryEntry{
			34: uniformHistory(impNow, 8, 70),
			38: uniformHistory(impNow, 8, 30),
			36: uniformHistory(impNow, 8, 50),
			37: uniformHistory(impNow, 8, 10),
		},
		types: map[int32]esi.TypeInfo{
			34: {TypeID: 34, Name: "Tritanium", PackagedVolume: 0.01},
			38: {TypeID: 38, Name: "Pyerite", PackagedVolume: 0.01},
		},
	}
}

func TestImporterRun_FullScan(t *testing.T) {
	provider := scanProvider()
	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}

	results, err := im.Run(context.Background(), baseParams(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}

	// Sorted descending by profit per day: 38 (5400) before 34 (3150).
	if results[0].TypeID != 38 || results[1].TypeID != 34 {
		t.Fatalf("order = [%d %d], want [38 34]", results[0].TypeID, results[1].TypeID)
	}

	r := results[1]
	// Net sell 100*(1-0.05) = 95, buy 50: profit (95-50)*70 = 3150.
	if r.ProfitPerDay != 3150 {
		t.Errorf("ProfitPerDay = %d, want 3150", r.ProfitPerDay)
	}
	if r.MarginPercent != 90 {
		t.Errorf("MarginPercent = %d, want 90", r.MarginPercent)
	}
	if r.Remaining != 350 {
		t.Errorf("Remaining = %d, want 350", r.Remaining)
	}
	if r.DaysRemaining != 5 {
		t.Errorf("DaysRemaining = %d, want floor(350/70) = 5", r.DaysRemaining)
	}
	if r.TypeName != "Tritanium" || r.PackagedVolume != 0.01 {
		t.Errorf("reference data = %q/%v, want Tritanium/0.01", r.TypeName, r.PackagedVolume)
	}
}

func TestImporterRun_PriceFloorSkipsHistoryFetch(t *testing.T) {
	provider := scanProvider()
	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}

	if _, err := im.Run(context.Background(), baseParams(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, id := range provider.recordedHistoryCalls() {
		if id == 35 {
			t.Error("item 35 fell below the price floor but its history was still fetched")
		}
	}
}

func TestImporterRun_Deterministic(t *testing.T) {
	im := &Importer{Provider: scanProvider(), Now: func() time.Time { return impNow }}
	first, err := im.Run(context.Background(), baseParams(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := im.Run(context.Background(), baseParams(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated run differs:\n%+v\n%+v", first, second)
	}
}

func TestImporterRun_ZeroVolumeSentinel(t *testing.T) {
	provider := scanProvider()
	provider.histories[34] = uniformHistory(impNow, 8, 0)

	params := baseParams()
	params.MinPerDaySold = 0
	params.MinISKVolume = 0
	params.MinDailyProfit = 0

	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}
	results, err := im.Run(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range results {
		if r.TypeID == 34 {
			if r.DaysRemaining != UnboundedDaysRemaining {
				t.Errorf("DaysRemaining = %d, want sentinel %d", r.DaysRemaining, UnboundedDaysRemaining)
			}
			return
		}
	}
	t.Fatal("item 34 missing from results")
}

func TestImporterRun_InvalidRegionID(t *testing.T) {
	im := &Importer{Provider: scanProvider(), Now: func() time.Time { return impNow }}
	params := baseParams()
	params.SellRegionID = "jita"

	_, err := im.Run(context.Background(), params, nil)
	if !errors.Is(err, esi.ErrInvalidIdentifier) {
		t.Errorf("err = %v, want ErrInvalidIdentifier", err)
	}
}

func TestImporterRun_InvalidStationID(t *testing.T) {
	im := &Importer{Provider: scanProvider(), Now: func() time.Time { return impNow }}
	params := baseParams()
	params.SellToRegion = false
	params.SellStationID = "-5"

	_, err := im.Run(context.Background(), params, nil)
	if !errors.Is(err, esi.ErrInvalidIdentifier) {
		t.Errorf("err = %v, want ErrInvalidIdentifier", err)
	}
}

func TestImporterRun_FetchFailureAborts(t *testing.T) {
	provider := scanProvider()
	provider.ordersErr = esi.ErrUpstreamUnavailable

	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}
	_, err := im.Run(context.Background(), baseParams(), nil)
	if !errors.Is(err, esi.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestImporterRun_HistoryFailureAborts(t *testing.T) {
	provider := scanProvider()
	provider.historyErr = esi.ErrUpstreamUnavailable

	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}
	_, err := im.Run(context.Background(), baseParams(), nil)
	if !errors.Is(err, esi.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestImporterRun_SellToBuyOrdersTax(t *testing.T) {
	// Hitting standing bids pays transaction tax only, and depth counts the
	// bid side of the book.
	provider := &fakeProvider{
		regionOrders: map[int64][]esi.MarketOrder{100: {
			{TypeID: 34, IsBuyOrder: true, Price: 100, VolumeRemain: 140},
			{TypeID: 34, IsBuyOrder: false, Price: 300, VolumeRemain: 9999},
		}},
		typeOrders: map[int32][]esi.MarketOrder{
			34: {{TypeID: 34, IsBuyOrder: false, Price: 50}},
		},
		histories: map[int32][]esi.HistoryEntry{34: uniformHistory(impNow, 8, 70)},
		types:     map[int32]esi.TypeInfo{34: {TypeID: 34, Name: "Tritanium", PackagedVolume: 0.01}},
	}

	params := baseParams()
	params.SellToBuyOrders = true

	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}
	results, err := im.Run(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	// Net sell 100*(1-0.03) = 97: profit (97-50)*70 = 3290.
	if results[0].ProfitPerDay != 3290 {
		t.Errorf("ProfitPerDay = %d, want 3290", results[0].ProfitPerDay)
	}
	if results[0].Remaining != 140 {
		t.Errorf("Remaining = %d, want the bid side's 140", results[0].Remaining)
	}
}

func TestImporterRun_BuyFromBuyOrdersAddsBrokerFee(t *testing.T) {
	provider := scanProvider()
	provider.typeOrders[34] = []esi.MarketOrder{
		{TypeID: 34, IsBuyOrder: true, Price: 50, VolumeRemain: 9999},
	}
	provider.typeOrders[38] = nil
	provider.typeOrders[37] = nil

	params := baseParams()
	params.BuyFromBuyOrders = true

	im := &Importer{Provider: provider, Now: func() time.Time { return impNow }}
	results, err := im.Run(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	// Buy cost 50*1.02 = 51: profit (95-51)*70 = 3080.
	if results[0].ProfitPerDay != 3080 {
		t.Errorf("ProfitPerDay = %d, want 3080", results[0].ProfitPerDay)
	}
}

// memHistoryCache is a HistoryCache backed by a plain map.
type memHistoryCache struct {
	mu      sync.Mutex
	entries map[int32][]esi.HistoryEntry
}

func (c *memHistoryCache) GetMarketHistory(_ int64, typeID int32) ([]esi.HistoryEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.entries[typeID]
	return entries, ok
}

func (c *memHistoryCache) SetMarketHistory(_ int64, typeID int32, entries []esi.HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[typeID] = entries
}

func TestFetchHistories_MixedCacheHitsAndMisses(t *testing.T) {
	cache := &memHistoryCache{entries: make(map[int32][]esi.HistoryEntry)}
	provider := &fakeProvider{histories: make(map[int32][]esi.HistoryEntry)}

	var ids []int32
	for id := int32(1); id <= 200; id++ {
		ids = append(ids, id)
		entry := []esi.HistoryEntry{{Date: "2026-08-30", Volume: int64(id)}}
		if id%2 == 0 {
			cache.entries[id] = entry
		} else {
			provider.histories[id] = entry
		}
	}

	im := &Importer{Provider: provider, History: cache, Now: func() time.Time { return impNow }}
	out, err := im.fetchHistories(context.Background(), 100, ids)
	if err != nil {
		t.Fatalf("fetchHistories: %v", err)
	}
	if len(out) != 200 {
		t.Fatalf("got %d histories, want 200", len(out))
	}
	for _, id := range ids {
		if got := out[id][0].Volume; got != int64(id) {
			t.Errorf("id %d: volume = %d, want %d", id, got, id)
		}
	}
	// Only the cache misses should have hit the provider, and all of
	// them should now be cached.
	if calls := provider.recordedHistoryCalls(); len(calls) != 100 {
		t.Errorf("provider fetches = %d, want the 100 odd ids", len(calls))
	}
	if len(cache.entries) != 200 {
		t.Errorf("cached entries = %d, want 200 after backfill", len(cache.entries))
	}
}
