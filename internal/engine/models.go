package engine

// UnboundedDaysRemaining is the sentinel for depth when an item shows zero
// daily volume: the remaining inventory would take forever to sell.
const UnboundedDaysRemaining int64 = -1

// ImportParams holds the input parameters for one import scan.
// Venue identifiers are kept as entered by the user and validated on run.
type ImportParams struct {
	SellStationID string `json:"sell_station_id"` // used when SellToRegion is false
	SellRegionID  string `json:"sell_region_id"`
	BuyRegionID   string `json:"buy_region_id"`

	MinSell        float64 `json:"min_sell"`         // minimum post-tax sell price
	MinPerDaySold  float64 `json:"min_per_day_sold"` // minimum units sold per day
	MinISKVolume   float64 `json:"min_isk_volume"`   // minimum ISK throughput per day
	MinDailyProfit float64 `json:"min_daily_profit"`

	BrokerFeePercent      float64 `json:"broker_fee_percent"`
	TransactionTaxPercent float64 `json:"transaction_tax_percent"`

	BuyFromBuyOrders bool `json:"buy_from_buy_orders"` // buy by filling buy orders vs. lifting asks
	SellToBuyOrders  bool `json:"sell_to_buy_orders"`  // sell by hitting bids vs. posting sell orders
	SellToRegion     bool `json:"sell_to_region"`      // price against the whole region, not one station

	HistoryDays   int `json:"history_days"`   // look-back window for volume estimation
	ToleranceDays int `json:"tolerance_days"` // extra staleness allowed on the reference record
}

// VolumeEstimate is the per-item outcome of the history look-back.
type VolumeEstimate struct {
	TypeID       int32   `json:"type_id"`
	Price        float64 `json:"price"`          // post-tax sell price used for throughput
	VolumePerDay float64 `json:"volume_per_day"` // units sold per day over the window
	ISKPerDay    float64 `json:"isk_per_day"`    // price * volume_per_day
}

// ImportResult is one row of the final candidate table, sorted descending by
// profit per day.
type ImportResult struct {
	TypeID         int32   `json:"type_id"`
	TypeName       string  `json:"type_name"`
	ProfitPerDay   int64   `json:"profit_per_day"`
	MarginPercent  int64   `json:"margin_percent"`
	VolumePerDay   float64 `json:"volume_per_day"`
	SellPrice      float64 `json:"sell_price"` // post-tax
	BuyPrice       float64 `json:"buy_price"`  // fee-adjusted
	Remaining      int64   `json:"remaining"`  // inventory left on the sell side
	DaysRemaining  int64   `json:"days_remaining"`
	PackagedVolume float64 `json:"packaged_volume"` // m³ per packaged unit
}
