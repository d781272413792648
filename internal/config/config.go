package config

import "eve-importer/internal/engine"

// Config holds application settings (in-memory representation).
// Persistence is handled by the internal/db package.
type Config struct {
	// Import scan parameters. Venue ids stay strings as entered; they are
	// validated when a scan runs.
	SellStationID string `json:"sell_station_id"`
	SellRegionID  string `json:"sell_region_id"`
	BuyRegionID   string `json:"buy_region_id"`

	MinSell        float64 `json:"min_sell"`
	MinPerDaySold  float64 `json:"min_per_day_sold"`
	MinISKVolume   float64 `json:"min_isk_volume"`
	MinDailyProfit float64 `json:"min_daily_profit"`

	BrokerFeePercent      float64 `json:"broker_fee_percent"`
	TransactionTaxPercent float64 `json:"transaction_tax_percent"`

	BuyFromBuyOrders bool `json:"buy_from_buy_orders"`
	SellToBuyOrders  bool `json:"sell_to_buy_orders"`
	SellToRegion     bool `json:"sell_to_region"`

	HistoryDays   int `json:"history_days"`
	ToleranceDays int `json:"tolerance_days"`

	// Compression solver parameters.
	RefineRate       float64 `json:"refine_rate"`
	OreVariant       string  `json:"ore_variant"` // yield table name: all | nullsec
	OreRegionID      string  `json:"ore_region_id"`
	OreFromBuyOrders bool    `json:"ore_from_buy_orders"`
	CostMultiplier   float64 `json:"cost_multiplier"`
}

// Default returns a Config with sensible defaults: buy in The Forge (Jita),
// sell at Amarr VIII, modern fee levels.
func Default() *Config {
	return &Config{
		SellStationID:         "60008494",
		SellRegionID:          "10000043",
		BuyRegionID:           "10000002",
		MinSell:               10000,
		MinPerDaySold:         5,
		MinISKVolume:          10_000_000,
		MinDailyProfit:        1_000_000,
		BrokerFeePercent:      3,
		TransactionTaxPercent: 3.6,
		SellToRegion:          true,
		HistoryDays:           30,
		ToleranceDays:         5,
		RefineRate:            0.876,
		OreVariant:            "all",
		OreRegionID:           "10000002",
		CostMultiplier:        1.0,
	}
}

// ImportParams converts the stored settings into scan parameters.
func (c *Config) ImportParams() engine.ImportParams {
	return engine.ImportParams{
		SellStationID:         c.SellStationID,
		SellRegionID:          c.SellRegionID,
		BuyRegionID:           c.BuyRegionID,
		MinSell:               c.MinSell,
		MinPerDaySold:         c.MinPerDaySold,
		MinISKVolume:          c.MinISKVolume,
		MinDailyProfit:        c.MinDailyProfit,
		BrokerFeePercent:      c.BrokerFeePercent,
		TransactionTaxPercent: c.TransactionTaxPercent,
		BuyFromBuyOrders:      c.BuyFromBuyOrders,
		SellToBuyOrders:       c.SellToBuyOrders,
		SellToRegion:          c.SellToRegion,
		HistoryDays:           c.HistoryDays,
		ToleranceDays:         c.ToleranceDays,
	}
}
