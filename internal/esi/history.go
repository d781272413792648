package esi

import (
	"context"
	"fmt"
)

// HistoryEntry represents a single day of market history for an item in a region.
type HistoryEntry struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
}

// HistoryCache is a persistent cache for market history data.
type HistoryCache interface {
	GetMarketHistory(regionID int64, typeID int32) ([]HistoryEntry, bool)
	SetMarketHistory(regionID int64, typeID int32, entries []HistoryEntry)
}

// FetchMarketHistory fetches daily market history for a type in a region.
func (c *Client) FetchMarketHistory(ctx context.Context, regionID int64, typeID int32) ([]HistoryEntry, error) {
	url := fmt.Sprintf("%s/markets/%d/history/?datasource=tranquility&type_id=%d",
		c.baseURL, regionID, typeID)

	var entries []HistoryEntry
	if err := c.GetJSON(ctx, url, &entries); err != nil {
		return nil, fmt.Errorf("history region=%d type=%d: %w", regionID, typeID, err)
	}
	return entries, nil
}
