package esi

import (
	"context"
	"fmt"
)

// MarketOrder mirrors the ESI market order response.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int32   `json:"system_id"`
	Price        float64 `json:"price"`
	VolumeRemain int32   `json:"volume_remain"`
	IsBuyOrder   bool    `json:"is_buy_order"`
}

// FetchRegionOrders fetches all market orders for a region (both sides).
// Responses are cached with ETag/Expires — repeated calls within the ESI
// refresh window return without network I/O.
func (c *Client) FetchRegionOrders(ctx context.Context, regionID int64) ([]MarketOrder, error) {
	url := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=all",
		c.baseURL, regionID)
	return c.fetchOrdersCached(ctx, venueKey{kind: venueRegion, id: regionID}, url)
}

// FetchStationOrders fetches all market orders posted at a single market
// structure. Uses the structure markets endpoint; authentication, when the
// structure requires it, is the caller's concern.
func (c *Client) FetchStationOrders(ctx context.Context, stationID int64) ([]MarketOrder, error) {
	url := fmt.Sprintf("%s/markets/structures/%d/?datasource=tranquility",
		c.baseURL, stationID)
	return c.fetchOrdersCached(ctx, venueKey{kind: venueStation, id: stationID}, url)
}

// FetchRegionOrdersForType fetches all orders for one type in a region.
// Not cached: the per-type endpoint is cheap and the importer asks for a
// different item set on every run.
func (c *Client) FetchRegionOrdersForType(ctx context.Context, regionID int64, typeID int32) ([]MarketOrder, error) {
	url := fmt.Sprintf("%s/markets/%d/orders/?datasource=tranquility&order_type=all&type_id=%d",
		c.baseURL, regionID, typeID)
	orders, _, _, err := c.fetchOrderPages(ctx, url)
	return orders, err
}
