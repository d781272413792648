package esi

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TypeInfo holds the reference data the importer needs for one item type.
type TypeInfo struct {
	TypeID         int32   `json:"type_id"`
	Name           string  `json:"name"`
	PackagedVolume float64 `json:"packaged_volume"`
}

// FetchTypeInfo fetches and caches reference data for an item type.
// L1: in-memory, L2: persistent store, L3: ESI.
func (c *Client) FetchTypeInfo(ctx context.Context, typeID int32) (TypeInfo, error) {
	if v, ok := c.typeCache.Load(typeID); ok {
		return v.(TypeInfo), nil
	}
	if c.typeStore != nil {
		if info, ok := c.typeStore.GetType(typeID); ok {
			c.typeCache.Store(typeID, info)
			return info, nil
		}
	}

	var raw struct {
		TypeID         int32   `json:"type_id"`
		Name           string  `json:"name"`
		PackagedVolume float64 `json:"packaged_volume"`
		Volume         float64 `json:"volume"`
	}
	url := fmt.Sprintf("%s/universe/types/%d/?datasource=tranquility", c.baseURL, typeID)
	if err := c.GetJSON(ctx, url, &raw); err != nil {
		return TypeInfo{}, fmt.Errorf("type info %d: %w", typeID, err)
	}

	info := TypeInfo{TypeID: typeID, Name: raw.Name, PackagedVolume: raw.PackagedVolume}
	if info.PackagedVolume == 0 {
		info.PackagedVolume = raw.Volume
	}
	c.typeCache.Store(typeID, info)
	if c.typeStore != nil {
		c.typeStore.SetType(info)
	}
	return info, nil
}

// FetchTypeInfos fetches reference data for a set of types concurrently.
// Any fetch error aborts the whole batch.
func (c *Client) FetchTypeInfos(ctx context.Context, typeIDs []int32) (map[int32]TypeInfo, error) {
	out := make(map[int32]TypeInfo, len(typeIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range typeIDs {
		id := id
		g.Go(func() error {
			info, err := c.FetchTypeInfo(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = info
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
