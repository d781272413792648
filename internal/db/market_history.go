package db

import (
	"log"
	"time"

	"eve-importer/internal/esi"
)

// historyTTL bounds how long cached history is served. ESI history updates
// once per day; 24h keeps at most one stale day.
const historyTTL = 24 * time.Hour

// GetMarketHistory retrieves cached market history for a region/type pair.
// Returns nil, false when not cached or older than the TTL.
func (d *DB) GetMarketHistory(regionID int64, typeID int32) ([]esi.HistoryEntry, bool) {
	var updatedAt string
	err := d.sql.QueryRow(
		"SELECT updated_at FROM market_history_meta WHERE region_id=? AND type_id=?",
		regionID, typeID,
	).Scan(&updatedAt)
	if err != nil {
		return nil, false
	}

	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil || time.Since(t) > historyTTL {
		return nil, false
	}

	rows, err := d.sql.Query(
		"SELECT date, average, highest, lowest, volume, order_count FROM market_history WHERE region_id=? AND type_id=? ORDER BY date",
		regionID, typeID,
	)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var entries []esi.HistoryEntry
	for rows.Next() {
		var e esi.HistoryEntry
		if err := rows.Scan(&e.Date, &e.Average, &e.Highest, &e.Lowest, &e.Volume, &e.OrderCount); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

// SetMarketHistory caches market history for a region/type pair, replacing
// any previous entries.
func (d *DB) SetMarketHistory(regionID int64, typeID int32, entries []esi.HistoryEntry) {
	tx, err := d.sql.Begin()
	if err != nil {
		log.Printf("[DB] history cache begin: %v", err)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM market_history WHERE region_id=? AND type_id=?", regionID, typeID); err != nil {
		return
	}
	for _, e := range entries {
		if _, err := tx.Exec(
			"INSERT INTO market_history (region_id, type_id, date, average, highest, lowest, volume, order_count) VALUES (?,?,?,?,?,?,?,?)",
			regionID, typeID, e.Date, e.Average, e.Highest, e.Lowest, e.Volume, e.OrderCount,
		); err != nil {
			return
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO market_history_meta (region_id, type_id, updated_at) VALUES (?,?,?) ON CONFLICT(region_id, type_id) DO UPDATE SET updated_at = excluded.updated_at",
		regionID, typeID, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("[DB] history cache commit: %v", err)
	}
}
