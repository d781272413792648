package db

import "eve-importer/internal/esi"

// GetType retrieves cached reference data for an item type. Type info is
// effectively immutable, so there is no TTL.
func (d *DB) GetType(typeID int32) (esi.TypeInfo, bool) {
	var info esi.TypeInfo
	err := d.sql.QueryRow(
		"SELECT type_id, name, packaged_volume FROM type_info WHERE type_id=?", typeID,
	).Scan(&info.TypeID, &info.Name, &info.PackagedVolume)
	if err != nil {
		return esi.TypeInfo{}, false
	}
	return info, true
}

// SetType caches reference data for an item type.
func (d *DB) SetType(info esi.TypeInfo) {
	d.sql.Exec(
		"INSERT INTO type_info (type_id, name, packaged_volume) VALUES (?,?,?) ON CONFLICT(type_id) DO UPDATE SET name = excluded.name, packaged_volume = excluded.packaged_volume",
		info.TypeID, info.Name, info.PackagedVolume)
}
