package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DiscoveredRetention is how long a device is remembered after its last
// reply to a scan.
const DiscoveredRetention = 30 * 24 * time.Hour

// DiscoveredDevice is a telescope remembered from a discovery scan.
type DiscoveredDevice struct {
	Address  string
	Payload  json.RawMessage
	LastSeen time.Time
}

// DiscoveredStore keeps the results of discovery scans.
type DiscoveredStore interface {
	Record(ctx context.Context, devices []DiscoveredDevice) error
	List(ctx context.Context) ([]DiscoveredDevice, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Discovered returns a DiscoveredStore for this database.
func (db *DB) Discovered() DiscoveredStore {
	return &discoveredStore{db: db}
}

type discoveredStore struct {
	db *DB
}

// Record upserts every device, refreshing last_seen.
func (s *discoveredStore) Record(ctx context.Context, devices []DiscoveredDevice) error {
	if len(devices) == 0 {
		return nil
	}
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO discovered_devices (address, payload, last_seen)
			VALUES (?, ?, datetime('now'))
			ON CONFLICT(address) DO UPDATE SET
				payload = excluded.payload,
				last_seen = excluded.last_seen
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, d := range devices {
			payload := string(d.Payload)
			if payload == "" {
				payload = "{}"
			}
			if _, err := stmt.ExecContext(ctx, d.Address, payload); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns devices most recently seen first.
func (s *discoveredStore) List(ctx context.Context) ([]DiscoveredDevice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, payload, last_seen FROM discovered_devices
		ORDER BY last_seen DESC, address
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	devices := []DiscoveredDevice{}
	for rows.Next() {
		var d DiscoveredDevice
		var payload, lastSeen string
		if err := rows.Scan(&d.Address, &payload, &lastSeen); err != nil {
			return nil, err
		}
		d.Payload = json.RawMessage(payload)
		d.LastSeen, _ = time.Parse(time.DateTime, lastSeen)
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// Prune forgets devices not seen since olderThan.
func (s *discoveredStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM discovered_devices WHERE last_seen < ?`,
		olderThan.UTC().Format(time.DateTime))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RecordScan stores the replies of one scan, then forgets devices that have
// not answered within DiscoveredRetention.
func RecordScan(ctx context.Context, store DiscoveredStore, devices []DiscoveredDevice) error {
	if err := store.Record(ctx, devices); err != nil {
		return fmt.Errorf("record discovered devices: %w", err)
	}
	if _, err := store.Prune(ctx, time.Now().Add(-DiscoveredRetention)); err != nil {
		return fmt.Errorf("prune discovered devices: %w", err)
	}
	return nil
}
