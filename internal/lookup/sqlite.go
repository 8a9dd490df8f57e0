package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/kioskwatch/internal/store"
	"github.com/HerbHall/kioskwatch/pkg/models"
)

// Compile-time guard.
var _ Provider = (*SQLiteProvider)(nil)

// SQLiteProvider serves passenger records from the local SQLite store.
type SQLiteProvider struct {
	store *store.SQLiteStore
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create passenger_records table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE passenger_records (
						pnr          TEXT NOT NULL,
						last_name    TEXT NOT NULL,
						first_name   TEXT NOT NULL,
						flight       TEXT NOT NULL DEFAULT '',
						seat         TEXT NOT NULL DEFAULT '',
						origin       TEXT NOT NULL DEFAULT '',
						destination  TEXT NOT NULL DEFAULT '',
						departure_at TEXT NOT NULL DEFAULT '',
						PRIMARY KEY (pnr, last_name, first_name)
					)`)
				return err
			},
		},
	}
}

// NewSQLiteProvider applies the lookup schema to st and returns a provider.
func NewSQLiteProvider(ctx context.Context, st *store.SQLiteStore) (*SQLiteProvider, error) {
	if err := st.Migrate(ctx, "lookup", migrations()); err != nil {
		return nil, fmt.Errorf("lookup migrations: %w", err)
	}
	return &SQLiteProvider{store: st}, nil
}

// Lookup returns the records for pnr ordered by passenger name.
func (p *SQLiteProvider) Lookup(ctx context.Context, pnr string) ([]models.PassengerRecord, error) {
	rows, err := p.store.DB().QueryContext(ctx, `
		SELECT pnr, last_name, first_name, flight, seat, origin, destination, departure_at
		FROM passenger_records
		WHERE pnr = ?
		ORDER BY last_name, first_name`,
		strings.ToUpper(strings.TrimSpace(pnr)),
	)
	if err != nil {
		return nil, fmt.Errorf("query records for %s: %w", pnr, err)
	}
	defer rows.Close()

	var out []models.PassengerRecord
	for rows.Next() {
		var rec models.PassengerRecord
		var departure string
		if err := rows.Scan(&rec.PNR, &rec.LastName, &rec.FirstName, &rec.Flight,
			&rec.Seat, &rec.Origin, &rec.Destination, &departure); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if departure != "" {
			if rec.DepartureAt, err = time.Parse(time.RFC3339, departure); err != nil {
				return nil, fmt.Errorf("parse departure_at %q: %w", departure, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces records in one transaction.
func (p *SQLiteProvider) Upsert(ctx context.Context, records ...models.PassengerRecord) error {
	return p.store.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO passenger_records
				(pnr, last_name, first_name, flight, seat, origin, destination, departure_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (pnr, last_name, first_name) DO UPDATE SET
				flight = excluded.flight,
				seat = excluded.seat,
				origin = excluded.origin,
				destination = excluded.destination,
				departure_at = excluded.departure_at`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			departure := ""
			if !r.DepartureAt.IsZero() {
				departure = r.DepartureAt.UTC().Format(time.RFC3339)
			}
			if _, err := stmt.ExecContext(ctx,
				strings.ToUpper(r.PNR), r.LastName, r.FirstName, r.Flight,
				r.Seat, r.Origin, r.Destination, departure,
			); err != nil {
				return fmt.Errorf("upsert record %s: %w", r.PNR, err)
			}
		}
		return nil
	})
}

// Count returns the number of stored records.
func (p *SQLiteProvider) Count(ctx context.Context) (int, error) {
	var n int
	err := p.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM passenger_records").Scan(&n)
	return n, err
}
