package postgres

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

const schema = `
CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	country    TEXT NOT NULL,
	downloaded BOOLEAN NOT NULL DEFAULT FALSE,
	active     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS spot_lists (
	id                    TEXT PRIMARY KEY,
	city_id               TEXT NOT NULL REFERENCES cities(id),
	name                  TEXT NOT NULL,
	position              INTEGER NOT NULL DEFAULT 0,
	downloaded            BOOLEAN NOT NULL DEFAULT FALSE,
	notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS spots (
	id            TEXT PRIMARY KEY,
	list_id       TEXT NOT NULL REFERENCES spot_lists(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	group_name    TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	radius_meters DOUBLE PRECISION NOT NULL CHECK (radius_meters > 0),
	position      INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS cities_one_active ON cities (active) WHERE active;
`

// EnsureSchema creates the catalog tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return eris.Wrap(err, "ensure catalog schema")
	}
	return nil
}
