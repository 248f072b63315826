package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"spccvault/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS facilities (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  status TEXT NOT NULL,
  state TEXT,
  planRef TEXT,
  planDate TEXT,
  updatedAt TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_facilities_name ON facilities(name);
CREATE INDEX IF NOT EXISTS idx_facilities_status ON facilities(status);

CREATE TABLE IF NOT EXISTS extraction_profiles (
  tenant TEXT PRIMARY KEY,
  profileJson TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS import_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  tenant TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS apply_outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  rowId TEXT NOT NULL,
  docName TEXT NOT NULL,
  facilityId INTEGER NOT NULL,
  status TEXT NOT NULL,
  planRef TEXT,
  errDetail TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES import_runs(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertFacilities(facilities []internal.Facility) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO facilities (id, name, status, state, planRef, planDate, updatedAt, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  status=excluded.status,
  state=excluded.state,
  planRef=excluded.planRef,
  planDate=excluded.planDate,
  updatedAt=excluded.updatedAt,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range facilities {
		if _, err := stmt.Exec(f.ID, f.Name, string(f.Status), f.State, f.PlanRef, f.PlanDate, f.UpdatedAt, f.RawJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListFacilities() ([]internal.Facility, error) {
	rows, err := d.conn.Query(`
SELECT id, name, status, state, planRef, planDate, updatedAt, raw_json
FROM facilities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Facility
	for rows.Next() {
		var f internal.Facility
		var status string
		if err := rows.Scan(&f.ID, &f.Name, &status, &f.State, &f.PlanRef, &f.PlanDate, &f.UpdatedAt, &f.RawJSON); err != nil {
			return nil, err
		}
		f.Status = internal.FacilityStatus(status)
		out = append(out, f)
	}

	return out, rows.Err()
}

func (d *DB) SetExtractionProfile(profile internal.ExtractionProfile) error {
	blob, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
INSERT INTO extraction_profiles (tenant, profileJson) VALUES (?, ?)
ON CONFLICT(tenant) DO UPDATE SET profileJson = excluded.profileJson, updatedAt = CURRENT_TIMESTAMP
`, profile.Tenant, string(blob))
	return err
}

// GetExtractionProfile returns nil when the tenant has no profile; callers
// treat that as "no bias, extract all text".
func (d *DB) GetExtractionProfile(tenant string) (*internal.ExtractionProfile, error) {
	var blob string
	err := d.conn.QueryRow(`SELECT profileJson FROM extraction_profiles WHERE tenant = ?`, tenant).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var profile internal.ExtractionProfile
	if err := json.Unmarshal([]byte(blob), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (d *DB) InsertRun(traceID, tenant string, timings map[string]float64, counts map[string]int) (int64, error) {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	result, err := d.conn.Exec(`
INSERT INTO import_runs (traceId, tenant, countsJson, timingsJson) VALUES (?, ?, ?, ?)
`, traceID, tenant, string(countsJSON), string(timingsJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertApplyOutcomes(runID int64, outcomes []internal.ApplyOutcome) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO apply_outcomes (runId, rowId, docName, facilityId, status, planRef, errDetail)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.Exec(runID, o.RowID, o.DocName, o.FacilityID, string(o.Status), o.PlanRef, o.ErrDetail); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
