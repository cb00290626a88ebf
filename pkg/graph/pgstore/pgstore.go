// Package pgstore provides a PostgreSQL-backed alternative to pkg/graph's
// file-based ".rtc" persistence, grounded on the teacher's
// pkg/memory/postgres store: a single pgxpool.Pool, a Migrate step that
// creates tables idempotently via CREATE TABLE IF NOT EXISTS, and
// fmt.Errorf-wrapped pgx errors. Where the teacher persists session
// entries and knowledge-graph entities as rows, this package persists
// module records and their connections the same way, as a named
// alternative snapshot store rather than a single flat file.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retico-go/retico/pkg/graph"
	"github.com/retico-go/retico/pkg/iu"
	"github.com/retico-go/retico/pkg/module"
)

const ddl = `
CREATE TABLE IF NOT EXISTS rtc_snapshots (
    id         BIGSERIAL   PRIMARY KEY,
    name       TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS rtc_modules (
    snapshot_id BIGINT      NOT NULL REFERENCES rtc_snapshots(id) ON DELETE CASCADE,
    module_id   TEXT        NOT NULL,
    class       TEXT        NOT NULL,
    args        JSONB       NOT NULL DEFAULT '{}',
    meta        JSONB       NOT NULL DEFAULT '{}',
    PRIMARY KEY (snapshot_id, module_id)
);

CREATE TABLE IF NOT EXISTS rtc_connections (
    snapshot_id BIGINT NOT NULL REFERENCES rtc_snapshots(id) ON DELETE CASCADE,
    consumer_id TEXT   NOT NULL,
    producer_id TEXT   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rtc_modules_snapshot
    ON rtc_modules (snapshot_id);

CREATE INDEX IF NOT EXISTS idx_rtc_connections_snapshot
    ON rtc_connections (snapshot_id);
`

// Store is a PostgreSQL-backed module-graph snapshot store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, connects to dsn, and runs Migrate.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the snapshot tables if they do not already exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// Save performs the same reachability BFS as graph.Save, but writes the
// result as one named snapshot row plus its module and connection rows
// rather than a single ".rtc" file. A prior snapshot with the same name is
// replaced.
func (s *Store) Save(ctx context.Context, name string, seeds []*module.Base) error {
	g := graph.Collect(seeds)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rtc_snapshots WHERE name = $1`, name); err != nil {
		return fmt.Errorf("pgstore: delete prior snapshot: %w", err)
	}

	var snapshotID int64
	if err := tx.QueryRow(ctx, `INSERT INTO rtc_snapshots (name) VALUES ($1) RETURNING id`, name).Scan(&snapshotID); err != nil {
		return fmt.Errorf("pgstore: insert snapshot: %w", err)
	}

	for _, rec := range g.Modules {
		args, err := json.Marshal(rec.Args)
		if err != nil {
			return fmt.Errorf("pgstore: marshal args for %q: %w", rec.ID, err)
		}
		meta, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("pgstore: marshal meta for %q: %w", rec.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rtc_modules (snapshot_id, module_id, class, args, meta) VALUES ($1, $2, $3, $4, $5)`,
			snapshotID, string(rec.ID), rec.Class, args, meta,
		); err != nil {
			return fmt.Errorf("pgstore: insert module %q: %w", rec.ID, err)
		}
	}

	for _, c := range g.Connections {
		if _, err := tx.Exec(ctx,
			`INSERT INTO rtc_connections (snapshot_id, consumer_id, producer_id) VALUES ($1, $2, $3)`,
			snapshotID, string(c.ConsumerID), string(c.ProducerID),
		); err != nil {
			return fmt.Errorf("pgstore: insert connection: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Load reads the named snapshot back and instantiates each module via reg,
// wiring every connection by calling Subscribe on the consumer with the
// producer — the same contract as graph.Load.
func (s *Store) Load(ctx context.Context, name string, reg graph.Registry) (map[iu.ModuleID]*module.Base, []graph.Connection, error) {
	var snapshotID int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM rtc_snapshots WHERE name = $1`, name).Scan(&snapshotID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, fmt.Errorf("%w: no snapshot named %q", graph.ErrMalformedGraph, name)
		}
		return nil, nil, fmt.Errorf("pgstore: lookup snapshot: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT module_id, class, args, meta FROM rtc_modules WHERE snapshot_id = $1`, snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore: query modules: %w", err)
	}
	modules := make(map[iu.ModuleID]*module.Base)
	for rows.Next() {
		var moduleID, class string
		var argsJSON, metaJSON []byte
		if err := rows.Scan(&moduleID, &class, &argsJSON, &metaJSON); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("pgstore: scan module row: %w", err)
		}
		var args, meta map[string]any
		_ = json.Unmarshal(argsJSON, &args)
		_ = json.Unmarshal(metaJSON, &meta)

		ctor, ok := reg[class]
		if !ok {
			rows.Close()
			return nil, nil, fmt.Errorf("%w: %q", graph.ErrUnknownModuleClass, class)
		}
		b, err := ctor(iu.ModuleID(moduleID), args)
		if err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("pgstore: construct %q: %w", class, err)
		}
		b.SetClassInfo(class, args)
		b.SetMeta(meta)
		modules[iu.ModuleID(moduleID)] = b
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("pgstore: read modules: %w", err)
	}
	rows.Close()

	connRows, err := s.pool.Query(ctx, `SELECT consumer_id, producer_id FROM rtc_connections WHERE snapshot_id = $1`, snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore: query connections: %w", err)
	}
	defer connRows.Close()

	var conns []graph.Connection
	for connRows.Next() {
		var consumerID, producerID string
		if err := connRows.Scan(&consumerID, &producerID); err != nil {
			return nil, nil, fmt.Errorf("pgstore: scan connection row: %w", err)
		}
		consumer, ok := modules[iu.ModuleID(consumerID)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: connection references unknown consumer %q", graph.ErrMalformedGraph, consumerID)
		}
		producer, ok := modules[iu.ModuleID(producerID)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: connection references unknown producer %q", graph.ErrMalformedGraph, producerID)
		}
		consumer.Subscribe(producer)
		conns = append(conns, graph.Connection{ConsumerID: iu.ModuleID(consumerID), ProducerID: iu.ModuleID(producerID)})
	}
	if err := connRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("pgstore: read connections: %w", err)
	}

	return modules, conns, nil
}
