package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunekit/tunekit/pkg/config"
	"github.com/tunekit/tunekit/pkg/telemetry"
	"github.com/tunekit/tunekit/pkg/tunable"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrSnapshotNotFound is returned when no snapshot has the requested id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SQLiteStore implements SnapshotStore using SQLite
type SQLiteStore struct {
	db      *sql.DB
	cfg     Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	Logger  *zerolog.Logger
	Metrics *telemetry.Metrics
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: opens a separate database.
	if isMemory(cfg.Path) {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &SQLiteStore{
		cfg:     cfg,
		logger:  logger.With().Str("component", "snapshot-store").Logger(),
		metrics: cfg.Metrics,
	}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Init opens the database connection and enables WAL mode for file
// databases.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if !isMemory(s.cfg.Path) {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	s.logger.Debug().Str("path", s.cfg.Path).Msg("Snapshot database opened")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveSnapshot stores the current value of every leaf of h. A nil handle
// is rejected: there is nothing to identify the model by.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, h *tunable.Handle, label string) (snap *Snapshot, err error) {
	defer func() { s.record("save", err) }()

	if h == nil {
		return nil, tunable.Errorf(tunable.ClassInvalidArgument, "cannot snapshot an empty parameter set")
	}

	snap = &Snapshot{
		ID:        uuid.NewString(),
		Model:     h.Model(),
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	for _, d := range h.Descriptors() {
		v, err := h.GetStructured(d.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", d.Name(), err)
		}
		snap.Values = append(snap.Values, ParamValue{
			Name: d.Name(),
			Type: d.Type(),
			Rows: v.Rows,
			Cols: v.Cols,
			Text: config.FormatValue(v),
		})
	}
	snap.Count = len(snap.Values)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, model, label, param_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, snap.ID, snap.Model, snap.Label, snap.Count, snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_values (snapshot_id, position, name, type, n_rows, n_cols, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare snapshot values: %w", err)
	}
	defer stmt.Close()

	for i, v := range snap.Values {
		if _, err = stmt.ExecContext(ctx, snap.ID, i, v.Name, v.Type.String(), v.Rows, v.Cols, v.Text); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", v.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.Info().
		Str("snapshot", snap.ID).
		Str("model", snap.Model).
		Str("label", label).
		Int("params", snap.Count).
		Msg("Snapshot saved")
	return snap, nil
}

// GetSnapshot retrieves a snapshot and its values by ID
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, model, label, param_count, created_at
		FROM snapshots
		WHERE id = ?
	`, id).Scan(&snap.ID, &snap.Model, &snap.Label, &snap.Count, &snap.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, n_rows, n_cols, value
		FROM snapshot_values
		WHERE snapshot_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v ParamValue
		var typ string
		if err := rows.Scan(&v.Name, &typ, &v.Rows, &v.Cols, &v.Text); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot value: %w", err)
		}
		if v.Type, err = tunable.ParseElemType(typ); err != nil {
			return nil, fmt.Errorf("snapshot value %s: %w", v.Name, err)
		}
		snap.Values = append(snap.Values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot values: %w", err)
	}

	return snap, nil
}

// ListSnapshots lists the snapshots of model, newest first, without their
// values. An empty model lists all snapshots.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, model string, limit, offset int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, model, label, param_count, created_at
		FROM snapshots
		WHERE (? = '' OR model = ?)
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, model, model, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []*Snapshot{}
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(&snap.ID, &snap.Model, &snap.Label, &snap.Count, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// DeleteSnapshot deletes a snapshot and its values by ID
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) (err error) {
	defer func() { s.record("delete", err) }()

	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	return nil
}

// RestoreSnapshot writes the snapshot's values back into h through a
// config.Bridge built with opts. Every leaf of h is attempted; leaves the
// snapshot lacks count as failures. The snapshot must belong to h's model.
func (s *SQLiteStore) RestoreSnapshot(ctx context.Context, h *tunable.Handle, id string, opts ...config.BridgeOption) (failures int, err error) {
	defer func() { s.record("restore", err) }()

	snap, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return 0, err
	}
	if h == nil {
		return 0, tunable.Errorf(tunable.ClassInvalidArgument, "cannot restore into an empty parameter set")
	}
	if snap.Model != h.Model() {
		return 0, tunable.Errorf(tunable.ClassInvalidArgument, "snapshot %s belongs to model %s, not %s", id, snap.Model, h.Model())
	}

	opts = append([]config.BridgeOption{
		config.WithLogger(s.logger),
		config.WithMetrics(s.metrics),
		config.WithSource("snapshot"),
	}, opts...)
	failures = config.NewBridge(h, opts...).ReadAllRequired(snap.Entries(), "")

	s.logger.Info().
		Str("snapshot", id).
		Str("model", snap.Model).
		Int("failures", failures).
		Msg("Snapshot restored")
	return failures, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) record(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.logger.Error().Err(err).Str("operation", op).Msg("Snapshot operation failed")
	}
	s.metrics.RecordSnapshot(op, status)
}
