/*
Package sqlite provides a SQLite-backed implementation of bonus.RecordStore.

PURPOSE:
  Persists providers, monthly evaluations and monthly global indicator
  records, and enforces their lifecycle. Computed bonus results are never
  stored; they are recomputed from these inputs on every request.

KEY TABLES:
  providers:         Provider records with base salary (decimal text)
  evaluations:       One row per (provider, month); tier 1-3 inputs
  global_indicators: One row per month; tier 4 inputs

INVARIANTS:
  - idx_evaluations_provider_month: UNIQUE(provider_id, year, month)
  - idx_global_indicators_month:    UNIQUE(year, month)
  - released_at NOT NULL rows are never updated or deleted; the guard runs
    inside the same SQL transaction as the write

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus SQLite's own locking. The
  connection pool is capped at one connection so ":memory:" databases are
  shared by every query.

USAGE:
  store, err := sqlite.New("./data/bonus.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - bonus/store.go: Interface definitions and lifecycle contract
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
)

// Store implements bonus.RecordStore using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ bonus.RecordStore = (*Store)(nil)

type options struct {
	maxOpenConns    int
	connMaxLifetime time.Duration
}

// Option configures the connection pool.
type Option func(*options)

func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) { o.connMaxLifetime = d }
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	o := &options{maxOpenConns: 1}
	for _, opt := range opts {
		opt(o)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetConnMaxLifetime(o.connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		base_salary TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_providers_active
		ON providers(active);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL REFERENCES providers(id),
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		absence_days INTEGER NOT NULL DEFAULT 0,
		pending_items INTEGER NOT NULL DEFAULT 0,
		infractions INTEGER NOT NULL DEFAULT 0,
		productivity REAL NOT NULL DEFAULT 0,
		quality REAL NOT NULL DEFAULT 0,
		behavior REAL NOT NULL DEFAULT 0,
		skills REAL NOT NULL DEFAULT 0,
		attitude REAL NOT NULL DEFAULT 0,
		value_alignment REAL NOT NULL DEFAULT 0,
		nps_project REAL NOT NULL DEFAULT 0,
		backlog REAL NOT NULL DEFAULT 0,
		priorities REAL NOT NULL DEFAULT 0,
		sla REAL NOT NULL DEFAULT 0,
		released_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one evaluation per provider per month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_evaluations_provider_month
		ON evaluations(provider_id, year, month);

	CREATE TABLE IF NOT EXISTS global_indicators (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		nps_global REAL NOT NULL DEFAULT 0,
		churn REAL NOT NULL DEFAULT 0,
		platform_usage REAL NOT NULL DEFAULT 0,
		released_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one global record per month
	CREATE UNIQUE INDEX IF NOT EXISTS idx_global_indicators_month
		ON global_indicators(year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (for demos/testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"evaluations", "global_indicators", "providers"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// PROVIDERS
// =============================================================================

// SaveProvider inserts or updates a provider, keeping its original created_at.
func (s *Store) SaveProvider(ctx context.Context, p bonus.Provider) error {
	if err := bonus.ValidateProvider(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (id, name, email, base_salary, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			base_salary = excluded.base_salary,
			active = excluded.active
	`, p.ID, p.Name, nullString(p.Email), p.BaseSalary.String(), p.Active, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to save provider: %w", err)
	}
	return nil
}

const providerColumns = `id, name, email, base_salary, active, created_at`

func (s *Store) GetProvider(ctx context.Context, id generic.ProviderID) (*bonus.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = ?`, id)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrProviderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return p, nil
}

func (s *Store) ListProviders(ctx context.Context, activeOnly bool) ([]bonus.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + providerColumns + ` FROM providers`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var result []bonus.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func scanProvider(row scanner) (*bonus.Provider, error) {
	var (
		p         bonus.Provider
		email     sql.NullString
		salary    string
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &email, &salary, &p.Active, &createdAt); err != nil {
		return nil, err
	}
	base, err := decimal.NewFromString(salary)
	if err != nil {
		return nil, fmt.Errorf("invalid base salary %q for provider %s: %w", salary, p.ID, err)
	}
	p.Email = email.String
	p.BaseSalary = base
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// =============================================================================
// EVALUATIONS
// =============================================================================

const evaluationColumns = `id, provider_id, year, month,
	absence_days, pending_items, infractions,
	productivity, quality, behavior, skills, attitude, value_alignment,
	nps_project, backlog, priorities, sla,
	released_at, created_at, updated_at`

func (s *Store) CreateEvaluation(ctx context.Context, providerID generic.ProviderID, month generic.Month) (*bonus.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM providers WHERE id = ?`, providerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check provider: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", generic.ErrProviderNotFound, providerID)
	}

	now := s.now()
	e := bonus.Evaluation{
		ID:         generic.RecordID(uuid.NewString()),
		ProviderID: providerID,
		Month:      month,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, provider_id, year, month, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, providerID, month.Year, int(month.Month), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: evaluation %s %s", generic.ErrDuplicateRecord, providerID, month)
		}
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}
	return &e, nil
}

func (s *Store) GetEvaluationByID(ctx context.Context, id generic.RecordID) (*bonus.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEvaluationByID(ctx, s.db, id)
}

func (s *Store) getEvaluationByID(ctx context.Context, q querier, id generic.RecordID) (*bonus.Evaluation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = ?`, id)
	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return e, nil
}

func (s *Store) GetEvaluation(ctx context.Context, providerID generic.ProviderID, month generic.Month) (*bonus.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE provider_id = ? AND year = ? AND month = ?`,
		providerID, month.Year, int(month.Month))
	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", generic.ErrEvaluationNotFound, providerID, month)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return e, nil
}

func (s *Store) ListEvaluations(ctx context.Context, providerID generic.ProviderID, year int) ([]bonus.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE provider_id = ? AND year = ? ORDER BY month ASC`,
		providerID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var result []bonus.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// UpdateEvaluation applies patch to an unreleased evaluation.
func (s *Store) UpdateEvaluation(ctx context.Context, id generic.RecordID, patch bonus.EvaluationPatch) (*bonus.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	current, err := s.getEvaluationByID(ctx, sqlTx, id)
	if err != nil {
		return nil, err
	}
	if current.Released() {
		return nil, &generic.RecordReleasedError{Kind: "evaluation", ID: id}
	}
	e, err := patch.Apply(*current)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt = s.now()

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE evaluations SET
			absence_days = ?, pending_items = ?, infractions = ?,
			productivity = ?, quality = ?, behavior = ?, skills = ?, attitude = ?, value_alignment = ?,
			nps_project = ?, backlog = ?, priorities = ?, sla = ?,
			updated_at = ?
		WHERE id = ? AND released_at IS NULL
	`,
		e.AbsenceDays, e.PendingItems, e.Infractions,
		e.Productivity, e.Quality, e.Behavior, e.Skills, e.Attitude, e.Values,
		e.NPSProject, e.Backlog, e.Priorities, e.SLA,
		formatTime(e.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit evaluation: %w", err)
	}
	return &e, nil
}

// ReleaseEvaluation locks an evaluation. Releasing twice keeps the first timestamp.
func (s *Store) ReleaseEvaluation(ctx context.Context, id generic.RecordID) (*bonus.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx,
		`UPDATE evaluations SET released_at = ?, updated_at = ? WHERE id = ? AND released_at IS NULL`,
		now, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to release evaluation: %w", err)
	}
	return s.getEvaluationByID(ctx, s.db, id)
}

func (s *Store) DeleteEvaluation(ctx context.Context, id generic.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getEvaluationByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if current.Released() {
		return &generic.RecordReleasedError{Kind: "evaluation", ID: id}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = ? AND released_at IS NULL`, id); err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return nil
}

func scanEvaluation(row scanner) (*bonus.Evaluation, error) {
	var (
		e                    bonus.Evaluation
		month                int
		releasedAt           sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &e.ProviderID, &e.Month.Year, &month,
		&e.AbsenceDays, &e.PendingItems, &e.Infractions,
		&e.Productivity, &e.Quality, &e.Behavior, &e.Skills, &e.Attitude, &e.Values,
		&e.NPSProject, &e.Backlog, &e.Priorities, &e.SLA,
		&releasedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.Month.Month = time.Month(month)
	e.ReleasedAt = parseNullTime(releasedAt)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// =============================================================================
// GLOBAL INDICATORS
// =============================================================================

const globalColumns = `id, year, month, nps_global, churn, platform_usage, released_at, created_at, updated_at`

func (s *Store) CreateGlobalIndicators(ctx context.Context, month generic.Month) (*bonus.GlobalIndicators, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	g := bonus.GlobalIndicators{
		ID:        generic.RecordID(uuid.NewString()),
		Month:     month,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_indicators (id, year, month, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, g.ID, month.Year, int(month.Month), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: global indicators %s", generic.ErrDuplicateRecord, month)
		}
		return nil, fmt.Errorf("failed to create global indicators: %w", err)
	}
	return &g, nil
}

func (s *Store) GetGlobalIndicatorsByID(ctx context.Context, id generic.RecordID) (*bonus.GlobalIndicators, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getGlobalByID(ctx, s.db, id)
}

func (s *Store) getGlobalByID(ctx context.Context, q querier, id generic.RecordID) (*bonus.GlobalIndicators, error) {
	row := q.QueryRowContext(ctx, `SELECT `+globalColumns+` FROM global_indicators WHERE id = ?`, id)
	g, err := scanGlobal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get global indicators: %w", err)
	}
	return g, nil
}

func (s *Store) GetGlobalIndicators(ctx context.Context, month generic.Month) (*bonus.GlobalIndicators, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+globalColumns+` FROM global_indicators WHERE year = ? AND month = ?`,
		month.Year, int(month.Month))
	g, err := scanGlobal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, month)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get global indicators: %w", err)
	}
	return g, nil
}

func (s *Store) ListGlobalIndicators(ctx context.Context, year int) ([]bonus.GlobalIndicators, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+globalColumns+` FROM global_indicators WHERE year = ? ORDER BY month ASC`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query global indicators: %w", err)
	}
	defer rows.Close()

	var result []bonus.GlobalIndicators
	for rows.Next() {
		g, err := scanGlobal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan global indicators: %w", err)
		}
		result = append(result, *g)
	}
	return result, rows.Err()
}

func (s *Store) UpdateGlobalIndicators(ctx context.Context, id generic.RecordID, patch bonus.GlobalIndicatorsPatch) (*bonus.GlobalIndicators, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	current, err := s.getGlobalByID(ctx, sqlTx, id)
	if err != nil {
		return nil, err
	}
	if current.Released() {
		return nil, &generic.RecordReleasedError{Kind: "global_indicators", ID: id}
	}
	g, err := patch.Apply(*current)
	if err != nil {
		return nil, err
	}
	g.UpdatedAt = s.now()

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE global_indicators SET nps_global = ?, churn = ?, platform_usage = ?, updated_at = ?
		WHERE id = ? AND released_at IS NULL
	`, g.NPSGlobal, g.Churn, g.PlatformUsage, formatTime(g.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update global indicators: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit global indicators: %w", err)
	}
	return &g, nil
}

func (s *Store) ReleaseGlobalIndicators(ctx context.Context, id generic.RecordID) (*bonus.GlobalIndicators, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx,
		`UPDATE global_indicators SET released_at = ?, updated_at = ? WHERE id = ? AND released_at IS NULL`,
		now, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to release global indicators: %w", err)
	}
	return s.getGlobalByID(ctx, s.db, id)
}

func (s *Store) DeleteGlobalIndicators(ctx context.Context, id generic.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getGlobalByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if current.Released() {
		return &generic.RecordReleasedError{Kind: "global_indicators", ID: id}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM global_indicators WHERE id = ? AND released_at IS NULL`, id); err != nil {
		return fmt.Errorf("failed to delete global indicators: %w", err)
	}
	return nil
}

func scanGlobal(row scanner) (*bonus.GlobalIndicators, error) {
	var (
		g                    bonus.GlobalIndicators
		month                int
		releasedAt           sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&g.ID, &g.Month.Year, &month, &g.NPSGlobal, &g.Churn, &g.PlatformUsage,
		&releasedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	g.Month.Month = time.Month(month)
	g.ReleasedAt = parseNullTime(releasedAt)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return &g, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
