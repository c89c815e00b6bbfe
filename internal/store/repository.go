package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneymap/moneymap/internal/contracts"
)

// Repository persists observations, the cooldown history, and finished
// story packages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new store repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the moneymap schema and tables if absent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS moneymap`,
		`CREATE TABLE IF NOT EXISTS moneymap.observations (
			code      TEXT NOT NULL,
			obs_date  DATE NOT NULL,
			value     DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (code, obs_date)
		)`,
		`CREATE TABLE IF NOT EXISTS moneymap.cooldown_history (
			id       BIGSERIAL PRIMARY KEY,
			code     TEXT NOT NULL,
			episode  INTEGER NOT NULL,
			run_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS moneymap.story_packages (
			episode   INTEGER PRIMARY KEY,
			run_at    TIMESTAMPTZ NOT NULL,
			lead_code TEXT NOT NULL,
			package   JSONB NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveSeries upserts all observations for one indicator.
func (r *Repository) SaveSeries(ctx context.Context, code string, series contracts.Series) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO moneymap.observations (code, obs_date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (code, obs_date) DO UPDATE SET value = EXCLUDED.value
	`
	for _, obs := range series {
		if _, err := tx.Exec(ctx, query, code, obs.Date, obs.Value); err != nil {
			return fmt.Errorf("save observation %s/%s: %w", code, obs.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit(ctx)
}

// LoadSeries returns the stored series for an indicator, ordered by date.
func (r *Repository) LoadSeries(ctx context.Context, code string, since time.Time) (contracts.Series, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT obs_date, value
		FROM moneymap.observations
		WHERE code = $1 AND obs_date >= $2
		ORDER BY obs_date ASC
	`, code, since)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", code, err)
	}
	defer rows.Close()

	var series contracts.Series
	for rows.Next() {
		var obs contracts.Observation
		if err := rows.Scan(&obs.Date, &obs.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		series = append(series, obs)
	}
	return series, rows.Err()
}

// LoadCooldown returns the most recent cooldown entries, oldest first.
func (r *Repository) LoadCooldown(ctx context.Context, limit int) (contracts.CooldownLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, episode, run_at FROM (
			SELECT code, episode, run_at
			FROM moneymap.cooldown_history
			ORDER BY episode DESC
			LIMIT $1
		) recent
		ORDER BY episode ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("load cooldown history: %w", err)
	}
	defer rows.Close()

	var log contracts.CooldownLog
	for rows.Next() {
		var e contracts.CooldownEntry
		if err := rows.Scan(&e.Code, &e.Episode, &e.RunAt); err != nil {
			return nil, fmt.Errorf("scan cooldown entry: %w", err)
		}
		log = append(log, e)
	}
	return log, rows.Err()
}

// AppendCooldown records the lead selection of a finished run.
func (r *Repository) AppendCooldown(ctx context.Context, entry contracts.CooldownEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO moneymap.cooldown_history (code, episode, run_at)
		VALUES ($1, $2, $3)
	`, entry.Code, entry.Episode, entry.RunAt)
	if err != nil {
		return fmt.Errorf("append cooldown entry: %w", err)
	}
	return nil
}

// NextEpisode returns the next episode sequence number.
func (r *Repository) NextEpisode(ctx context.Context) (int, error) {
	var next int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(episode), 0) + 1 FROM moneymap.story_packages
	`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next episode: %w", err)
	}
	return next, nil
}

// SaveStoryPackage stores a finished package as JSONB.
func (r *Repository) SaveStoryPackage(ctx context.Context, pkg *contracts.StoryPackage) error {
	data, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("marshal story package: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO moneymap.story_packages (episode, run_at, lead_code, package)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (episode) DO UPDATE SET
			run_at = EXCLUDED.run_at,
			lead_code = EXCLUDED.lead_code,
			package = EXCLUDED.package
	`, pkg.Episode, pkg.RunAt, pkg.Lead.Indicator.Code, data)
	if err != nil {
		return fmt.Errorf("save story package: %w", err)
	}
	return nil
}

// LatestStoryPackage returns the most recent package, or nil when no run
// has completed yet.
func (r *Repository) LatestStoryPackage(ctx context.Context) (*contracts.StoryPackage, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `
		SELECT package FROM moneymap.story_packages
		ORDER BY episode DESC LIMIT 1
	`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest story package: %w", err)
	}

	var pkg contracts.StoryPackage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("unmarshal story package: %w", err)
	}
	return &pkg, nil
}
