package db

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peakplanner/peakplanner_core/internal/cover"
	"github.com/peakplanner/peakplanner_core/internal/models"
)

// SavedPlan is one persisted cover run.
type SavedPlan struct {
	ID        int64
	Name      string
	Options   cover.Options
	Plan      models.Plan
	CreatedAt time.Time
}

// EnsureSchema creates the saved-plan table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS saved_plan (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			options JSONB NOT NULL,
			plan JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create saved_plan table: %w", err)
	}
	return nil
}

// SavePlan persists a computed plan under a name and returns its id.
func SavePlan(ctx context.Context, pool *pgxpool.Pool, name string, opts cover.Options, plan models.Plan) (int64, error) {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal options: %w", err)
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal plan: %w", err)
	}

	var id int64
	err = pool.QueryRow(ctx, `
		INSERT INTO saved_plan (name, options, plan)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, optsJSON, planJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save plan: %w", err)
	}
	return id, nil
}

// GetPlan loads one saved plan by id.
func GetPlan(ctx context.Context, pool *pgxpool.Pool, id int64) (*SavedPlan, error) {
	var sp SavedPlan
	var optsJSON, planJSON []byte
	err := pool.QueryRow(ctx, `
		SELECT id, name, options, plan, created_at
		FROM saved_plan WHERE id = $1
	`, id).Scan(&sp.ID, &sp.Name, &optsJSON, &planJSON, &sp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %d: %w", id, err)
	}
	if err := json.Unmarshal(optsJSON, &sp.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options for plan %d: %w", id, err)
	}
	if err := json.Unmarshal(planJSON, &sp.Plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan %d: %w", id, err)
	}
	return &sp, nil
}

// ListPlans returns saved plans, newest first.
func ListPlans(ctx context.Context, pool *pgxpool.Pool, limit int) ([]SavedPlan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := pool.Query(ctx, `
		SELECT id, name, options, plan, created_at
		FROM saved_plan
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var out []SavedPlan
	for rows.Next() {
		var sp SavedPlan
		var optsJSON, planJSON []byte
		if err := rows.Scan(&sp.ID, &sp.Name, &optsJSON, &planJSON, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		if err := json.Unmarshal(optsJSON, &sp.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
		if err := json.Unmarshal(planJSON, &sp.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
