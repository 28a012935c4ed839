package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/liftwise/liftwise/internal/knowledge"
	"github.com/liftwise/liftwise/internal/log"
)

// ErrNotFound is returned when no plan matches.
var ErrNotFound = errors.New("plan not found")

// Plan is one stored weekly plan.
type Plan struct {
	ID        string
	WeekStart time.Time
	Status    string
	Body      string
	Revisions int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists plans in the plans table.
type Store struct {
	db     knowledge.DB
	logger log.Logger
}

// NewStore creates a Store.
func NewStore(db knowledge.DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Save inserts a plan, assigning an ID when the plan has none.
func (s *Store) Save(ctx context.Context, plan Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO plans (id, week_start, status, body, revisions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status     = EXCLUDED.status,
			body       = EXCLUDED.body,
			revisions  = EXCLUDED.revisions,
			updated_at = now()`,
		plan.ID, plan.WeekStart, plan.Status, plan.Body, plan.Revisions)
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// Latest returns the most recently updated plan.
func (s *Store) Latest(ctx context.Context) (Plan, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, week_start, status, body, revisions, created_at, updated_at
		FROM plans
		ORDER BY updated_at DESC
		LIMIT 1`)

	var p Plan
	err := row.Scan(&p.ID, &p.WeekStart, &p.Status, &p.Body, &p.Revisions, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("loading latest plan: %w", err)
	}
	return p, nil
}
