// api/store/funnel_store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"funnelpulse/api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type FunnelStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewFunnelStore(db *sql.DB, logger *zap.Logger) *FunnelStore {
	return &FunnelStore{db: db, logger: logger}
}

// CreateFunnel inserts a funnel and its steps in one transaction. Step order
// values are assigned from the slice position, so they are always unique and
// increasing from zero.
func (s *FunnelStore) CreateFunnel(ctx context.Context, projectID, name string, steps []models.FunnelStep) (*models.FunnelDefinition, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("funnel must have at least one step")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	funnel := &models.FunnelDefinition{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO funnels (id, project_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at;
	`, funnel.ID, projectID, name).Scan(&funnel.CreatedAt, &funnel.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create funnel: %w", err)
	}

	for i, step := range steps {
		step.ID = uuid.New().String()
		step.Order = i
		_, err = tx.ExecContext(ctx, `
			INSERT INTO funnel_steps (id, funnel_id, name, step_order, event_type, event_name, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7);
		`, step.ID, funnel.ID, step.Name, step.Order,
			step.MatchCriteria.EventType, step.MatchCriteria.EventName, step.MatchCriteria.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create funnel step %d: %w", i, err)
		}
		funnel.Steps = append(funnel.Steps, step)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit funnel creation: %w", err)
	}

	s.logger.Info("funnel created",
		zap.String("funnel_id", funnel.ID),
		zap.String("project_id", projectID),
		zap.Int("steps", len(steps)))
	return funnel, nil
}

// GetFunnel loads a funnel with its steps ordered by step_order ascending.
func (s *FunnelStore) GetFunnel(ctx context.Context, funnelID string) (*models.FunnelDefinition, error) {
	funnel := &models.FunnelDefinition{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, created_at, updated_at
		FROM funnels
		WHERE id = $1;
	`, funnelID).Scan(&funnel.ID, &funnel.ProjectID, &funnel.Name, &funnel.CreatedAt, &funnel.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get funnel: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, step_order, event_type, event_name, url
		FROM funnel_steps
		WHERE funnel_id = $1
		ORDER BY step_order ASC;
	`, funnelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get funnel steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step models.FunnelStep
		if err := rows.Scan(&step.ID, &step.Name, &step.Order,
			&step.MatchCriteria.EventType, &step.MatchCriteria.EventName, &step.MatchCriteria.URL); err != nil {
			return nil, fmt.Errorf("failed to scan funnel step: %w", err)
		}
		funnel.Steps = append(funnel.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error loading funnel steps: %w", err)
	}

	return funnel, nil
}

// ListFunnels returns all funnels for a project, without their steps.
func (s *FunnelStore) ListFunnels(ctx context.Context, projectID string) ([]models.FunnelDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, created_at, updated_at
		FROM funnels
		WHERE project_id = $1
		ORDER BY created_at DESC;
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}
	defer rows.Close()

	var funnels []models.FunnelDefinition
	for rows.Next() {
		var f models.FunnelDefinition
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan funnel: %w", err)
		}
		funnels = append(funnels, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error listing funnels: %w", err)
	}

	return funnels, nil
}

// DeleteFunnel removes a funnel and its steps.
func (s *FunnelStore) DeleteFunnel(ctx context.Context, funnelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM funnel_steps WHERE funnel_id = $1;`, funnelID); err != nil {
		return fmt.Errorf("failed to delete funnel steps: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM funnels WHERE id = $1;`, funnelID)
	if err != nil {
		return fmt.Errorf("failed to delete funnel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit funnel deletion: %w", err)
	}

	s.logger.Info("funnel deleted", zap.String("funnel_id", funnelID))
	return nil
}
