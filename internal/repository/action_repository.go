package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
)

// actionRepository is append-only: there is no update or delete statement
// in this file on purpose.
type actionRepository struct {
	db DBTX
}

func NewAction(db DBTX) (port.ActionRepository, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}

	return &actionRepository{db: db}, nil
}

func (r *actionRepository) InsertAction(ctx context.Context, action domain.OrderAction) (uuid.UUID, error) {
	if action.OrderID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("orderID is empty")
	}

	if _, err := domain.ToActionType(string(action.Type)); err != nil {
		return uuid.Nil, fmt.Errorf("action type[%s]: %w", action.Type, err)
	}

	if action.Actor == "" {
		return uuid.Nil, errors.New("actor is empty")
	}

	var actionID uuid.UUID

	err := r.db.QueryRow(ctx,
		`INSERT INTO order_actions (order_id, action_type, description, actor, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		action.OrderID, string(action.Type), action.Description, action.Actor,
		emptyJSONIfNil(action.Metadata),
	).Scan(&actionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("db.QueryRow: %w", err)
	}

	return actionID, nil
}

func (r *actionRepository) ListActions(ctx context.Context, orderID uuid.UUID) ([]domain.OrderAction, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("orderID is empty")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, action_type, description, actor, metadata, created_at
		 FROM order_actions
		 WHERE order_id = $1
		 ORDER BY created_at, id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var actions []domain.OrderAction

	for rows.Next() {
		var (
			a       domain.OrderAction
			typeStr string
		)

		if err := rows.Scan(&a.ID, &a.OrderID, &typeStr, &a.Description, &a.Actor, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		actionType, err := domain.ToActionType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("domain.ToActionType[%s]: %w", typeStr, err)
		}
		a.Type = actionType

		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return actions, nil
}

func emptyJSONIfNil(j []byte) []byte {
	if j == nil {
		return []byte(`{}`)
	}
	return j
}
