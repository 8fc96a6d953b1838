package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
)

// ActionRepository handles single-use continuation tickets. Consume flips
// consumed_at in one statement guarded by "consumed_at IS NULL", which makes
// consumption exactly-once under concurrent resumption.
type ActionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewActionRepository(db *sql.DB, logger *slog.Logger) *ActionRepository {
	return &ActionRepository{db: db, logger: logger}
}

func (r *ActionRepository) Create(ctx context.Context, action *models.SessionAction) error {
	payloadJSON, err := json.Marshal(action.Payload)
	if err != nil {
		return persistence.NewStoreError("Create", "session_action", action.ID, err)
	}

	query := `
		INSERT INTO auth_session_actions (id, session_id, realm_id, action_type, token_hash, payload, resume_node_id, expires_at, consumed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		action.ID, action.SessionID, action.RealmID, action.ActionType,
		action.TokenHash, payloadJSON, action.ResumeNodeID,
		action.ExpiresAt, action.ConsumedAt, action.CreatedAt, action.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "session_action", action.ID, err)
	}

	return nil
}

func (r *ActionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.SessionAction, error) {
	query := `
		SELECT
			id
		  , session_id
		  , realm_id
		  , action_type
		  , token_hash
		  , payload
		  , resume_node_id
		  , expires_at
		  , consumed_at
		  , created_at
		  , updated_at
		FROM auth_session_actions
		WHERE token_hash = $1
	`

	var (
		action      models.SessionAction
		payloadJSON []byte
		consumedAt  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&action.ID, &action.SessionID, &action.RealmID, &action.ActionType,
		&action.TokenHash, &payloadJSON, &action.ResumeNodeID,
		&action.ExpiresAt, &consumedAt, &action.CreatedAt, &action.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByTokenHash", "session_action", "", persistence.ErrActionNotFound)
		}

		return nil, persistence.NewStoreError("GetByTokenHash", "session_action", "", err)
	}

	if payloadJSON != nil {
		err = json.Unmarshal(payloadJSON, &action.Payload)
		if err != nil {
			return nil, persistence.NewStoreError("GetByTokenHash", "session_action", action.ID, err)
		}
	}

	if consumedAt.Valid {
		action.ConsumedAt = &consumedAt.Time
	}

	return &action, nil
}

func (r *ActionRepository) Consume(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE auth_session_actions
		SET consumed_at = $1, updated_at = $1
		WHERE id = $2 AND consumed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return persistence.NewStoreError("Consume", "session_action", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Consume", "session_action", id, err)
	}

	if affected == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return persistence.NewStoreError("Consume", "session_action", id, err)
		}

		if !exists {
			return persistence.NewStoreError("Consume", "session_action", id, persistence.ErrActionNotFound)
		}

		return persistence.NewStoreError("Consume", "session_action", id, persistence.ErrActionConsumed)
	}

	return nil
}

func (r *ActionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM auth_session_actions WHERE expires_at < $1 OR consumed_at IS NOT NULL", before)
	if err != nil {
		return 0, persistence.NewStoreError("DeleteExpired", "session_action", "", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, persistence.NewStoreError("DeleteExpired", "session_action", "", err)
	}

	return affected, nil
}

func (r *ActionRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM auth_session_actions WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
