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

// SessionRepository handles authentication session database operations.
// Update carries the optimistic revision check in its WHERE clause, so a
// stale writer is detected without an extra round trip.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.AuthSession) error {
	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return persistence.NewStoreError("Create", "auth_session", session.ID, err)
	}

	query := `
		INSERT INTO auth_sessions (id, realm_id, flow_version_id, current_node_id, context, status, user_id, revision, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		session.ID, session.RealmID, session.FlowVersionID, session.CurrentNodeID,
		contextJSON, session.Status, nullableString(session.UserID), session.Revision,
		session.CreatedAt, session.UpdatedAt, session.ExpiresAt)
	if err != nil {
		return persistence.NewStoreError("Create", "auth_session", session.ID, err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.AuthSession, error) {
	query := `
		SELECT
			id
		  , realm_id
		  , flow_version_id
		  , current_node_id
		  , context
		  , status
		  , user_id
		  , revision
		  , created_at
		  , updated_at
		  , expires_at
		FROM auth_sessions
		WHERE id = $1
	`

	var (
		session     models.AuthSession
		contextJSON []byte
		userID      sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.RealmID, &session.FlowVersionID, &session.CurrentNodeID,
		&contextJSON, &session.Status, &userID, &session.Revision,
		&session.CreatedAt, &session.UpdatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "auth_session", id, persistence.ErrSessionNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "auth_session", id, err)
	}

	err = json.Unmarshal(contextJSON, &session.Context)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "auth_session", id, err)
	}

	session.UserID = userID.String

	return &session, nil
}

// Update writes the session only if the stored revision still matches the
// one the caller read, then increments it.
func (r *SessionRepository) Update(ctx context.Context, session *models.AuthSession) error {
	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return persistence.NewStoreError("Update", "auth_session", session.ID, err)
	}

	query := `
		UPDATE auth_sessions SET
			current_node_id = $1
		  , context = $2
		  , status = $3
		  , user_id = $4
		  , revision = revision + 1
		  , updated_at = $5
		WHERE id = $6 AND revision = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		session.CurrentNodeID, contextJSON, session.Status,
		nullableString(session.UserID), session.UpdatedAt,
		session.ID, session.Revision)
	if err != nil {
		return persistence.NewStoreError("Update", "auth_session", session.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Update", "auth_session", session.ID, err)
	}

	if affected == 0 {
		exists, err := r.exists(ctx, session.ID)
		if err != nil {
			return persistence.NewStoreError("Update", "auth_session", session.ID, err)
		}

		if !exists {
			return persistence.NewStoreError("Update", "auth_session", session.ID, persistence.ErrSessionNotFound)
		}

		return persistence.NewStoreError("Update", "auth_session", session.ID, persistence.ErrStaleSession)
	}

	session.Revision++

	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", "auth_session", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", "auth_session", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "auth_session", id, persistence.ErrSessionNotFound)
	}

	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE expires_at < $1", before)
	if err != nil {
		return 0, persistence.NewStoreError("DeleteExpired", "auth_session", "", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, persistence.NewStoreError("DeleteExpired", "auth_session", "", err)
	}

	return affected, nil
}

func (r *SessionRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM auth_sessions WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
