package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
)

// DraftRepository handles flow draft database operations.
type DraftRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDraftRepository(db *sql.DB, logger *slog.Logger) *DraftRepository {
	return &DraftRepository{db: db, logger: logger}
}

func (r *DraftRepository) Save(ctx context.Context, draft *models.FlowDraft) error {
	query := `
		INSERT INTO flow_drafts (id, realm_id, name, description, flow_type, graph, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , graph = EXCLUDED.graph
		  , updated_at = EXCLUDED.updated_at
	`

	graph := draft.Graph
	if graph == nil {
		graph = []byte(`{}`)
	}

	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.RealmID, draft.Name, draft.Description,
		draft.FlowType, []byte(graph), draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "flow_draft", draft.ID, err)
	}

	return nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*models.FlowDraft, error) {
	query := `
		SELECT
			id
		  , realm_id
		  , name
		  , description
		  , flow_type
		  , graph
		  , created_at
		  , updated_at
		FROM flow_drafts
		WHERE id = $1
	`

	draft, err := scanDraft(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "flow_draft", id, persistence.ErrDraftNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "flow_draft", id, err)
	}

	return draft, nil
}

func (r *DraftRepository) ListByRealm(ctx context.Context, realmID string) ([]*models.FlowDraft, error) {
	query := `
		SELECT
			id
		  , realm_id
		  , name
		  , description
		  , flow_type
		  , graph
		  , created_at
		  , updated_at
		FROM flow_drafts
		WHERE realm_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, realmID)
	if err != nil {
		return nil, persistence.NewStoreError("ListByRealm", "flow_draft", realmID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	drafts := make([]*models.FlowDraft, 0)

	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, persistence.NewStoreError("ListByRealm", "flow_draft", realmID, err)
		}

		drafts = append(drafts, draft)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("ListByRealm", "flow_draft", realmID, err)
	}

	return drafts, nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM flow_drafts WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("Delete", "flow_draft", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("Delete", "flow_draft", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "flow_draft", id, persistence.ErrDraftNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.FlowDraft, error) {
	var (
		draft models.FlowDraft
		graph []byte
	)

	err := row.Scan(&draft.ID, &draft.RealmID, &draft.Name, &draft.Description,
		&draft.FlowType, &graph, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		return nil, err
	}

	draft.Graph = graph

	return &draft, nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
