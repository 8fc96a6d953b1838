package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
)

// uniqueViolation is the postgres error code raised when the
// (draft_id, version_number) constraint catches a concurrent publish.
const uniqueViolation = "23505"

// VersionRepository handles immutable flow version database operations.
// Versions are insert-only; there is no update path by design of the store
// schema.
type VersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewVersionRepository(db *sql.DB, logger *slog.Logger) *VersionRepository {
	return &VersionRepository{db: db, logger: logger}
}

func (r *VersionRepository) Create(ctx context.Context, version *models.FlowVersion) error {
	query := `
		INSERT INTO flow_versions (id, draft_id, realm_id, flow_type, version_number, artifact, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		version.ID, version.DraftID, version.RealmID, version.FlowType,
		version.VersionNumber, []byte(version.Artifact), version.Checksum, version.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return persistence.NewStoreError("Create", "flow_version", version.ID, persistence.ErrVersionConflict)
		}

		return persistence.NewStoreError("Create", "flow_version", version.ID, err)
	}

	return nil
}

func (r *VersionRepository) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	query := `
		SELECT
			id
		  , draft_id
		  , realm_id
		  , flow_type
		  , version_number
		  , artifact
		  , checksum
		  , created_at
		FROM flow_versions
		WHERE id = $1
	`

	version, err := scanVersion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "flow_version", id, persistence.ErrVersionNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "flow_version", id, err)
	}

	return version, nil
}

func (r *VersionRepository) ListByDraft(ctx context.Context, draftID string) ([]*models.FlowVersion, error) {
	query := `
		SELECT
			id
		  , draft_id
		  , realm_id
		  , flow_type
		  , version_number
		  , artifact
		  , checksum
		  , created_at
		FROM flow_versions
		WHERE draft_id = $1
		ORDER BY version_number DESC
	`

	rows, err := r.db.QueryContext(ctx, query, draftID)
	if err != nil {
		return nil, persistence.NewStoreError("ListByDraft", "flow_version", draftID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	versions := make([]*models.FlowVersion, 0)

	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, persistence.NewStoreError("ListByDraft", "flow_version", draftID, err)
		}

		versions = append(versions, version)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("ListByDraft", "flow_version", draftID, err)
	}

	return versions, nil
}

func (r *VersionRepository) MaxVersionNumber(ctx context.Context, draftID string) (int, error) {
	var maxNumber int

	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version_number), 0) FROM flow_versions WHERE draft_id = $1",
		draftID).Scan(&maxNumber)
	if err != nil {
		return 0, persistence.NewStoreError("MaxVersionNumber", "flow_version", draftID, err)
	}

	return maxNumber, nil
}

func scanVersion(row rowScanner) (*models.FlowVersion, error) {
	var (
		version  models.FlowVersion
		artifact []byte
	)

	err := row.Scan(&version.ID, &version.DraftID, &version.RealmID, &version.FlowType,
		&version.VersionNumber, &artifact, &version.Checksum, &version.CreatedAt)
	if err != nil {
		return nil, err
	}

	version.Artifact = artifact

	return &version, nil
}
