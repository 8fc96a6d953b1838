package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/gatehouse-id/gatehouse/pkg/models"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
)

// DeploymentRepository handles the active-version pointer per (realm, flow
// type). The upsert is a single statement, so readers always observe either
// the old or the new pointer.
type DeploymentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDeploymentRepository(db *sql.DB, logger *slog.Logger) *DeploymentRepository {
	return &DeploymentRepository{db: db, logger: logger}
}

func (r *DeploymentRepository) Upsert(ctx context.Context, deployment *models.FlowDeployment) error {
	query := `
		INSERT INTO flow_deployments (id, realm_id, flow_type, active_version_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (realm_id, flow_type) DO UPDATE SET
			active_version_id = EXCLUDED.active_version_id
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		deployment.ID, deployment.RealmID, deployment.FlowType,
		deployment.ActiveVersionID, deployment.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Upsert", "flow_deployment", deployment.ID, err)
	}

	return nil
}

func (r *DeploymentRepository) Get(ctx context.Context, realmID string, flowType models.FlowType) (*models.FlowDeployment, error) {
	query := `
		SELECT
			id
		  , realm_id
		  , flow_type
		  , active_version_id
		  , updated_at
		FROM flow_deployments
		WHERE realm_id = $1 AND flow_type = $2
	`

	var deployment models.FlowDeployment

	err := r.db.QueryRowContext(ctx, query, realmID, flowType).Scan(
		&deployment.ID, &deployment.RealmID, &deployment.FlowType,
		&deployment.ActiveVersionID, &deployment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("Get", "flow_deployment", realmID, persistence.ErrDeploymentNotFound)
		}

		return nil, persistence.NewStoreError("Get", "flow_deployment", realmID, err)
	}

	return &deployment, nil
}
