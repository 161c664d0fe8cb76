package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	apperrors "github.com/target/hookline/internal/errors"
)

// InstallationRepo tracks per-tenant install state.
type InstallationRepo struct {
	DB  *sql.DB
	cfg RepoConfig
}

// NewInstallationRepo creates an InstallationRepo.
func NewInstallationRepo(db *sql.DB, cfg RepoConfig) *InstallationRepo {
	return &InstallationRepo{DB: db, cfg: cfg.withDefaults()}
}

var _ core.InstallationRepository = (*InstallationRepo)(nil)

const installationColumns = `tenant_id, company_id, status, plan, installed_at, uninstalled_at, updated_at`

func scanInstallation(s rowScanner) (*model.Installation, error) {
	var (
		inst          model.Installation
		installedAt   sql.NullTime
		uninstalledAt sql.NullTime
	)
	if err := s.Scan(&inst.TenantID, &inst.CompanyID, &inst.Status, &inst.Plan,
		&installedAt, &uninstalledAt, &inst.UpdatedAt); err != nil {
		return nil, err
	}
	inst.InstalledAt = nullTimePtr(installedAt)
	inst.UninstalledAt = nullTimePtr(uninstalledAt)
	return &inst, nil
}

// Upsert writes inst. Empty company and plan values keep what is stored, and
// timestamps are only overwritten when set.
func (r *InstallationRepo) Upsert(ctx context.Context, inst model.Installation) (*model.Installation, error) {
	if inst.TenantID == "" {
		return nil, ErrTenantIDRequired
	}
	if inst.Status == "" {
		return nil, errors.New("installation status is required")
	}
	out, err := scanInstallation(r.DB.QueryRowContext(ctx, `
		INSERT INTO installations (tenant_id, company_id, status, plan, installed_at, uninstalled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE
		SET company_id = COALESCE(NULLIF(EXCLUDED.company_id, ''), installations.company_id),
		    status = EXCLUDED.status,
		    plan = COALESCE(NULLIF(EXCLUDED.plan, ''), installations.plan),
		    installed_at = COALESCE(EXCLUDED.installed_at, installations.installed_at),
		    uninstalled_at = CASE WHEN EXCLUDED.status = 'active' THEN NULL
		                          ELSE COALESCE(EXCLUDED.uninstalled_at, installations.uninstalled_at) END,
		    updated_at = EXCLUDED.updated_at
		RETURNING `+installationColumns,
		inst.TenantID, inst.CompanyID, inst.Status, inst.Plan,
		inst.InstalledAt, inst.UninstalledAt, r.cfg.TimeProvider.Now(),
	))
	if err != nil {
		return nil, fmt.Errorf("upsert installation: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Get returns the installation for tenantID, or nil when unknown.
func (r *InstallationRepo) Get(ctx context.Context, tenantID string) (*model.Installation, error) {
	inst, err := scanInstallation(r.DB.QueryRowContext(ctx,
		`SELECT `+installationColumns+` FROM installations WHERE tenant_id = $1`, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get installation: %w", apperrors.MapDBError(err))
	}
	return inst, nil
}
