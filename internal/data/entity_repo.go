package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data/pgxutil"
	"github.com/target/hookline/internal/domain/model"
)

// EntityRepo reads the CRM read models used for trigger resolution. It goes
// through the native pgx connection so TEXT[] and NUMERIC columns scan
// directly into Go slices and floats.
type EntityRepo struct {
	DB *sql.DB
}

// NewEntityRepo creates an EntityRepo.
func NewEntityRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{DB: db}
}

var _ core.EntityLookup = (*EntityRepo)(nil)

func (r *EntityRepo) queryRow(ctx context.Context, query string, scan func(pgx.Row) error, args ...any) error {
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		err := scan(conn.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrEntityNotFound
		}
		return err
	})
}

// FindContact returns the contact with externalID in tenantID.
func (r *EntityRepo) FindContact(ctx context.Context, tenantID, externalID string) (*model.Contact, error) {
	var c model.Contact
	err := r.queryRow(ctx, `
		SELECT id::text, external_id, tenant_id, name, email, phone, tags, user_id
		FROM contacts WHERE tenant_id = $1 AND external_id = $2`,
		func(row pgx.Row) error {
			return row.Scan(&c.ID, &c.ExternalID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Tags, &c.UserID)
		}, tenantID, externalID)
	if err != nil {
		return nil, wrapLookupErr("contact", err)
	}
	return &c, nil
}

// FindProject returns the project with externalID in tenantID.
func (r *EntityRepo) FindProject(ctx context.Context, tenantID, externalID string) (*model.Project, error) {
	var p model.Project
	err := r.queryRow(ctx, `
		SELECT id::text, external_id, tenant_id, name, pipeline_id, stage_id, status,
		       monetary_value::float8, contact_external_id, user_id
		FROM projects WHERE tenant_id = $1 AND external_id = $2`,
		func(row pgx.Row) error {
			return row.Scan(&p.ID, &p.ExternalID, &p.TenantID, &p.Name, &p.PipelineID, &p.StageID,
				&p.Status, &p.MonetaryValue, &p.ContactExternalID, &p.UserID)
		}, tenantID, externalID)
	if err != nil {
		return nil, wrapLookupErr("project", err)
	}
	return &p, nil
}

// FindAppointment returns the appointment with externalID in tenantID.
func (r *EntityRepo) FindAppointment(ctx context.Context, tenantID, externalID string) (*model.Appointment, error) {
	var a model.Appointment
	err := r.queryRow(ctx, `
		SELECT id::text, external_id, tenant_id, title, status, starts_at, contact_external_id
		FROM appointments WHERE tenant_id = $1 AND external_id = $2`,
		func(row pgx.Row) error {
			return row.Scan(&a.ID, &a.ExternalID, &a.TenantID, &a.Title, &a.Status, &a.StartsAt, &a.ContactExternalID)
		}, tenantID, externalID)
	if err != nil {
		return nil, wrapLookupErr("appointment", err)
	}
	return &a, nil
}

// FindInvoice returns the invoice with externalID in tenantID.
func (r *EntityRepo) FindInvoice(ctx context.Context, tenantID, externalID string) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.queryRow(ctx, `
		SELECT id::text, external_id, tenant_id, number, status, total::float8, amount_paid::float8,
		       contact_external_id, project_external_id
		FROM invoices WHERE tenant_id = $1 AND external_id = $2`,
		func(row pgx.Row) error {
			return row.Scan(&inv.ID, &inv.ExternalID, &inv.TenantID, &inv.Number, &inv.Status,
				&inv.Total, &inv.AmountPaid, &inv.ContactExternalID, &inv.ProjectExternalID)
		}, tenantID, externalID)
	if err != nil {
		return nil, wrapLookupErr("invoice", err)
	}
	return &inv, nil
}

func wrapLookupErr(entity string, err error) error {
	if errors.Is(err, model.ErrEntityNotFound) {
		return err
	}
	return fmt.Errorf("find %s: %w", entity, err)
}
