package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/runclub-api/internal/model"
)

// RoleRepo persists the role catalog in the `roles` table.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// EnsureCatalog inserts any catalog role that is missing.  Safe to run on
// every start.
func (r *RoleRepo) EnsureCatalog(ctx context.Context) error {
	for _, role := range model.Catalog() {
		if _, err := r.DB.ExecContext(ctx,
			"INSERT IGNORE INTO roles (name, normalized_name) VALUES (?,?)",
			role.String(), role.Normalized()); err != nil {
			return err
		}
	}
	return nil
}

// List returns all roles ordered by id.
func (r *RoleRepo) List(ctx context.Context) ([]model.RoleEntry, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, normalized_name FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoleEntry
	for rows.Next() {
		var (
			e    model.RoleEntry
			name string
		)
		if err := rows.Scan(&e.ID, &name, &e.NormalizedName); err != nil {
			return nil, err
		}
		e.Name = model.Role(name)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes a role from the catalog.  It reports false when the role
// was not present.  Protection of the Admin role is the caller's job.
func (r *RoleRepo) Delete(ctx context.Context, role model.Role) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE normalized_name=?", role.Normalized())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
