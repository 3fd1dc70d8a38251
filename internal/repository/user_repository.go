package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/utils"
)

const userColumns = "id,email,display_name,password_hash,refresh_token_hash,refresh_token_expiry,created_at,updated_at"

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create checks the password policy, hashes the password, inserts the
// user and links it to role.  The whole write happens in one transaction.
func (r *UserRepo) Create(ctx context.Context, email, name, password string, role model.Role, cost int) (model.User, error) {
	if err := utils.CheckPasswordPolicy(password); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
		Roles:        []model.Role{role},
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO users (id, email, display_name, password_hash) VALUES (?,?,?,?)",
		u.ID, u.Email, u.DisplayName, u.PasswordHash); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id) SELECT ?, id FROM roles WHERE normalized_name=?",
		u.ID, role.Normalized())
	if err != nil {
		return model.User{}, fmt.Errorf("link role: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return model.User{}, ErrRoleNotFound
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, u.ID)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "email=?", NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByRefreshHash fetches the user currently holding the refresh token
// with the given hash.  Expiry is not checked here.
func (r *UserRepo) GetByRefreshHash(ctx context.Context, hash string) (model.User, error) {
	if hash == "" {
		return model.User{}, ErrNotFound
	}
	return r.getOne(ctx, "refresh_token_hash=?", hash)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (model.User, error) {
	var (
		u   model.User
		exp sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.RefreshTokenHash, &exp, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if exp.Valid {
		t := exp.Time.UTC()
		u.RefreshTokenExpiry = &t
	}
	if u.Roles, err = r.Roles(ctx, u.ID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Roles returns the user's roles in catalog order.
func (r *UserRepo) Roles(ctx context.Context, userID string) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if role, err := model.ParseRole(name); err == nil {
			out = append(out, role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.SortRoles(out), nil
}

// AssignRole links role to the user.  Assigning a role the user already
// holds is a no-op.
func (r *UserRepo) AssignRole(ctx context.Context, userID string, role model.Role) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? LIMIT 1", userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var roleID uint8
	if err := tx.QueryRowContext(ctx, "SELECT id FROM roles WHERE normalized_name=? LIMIT 1", role.Normalized()).Scan(&roleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoleNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveRole unlinks role from the user.  Removing a role the user does
// not hold is a no-op.
func (r *UserRepo) RemoveRole(ctx context.Context, userID string, role model.Role) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE ur FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id=? AND r.normalized_name=?",
		userID, role.Normalized())
	return err
}

// SetRefresh overwrites the user's refresh token state.
func (r *UserRepo) SetRefresh(ctx context.Context, userID, hash string, exp time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=?, refresh_token_expiry=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		hash, exp.UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefresh replaces the refresh token only if the stored hash still
// equals oldHash and has not expired at now.  It reports whether the
// swap happened; a false result means another rotation won or the token
// expired in between.
func (r *UserRepo) SwapRefresh(ctx context.Context, userID, oldHash, newHash string, exp, now time.Time) (bool, error) {
	if oldHash == "" {
		return false, nil
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash=?, refresh_token_expiry=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND refresh_token_hash=? AND refresh_token_expiry > ?`,
		newHash, exp.UTC(), userID, oldHash, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRefresh drops any refresh token held by the user.
func (r *UserRepo) ClearRefresh(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash='', refresh_token_expiry=NULL, updated_at=UTC_TIMESTAMP() WHERE id=?",
		userID)
	return err
}

// Delete removes the user; role links go with it through the foreign key.
func (r *UserRepo) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
