// Package repository implements the credential store and role catalog.
// Absence is reported with ErrNotFound rather than driver errors so that
// callers can branch with errors.Is and never inspect sql.ErrNoRows.
//
// Expected MySQL schema:
//
//	users(id CHAR(36) PK, email VARCHAR(255) UNIQUE, display_name VARCHAR(100),
//	      password_hash VARCHAR(100), refresh_token_hash CHAR(64) NOT NULL DEFAULT '',
//	      refresh_token_expiry DATETIME(6) NULL, created_at, updated_at)
//	roles(id TINYINT UNSIGNED AUTO_INCREMENT PK, name VARCHAR(32) UNIQUE,
//	      normalized_name VARCHAR(32) UNIQUE)
//	user_roles(user_id CHAR(36) FK users ON DELETE CASCADE,
//	           role_id TINYINT UNSIGNED FK roles ON DELETE CASCADE, PK(user_id, role_id))
package repository

import "errors"

// ErrNotFound is returned when the requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by Create when the email is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrRoleNotFound is returned when a role is missing from the roles
// table, typically because the catalog has not been seeded.
var ErrRoleNotFound = errors.New("role not found")
