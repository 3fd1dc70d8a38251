package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" coach ")
	require.NoError(t, err)
	assert.Equal(t, RoleCoach, r)

	_, err = ParseRole("Unknown")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRole("Admn")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestPrimaryRole(t *testing.T) {
	assert.Equal(t, RoleUnknown, User{}.PrimaryRole())
	assert.Equal(t, RoleRunner, User{Roles: []Role{RoleRunner}}.PrimaryRole())
	assert.Equal(t, RoleAdmin, User{Roles: []Role{RoleRunner, RoleAdmin}}.PrimaryRole())
}

func TestSortRoles(t *testing.T) {
	got := SortRoles([]Role{RoleRunner, RoleUnknown, RoleAdmin, RoleRunner})
	assert.Equal(t, []Role{RoleAdmin, RoleRunner}, got)
}
