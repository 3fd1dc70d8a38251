package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/utils"
)

// MemoryStore keeps users and the role catalog in process memory.  It
// backs STORE_DRIVER=memory and the tests, and follows the same contract
// as UserRepo and RoleRepo.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	byEmail map[string]string
	roles   []model.RoleEntry
	nextID  uint8
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]*model.User{},
		byEmail: map[string]string{},
	}
}

func copyUser(u *model.User) model.User {
	out := *u
	out.Roles = append([]model.Role(nil), u.Roles...)
	if u.RefreshTokenExpiry != nil {
		t := *u.RefreshTokenExpiry
		out.RefreshTokenExpiry = &t
	}
	return out
}

func (s *MemoryStore) hasRoleLocked(role model.Role) bool {
	for _, e := range s.roles {
		if e.Name == role {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Create(_ context.Context, email, name, password string, role model.Role, cost int) (model.User, error) {
	if err := utils.CheckPasswordPolicy(password); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return model.User{}, ErrEmailExists
	}
	if !s.hasRoleLocked(role) {
		return model.User{}, ErrRoleNotFound
	}
	now := time.Now().UTC()
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
		Roles:        []model.Role{role},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return copyUser(u), nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetByRefreshHash(_ context.Context, hash string) (model.User, error) {
	if hash == "" {
		return model.User{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.RefreshTokenHash == hash {
			return copyUser(u), nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s *MemoryStore) AssignRole(_ context.Context, userID string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if !s.hasRoleLocked(role) {
		return ErrRoleNotFound
	}
	u.Roles = model.SortRoles(append(u.Roles, role))
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RemoveRole(_ context.Context, userID string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	kept := u.Roles[:0]
	for _, r := range u.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	u.Roles = kept
	return nil
}

func (s *MemoryStore) SetRefresh(_ context.Context, userID, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	exp = exp.UTC()
	u.RefreshTokenHash = hash
	u.RefreshTokenExpiry = &exp
	return nil
}

func (s *MemoryStore) SwapRefresh(_ context.Context, userID, oldHash, newHash string, exp, now time.Time) (bool, error) {
	if oldHash == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.RefreshTokenHash != oldHash || u.RefreshTokenExpiry == nil || !u.RefreshTokenExpiry.After(now) {
		return false, nil
	}
	exp = exp.UTC()
	u.RefreshTokenHash = newHash
	u.RefreshTokenExpiry = &exp
	return true, nil
}

func (s *MemoryStore) ClearRefresh(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.RefreshTokenHash = ""
		u.RefreshTokenExpiry = nil
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	delete(s.byEmail, u.Email)
	delete(s.users, userID)
	return true, nil
}

// EnsureCatalog seeds the in-memory role catalog.
func (s *MemoryStore) EnsureCatalog(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range model.Catalog() {
		if s.hasRoleLocked(role) {
			continue
		}
		s.nextID++
		s.roles = append(s.roles, model.RoleEntry{ID: s.nextID, Name: role, NormalizedName: role.Normalized()})
	}
	return nil
}

func (s *MemoryStore) List(context.Context) ([]model.RoleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RoleEntry(nil), s.roles...), nil
}

// DeleteRole removes role from the catalog and from every user.  Named
// apart from Delete because MemoryStore serves both store contracts.
func (s *MemoryStore) DeleteRole(_ context.Context, role model.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	kept := s.roles[:0]
	for _, e := range s.roles {
		if e.Name == role {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	s.roles = kept
	if !found {
		return false, nil
	}
	for _, u := range s.users {
		roles := u.Roles[:0]
		for _, r := range u.Roles {
			if r != role {
				roles = append(roles, r)
			}
		}
		u.Roles = roles
	}
	return true, nil
}

// RoleCatalog adapts MemoryStore to the role store contract.
func (s *MemoryStore) RoleCatalog() *MemoryRoles { return &MemoryRoles{s: s} }

// MemoryRoles exposes MemoryStore's role catalog with RoleRepo's method set.
type MemoryRoles struct{ s *MemoryStore }

func (m *MemoryRoles) EnsureCatalog(ctx context.Context) error { return m.s.EnsureCatalog(ctx) }

func (m *MemoryRoles) List(ctx context.Context) ([]model.RoleEntry, error) { return m.s.List(ctx) }

func (m *MemoryRoles) Delete(ctx context.Context, role model.Role) (bool, error) {
	return m.s.DeleteRole(ctx, role)
}
