package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

// UserService exposes account administration.
type UserService struct {
	users  repository.UserRepository
	auth   *AuthService
	logger *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo    repository.UserRepository
	AuthService *AuthService
	Logger      *zap.Logger
}

// UserUpdateInput overwrites only the fields that are set.
type UserUpdateInput struct {
	Username  *string
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *string
	Active    *bool
}

// UserStatistics summarizes accounts.
type UserStatistics struct {
	Total  int64            `json:"totalUsuarios"`
	Active int64            `json:"usuariosActivos"`
	Locked int64            `json:"usuariosBloqueados"`
	ByRole map[string]int64 `json:"usuariosPorRol"`
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: deps.UserRepo, auth: deps.AuthService, logger: logger}
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// ListActive returns accounts that have not been deleted.
func (s *UserService) ListActive(ctx context.Context) ([]domain.User, error) {
	return s.filter(ctx, func(u *domain.User) bool { return u.Active })
}

// ListByRole returns active accounts with the role. Unknown roles are rejected.
func (s *UserService) ListByRole(ctx context.Context, roleName string) ([]domain.User, error) {
	role, ok := domain.ParseUserRole(roleName)
	if !ok {
		return nil, errorutil.NewInvalidEnum("role", roleName)
	}
	return s.filter(ctx, func(u *domain.User) bool { return u.Active && u.Role == role })
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, userResource, id)
	}
	return user, nil
}

// GetByUsername returns one account by its login name.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, storeError(err, userResource, username)
	}
	return user, nil
}

// Update applies an admin edit. The password is re-hashed only when supplied.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, userResource, id)
	}

	var username, email string
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil {
		email = normalizeEmail(*input.Email)
	}
	if err := s.auth.ensureUnique(ctx, username, email, user.ID); err != nil {
		return nil, err
	}

	if input.Role != nil {
		role, ok := domain.ParseUserRole(*input.Role)
		if !ok {
			return nil, errorutil.NewInvalidEnum("role", *input.Role)
		}
		if user.Role == domain.UserRoleAdmin && role != domain.UserRoleAdmin {
			if err := s.ensureOtherAdmin(ctx, user.ID); err != nil {
				return nil, err
			}
		}
		user.Role = role
	}
	if input.Active != nil {
		if !*input.Active && user.Role == domain.UserRoleAdmin {
			if err := s.ensureOtherAdmin(ctx, user.ID); err != nil {
				return nil, err
			}
		}
		user.Active = *input.Active
	}
	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := s.auth.HashPassword(*input.Password)
		if err != nil {
			return nil, errorutil.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	overwrite(&user.FirstName, input.FirstName)
	overwrite(&user.LastName, input.LastName)
	if input.Phone != nil {
		user.Phone = trimmedPtr(*input.Phone)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeError(err, userResource, id)
	}
	return user, nil
}

// SoftDelete deactivates an account, refusing to remove the last active admin.
func (s *UserService) SoftDelete(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeError(err, userResource, id)
	}
	if user.Role == domain.UserRoleAdmin && user.Active {
		if err := s.ensureOtherAdmin(ctx, user.ID); err != nil {
			return err
		}
	}
	user.Active = false
	if err := s.users.Update(ctx, user); err != nil {
		return storeError(err, userResource, id)
	}
	s.logger.Info("user deactivated", zap.String("user_id", user.ID))
	return nil
}

// CountByRole counts active accounts with the role; unknown roles count zero.
func (s *UserService) CountByRole(ctx context.Context, roleName string) (int64, error) {
	role, ok := domain.ParseUserRole(roleName)
	if !ok {
		return 0, nil
	}
	users, err := s.filter(ctx, func(u *domain.User) bool { return u.Active && u.Role == role })
	if err != nil {
		return 0, err
	}
	return int64(len(users)), nil
}

// Statistics aggregates account counts.
func (s *UserService) Statistics(ctx context.Context) (*UserStatistics, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := &UserStatistics{Total: int64(len(users)), ByRole: map[string]int64{}}
	for _, user := range users {
		if user.Locked {
			stats.Locked++
		}
		if !user.Active {
			continue
		}
		stats.Active++
		stats.ByRole[string(user.Role)]++
	}
	return stats, nil
}

// TechnicianNames lists the display names of active technicians.
func (s *UserService) TechnicianNames(ctx context.Context) ([]string, error) {
	techs, err := s.ListByRole(ctx, string(domain.UserRoleTechnician))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(techs))
	for _, tech := range techs {
		names = append(names, tech.FullName())
	}
	sort.Strings(names)
	return names, nil
}

func (s *UserService) ensureOtherAdmin(ctx context.Context, selfID string) error {
	admins, err := s.filter(ctx, func(u *domain.User) bool {
		return u.Active && u.Role == domain.UserRoleAdmin && u.ID != selfID
	})
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return errorutil.NewConflict("cannot remove the last active admin", map[string]any{"id": selfID})
	}
	return nil
}

func (s *UserService) filter(ctx context.Context, keep func(*domain.User) bool) ([]domain.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	result := []domain.User{}
	for i := range users {
		if keep(&users[i]) {
			result = append(result, users[i])
		}
	}
	return result, nil
}
