package dto

import (
	"time"

	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/service"
)

// UserRegisterRequest payload for new accounts.
type UserRegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"nombre" validate:"required,max=100"`
	LastName  string `json:"apellido" validate:"required,max=100"`
	Phone     string `json:"telefono" validate:"max=20"`
}

// ToInput converts the payload for the auth service.
func (r UserRegisterRequest) ToInput() service.RegisterInput {
	return service.RegisterInput{
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
	}
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// ChangePasswordRequest payload for a password change by the account owner.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"passwordActual" validate:"required"`
	NewPassword     string `json:"passwordNuevo" validate:"required,min=6"`
}

// UpdateUserRequest carries an admin edit; absent fields are left alone.
type UpdateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email     *string `json:"email" validate:"omitempty,email,max=100"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	FirstName *string `json:"nombre" validate:"omitempty,max=100"`
	LastName  *string `json:"apellido" validate:"omitempty,max=100"`
	Phone     *string `json:"telefono" validate:"omitempty,max=20"`
	Role      *string `json:"rol"`
	Active    *bool   `json:"activo"`
}

// ToInput converts the payload for the user service.
func (r UpdateUserRequest) ToInput() service.UserUpdateInput {
	return service.UserUpdateInput{
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Role:      r.Role,
		Active:    r.Active,
	}
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"nombre"`
	LastName    string     `json:"apellido"`
	FullName    string     `json:"nombreCompleto"`
	Phone       *string    `json:"telefono"`
	Role        string     `json:"rol"`
	Active      bool       `json:"activo"`
	Locked      bool       `json:"bloqueado"`
	CreatedAt   time.Time  `json:"fechaCreacion"`
	LastLoginAt *time.Time `json:"ultimoAcceso"`
}

// NewUserResponse renders an account without its credentials.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		FullName:    user.FullName(),
		Phone:       user.Phone,
		Role:        string(user.Role),
		Active:      user.Active,
		Locked:      user.Locked,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// NewUserResponses renders a list of accounts.
func NewUserResponses(users []domain.User) []UserResponse {
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, NewUserResponse(&users[i]))
	}
	return items
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// NewAuthResponse renders a session.
func NewAuthResponse(session *service.Session, message string) AuthResponse {
	return AuthResponse{
		Success:   true,
		Message:   message,
		User:      NewUserResponse(session.User),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}
}

// ExistsResponse answers availability checks.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}
