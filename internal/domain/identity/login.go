package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// Authenticator checks credentials and issues access tokens.
type Authenticator struct {
	users  UserRepository
	issuer *auth.TokenIssuer
}

func NewAuthenticator(users UserRepository, issuer *auth.TokenIssuer) *Authenticator {
	return &Authenticator{users: users, issuer: issuer}
}

func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.Invalid("email and password are required")
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	token, exp, err := a.issuer.Issue(u.ID.String(), u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Message: "user logged in", Token: token, ExpiresAt: exp, Role: u.Role}, nil
}
