package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/pkg/apperr"
)

// TokenSigner issues session tokens.
type TokenSigner interface {
	Issue(userID, role string) (string, error)
}

type Service struct {
	users      UserRepository
	tokens     TokenSigner
	bcryptCost int
	logger     zerolog.Logger
}

func NewService(users UserRepository, tokens TokenSigner, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, bcryptCost: bcrypt.DefaultCost, logger: logger}
}

// SetBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func (s *Service) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) issue(u *User) (*TokenResponse, error) {
	tok, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: tok, User: u}, nil
}

// Register creates a patient account and returns a session token.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.Validation("user already exists")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Wrap(err, "lookup user")
	}

	u := req.toUser()
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, apperr.Wrap(err, "create user")
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return s.issue(u)
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "lookup user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("stored password hash unusable")
		}
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(u)
}

// GetUser returns the user with id. It satisfies the patient and doctor
// lookups of the emergency and scheduling services.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get user")
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(u); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, apperr.Wrap(err, "update user")
	}
	return u, nil
}

// ListDoctors returns every doctor ordered by name.
func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	users, err := s.users.ListByRole(ctx, auth.RoleDoctor)
	if err != nil {
		return nil, apperr.Wrap(err, "list doctors")
	}
	doctors := make([]Doctor, 0, len(users))
	for _, u := range users {
		doctors = append(doctors, Doctor{ID: u.ID, Name: u.Name, Department: u.Department})
	}
	return doctors, nil
}
