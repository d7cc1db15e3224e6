package service

import (
	"context"
	"errors"
	"strings"

	"gatisathi/internal/domain"
	"gatisathi/internal/models"

	"github.com/rs/zerolog"
)

// TokenIssuer signs session tokens for a user.
type TokenIssuer interface {
	GenerateToken(userID, role string) (string, error)
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UserService struct {
	users  domain.UserDirectory
	tokens TokenIssuer
	logger *zerolog.Logger
}

func NewUserService(users domain.UserDirectory, tokens TokenIssuer, logger *zerolog.Logger) *UserService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "users").Logger()
	return &UserService{users: users, tokens: tokens, logger: &l}
}

// Login resolves the contact to a user, creating one on first contact, and
// issues a session token.
func (s *UserService) Login(ctx context.Context, phone, email string) (*LoginResult, error) {
	user, err := s.FindOrCreateIdentity(ctx, phone, email)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, persistenceError("issue token", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// FindOrCreateIdentity looks the user up by phone, then by email, and
// registers a new user when neither matches.
func (s *UserService) FindOrCreateIdentity(ctx context.Context, phone, email string) (*models.User, error) {
	phone = strings.TrimSpace(phone)
	email = strings.ToLower(strings.TrimSpace(email))
	if phone == "" && email == "" {
		return nil, ErrContactRequired
	}

	user, err := s.lookup(ctx, phone, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, persistenceError("find user", err)
	}

	user = &models.User{Phone: phone, Email: email, Role: models.RoleUser}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// a concurrent login may have registered the same contact
		if existing, lerr := s.lookup(ctx, phone, email); lerr == nil {
			return existing, nil
		}
		return nil, persistenceError("create user", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (s *UserService) lookup(ctx context.Context, phone, email string) (*models.User, error) {
	if phone != "" {
		user, err := s.users.FindUserByContact(ctx, phone, "")
		if err == nil || !errors.Is(err, domain.ErrUserNotFound) {
			return user, err
		}
	}
	if email != "" {
		return s.users.FindUserByContact(ctx, "", email)
	}
	return nil, domain.ErrUserNotFound
}

func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError("get user", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	update.Name = strings.TrimSpace(update.Name)
	update.Phone = strings.TrimSpace(update.Phone)

	user, err := s.users.UpdateUserProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceError("update profile", err)
	}
	return user, nil
}
