package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-arbiter/internal/store"
	users "github.com/AdamBeresnev/op-arbiter/internal/user"
	"github.com/AdamBeresnev/op-arbiter/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

// UserService manages arbiter accounts.
type UserService struct {
	db    *sqlx.DB
	store *store.UserStore
}

func NewUserService(db *sqlx.DB, store *store.UserStore) *UserService {
	return &UserService{db: db, store: store}
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	username := gothUser.NickName
	if username == "" {
		username = gothUser.Name
	}

	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)
	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != username {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			user.Username = username
			if err := s.store.UpdateUserNameAndAvatar(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to update arbiter profile: %w", err)
			}
		}
		return user, nil
	}

	if errors.Is(err, store.ErrNotFound) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   username,
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		if err := s.store.CreateUser(ctx, newUser); err != nil {
			return nil, fmt.Errorf("failed to create arbiter: %w", err)
		}
		return newUser, nil
	}

	return nil, err
}

// EnsureGuestUser returns the seeded guest arbiter, recreating it if the row
// was removed.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	user, err := s.store.GetUser(ctx, users.GuestID)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, store.ErrNotFound) {
		guestUser := &users.User{
			ID:       users.GuestID,
			Email:    "guest@op-arbiter.app",
			Username: "Guest Arbiter",
		}
		if err := s.store.CreateUser(ctx, guestUser); err != nil {
			return nil, fmt.Errorf("failed to create guest arbiter: %w", err)
		}
		return guestUser, nil
	}
	return nil, err
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.store.GetUser(ctx, id)
}
