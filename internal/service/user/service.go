package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"link.mbb.feedback/internal/model"
)

type Store interface {
	CreateUser(user *model.User) error
	FetchUser(userID model.UserID) (*model.User, error)
	UserForAccount(provider string, providerAccountID string) (*model.User, error)
	LinkAccount(provider string, providerAccountID string, userID model.UserID) error
}

type service struct {
	store Store
}

func New(store Store) *service {
	return &service{store: store}
}

// EnsureUser returns the local user for a provider profile, creating one on
// first login. Profiles without a provider-verified email are rejected here
// so an unverifiable identity never gets a session.
func (s *service) EnsureUser(profile *model.ProviderProfile) (*model.User, error) {
	if !profile.EmailVerified || profile.Email == "" {
		return nil, fmt.Errorf("%w: provider email not verified", model.ErrorDenied)
	}

	existing, err := s.store.UserForAccount(profile.Provider, profile.ProviderAccountID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrorNotFound) {
		return nil, fmt.Errorf("%w: looking up account: %v", model.ErrorUnavailable, err)
	}

	user := &model.User{
		ID:            model.UserID(model.CreateID()),
		CreatedAt:     time.Now().UTC(),
		Name:          profile.Name,
		Username:      usernameFor(profile),
		Email:         profile.Email,
		EmailVerified: true,
		ProfilePic:    profile.ProfilePic,
	}

	if err := s.store.CreateUser(user); err != nil {
		return nil, fmt.Errorf("%w: creating user: %v", model.ErrorUnavailable, err)
	}
	if err := s.store.LinkAccount(profile.Provider, profile.ProviderAccountID, user.ID); err != nil {
		return nil, fmt.Errorf("%w: linking account: %v", model.ErrorUnavailable, err)
	}

	return user, nil
}

func (s *service) Fetch(userID model.UserID) (*model.User, error) {
	user, err := s.store.FetchUser(userID)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return nil, model.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: fetching user: %v", model.ErrorUnavailable, err)
	}
	return user, nil
}

// usernameFor derives a username when the provider doesn't supply one. The
// random suffix keeps the unique constraint happy for duplicate local parts.
func usernameFor(profile *model.ProviderProfile) string {
	if profile.Username != "" {
		return profile.Username
	}
	localPart := strings.SplitN(profile.Email, "@", 2)[0]
	return localPart + "-" + model.CreateID()[:6]
}
