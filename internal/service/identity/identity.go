// Package identity turns an inbound session credential into a verified user,
// or decides the visitor is anonymous. It fails closed: any credential that
// cannot be tied to a provider-verified email resolves to anonymous rather
// than to a user whose email cannot be trusted.
package identity

import (
	"errors"
	"fmt"

	"link.mbb.feedback/internal/model"
)

type Sessions interface {
	Verify(credential string) (model.UserID, error)
}

type Users interface {
	FetchUser(userID model.UserID) (*model.User, error)
}

type resolver struct {
	sessions Sessions
	users    Users
}

func NewResolver(sessions Sessions, users Users) *resolver {
	return &resolver{sessions: sessions, users: users}
}

// Resolve returns the verified user for the credential, or (nil, nil) for an
// anonymous visitor. Only a store outage produces an error; a bad credential
// never does.
func (r *resolver) Resolve(credential string) (*model.User, error) {
	if credential == "" {
		return nil, nil
	}

	userID, err := r.sessions.Verify(credential)
	if err != nil {
		return nil, nil
	}

	user, err := r.users.FetchUser(userID)
	if err != nil {
		if errors.Is(err, model.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: fetching session user: %v", model.ErrorUnavailable, err)
	}

	if !user.EmailVerified || user.Email == "" {
		return nil, nil
	}
	return user, nil
}
