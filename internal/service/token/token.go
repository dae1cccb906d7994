// Package token allocates the public link tokens feedback messages are
// reached through. Tokens are decoupled from internal IDs so enumerating one
// space reveals nothing about the other.
package token

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"link.mbb.feedback/internal/model"
)

const maxAttempts = 3

type Store interface {
	TokenExists(token string) (bool, error)
}

type allocator struct {
	store    Store
	generate func() (string, error)
}

func NewAllocator(store Store) *allocator {
	return &allocator{store: store, generate: generateToken}
}

// Allocate returns a fresh unguessable token, checked for uniqueness against
// the store. At 122 bits of entropy a collision is practically impossible,
// but the check is cheap and the retry bounded.
func (a *allocator) Allocate() (string, error) {
	for i := 0; i < maxAttempts; i++ {
		candidate, err := a.generate()
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		exists, err := a.store.TokenExists(candidate)
		if err != nil {
			return "", fmt.Errorf("%w: checking token uniqueness: %v", model.ErrorUnavailable, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("allocating token: no unique token after %d attempts", maxAttempts)
}

func generateToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return base58.Encode(id[:]), nil
}
