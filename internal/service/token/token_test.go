package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	existing map[string]bool
	err      error
}

func (s *fakeStore) TokenExists(token string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[token], nil
}

func TestAllocate(t *testing.T) {
	assert := assert.New(t)

	t.Run("Unique Tokens", func(t *testing.T) {
		allocator := NewAllocator(&fakeStore{})

		first, err := allocator.Allocate()
		assert.Nil(err)
		assert.NotEmpty(first)

		second, err := allocator.Allocate()
		assert.Nil(err)
		assert.NotEqual(first, second)
	})

	t.Run("Retries On Collision", func(t *testing.T) {
		store := &fakeStore{existing: map[string]bool{"taken": true}}
		allocator := NewAllocator(store)

		calls := 0
		allocator.generate = func() (string, error) {
			calls++
			if calls == 1 {
				return "taken", nil
			}
			return "fresh", nil
		}

		token, err := allocator.Allocate()
		assert.Nil(err)
		assert.Equal("fresh", token)
		assert.Equal(2, calls)
	})

	t.Run("Gives Up Eventually", func(t *testing.T) {
		store := &fakeStore{existing: map[string]bool{"taken": true}}
		allocator := NewAllocator(store)
		allocator.generate = func() (string, error) { return "taken", nil }

		_, err := allocator.Allocate()
		assert.NotNil(err)
	})

	t.Run("Store Failure Surfaces", func(t *testing.T) {
		store := &fakeStore{err: errors.New("db offline")}
		allocator := NewAllocator(store)

		_, err := allocator.Allocate()
		assert.NotNil(err)
	})
}
