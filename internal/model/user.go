package model

import "time"

type UserID string // local user id

type User struct {
	ID            UserID    `db:"ID" json:"id"`
	CreatedAt     time.Time `db:"CreatedAt" json:"createdAt"`
	Name          string    `db:"Name" json:"name"`
	Username      string    `db:"Username" json:"username"`
	Email         string    `db:"Email" json:"email"`
	EmailVerified bool      `db:"EmailVerified" json:"-"`
	ProfilePic    string    `db:"ProfilePic" json:"profilePic"`
	Bio           string    `db:"Bio" json:"bio"`
}

// ProviderProfile is the identity the upstream OAuth layer hands us once it
// has completed the handshake. Email verification happens upstream; we only
// trust profiles that arrive with EmailVerified set.
type ProviderProfile struct {
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"emailVerified"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	ProfilePic        string `json:"profilePic"`
}
