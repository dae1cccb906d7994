// Package session issues and verifies the signed session tokens the rest of
// the system treats as the visitor's credential. Tokens are ES256 JWTs
// carrying only the user id; everything else is looked up fresh per request.
package session

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"link.mbb.feedback/internal/boot"
	"link.mbb.feedback/internal/model"
)

var ErrorInvalidToken = errors.New("invalid session token")

type service struct {
	privateKey *ecdsa.PrivateKey
	ttl        time.Duration
}

func New(config *boot.Config) (*service, error) {
	privateKey, err := loadOrCreateKey(config)
	if err != nil {
		return nil, fmt.Errorf("loading session key: %w", err)
	}

	return &service{
		privateKey: privateKey,
		ttl:        time.Duration(config.Session.TTL) * time.Hour,
	}, nil
}

func (s *service) Issue(userID model.UserID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.StandardClaims{
		Subject:   string(userID),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

func (s *service) Verify(credential string) (model.UserID, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &s.privateKey.PublicKey, nil
	})
	if err != nil {
		return "", ErrorInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrorInvalidToken
	}
	return model.UserID(claims.Subject), nil
}
