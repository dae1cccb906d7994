package session

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/rakutentech/jwk-go/jwk"
	"link.mbb.feedback/internal/boot"
)

const sessionKeyID = "session"

// loadOrCreateKey reads the signing key from the data directory, generating
// and persisting a fresh P-256 key on first boot. Rotating the file logs
// every session out.
func loadOrCreateKey(config *boot.Config) (*ecdsa.PrivateKey, error) {
	keyPath := path.Join(config.DataDirectory(), config.Session.KeyFile)

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		return createKey(keyPath)
	}

	keySpec, err := jwk.Parse(string(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}

	privateKey, ok := keySpec.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key file does not contain an EC private key")
	}
	return privateKey, nil
}

func createKey(keyPath string) (*ecdsa.PrivateKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}

	ks := jwk.NewSpec(privateKey)
	rawJWK, err := ks.ToJWK()
	if err != nil {
		return nil, fmt.Errorf("creating JWK: %w", err)
	}

	rawJWK.Use = "sig"
	rawJWK.Alg = "ES256"
	rawJWK.Kid = sessionKeyID

	keyData, err := rawJWK.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshalling JWK: %w", err)
	}

	if err := os.WriteFile(keyPath, keyData, 0o600); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}

	return privateKey, nil
}
