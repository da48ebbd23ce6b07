// Copyright (c) 2025 BVK Chaitanya

// Package account holds signing key material for exchange users. Keys never
// leave this package; the order builder hands over a digest and receives a
// signature through the Keyring capability.
package account

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/bvk/mmbot/syncmap"
)

// Account wraps one user's EC private key.
type Account struct {
	priKey *ecdsa.PrivateKey
}

// FromPEM parses an EC private key in PEM encoding.
func FromPEM(pemText string) (*Account, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("could not parse the PEM private key: %w", os.ErrInvalid)
	}
	priKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse the EC private key: %w", err)
	}
	return &Account{priKey: priKey}, nil
}

// Generate creates a new P-256 account. Used by the setup flow and tests.
func Generate() (*Account, error) {
	priKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Account{priKey: priKey}, nil
}

// PEM serializes the private key for storage in the secrets file.
func (a *Account) PEM() (string, error) {
	der, err := x509.MarshalECPrivateKey(a.priKey)
	if err != nil {
		return "", err
	}
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// PublicKey returns the hex encoding of the public key for user
// registration with the engine.
func (a *Account) PublicKey() string {
	pub := elliptic.MarshalCompressed(a.priKey.Curve, a.priKey.X, a.priKey.Y)
	return hex.EncodeToString(pub)
}

// Sign signs the given digest and returns a hex encoded signature.
func (a *Account) Sign(hash []byte) (string, error) {
	sig, err := ecdsa.SignASN1(rand.Reader, a.priKey, hash)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

// Keyring maps user ids to their accounts. It implements the order
// builder's signing capability. Safe for concurrent use; independent bot
// tasks share one read-mostly keyring.
type Keyring struct {
	accountMap syncmap.Map[int64, *Account]
}

func (k *Keyring) Add(userID int64, a *Account) {
	k.accountMap.Store(userID, a)
}

func (k *Keyring) CanSign(userID int64) bool {
	_, ok := k.accountMap.Load(userID)
	return ok
}

func (k *Keyring) Sign(userID int64, hash []byte) (string, error) {
	a, ok := k.accountMap.Load(userID)
	if !ok {
		return "", fmt.Errorf("user %d has no key material: %w", userID, os.ErrNotExist)
	}
	return a.Sign(hash)
}
