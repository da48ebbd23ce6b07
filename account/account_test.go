// Copyright (c) 2025 BVK Chaitanya

package account

import (
	"crypto/sha256"
	"testing"
)

func TestPEMRoundTrip(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	pemText, err := a.PEM()
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromPEM(pemText)
	if err != nil {
		t.Fatal(err)
	}
	if a.PublicKey() != b.PublicKey() {
		t.Errorf("public key mismatch after PEM round-trip")
	}
}

func TestKeyring(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	k := new(Keyring)
	k.Add(101, a)

	if !k.CanSign(101) {
		t.Errorf("keyring must sign for user 101")
	}
	if k.CanSign(102) {
		t.Errorf("keyring must not sign for unknown user 102")
	}

	hash := sha256.Sum256([]byte("order intent"))
	sig, err := k.Sign(101, hash[:])
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) == 0 {
		t.Errorf("signature cannot be empty")
	}
	if _, err := k.Sign(102, hash[:]); err == nil {
		t.Errorf("signing for an unknown user must fail")
	}
}
