// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/bvk/mmbot/account"
	"github.com/bvk/mmbot/telegram"
)

// EngineKey authenticates REST requests towards the matching engine.
type EngineKey struct {
	KeyID string `json:"kid"`

	// PEM holds the EC private key in PEM format. Escaped newlines are
	// accepted so the key can live on a single JSON line.
	PEM string `json:"pem"`
}

type Secrets struct {
	Engine *EngineKey `json:"engine"`

	// Accounts maps user ids to their settlement key PEMs.
	Accounts map[string]string `json:"accounts"`

	Telegram *telegram.Secrets `json:"telegram"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	for id := range v.Accounts {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("account key %q is not a user id: %w", id, err)
		}
	}
	return nil
}

func (v *Secrets) WriteFile(fpath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fpath, data, 0600)
}

// Keyring loads all configured account keys into a signing keyring.
func (v *Secrets) Keyring() (*account.Keyring, error) {
	keyring := new(account.Keyring)
	for id, pemText := range v.Accounts {
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, err
		}
		a, err := account.FromPEM(pemText)
		if err != nil {
			return nil, fmt.Errorf("could not load key for user %s: %w", id, err)
		}
		keyring.Add(userID, a)
	}
	return keyring, nil
}
