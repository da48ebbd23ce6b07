// Copyright (c) 2025 BVK Chaitanya

// Package cmdutil holds flag sets and helpers shared by the subcommands.
package cmdutil

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/bvk/mmbot/engine"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DataFlags locates the data directory and the secrets file.
type DataFlags struct {
	dataDir     string
	secretsPath string
}

func (f *DataFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory (default $HOME/.mmbot)")
	fset.StringVar(&f.secretsPath, "secrets-file", "", "path to the secrets file (default data-dir/secrets.json)")
}

// DataDir resolves the data directory path, creating it when missing.
func (f *DataFlags) DataDir() (string, error) {
	dir := f.dataDir
	if len(dir) == 0 {
		dir = filepath.Join(os.Getenv("HOME"), ".mmbot")
	}
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", dir, err)
		}
	}
	return filepath.Abs(dir)
}

func (f *DataFlags) SecretsPath() (string, error) {
	if len(f.secretsPath) != 0 {
		return f.secretsPath, nil
	}
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets.json"), nil
}

// Secrets reads the secrets file. A missing file returns empty secrets,
// not an error, so anonymous subcommands keep working.
func (f *DataFlags) Secrets() (*Secrets, error) {
	fpath, err := f.SecretsPath()
	if err != nil {
		return nil, err
	}
	secrets, err := SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		secrets = new(Secrets)
	}
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	return secrets, nil
}

// GetDatabase opens the badger datastore under the data directory.
func (f *DataFlags) GetDatabase() (kv.Database, func(), error) {
	dir, err := f.DataDir()
	if err != nil {
		return nil, nil, err
	}
	bopts := badger.DefaultOptions(filepath.Join(dir, "db"))
	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open the database: %w", err)
	}
	db := kvbadger.New(bdb, IsGoodKey)
	return db, func() { bdb.Close() }, nil
}

func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}

// EngineFlags configures the matching-engine client endpoints.
type EngineFlags struct {
	restURL      string
	websocketURL string

	httpTimeout time.Duration
}

func (f *EngineFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.restURL, "engine-url", "", "base url for the engine REST api (default "+engine.RestURL.String()+" or MMBOT_ENGINE_URL value)")
	fset.StringVar(&f.websocketURL, "engine-ws-url", "", "url for the engine websocket stream")
	fset.DurationVar(&f.httpTimeout, "http-timeout", 5*time.Second, "http client timeout")
}

func (f *EngineFlags) Options() (*engine.Options, error) {
	opts := &engine.Options{
		HttpClientTimeout: f.httpTimeout,
	}
	restURL := f.restURL
	if len(restURL) == 0 {
		restURL = os.Getenv("MMBOT_ENGINE_URL")
	}
	if len(restURL) != 0 {
		u, err := url.Parse(restURL)
		if err != nil {
			return nil, fmt.Errorf("invalid engine url %q: %w", restURL, err)
		}
		opts.RestURL = u
	}
	if len(f.websocketURL) != 0 {
		u, err := url.Parse(f.websocketURL)
		if err != nil {
			return nil, fmt.Errorf("invalid engine websocket url %q: %w", f.websocketURL, err)
		}
		opts.WebsocketURL = u
	}
	return opts, nil
}

// NewClient creates the engine client, with JWT auth when the secrets
// carry an engine key.
func (f *EngineFlags) NewClient(ctx context.Context, secrets *Secrets) (*engine.Client, error) {
	opts, err := f.Options()
	if err != nil {
		return nil, err
	}
	kid, pemText := "", ""
	if secrets != nil && secrets.Engine != nil {
		kid, pemText = secrets.Engine.KeyID, secrets.Engine.PEM
	}
	return engine.New(kid, pemText, opts)
}
