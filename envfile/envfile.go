// Copyright (c) 2025 BVK Chaitanya

// Package envfile loads environment variables from a simple KEY=VALUE file
// in the user's home directory. No shell escaping or expansion is
// performed on the values.
package envfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strings"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// UpdateEnv updates the current process's environment with the values read
// from the named file found in the user's home directory. Variables that
// are already set in the environment are left untouched. A missing file is
// not an error.
func UpdateEnv(filename string) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	user, err := user.Current()
	if err != nil {
		return err
	}
	if len(user.HomeDir) == 0 {
		return fmt.Errorf("could not determine current user's home directory")
	}

	fp, err := os.Open(filepath.Join(user.HomeDir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer fp.Close()

	scanner := bufio.NewScanner(fp)
	for i := 1; scanner.Scan(); i++ {
		line := string(bytes.TrimSpace(scanner.Bytes()))
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		p := strings.IndexRune(line, '=')
		if p == -1 {
			return fmt.Errorf("invalid variable assignment on line %d: %w", i, os.ErrInvalid)
		}
		key, value := line[:p], line[p+1:]
		if !nameRe.MatchString(key) {
			return fmt.Errorf("invalid environment variable name %q on line %d: %w", key, i, os.ErrInvalid)
		}
		if len(os.Getenv(key)) != 0 {
			continue
		}
		os.Setenv(key, value)
	}
	return scanner.Err()
}
