package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/ech0client/internal/domain/model"
	"gopkg.in/yaml.v3"
)

const (
	fileMode = 0o600
	dirMode  = 0o750
)

// fileRecord is the on-disk layout of a persisted session.
type fileRecord struct {
	UserID   uint   `yaml:"user_id"`
	Username string `yaml:"username"`
	IsAdmin  bool   `yaml:"is_admin"`
	Token    string `yaml:"token"`
}

// Load replaces the session with the one stored at path. A missing file
// leaves the session empty.
func (s *Store) Load(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Clear(ctx)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrPersist, path, err)
	}

	var rec fileRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrPersist, path, err)
	}
	s.Set(ctx, model.User{
		UserID:   rec.UserID,
		Username: rec.Username,
		IsAdmin:  rec.IsAdmin,
		Token:    rec.Token,
	})
	return nil
}

// Save writes the session to path, or removes the file when the session is
// empty.
func (s *Store) Save(_ context.Context, path string) error {
	user, ok := s.User()
	if !ok {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %w", ErrPersist, path, err)
		}
		return nil
	}

	data, err := yaml.Marshal(fileRecord{
		UserID:   user.UserID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		Token:    user.Token,
	})
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("%w: mkdir %s: %w", ErrPersist, dir, err)
		}
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersist, path, err)
	}
	return nil
}
