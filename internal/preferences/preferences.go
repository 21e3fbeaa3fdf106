// Package preferences persists the handful of local values that survive
// sessions: the response language, the patience duration and the remembered
// conversational context. Values are read once at startup and written back
// whenever their owner changes them.
package preferences

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	keyLanguage          = "language"
	keyPatienceMs        = "patience_ms"
	keyRememberedContext = "remembered_context"
)

const (
	DefaultLanguage = "pt-BR"
	DefaultPatience = 2 * time.Second
)

type Store struct {
	v    *viper.Viper
	path string
}

// Open loads the preferences file at path, creating defaults in memory when
// the file does not exist yet. The file is only written on the first Set.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault(keyLanguage, DefaultLanguage)
	v.SetDefault(keyPatienceMs, int(DefaultPatience.Milliseconds()))
	v.SetDefault(keyRememberedContext, "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read preferences file: %w", err)
		}
	}

	return &Store{v: v, path: path}, nil
}

func (s *Store) Language() string {
	return s.v.GetString(keyLanguage)
}

func (s *Store) SetLanguage(tag string) error {
	s.v.Set(keyLanguage, tag)
	return s.write()
}

func (s *Store) Patience() time.Duration {
	ms := s.v.GetInt(keyPatienceMs)
	if ms <= 0 {
		return DefaultPatience
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Store) SetPatience(patience time.Duration) error {
	s.v.Set(keyPatienceMs, int(patience.Milliseconds()))
	return s.write()
}

func (s *Store) RememberedContext() string {
	return s.v.GetString(keyRememberedContext)
}

func (s *Store) SetRememberedContext(context string) error {
	s.v.Set(keyRememberedContext, context)
	return s.write()
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	return nil
}
