package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/EwwwzhI/ActionPlus/internal/clock"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

// Backend reads and writes the encoded aggregate. Read returns ErrNotFound
// when nothing has been stored yet.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// RepositoryBackend keeps the aggregate as a blob row in a Repository.
type RepositoryBackend struct {
	repo  Repository
	key   string
	clock clock.Clock
}

func NewRepositoryBackend(repo Repository, c clock.Clock) *RepositoryBackend {
	return &RepositoryBackend{repo: repo, key: StateKey, clock: clock.OrSystem(c)}
}

func (b *RepositoryBackend) Read(ctx context.Context) ([]byte, error) {
	blob, err := b.repo.LoadStateBlob(ctx, b.key)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

func (b *RepositoryBackend) Write(ctx context.Context, data []byte) error {
	return b.repo.SaveStateBlob(ctx, StateBlob{Key: b.key, Data: data, UpdatedAt: b.clock.Now()})
}

// FileBackend keeps the aggregate in one JSON file, replaced atomically.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: strings.TrimSpace(path)}
}

func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.path == "" {
		return nil, ErrNotFound
	}
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.path == "" {
		return errors.New("storage: empty state file path")
	}
	dir := filepath.Dir(b.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

// StateStore loads and saves the aggregate. Neither operation fails from
// the caller's point of view: a missing or unreadable document loads as the
// initial state and save failures are only logged.
type StateStore struct {
	backend Backend
	clock   clock.Clock
	logger  *slog.Logger
}

func NewStateStore(backend Backend, c clock.Clock, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{backend: backend, clock: clock.OrSystem(c), logger: logger}
}

func (s *StateStore) Load(ctx context.Context) state.State {
	raw, err := s.backend.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("load state failed, using defaults", "err", err)
		}
		return state.Initial()
	}
	return DecodeState(raw, s.clock.Now())
}

// Save writes st and reports whether it was persisted.
func (s *StateStore) Save(ctx context.Context, st state.State) bool {
	if err := s.save(ctx, st); err != nil {
		s.logger.Warn("save state failed", "err", err)
		return false
	}
	return true
}

func (s *StateStore) save(ctx context.Context, st state.State) error {
	data, err := EncodeState(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
